package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// --- Tool definitions ---

var toolExtractSessionMetrics = mcp.NewTool("extract_session_metrics",
	mcp.WithDescription("Compute the metrics summary of a session record without storing it. Force disciplines yield volume, max weight, sets, reps and calories; endurance disciplines yield distance, TSS, zone distribution and targets."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session record as a JSON object (discipline, prescription, rpe_avg, duration_actual_min)")),
)

var toolConvertLoad = mcp.NewTool("convert_load",
	mcp.WithDescription("Convert a load from one exercise to a related one using the ratio table. Unknown pairs fall back to 70% and are reported with confidence 'fallback'."),
	mcp.WithString("from", mcp.Required(), mcp.Description("Source exercise name (e.g. 'Squat')")),
	mcp.WithString("to", mcp.Required(), mcp.Description("Target exercise name (e.g. 'Goblet Squat')")),
	mcp.WithString("load", mcp.Required(), mcp.Description("Load in kg as a number ('100') or a per-set JSON array ('[60,70,80]')")),
)

var toolAdjustExercise = mcp.NewTool("adjust_exercise",
	mcp.WithDescription("Apply one progression step to an exercise prescription and record it. Sets stay within 1-8 and reps within 1-20; load steps are 2.5/5/10 kg by load tier."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise as JSON: {\"name\",\"sets\",\"reps\",\"load\"}")),
	mcp.WithString("adjustment", mcp.Required(), mcp.Description("Adjustment to apply"),
		mcp.Enum("load_increase", "load_decrease", "sets_increase", "sets_decrease", "reps_increase", "reps_decrease")),
)

var toolRampLoad = mcp.NewTool("ramp_load",
	mcp.WithDescription("Generate per-set loads with warm-up sets ramping up to the working load."),
	mcp.WithNumber("base_load", mcp.Required(), mcp.Description("Working load in kg")),
	mcp.WithNumber("sets", mcp.Required(), mcp.Description("Total number of sets")),
)

var toolGetSessionMetrics = mcp.NewTool("get_session_metrics",
	mcp.WithDescription("Get the stored metrics of a completed session."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("List training sessions, newest first."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("discipline", mcp.Description("Filter by discipline (e.g. 'strength', 'running')")),
	mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum("draft", "in_progress", "completed", "abandoned")),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return. Defaults to 50.")),
)

var toolGetProgression = mcp.NewTool("get_progression",
	mcp.WithDescription("Progression dashboard: level and XP, weekly volume, recent personal records."),
	mcp.WithString("period", mcp.Description("Period to cover. Defaults to 3months."), mcp.Enum("1month", "3months", "6months")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Most recent personal records (max weight, max volume, max distance, max duration)."),
	mcp.WithString("discipline", mcp.Description("Filter by discipline")),
	mcp.WithNumber("limit", mcp.Description("Maximum records to return. Defaults to 10.")),
)

var toolGetTrainingStats = mcp.NewTool("get_training_stats",
	mcp.WithDescription("Session counts by status, personal record count, first and last completed session, and per-discipline totals (duration, volume, distance)."),
)

// --- Tool handlers ---

func (h *handlers) extractSessionMetrics(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError("session parameter is required"), nil
	}
	return jsonResult(metrics.Extract([]byte(raw)))
}

func (h *handlers) convertLoad(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError("from parameter is required"), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError("to parameter is required"), nil
	}
	loadStr, err := req.RequireString("load")
	if err != nil {
		return mcp.NewToolResultError("load parameter is required"), nil
	}

	var load progression.Load
	if err := json.Unmarshal([]byte(loadStr), &load); err != nil || load.IsZero() {
		return mcp.NewToolResultError("load must be a number or an array of numbers"), nil
	}
	return jsonResult(h.converter.ConvertWithConfidence(from, to, load))
}

func (h *handlers) adjustExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exStr, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	var ex progression.Exercise
	if err := json.Unmarshal([]byte(exStr), &ex); err != nil {
		return mcp.NewToolResultError("invalid exercise JSON: " + err.Error()), nil
	}
	adjStr, err := req.RequireString("adjustment")
	if err != nil {
		return mcp.NewToolResultError("adjustment parameter is required"), nil
	}
	t, err := progression.ParseAdjustmentType(adjStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	adjusted, adj, err := h.ds.Adjust(ctx, UserIDFromContext(ctx), ex, t, nil)
	if errors.Is(err, progression.ErrNoLoad) || errors.Is(err, progression.ErrRepsProgression) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.log.Error("mcp adjust_exercise", "error", err)
		return mcp.NewToolResultError("adjustment failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"exercise":   adjusted,
		"adjustment": adj,
	})
}

func (h *handlers) rampLoad(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, err := req.RequireFloat("base_load")
	if err != nil {
		return mcp.NewToolResultError("base_load parameter is required"), nil
	}
	if base < 0 {
		return mcp.NewToolResultError("base_load must not be negative"), nil
	}
	sets, err := req.RequireInt("sets")
	if err != nil {
		return mcp.NewToolResultError("sets parameter is required"), nil
	}
	return jsonResult(map[string]any{"loads": progression.RampLoad(base, sets)})
}

func (h *handlers) getSessionMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id"), nil
	}

	m, err := h.ds.GetMetrics(ctx, UserIDFromContext(ctx), id)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("no metrics for session " + idStr), nil
	}
	if err != nil {
		h.log.Error("mcp get_session_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(m)
}

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.ds.QuerySessions(ctx, UserIDFromContext(ctx), storage.SessionFilter{
		Status:     req.GetString("status", ""),
		Discipline: req.GetString("discipline", ""),
		Start:      start,
		End:        end,
		Limit:      req.GetInt("limit", 50),
	})
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(rows)
}

func (h *handlers) getProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period, err := progression.ParsePeriod(req.GetString("period", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := h.ds.GetProgression(ctx, UserIDFromContext(ctx), period)
	if err != nil {
		h.log.Error("mcp get_progression", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(d)
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.ds.PersonalRecords(ctx, UserIDFromContext(ctx), req.GetString("discipline", ""), req.GetInt("limit", 10))
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(records)
}

func (h *handlers) getTrainingStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ds.Stats(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_training_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(st)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
