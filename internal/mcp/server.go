package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/forgemetrics/internal/progression"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, converter *progression.Converter, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("ForgeMetrics", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("ForgeMetrics training server. Extract session metrics, convert loads between exercises, adjust prescriptions, and query sessions, progression and personal records. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, converter: converter, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolExtractSessionMetrics, Handler: h.extractSessionMetrics},
		server.ServerTool{Tool: toolConvertLoad, Handler: h.convertLoad},
		server.ServerTool{Tool: toolAdjustExercise, Handler: h.adjustExercise},
		server.ServerTool{Tool: toolRampLoad, Handler: h.rampLoad},
		server.ServerTool{Tool: toolGetSessionMetrics, Handler: h.getSessionMetrics},
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetProgression, Handler: h.getProgression},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetTrainingStats, Handler: h.getTrainingStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRatioTable, Handler: h.ratioTable},
		server.ServerResource{Resource: resDisciplines, Handler: h.disciplines},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds        DataSource
	converter *progression.Converter
	log       *slog.Logger
}

// --- Resource definitions ---

var resRatioTable = mcp.NewResource(
	"forge://ratio_table",
	"Exercise Ratio Table",
	mcp.WithResourceDescription("Load conversion ratios between related exercises. Unlisted pairs use a 0.7 fallback."),
	mcp.WithMIMEType("application/json"),
)

var resDisciplines = mcp.NewResource(
	"forge://disciplines",
	"Disciplines",
	mcp.WithResourceDescription("Known disciplines grouped by metrics family (force, endurance)."),
	mcp.WithMIMEType("application/json"),
)
