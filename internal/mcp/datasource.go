package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/session"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both Local (direct
// database access) and HTTPClient (remote via REST API) satisfy this
// interface.
type DataSource interface {
	GetMetrics(ctx context.Context, userID int, id uuid.UUID) (*metrics.SessionMetrics, error)
	QuerySessions(ctx context.Context, userID int, f storage.SessionFilter) ([]models.SessionRow, error)
	GetProgression(ctx context.Context, userID int, period progression.Period) (*progression.Dashboard, error)
	PersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error)
	Adjust(ctx context.Context, userID int, ex progression.Exercise, t progression.AdjustmentType, adjContext json.RawMessage) (progression.Exercise, progression.Adjustment, error)
	Stats(ctx context.Context, userID int) (*storage.SessionStats, error)
}

// Local serves MCP tools from the session and dashboard services.
type Local struct {
	*session.Service
	Dashboards *progression.DashboardService
}

// GetProgression returns the user's dashboard.
func (l *Local) GetProgression(ctx context.Context, userID int, period progression.Period) (*progression.Dashboard, error) {
	return l.Dashboards.Get(ctx, userID, period)
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)
