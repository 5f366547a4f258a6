package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/claude/forgemetrics/internal/ingest/alpha"
	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/session"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Sessions is the session workflow the handlers drive.
type Sessions interface {
	SaveCompleted(ctx context.Context, userID int, raw json.RawMessage) (*session.SaveResult, error)
	SaveDraft(ctx context.Context, userID int, raw json.RawMessage) (*models.SessionRow, error)
	UpdateStatus(ctx context.Context, userID int, id uuid.UUID, status string) (*models.SessionRow, *session.SaveResult, error)
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.SessionRow, error)
	GetMetrics(ctx context.Context, userID int, id uuid.UUID) (*metrics.SessionMetrics, error)
	QuerySessions(ctx context.Context, userID int, f storage.SessionFilter) ([]models.SessionRow, error)
	PersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error)
	Adjust(ctx context.Context, userID int, ex progression.Exercise, t progression.AdjustmentType, adjContext json.RawMessage) (progression.Exercise, progression.Adjustment, error)
	AverageAdjustment(ctx context.Context, userID int, exerciseName string, t progression.AdjustmentType) (float64, error)
	AdjustmentHistory(ctx context.Context, userID int, exerciseName string, limit int) ([]models.AdjustmentRow, error)
	Stats(ctx context.Context, userID int) (*storage.SessionStats, error)
}

// Dashboards computes progression dashboards.
type Dashboards interface {
	Get(ctx context.Context, userID int, period progression.Period) (*progression.Dashboard, error)
}

var (
	_ Sessions   = (*session.Service)(nil)
	_ Dashboards = (*progression.DashboardService)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions   Sessions
	dashboards Dashboards
	converter  *progression.Converter
	importer   *alpha.Importer
	log        *slog.Logger
	apiKey     string
	identity   func(http.Handler) http.Handler
	health     func(context.Context) error
	router     chi.Router
}

// New creates a new Server with all routes configured. Requests are
// attributed with DevIdentity unless SetTailscale is called before serving.
func New(sessions Sessions, dashboards Dashboards, converter *progression.Converter, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		sessions:   sessions,
		dashboards: dashboards,
		converter:  converter,
		importer:   alpha.NewImporter(sessions, log),
		log:        log,
		apiKey:     apiKey,
		identity:   DevIdentity,
		router:     chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches request attribution to tailnet identities.
func (s *Server) SetTailscale(who WhoIsClient, users UserStore) {
	s.identity = TailscaleIdentity(who, users, s.log)
}

// SetHealthCheck makes /healthz report 503 while check fails.
func (s *Server) SetHealthCheck(check func(context.Context) error) {
	s.health = check
}

// MountMCP serves an MCP handler at /mcp behind the same API key and
// identity middleware as the REST API. Handlers read the caller with
// RequestUserID.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Route("/mcp", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.withIdentity)
		r.Handle("/", h)
		r.Handle("/*", h)
	})
}

// withIdentity defers to s.identity at request time so SetTailscale can be
// called after routes are built.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.identity(next).ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.withIdentity)

		r.Get("/me", s.handleMe)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleSaveSession)
			r.Get("/", s.handleQuerySessions)
			r.Post("/drafts", s.handleSaveDraft)
			r.Get("/{id}", s.handleGetSession)
			r.Patch("/{id}/status", s.handleUpdateStatus)
			r.Get("/{id}/metrics", s.handleGetMetrics)
		})

		r.Post("/metrics/extract", s.handleExtractMetrics)

		r.Route("/exercises", func(r chi.Router) {
			r.Get("/ratios", s.handleRatios)
			r.Post("/convert", s.handleConvert)
			r.Post("/adjust", s.handleAdjust)
			r.Post("/ramp", s.handleRamp)
			r.Get("/adjustments", s.handleAdjustmentHistory)
			r.Get("/adjustments/average", s.handleAverageAdjustment)
		})

		r.Post("/import/alpha", s.handleImportAlpha)

		r.Get("/progression", s.handleProgression)
		r.Get("/records", s.handleRecords)
		r.Get("/stats", s.handleStats)
	})
}
