package progression

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/claude/forgemetrics/internal/models"
	"golang.org/x/sync/errgroup"
)

// Period selects how far back the dashboard looks.
type Period string

const (
	PeriodOneMonth    Period = "1month"
	PeriodThreeMonths Period = "3months"
	PeriodSixMonths   Period = "6months"
)

// Periods lists every supported period.
var Periods = []Period{PeriodOneMonth, PeriodThreeMonths, PeriodSixMonths}

// ParsePeriod validates a period name. Empty means 3months.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodThreeMonths, nil
	}
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Weeks returns the number of weekly volume points for the period.
func (p Period) Weeks() int {
	switch p {
	case PeriodOneMonth:
		return 4
	case PeriodSixMonths:
		return 24
	}
	return 12
}

const recentRecordsLimit = 10

// DashboardStore is the storage the dashboard reads from.
type DashboardStore interface {
	CountCompletedSessions(ctx context.Context, userID int) (int, error)
	QueryVolumeEntries(ctx context.Context, userID int, from, to time.Time) ([]models.VolumeEntry, error)
	QueryPersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error)
}

// VolumePoint is one week of completed-session volume.
type VolumePoint struct {
	WeekLabel           string    `json:"week_label"`
	WeekNumber          int       `json:"week_number"`
	TotalVolume         float64   `json:"total_volume"`
	SessionsCount       int       `json:"sessions_count"`
	AvgVolumePerSession float64   `json:"avg_volume_per_session"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
}

// Summary totals the dashboard.
type Summary struct {
	TotalSessions int     `json:"total_sessions"`
	TotalVolume   float64 `json:"total_volume"`
	RecordsSet    int     `json:"records_set"`
}

// Dashboard is the progression overview of one user over one period.
type Dashboard struct {
	Period            Period                     `json:"period"`
	UserLevel         Level                      `json:"user_level"`
	VolumeProgression []VolumePoint              `json:"volume_progression"`
	PersonalRecords   []models.PersonalRecordRow `json:"personal_records"`
	Summary           Summary                    `json:"summary"`
	GeneratedAt       time.Time                  `json:"generated_at"`
}

// DashboardService computes dashboards and caches them.
type DashboardService struct {
	store DashboardStore
	cache *Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewDashboardService returns a dashboard service. cache may be nil.
func NewDashboardService(store DashboardStore, cache *Cache, log *slog.Logger) *DashboardService {
	return &DashboardService{store: store, cache: cache, log: log, now: time.Now}
}

// Get returns the user's dashboard for the period, from cache when fresh.
func (s *DashboardService) Get(ctx context.Context, userID int, period Period) (*Dashboard, error) {
	if d, ok := s.cache.Get(userID, period); ok {
		s.log.Debug("dashboard cache hit", "user_id", userID, "period", period)
		return d, nil
	}
	gen := s.cache.Generation(userID)

	now := s.now().UTC()
	weeks := period.Weeks()
	from := now.AddDate(0, 0, -7*weeks)

	var (
		completed int
		entries   []models.VolumeEntry
		records   []models.PersonalRecordRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountCompletedSessions(gctx, userID)
		if err != nil {
			return fmt.Errorf("counting completed sessions: %w", err)
		}
		completed = n
		return nil
	})
	g.Go(func() error {
		e, err := s.store.QueryVolumeEntries(gctx, userID, from, now)
		if err != nil {
			return fmt.Errorf("querying volume: %w", err)
		}
		entries = e
		return nil
	})
	g.Go(func() error {
		r, err := s.store.QueryPersonalRecords(gctx, userID, "", recentRecordsLimit)
		if err != nil {
			return fmt.Errorf("querying personal records: %w", err)
		}
		records = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if records == nil {
		records = []models.PersonalRecordRow{}
	}
	points := bucketWeekly(entries, now, weeks)

	d := &Dashboard{
		Period:            period,
		UserLevel:         ComputeLevel(completed),
		VolumeProgression: points,
		PersonalRecords:   records,
		GeneratedAt:       now,
	}
	for _, p := range points {
		d.Summary.TotalSessions += p.SessionsCount
		d.Summary.TotalVolume += p.TotalVolume
	}
	d.Summary.RecordsSet = len(records)

	s.cache.Set(userID, period, d, gen)
	return d, nil
}

// bucketWeekly splits the weeks before now into consecutive 7-day windows,
// oldest first, the last one ending at now. Entries outside every window
// are ignored.
func bucketWeekly(entries []models.VolumeEntry, now time.Time, weeks int) []VolumePoint {
	points := make([]VolumePoint, weeks)
	start := now.AddDate(0, 0, -7*weeks)
	for i := range weeks {
		points[i] = VolumePoint{
			WeekLabel:  fmt.Sprintf("S%d", i+1),
			WeekNumber: i + 1,
			StartDate:  start.AddDate(0, 0, 7*i),
			EndDate:    start.AddDate(0, 0, 7*(i+1)),
		}
	}

	for _, e := range entries {
		for i := range points {
			if !e.CompletedAt.Before(points[i].StartDate) && e.CompletedAt.Before(points[i].EndDate) {
				points[i].TotalVolume += e.Volume
				points[i].SessionsCount++
				break
			}
		}
	}

	for i := range points {
		p := &points[i]
		if p.SessionsCount > 0 {
			p.AvgVolumePerSession = math.Floor(p.TotalVolume/float64(p.SessionsCount) + 0.5)
		}
		p.TotalVolume = math.Floor(p.TotalVolume + 0.5)
	}
	return points
}
