package progression

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/forgemetrics/internal/models"
)

type fakeDashboardStore struct {
	completed int
	entries   []models.VolumeEntry
	records   []models.PersonalRecordRow
	err       error
	calls     int
	onCount   func()
}

func (f *fakeDashboardStore) CountCompletedSessions(_ context.Context, _ int) (int, error) {
	f.calls++
	if f.onCount != nil {
		f.onCount()
	}
	return f.completed, f.err
}

func (f *fakeDashboardStore) QueryVolumeEntries(_ context.Context, _ int, _, _ time.Time) ([]models.VolumeEntry, error) {
	return f.entries, nil
}

func (f *fakeDashboardStore) QueryPersonalRecords(_ context.Context, _ int, _ string, _ int) ([]models.PersonalRecordRow, error) {
	return f.records, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// TestParsePeriod checks period names and week counts.
func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in    string
		weeks int
	}{
		{"", 12},
		{"1month", 4},
		{"3months", 12},
		{"6months", 24},
	}
	for _, tt := range tests {
		p, err := ParsePeriod(tt.in)
		if err != nil {
			t.Fatalf("ParsePeriod(%q): %v", tt.in, err)
		}
		if p.Weeks() != tt.weeks {
			t.Errorf("ParsePeriod(%q).Weeks() = %d, want %d", tt.in, p.Weeks(), tt.weeks)
		}
	}
	if _, err := ParsePeriod("1year"); err == nil {
		t.Error("expected error for 1year")
	}
}

// TestBucketWeekly checks window placement and rounding.
func TestBucketWeekly(t *testing.T) {
	entries := []models.VolumeEntry{
		{CompletedAt: fixedNow.Add(-1 * time.Hour), Volume: 1000.4},
		{CompletedAt: fixedNow.Add(-2 * 24 * time.Hour), Volume: 500},
		{CompletedAt: fixedNow.Add(-10 * 24 * time.Hour), Volume: 12.5},
		{CompletedAt: fixedNow.Add(-60 * 24 * time.Hour), Volume: 9999},
	}
	points := bucketWeekly(entries, fixedNow, 4)
	if len(points) != 4 {
		t.Fatalf("len = %d, want 4", len(points))
	}
	last := points[3]
	if last.WeekLabel != "S4" || last.SessionsCount != 2 || last.TotalVolume != 1500 || last.AvgVolumePerSession != 750 {
		t.Errorf("last week = %+v", last)
	}
	if !last.EndDate.Equal(fixedNow) {
		t.Errorf("last EndDate = %v, want %v", last.EndDate, fixedNow)
	}
	if points[2].SessionsCount != 1 || points[2].TotalVolume != 13 {
		t.Errorf("week 3 = %+v", points[2])
	}
	if points[0].SessionsCount != 0 || points[0].AvgVolumePerSession != 0 {
		t.Errorf("week 1 = %+v", points[0])
	}
}

// TestDashboardGet checks aggregation and caching.
func TestDashboardGet(t *testing.T) {
	store := &fakeDashboardStore{
		completed: 25,
		entries:   []models.VolumeEntry{{CompletedAt: fixedNow.Add(-time.Hour), Volume: 3000}},
		records:   []models.PersonalRecordRow{{ExerciseName: "Squat", RecordType: models.RecordMaxWeight, Value: 120}},
	}
	svc := NewDashboardService(store, newTestCache(), testLogger())
	svc.now = func() time.Time { return fixedNow }

	d, err := svc.Get(context.Background(), 1, PeriodOneMonth)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.UserLevel.CurrentLevel != 2 || d.UserLevel.CurrentXP != 250 {
		t.Errorf("level = %+v", d.UserLevel)
	}
	if len(d.VolumeProgression) != 4 {
		t.Errorf("points = %d, want 4", len(d.VolumeProgression))
	}
	if d.Summary.TotalSessions != 1 || d.Summary.TotalVolume != 3000 || d.Summary.RecordsSet != 1 {
		t.Errorf("summary = %+v", d.Summary)
	}

	if _, err := svc.Get(context.Background(), 1, PeriodOneMonth); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (second Get cached)", store.calls)
	}
}

// TestDashboardInvalidatedDuringGet checks that a save landing while a
// dashboard is being computed is not masked by caching the older result.
func TestDashboardInvalidatedDuringGet(t *testing.T) {
	cache := newTestCache()
	store := &fakeDashboardStore{completed: 3}
	store.onCount = func() {
		store.onCount = nil
		cache.Invalidate(1)
	}
	svc := NewDashboardService(store, cache, testLogger())
	svc.now = func() time.Time { return fixedNow }

	if _, err := svc.Get(context.Background(), 1, PeriodThreeMonths); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := cache.Get(1, PeriodThreeMonths); ok {
		t.Error("dashboard cached across an invalidation")
	}

	store.completed = 4
	d, err := svc.Get(context.Background(), 1, PeriodThreeMonths)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if store.calls != 2 || d.UserLevel.CurrentXP != 200 {
		t.Errorf("calls = %d, xp = %d; want a fresh computation", store.calls, d.UserLevel.CurrentXP)
	}
	if _, ok := cache.Get(1, PeriodThreeMonths); !ok {
		t.Error("fresh dashboard not cached")
	}
}

// TestDashboardGetError checks that a store failure is returned and not
// cached.
func TestDashboardGetError(t *testing.T) {
	store := &fakeDashboardStore{err: errors.New("connection refused")}
	svc := NewDashboardService(store, nil, testLogger())

	if _, err := svc.Get(context.Background(), 1, PeriodThreeMonths); err == nil {
		t.Fatal("expected error")
	}
}

// TestDashboardEmptyRecords checks that no records encode as an empty list.
func TestDashboardEmptyRecords(t *testing.T) {
	svc := NewDashboardService(&fakeDashboardStore{}, nil, testLogger())
	d, err := svc.Get(context.Background(), 1, PeriodSixMonths)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.PersonalRecords == nil {
		t.Error("PersonalRecords is nil, want empty slice")
	}
	if len(d.VolumeProgression) != 24 {
		t.Errorf("points = %d, want 24", len(d.VolumeProgression))
	}
}
