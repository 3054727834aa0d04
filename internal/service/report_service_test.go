package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/clarification-service/internal/config"
	"github.com/spec-kit/clarification-service/internal/domain"
	"github.com/spec-kit/clarification-service/internal/events"
)

// fakeSummaryCache is an in-memory SummaryCache; misses surface
// redis.Nil like the real client, and failing can be toggled to
// exercise degradation.
type fakeSummaryCache struct {
	values  map[string]string
	failing bool
	gets    int
	sets    int
	deletes int
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{values: make(map[string]string)}
}

func (c *fakeSummaryCache) Get(_ context.Context, key string) (string, error) {
	c.gets++
	if c.failing {
		return "", errors.New("connection refused")
	}
	value, ok := c.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (c *fakeSummaryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.sets++
	if c.failing {
		return errors.New("connection refused")
	}
	c.values[key] = value
	return nil
}

func (c *fakeSummaryCache) Delete(_ context.Context, key string) error {
	c.deletes++
	if c.failing {
		return errors.New("connection refused")
	}
	delete(c.values, key)
	return nil
}

func reportConfig() config.ReportConfig {
	return config.ReportConfig{
		SummaryCacheTTLSeconds: 60,
		SummaryCacheKey:        "reports:summary",
		CacheEnabled:           true,
	}
}

// reportCases returns a snapshot with known aging, overdue and due-today
// characteristics relative to now = 2025-06-10T12:00Z.
func reportCases(now time.Time) []domain.ClarificationCase {
	overdueAt := now.Add(-3 * 24 * time.Hour)
	dueToday := now.Add(2 * time.Hour)
	return []domain.ClarificationCase{
		{
			ID:           "c-1",
			Status:       domain.CaseStatusSent,
			WaitingOn:    domain.WaitingPartner,
			NextActionAt: &overdueAt,
			CreatedAt:    now.Add(-10 * 24 * time.Hour),
			UpdatedAt:    now.Add(-4 * 24 * time.Hour),
		},
		{
			ID:           "c-2",
			Status:       domain.CaseStatusPending,
			WaitingOn:    domain.WaitingPartner,
			NextActionAt: &dueToday,
			CreatedAt:    now.Add(-2 * 24 * time.Hour),
			UpdatedAt:    now.Add(-1 * 24 * time.Hour),
		},
		{
			ID:        "c-3",
			Status:    domain.CaseStatusInternal,
			WaitingOn: domain.WaitingSelf,
			CreatedAt: now.Add(-20 * 24 * time.Hour),
			UpdatedAt: now.Add(-20 * 24 * time.Hour),
		},
		{
			ID:        "c-4",
			Status:    domain.CaseStatusResolved,
			WaitingOn: domain.WaitingSelf,
			CreatedAt: now.Add(-30 * 24 * time.Hour),
			UpdatedAt: now.Add(-2 * 24 * time.Hour),
		},
	}
}

func newReportFixture(cache *fakeSummaryCache) (*ReportService, *fakeCaseRepo, time.Time) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeCaseRepo()
	for _, c := range reportCases(now) {
		repo.cases[c.ID] = c
	}
	svc := NewReportService(repo, cache, reportConfig(), zap.NewNop(), func() time.Time { return now })
	return svc, repo, now
}

func TestSummaryComputesAndCaches(t *testing.T) {
	cache := newFakeSummaryCache()
	svc, _, now := newReportFixture(cache)

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	// c-4 is Resolved and must not count as active.
	if summary.TotalActive != 3 {
		t.Errorf("totalActive = %d, want 3", summary.TotalActive)
	}
	if summary.OverdueCount != 1 {
		t.Errorf("overdueCount = %d, want 1", summary.OverdueCount)
	}
	if summary.DueToday != 1 {
		t.Errorf("dueToday = %d, want 1", summary.DueToday)
	}
	if !summary.GeneratedAt.Equal(now) {
		t.Errorf("generatedAt = %v, want %v", summary.GeneratedAt, now)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
	if _, ok := cache.values["reports:summary"]; !ok {
		t.Error("summary was not stored under the configured key")
	}
}

func TestSummaryServesCachedValue(t *testing.T) {
	cache := newFakeSummaryCache()
	svc, repo, _ := newReportFixture(cache)

	first, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("first Summary: %v", err)
	}

	// Mutate the snapshot behind the cache; a cached read must not see it.
	repo.cases = map[string]domain.ClarificationCase{}

	second, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("second Summary: %v", err)
	}
	if second.TotalActive != first.TotalActive {
		t.Errorf("cached totalActive = %d, want %d", second.TotalActive, first.TotalActive)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1 (second call should hit)", cache.sets)
	}
}

func TestSummaryDegradesWhenCacheFails(t *testing.T) {
	cache := newFakeSummaryCache()
	cache.failing = true
	svc, _, _ := newReportFixture(cache)

	direct, err := NewReportService(svc.cases, nil, reportConfig(), zap.NewNop(), svc.now).Summary(context.Background())
	if err != nil {
		t.Fatalf("direct Summary: %v", err)
	}
	degraded, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("degraded Summary: %v", err)
	}
	if degraded.TotalActive != direct.TotalActive ||
		degraded.OverdueCount != direct.OverdueCount ||
		degraded.DueToday != direct.DueToday {
		t.Errorf("degraded summary %+v differs from direct compute %+v", degraded, direct)
	}
}

func TestSummaryDiscardsMalformedCacheEntry(t *testing.T) {
	cache := newFakeSummaryCache()
	cache.values["reports:summary"] = "{not json"
	svc, _, _ := newReportFixture(cache)

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalActive != 3 {
		t.Errorf("totalActive = %d, want recomputed 3", summary.TotalActive)
	}
}

func TestRegisterHandlersInvalidatesOnMutations(t *testing.T) {
	cache := newFakeSummaryCache()
	svc, _, _ := newReportFixture(cache)

	dispatcher := events.NewInMemoryDispatcher()
	svc.RegisterHandlers(dispatcher)

	if _, err := svc.Summary(context.Background()); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(cache.values) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(cache.values))
	}

	if err := dispatcher.Publish(context.Background(), events.Event{
		Type:   events.EventCaseStatusChanged,
		CaseID: "c-1",
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(cache.values) != 0 {
		t.Error("status change event must invalidate the cached summary")
	}
	if cache.deletes != 1 {
		t.Errorf("cache deletes = %d, want 1", cache.deletes)
	}
}

func TestOverdueReportCountsPastDeadlines(t *testing.T) {
	cache := newFakeSummaryCache()
	svc, _, _ := newReportFixture(cache)

	report, err := svc.OverdueReport(context.Background(), nil)
	if err != nil {
		t.Fatalf("OverdueReport: %v", err)
	}
	total := 0
	for _, n := range report.Counts {
		total += n
	}
	if total != 1 {
		t.Errorf("overdue bucket total = %d, want 1", total)
	}
}
