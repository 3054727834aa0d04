package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/clarification-service/internal/analytics"
	"github.com/spec-kit/clarification-service/internal/config"
	"github.com/spec-kit/clarification-service/internal/domain"
	"github.com/spec-kit/clarification-service/internal/events"
	"github.com/spec-kit/clarification-service/internal/persistence"
	"github.com/spec-kit/clarification-service/internal/repository"
	"github.com/spec-kit/clarification-service/internal/sla"
)

// snapshotLimit bounds the case snapshot fetched for reporting. The
// dashboards tolerate slightly stale or truncated data by design.
const snapshotLimit = 5000

// SummaryCache abstracts the KPI summary cache; satisfied by
// persistence.Redis.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// BucketReport pairs bucket labels with their counts.
type BucketReport struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

// ReportSummary is the server-computed KPI snapshot for dashboards.
type ReportSummary struct {
	GeneratedAt  time.Time    `json:"generated_at"`
	TotalActive  int          `json:"total_active"`
	OverdueCount int          `json:"overdue_count"`
	DueToday     int          `json:"due_today"`
	Aging        BucketReport `json:"aging"`
	Overdue      BucketReport `json:"overdue"`
}

// ReportService computes dashboard KPIs over a case snapshot. The
// summary is cached in Redis; when the cache is unavailable the same
// pure functions recompute from the raw list, so results are identical
// either way.
type ReportService struct {
	cases  repository.CaseRepository
	cache  SummaryCache
	cfg    config.ReportConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService constructs the service. cache may be nil.
func NewReportService(cases repository.CaseRepository, cache SummaryCache, cfg config.ReportConfig, logger *zap.Logger, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		cases:  cases,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    now,
	}
}

// Summary returns the KPI snapshot, served from cache when possible.
func (s *ReportService) Summary(ctx context.Context) (*ReportSummary, error) {
	if s.cacheUsable() {
		raw, err := s.cache.Get(ctx, s.cfg.SummaryCacheKey)
		if err == nil {
			var summary ReportSummary
			if unmarshalErr := json.Unmarshal([]byte(raw), &summary); unmarshalErr == nil {
				return &summary, nil
			}
			s.logger.Warn("discarding malformed cached summary")
		} else if !persistence.IsCacheMiss(err) {
			s.logger.Warn("summary cache unavailable; computing locally", zap.Error(err))
		}
	}

	summary, err := s.computeSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.cacheUsable() {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, s.cfg.SummaryCacheKey, string(raw), s.cfg.SummaryCacheTTL()); err != nil {
				s.logger.Warn("failed to cache summary", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// AgingReport buckets partner-waiting cases by days waiting. A nil defs
// selects the default ranges.
func (s *ReportService) AgingReport(ctx context.Context, defs []analytics.BucketDef) (*BucketReport, error) {
	cases, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	labels, counts := analytics.AgingBuckets(cases, defs)
	return &BucketReport{Labels: labels, Counts: counts}, nil
}

// OverdueReport buckets partner-waiting cases by days overdue.
func (s *ReportService) OverdueReport(ctx context.Context, defs []analytics.BucketDef) (*BucketReport, error) {
	cases, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	labels, counts := analytics.OverdueBuckets(cases, s.now(), defs)
	return &BucketReport{Labels: labels, Counts: counts}, nil
}

// DueOn counts cases due within the UTC calendar day of date.
func (s *ReportService) DueOn(ctx context.Context, date time.Time) (int, error) {
	cases, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return sla.DueOn(cases, date), nil
}

// InvalidateSummary drops the cached summary after a case mutation.
func (s *ReportService) InvalidateSummary(ctx context.Context) {
	if !s.cacheUsable() {
		return
	}
	if err := s.cache.Delete(ctx, s.cfg.SummaryCacheKey); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}

// RegisterHandlers subscribes cache invalidation to case mutations.
func (s *ReportService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		s.InvalidateSummary(ctx)
		return nil
	}
	dispatcher.Subscribe(events.EventCaseCreated, invalidate)
	dispatcher.Subscribe(events.EventCaseStatusChanged, invalidate)
	dispatcher.Subscribe(events.EventCaseEmailRecorded, invalidate)
	dispatcher.Subscribe(events.EventCaseArchived, invalidate)
}

func (s *ReportService) computeSummary(ctx context.Context) (*ReportSummary, error) {
	cases, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	agingLabels, agingCounts := analytics.AgingBuckets(cases, nil)
	overdueLabels, overdueCounts := analytics.OverdueBuckets(cases, now, nil)

	active := 0
	overdueTotal := 0
	for i := range cases {
		if !cases[i].Status.IsTerminal() {
			active++
		}
		if sla.IsOverdue(&cases[i], now) {
			overdueTotal++
		}
	}

	return &ReportSummary{
		GeneratedAt:  now,
		TotalActive:  active,
		OverdueCount: overdueTotal,
		DueToday:     sla.DueOn(cases, now),
		Aging:        BucketReport{Labels: agingLabels, Counts: agingCounts},
		Overdue:      BucketReport{Labels: overdueLabels, Counts: overdueCounts},
	}, nil
}

// snapshot fetches active cases with stale counters derived at the
// evaluation instant, so centrally- and client-computed KPIs agree.
func (s *ReportService) snapshot(ctx context.Context) ([]domain.ClarificationCase, error) {
	cases, err := s.cases.ListWithFilter(ctx, repository.CaseFilter{Limit: snapshotLimit})
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range cases {
		cases[i].StaleSinceDays = sla.StaleDays(&cases[i], now)
	}
	return cases, nil
}

func (s *ReportService) cacheUsable() bool {
	return s.cache != nil && s.cfg.CacheEnabled && s.cfg.SummaryCacheKey != ""
}
