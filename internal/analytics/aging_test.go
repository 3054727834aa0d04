package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
)

func partnerCase(staleDays int) domain.ClarificationCase {
	return domain.ClarificationCase{WaitingOn: domain.WaitingPartner, StaleSinceDays: staleDays}
}

func overdueCase(nextAction time.Time) domain.ClarificationCase {
	return domain.ClarificationCase{WaitingOn: domain.WaitingPartner, NextActionAt: &nextAction}
}

func TestAgingBucketsDefaults(t *testing.T) {
	cases := []domain.ClarificationCase{
		partnerCase(1),
		partnerCase(4),
		partnerCase(10),
		partnerCase(20),
		{WaitingOn: domain.WaitingSelf, StaleSinceDays: 100}, // must not appear anywhere
	}

	labels, counts := AgingBuckets(cases, nil)

	wantLabels := []string{"0-2 Tage", "3-6 Tage", "7-14 Tage", ">14 Tage"}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Errorf("labels = %v, want %v", labels, wantLabels)
	}
	if want := []int{1, 1, 1, 1}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestAgingBucketsBoundaries(t *testing.T) {
	tests := []struct {
		days   int
		bucket int
	}{
		{0, 0}, {2, 0},
		{3, 1}, {6, 1},
		{7, 2}, {14, 2},
		{15, 3}, {365, 3},
	}
	for _, tt := range tests {
		_, counts := AgingBuckets([]domain.ClarificationCase{partnerCase(tt.days)}, nil)
		total := 0
		for i, count := range counts {
			total += count
			if count == 1 && i != tt.bucket {
				t.Errorf("staleSinceDays=%d landed in bucket %d, want %d", tt.days, i, tt.bucket)
			}
		}
		if total != 1 {
			t.Errorf("staleSinceDays=%d counted %d times, want exactly once", tt.days, total)
		}
	}
}

func TestAgingBucketsOverride(t *testing.T) {
	defs := []BucketDef{
		{Label: "frisch", Min: 0, Max: 9},
		{Label: "alt", Min: 10, Max: -1},
	}
	cases := []domain.ClarificationCase{partnerCase(5), partnerCase(9), partnerCase(10), partnerCase(99)}

	labels, counts := AgingBuckets(cases, defs)
	if !reflect.DeepEqual(labels, []string{"frisch", "alt"}) {
		t.Errorf("labels = %v", labels)
	}
	if want := []int{2, 2}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestOverdueBucketsDefaults(t *testing.T) {
	now := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []domain.ClarificationCase{
		overdueCase(now.Add(-1 * day)),
		overdueCase(now.Add(-3 * day)),
		overdueCase(now.Add(-13 * day)),
		overdueCase(now.Add(-21 * day)),
		overdueCase(now.Add(2 * day)), // future deadline, excluded
		{WaitingOn: domain.WaitingSelf, NextActionAt: timePtr(now.Add(-5 * day))}, // self, excluded
		{WaitingOn: domain.WaitingPartner},                                        // no deadline, excluded
	}

	labels, counts := OverdueBuckets(cases, now, nil)

	wantLabels := []string{"1–2 Tage überfällig", "3–6 Tage überfällig", "7–14 Tage überfällig", ">14 Tage überfällig"}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Errorf("labels = %v, want %v", labels, wantLabels)
	}
	if want := []int{1, 1, 1, 1}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestOverdueBucketsExcludesSameDay(t *testing.T) {
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	// Deadline passed, but by less than a whole day: floor gives 0 days
	// overdue and the smallest default bucket starts at 1.
	cases := []domain.ClarificationCase{overdueCase(now.Add(-6 * time.Hour))}

	_, counts := OverdueBuckets(cases, now, nil)
	for i, count := range counts {
		if count != 0 {
			t.Errorf("bucket %d counted a same-day case", i)
		}
	}
}

func timePtr(value time.Time) *time.Time {
	return &value
}
