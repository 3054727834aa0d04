// Package analytics buckets case collections into fixed day ranges for
// dashboard rendering. The functions are pure folds over in-memory
// snapshots; a malformed record is skipped, never fatal, so one bad row
// cannot break a dashboard. Results are bit-identical whether computed
// centrally or client-side from the same input set.
package analytics

import (
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
)

// BucketDef describes one day-count range. Max < 0 means open-ended.
// Ranges are matched lower-bound inclusive, first match wins.
type BucketDef struct {
	Label string
	Min   int
	Max   int
}

// DefaultAgingBuckets returns the standard waiting-time ranges.
func DefaultAgingBuckets() []BucketDef {
	return []BucketDef{
		{Label: "0-2 Tage", Min: 0, Max: 2},
		{Label: "3-6 Tage", Min: 3, Max: 6},
		{Label: "7-14 Tage", Min: 7, Max: 14},
		{Label: ">14 Tage", Min: 15, Max: -1},
	}
}

// DefaultOverdueBuckets returns the standard overdue ranges.
func DefaultOverdueBuckets() []BucketDef {
	return []BucketDef{
		{Label: "1–2 Tage überfällig", Min: 1, Max: 2},
		{Label: "3–6 Tage überfällig", Min: 3, Max: 6},
		{Label: "7–14 Tage überfällig", Min: 7, Max: 14},
		{Label: ">14 Tage überfällig", Min: 15, Max: -1},
	}
}

// AgingBuckets groups partner-waiting cases by how many days they have
// been waiting. defs may override the bucket edges; nil selects the
// defaults. Cases waiting on the operating team are not counted.
func AgingBuckets(cases []domain.ClarificationCase, defs []BucketDef) ([]string, []int) {
	if defs == nil {
		defs = DefaultAgingBuckets()
	}
	labels, counts := makeBuckets(defs)
	for i := range cases {
		c := &cases[i]
		if c.WaitingOn != domain.WaitingPartner {
			continue
		}
		addToBucket(defs, counts, c.StaleSinceDays)
	}
	return labels, counts
}

// OverdueBuckets groups partner-waiting cases with a passed next-action
// deadline by how many whole days they are overdue. Cases without a
// deadline, with a future deadline, or waiting on the operating team are
// excluded entirely.
func OverdueBuckets(cases []domain.ClarificationCase, now time.Time, defs []BucketDef) ([]string, []int) {
	if defs == nil {
		defs = DefaultOverdueBuckets()
	}
	labels, counts := makeBuckets(defs)
	for i := range cases {
		c := &cases[i]
		if c.WaitingOn != domain.WaitingPartner {
			continue
		}
		if c.NextActionAt == nil || !c.NextActionAt.Before(now) {
			continue
		}
		daysOverdue := int(now.Sub(*c.NextActionAt).Hours() / 24)
		addToBucket(defs, counts, daysOverdue)
	}
	return labels, counts
}

func makeBuckets(defs []BucketDef) ([]string, []int) {
	labels := make([]string, len(defs))
	for i, def := range defs {
		labels[i] = def.Label
	}
	return labels, make([]int, len(defs))
}

func addToBucket(defs []BucketDef, counts []int, days int) {
	for i, def := range defs {
		if days < def.Min {
			continue
		}
		if def.Max >= 0 && days > def.Max {
			continue
		}
		counts[i]++
		return
	}
}
