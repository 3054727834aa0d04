// Package sla computes deadlines and overdue state for clarification
// cases. Every function takes an explicit evaluation instant so results
// are deterministic and reproducible; nothing in here reads the wall
// clock.
package sla

import (
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
)

// DefaultNextActionDelay is the read-time fallback applied when a case
// carries no explicit next-action deadline. It is never persisted.
const DefaultNextActionDelay = 3 * 24 * time.Hour

// partnerStaleThresholdDays is the number of waiting days after which a
// partner-waiting case counts as overdue even without a deadline.
const partnerStaleThresholdDays = 7

// IsOverdue reports whether the case is overdue at the given instant.
// A case is overdue when its next-action deadline has passed, or when
// the market partner has owed the next action for seven or more days.
// The operating team's own delay is never flagged here; it surfaces via
// the aging buckets instead.
func IsOverdue(c *domain.ClarificationCase, now time.Time) bool {
	if c.NextActionAt != nil && c.NextActionAt.Before(now) {
		return true
	}
	return c.WaitingOn == domain.WaitingPartner && c.StaleSinceDays >= partnerStaleThresholdDays
}

// EffectiveNextAction returns the next-action deadline, defaulting to
// updatedAt plus three days when none is set. Display-only fallback.
func EffectiveNextAction(c *domain.ClarificationCase) time.Time {
	if c.NextActionAt != nil {
		return *c.NextActionAt
	}
	base := c.UpdatedAt
	if base.IsZero() {
		base = c.CreatedAt
	}
	return base.Add(DefaultNextActionDelay)
}

// EffectiveDue returns the authoritative due timestamp for due-date
// reporting: the hard SLA deadline when present, else the next-action
// deadline. Nil when the case carries neither.
func EffectiveDue(c *domain.ClarificationCase) *time.Time {
	if c.SlaDueAt != nil {
		return c.SlaDueAt
	}
	return c.NextActionAt
}

// DueOn counts cases whose effective due timestamp falls within the UTC
// calendar day of date. Day boundaries are computed in UTC regardless of
// the caller's zone so counts are reproducible across deployments. Cases
// without any due timestamp are skipped.
func DueOn(cases []domain.ClarificationCase, date time.Time) int {
	day := date.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	count := 0
	for i := range cases {
		due := EffectiveDue(&cases[i])
		if due == nil {
			continue
		}
		ts := due.UTC()
		if !ts.Before(start) && ts.Before(end) {
			count++
		}
	}
	return count
}

// StaleDays derives how many whole days the case has been in its current
// waiting state. updatedAt is stamped on every waiting-state change, so
// it marks entry into the current state; createdAt covers fresh records.
func StaleDays(c *domain.ClarificationCase, now time.Time) int {
	base := c.UpdatedAt
	if base.IsZero() {
		base = c.CreatedAt
	}
	if base.IsZero() || now.Before(base) {
		return 0
	}
	return int(now.Sub(base).Hours() / 24)
}
