package workflow

import (
	"fmt"
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// allowedTransitions encodes the lifecycle graph. Escalation is handled
// separately in CanTransition because it is legal from every state.
var allowedTransitions = map[domain.CaseStatus][]domain.CaseStatus{
	domain.CaseStatusDraft:       {domain.CaseStatusInternal},
	domain.CaseStatusInternal:    {domain.CaseStatusReadyToSend},
	domain.CaseStatusReadyToSend: {domain.CaseStatusSent},
	domain.CaseStatusSent:        {domain.CaseStatusResolved, domain.CaseStatusInProgress, domain.CaseStatusPending},
	domain.CaseStatusPending:     {domain.CaseStatusResolved, domain.CaseStatusInternal},
	domain.CaseStatusInProgress:  {domain.CaseStatusResolved, domain.CaseStatusInternal},
	domain.CaseStatusResolved:    {domain.CaseStatusInternal},
	domain.CaseStatusClosed:      {domain.CaseStatusInternal},
	domain.CaseStatusEscalated:   {},
}

// partnerStatuses are the states in which the market partner owes the
// next action.
var partnerStatuses = map[domain.CaseStatus]bool{
	domain.CaseStatusSent:       true,
	domain.CaseStatusPending:    true,
	domain.CaseStatusInProgress: true,
}

// transitionMessages are the contract audit strings recorded when the
// operator supplies no explicit reason. Their exact wording is relied
// on by downstream audit consumers; do not reword.
var transitionMessages = map[domain.CaseStatus]map[domain.CaseStatus]string{
	domain.CaseStatusDraft: {
		domain.CaseStatusInternal: "Interne Klärung begonnen",
	},
	domain.CaseStatusInternal: {
		domain.CaseStatusReadyToSend: "Interne Klärung abgeschlossen – bereit zum Versenden",
	},
	domain.CaseStatusReadyToSend: {
		domain.CaseStatusSent: "Anfrage an Marktpartner versendet",
	},
	domain.CaseStatusSent: {
		domain.CaseStatusResolved: "Antwort vom Marktpartner erhalten – Klärfall als abgeschlossen markiert",
		domain.CaseStatusInternal: "Antwort vom Marktpartner erhalten – weitere interne Klärung erforderlich",
	},
	domain.CaseStatusResolved: {
		domain.CaseStatusInternal: "Klärfall wiedereröffnet",
	},
	domain.CaseStatusClosed: {
		domain.CaseStatusInternal: "Klärfall wiedereröffnet",
	},
}

// StatusChange is the audit fact produced by a successful transition.
// Persistence of the fact is left to the caller.
type StatusChange struct {
	CaseID     string
	Actor      string
	From       domain.CaseStatus
	To         domain.CaseStatus
	Message    string
	OccurredAt time.Time
}

// CanTransition reports whether the edge from -> to is part of the
// lifecycle graph. Escalation is an override and always legal.
func CanTransition(from, to domain.CaseStatus) bool {
	if to == domain.CaseStatusEscalated {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// WaitingPartyFor derives who owes the next action from the status
// alone. It is the only place this derivation lives.
func WaitingPartyFor(status domain.CaseStatus) domain.WaitingParty {
	if partnerStatuses[status] {
		return domain.WaitingPartner
	}
	return domain.WaitingSelf
}

// TransitionMessage returns the contract audit string for an edge,
// falling back to a generic old-to-new message.
func TransitionMessage(from, to domain.CaseStatus) string {
	if byTarget, ok := transitionMessages[from]; ok {
		if msg, ok := byTarget[to]; ok {
			return msg
		}
	}
	return fmt.Sprintf("Status geändert von %s zu %s", from, to)
}

// Transition validates and applies a status change in memory. On success
// the case carries the new status, the re-derived waiting party, a reset
// stale counter, an incremented version and updatedAt = now, and the
// returned StatusChange describes the move for the audit trail. On
// failure the case is left untouched. Persistence is the caller's job.
func Transition(c *domain.ClarificationCase, target domain.CaseStatus, actor, reason string, now time.Time) (*StatusChange, error) {
	if !target.IsValid() {
		return nil, apperrors.NewValidationError("unknown target status", map[string]any{"target_status": string(target)})
	}
	if !CanTransition(c.Status, target) {
		return nil, apperrors.NewInvalidTransition(string(c.Status), string(target))
	}

	message := reason
	if message == "" {
		message = TransitionMessage(c.Status, target)
	}

	change := &StatusChange{
		CaseID:     c.ID,
		Actor:      actor,
		From:       c.Status,
		To:         target,
		Message:    message,
		OccurredAt: now,
	}

	c.Status = target
	c.WaitingOn = WaitingPartyFor(target)
	c.StaleSinceDays = 0
	c.Version++
	c.UpdatedAt = now
	return change, nil
}
