package domain

import "time"

// CaseChangeType captures what changed in a history entry.
type CaseChangeType string

const (
	ChangeTypeCreated  CaseChangeType = "CREATED"
	ChangeTypeStatus   CaseChangeType = "STATUS_CHANGE"
	ChangeTypePriority CaseChangeType = "PRIORITY_CHANGE"
	ChangeTypeArchived CaseChangeType = "ARCHIVED"
)

// CaseHistory is an immutable audit trail entry. The audit message for
// status changes is a contract string chosen by the transition engine
// unless the operator supplies an explicit reason.
type CaseHistory struct {
	ID         string
	CaseID     string
	Actor      string
	ChangeType CaseChangeType
	Message    string
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
