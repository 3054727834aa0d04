package domain

import "time"

// CaseStatus enumerates lifecycle states for clarification cases.
type CaseStatus string

const (
	CaseStatusDraft       CaseStatus = "DRAFT"
	CaseStatusInternal    CaseStatus = "INTERNAL"
	CaseStatusReadyToSend CaseStatus = "READY_TO_SEND"
	CaseStatusSent        CaseStatus = "SENT"
	CaseStatusPending     CaseStatus = "PENDING"
	CaseStatusInProgress  CaseStatus = "IN_PROGRESS"
	CaseStatusResolved    CaseStatus = "RESOLVED"
	CaseStatusClosed      CaseStatus = "CLOSED"
	CaseStatusEscalated   CaseStatus = "ESCALATED"
)

// AllStatuses lists every lifecycle state; useful for validation and tests.
var AllStatuses = []CaseStatus{
	CaseStatusDraft,
	CaseStatusInternal,
	CaseStatusReadyToSend,
	CaseStatusSent,
	CaseStatusPending,
	CaseStatusInProgress,
	CaseStatusResolved,
	CaseStatusClosed,
	CaseStatusEscalated,
}

// IsValid reports whether the status is a known lifecycle state.
func (s CaseStatus) IsValid() bool {
	for _, candidate := range AllStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the case has left active handling.
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusResolved || s == CaseStatusClosed
}

// CasePriority enumerates SLA urgency.
type CasePriority string

const (
	CasePriorityLow      CasePriority = "LOW"
	CasePriorityMedium   CasePriority = "MEDIUM"
	CasePriorityHigh     CasePriority = "HIGH"
	CasePriorityCritical CasePriority = "CRITICAL"
)

// WaitingParty identifies which side owes the next action. Wire values
// follow the market convention: US = the operating team, MP = the
// external market partner.
type WaitingParty string

const (
	WaitingSelf    WaitingParty = "US"
	WaitingPartner WaitingParty = "MP"
)

// ClarificationCase is the aggregate for one bilateral clarification.
type ClarificationCase struct {
	ID             string
	ExternalKey    string
	PartnerCode    string
	CreatedBy      string
	Title          string
	Description    string
	Status         CaseStatus
	Priority       CasePriority
	WaitingOn      WaitingParty
	NextActionAt   *time.Time
	SlaDueAt       *time.Time
	LastInboundAt  *time.Time
	LastOutboundAt *time.Time
	StaleSinceDays int
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ArchivedAt     *time.Time
}

// IsArchived reports whether the case has been soft-deleted.
func (c *ClarificationCase) IsArchived() bool {
	return c.ArchivedAt != nil
}
