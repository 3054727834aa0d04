package events

import (
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated         EventType = "case_created"
	EventCaseStatusChanged   EventType = "case_status_changed"
	EventCaseNoteAdded       EventType = "case_note_added"
	EventCaseEmailRecorded   EventType = "case_email_recorded"
	EventCaseAttachmentAdded EventType = "case_attachment_added"
	EventCaseArchived        EventType = "case_archived"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	PartnerCode string              `json:"partner_code"`
	Priority    domain.CasePriority `json:"priority"`
	Title       string              `json:"title"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	OldStatus domain.CaseStatus   `json:"old_status"`
	NewStatus domain.CaseStatus   `json:"new_status"`
	WaitingOn domain.WaitingParty `json:"waiting_on"`
	Message   string              `json:"message,omitempty"`
}

// CaseNoteAddedPayload payload.
type CaseNoteAddedPayload struct {
	NoteID      string `json:"note_id"`
	BodyPreview string `json:"body_preview"`
}

// CaseEmailRecordedPayload payload.
type CaseEmailRecordedPayload struct {
	EmailID   string                `json:"email_id"`
	Direction domain.EmailDirection `json:"direction"`
	Subject   string                `json:"subject"`
}

// CaseAttachmentAddedPayload payload.
type CaseAttachmentAddedPayload struct {
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
	SizeBytes    int64  `json:"size_bytes"`
}
