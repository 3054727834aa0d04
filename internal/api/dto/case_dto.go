package dto

import (
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	PartnerCode  string              `json:"partnerCode"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Priority     domain.CasePriority `json:"priority"`
	SlaDueAt     *time.Time          `json:"slaDueAt"`
	NextActionAt *time.Time          `json:"nextActionAt"`
}

// ChangeStatusRequest payload. Version is the case version the caller
// read; a mismatch is rejected as a stale write. InternalStatus is an
// optional free-text sub-status annotation kept in the audit trail only.
type ChangeStatusRequest struct {
	TargetStatus   domain.CaseStatus `json:"targetStatus"`
	InternalStatus string            `json:"internalStatus"`
	Reason         string            `json:"reason"`
	Version        int64             `json:"version"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.CasePriority `json:"priority"`
	Version  int64               `json:"version"`
}

// RecordEmailRequest payload.
type RecordEmailRequest struct {
	Direction domain.EmailDirection `json:"direction"`
	Address   string                `json:"address"`
	Subject   string                `json:"subject"`
	Body      string                `json:"body"`
	Version   int64                 `json:"version"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Body string `json:"body"`
}

// AddAttachmentRequest payload.
type AddAttachmentRequest struct {
	StorageKey string `json:"storageKey"`
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
}

// ReopenCaseRequest payload.
type ReopenCaseRequest struct {
	Version int64 `json:"version"`
}

// EscalateCaseRequest payload.
type EscalateCaseRequest struct {
	Reason  string `json:"reason"`
	Version int64  `json:"version"`
}

// ArchiveCaseRequest payload.
type ArchiveCaseRequest struct {
	Version int64 `json:"version"`
}

// CaseResponse is the exchanged case record. waitingOn is the wire form
// US/MP; effectiveNextActionAt and overdue are read-time derivations and
// never persisted.
type CaseResponse struct {
	ID                    string              `json:"id"`
	ExternalKey           string              `json:"externalKey"`
	PartnerCode           string              `json:"partnerCode"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	Status                domain.CaseStatus   `json:"status"`
	Priority              domain.CasePriority `json:"priority"`
	WaitingOn             domain.WaitingParty `json:"waitingOn"`
	NextActionAt          *time.Time          `json:"nextActionAt"`
	EffectiveNextActionAt time.Time           `json:"effectiveNextActionAt"`
	SlaDueAt              *time.Time          `json:"slaDueAt"`
	LastInboundAt         *time.Time          `json:"lastInboundAt"`
	LastOutboundAt        *time.Time          `json:"lastOutboundAt"`
	StaleSinceDays        int                 `json:"staleSinceDays"`
	Overdue               bool                `json:"overdue"`
	Version               int64               `json:"version"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

// NoteResponse representation.
type NoteResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// EmailResponse representation.
type EmailResponse struct {
	ID          string                `json:"id"`
	Direction   domain.EmailDirection `json:"direction"`
	Address     string                `json:"address"`
	Subject     string                `json:"subject"`
	BodyPreview string                `json:"bodyPreview"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// PartnerResponse is one market-partner directory entry.
type PartnerResponse struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	ContactEmail string `json:"contactEmail"`
	IsActive     bool   `json:"isActive"`
}

// TimelineEventResponse is one activity feed entry.
type TimelineEventResponse struct {
	Kind        domain.TimelineEventKind `json:"kind"`
	Timestamp   time.Time                `json:"timestamp"`
	Actor       string                   `json:"actor"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Metadata    map[string]any           `json:"metadata,omitempty"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID         string                `json:"id"`
	Actor      string                `json:"actor"`
	ChangeType domain.CaseChangeType `json:"changeType"`
	Message    string                `json:"message"`
	OldValue   map[string]any        `json:"oldValue,omitempty"`
	NewValue   map[string]any        `json:"newValue,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}
