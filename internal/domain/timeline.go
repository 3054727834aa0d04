package domain

import "time"

// TimelineEventKind enumerates activity feed entry types.
type TimelineEventKind string

const (
	TimelineCreated         TimelineEventKind = "CREATED"
	TimelineStatusChanged   TimelineEventKind = "STATUS_CHANGED"
	TimelineNoteAdded       TimelineEventKind = "NOTE_ADDED"
	TimelineEmailExchanged  TimelineEventKind = "EMAIL_EXCHANGED"
	TimelineAttachmentAdded TimelineEventKind = "ATTACHMENT_ADDED"
)

// TimelineEvent is one entry of a case's activity feed. It is assembled
// on demand from the case and its associated records and never persisted.
type TimelineEvent struct {
	Kind        TimelineEventKind
	Timestamp   time.Time
	Actor       string
	Title       string
	Description string
	Metadata    map[string]any
}
