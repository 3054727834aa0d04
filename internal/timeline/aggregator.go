// Package timeline assembles a case's activity feed from heterogeneous
// sources. The projection is read-only and recomputed on every request;
// it never mutates its inputs.
package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/clarification-service/internal/domain"
)

// statusDescriptions is the fixed per-status copy shown for the
// StatusChanged feed entry.
var statusDescriptions = map[domain.CaseStatus]string{
	domain.CaseStatusInternal:    "Interne Klärung begonnen – Sammlung von Informationen",
	domain.CaseStatusReadyToSend: "Interne Klärung abgeschlossen – bereit zum Versenden",
	domain.CaseStatusSent:        "An Marktpartner versendet – Warten auf Antwort",
	domain.CaseStatusPending:     "Warten auf Rückmeldung vom Marktpartner",
	domain.CaseStatusInProgress:  "In Bearbeitung beim Marktpartner",
	domain.CaseStatusResolved:    "Klärfall gelöst",
	domain.CaseStatusClosed:      "Klärfall geschlossen",
	domain.CaseStatusEscalated:   "Klärfall eskaliert – bevorzugte Bearbeitung",
}

// Build merges case creation, the current status, notes, emails and
// attachments into one feed sorted most recent first. Entries with the
// same timestamp keep category order (creation, status, notes, emails,
// attachments) so the output is deterministic.
func Build(c *domain.ClarificationCase, notes []domain.CaseNote, emails []domain.CaseEmail, attachments []domain.AttachmentReference) []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, 0, 2+len(notes)+len(emails)+len(attachments))

	events = append(events, domain.TimelineEvent{
		Kind:        domain.TimelineCreated,
		Timestamp:   c.CreatedAt,
		Actor:       c.CreatedBy,
		Title:       "Klärfall erstellt",
		Description: c.Title,
	})

	if c.Status != domain.CaseStatusDraft {
		ts := c.UpdatedAt
		if ts.IsZero() {
			ts = c.CreatedAt
		}
		events = append(events, domain.TimelineEvent{
			Kind:        domain.TimelineStatusChanged,
			Timestamp:   ts,
			Actor:       c.CreatedBy,
			Title:       fmt.Sprintf("Status: %s", c.Status),
			Description: StatusDescription(c.Status),
		})
	}

	for i := range notes {
		note := &notes[i]
		events = append(events, domain.TimelineEvent{
			Kind:        domain.TimelineNoteAdded,
			Timestamp:   note.CreatedAt,
			Actor:       note.Author,
			Title:       "Notiz hinzugefügt",
			Description: preview(note.Body, 120),
		})
	}

	for i := range emails {
		email := &emails[i]
		title := "E-Mail vom Marktpartner empfangen"
		if email.Direction == domain.EmailDirectionOutbound {
			title = "E-Mail an Marktpartner gesendet"
		}
		events = append(events, domain.TimelineEvent{
			Kind:        domain.TimelineEmailExchanged,
			Timestamp:   email.CreatedAt,
			Actor:       email.RecordedBy,
			Title:       title,
			Description: email.Subject,
			Metadata: map[string]any{
				"direction": email.Direction,
				"address":   email.Address,
			},
		})
	}

	for i := range attachments {
		att := &attachments[i]
		events = append(events, domain.TimelineEvent{
			Kind:        domain.TimelineAttachmentAdded,
			Timestamp:   att.CreatedAt,
			Actor:       att.UploadedBy,
			Title:       "Anhang hinzugefügt",
			Description: att.FileName,
			Metadata: map[string]any{
				"mime_type":  att.MimeType,
				"size_bytes": att.SizeBytes,
			},
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}

// StatusDescription returns the feed copy for a status; empty for Draft.
func StatusDescription(status domain.CaseStatus) string {
	return statusDescriptions[status]
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
