package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/clarification-service/internal/domain"
	"github.com/spec-kit/clarification-service/internal/events"
	"github.com/spec-kit/clarification-service/internal/repository"
	"github.com/spec-kit/clarification-service/internal/sla"
	"github.com/spec-kit/clarification-service/internal/timeline"
	"github.com/spec-kit/clarification-service/internal/workflow"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// CaseService coordinates clarification case workflows. Status is only
// ever written through the workflow engine; the derived fields
// (waitingOn, staleSinceDays, next-action fallback) have exactly one
// formula each, in workflow and sla.
type CaseService struct {
	cases       repository.CaseRepository
	notes       repository.NoteRepository
	emails      repository.EmailRepository
	attachments repository.AttachmentRepository
	history     repository.CaseHistoryRepository
	partners    repository.PartnerRepository
	dispatcher  events.Dispatcher
	now         func() time.Time
}

// CaseDependencies bundles repositories for the case service.
type CaseDependencies struct {
	CaseRepo       repository.CaseRepository
	NoteRepo       repository.NoteRepository
	EmailRepo      repository.EmailRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.CaseHistoryRepository
	PartnerRepo    repository.PartnerRepository
	Dispatcher     events.Dispatcher
	Now            func() time.Time
}

// CaseCreateInput describes case creation payload.
type CaseCreateInput struct {
	PartnerCode  string
	Title        string
	Description  string
	Priority     domain.CasePriority
	SlaDueAt     *time.Time
	NextActionAt *time.Time
}

// StatusChangeInput describes a requested lifecycle transition.
// InternalStatus is an optional operator-facing sub-status annotation;
// it lands in the audit trail, never on the case row.
type StatusChangeInput struct {
	TargetStatus   domain.CaseStatus
	InternalStatus string
	Reason         string
	Version        int64
}

// EmailInput describes correspondence to record.
type EmailInput struct {
	Direction domain.EmailDirection
	Address   string
	Subject   string
	Body      string
}

// AttachmentInput defines attachment metadata.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CaseService{
		cases:       deps.CaseRepo,
		notes:       deps.NoteRepo,
		emails:      deps.EmailRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		partners:    deps.PartnerRepo,
		dispatcher:  deps.Dispatcher,
		now:         now,
	}
}

// CreateCase opens a new case in Draft against a known market partner.
func (s *CaseService) CreateCase(ctx context.Context, actor string, input CaseCreateInput) (*domain.ClarificationCase, error) {
	partner, err := s.partners.GetByCode(ctx, input.PartnerCode)
	if err != nil {
		return nil, err
	}
	if !partner.IsActive {
		return nil, apperrors.NewValidationError("market partner inactive", map[string]any{"partner_code": partner.Code})
	}

	c := &domain.ClarificationCase{
		ExternalKey:  generateCaseKey(),
		PartnerCode:  partner.Code,
		CreatedBy:    actor,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.CaseStatusDraft,
		Priority:     input.Priority,
		WaitingOn:    workflow.WaitingPartyFor(domain.CaseStatusDraft),
		SlaDueAt:     input.SlaDueAt,
		NextActionAt: input.NextActionAt,
		Version:      1,
	}
	if c.Priority == "" {
		c.Priority = domain.CasePriorityMedium
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.recordHistory(ctx, &domain.CaseHistory{
		CaseID:     c.ID,
		Actor:      actor,
		ChangeType: domain.ChangeTypeCreated,
		Message:    "Klärfall erstellt",
		NewValue: map[string]any{
			"status":   c.Status,
			"priority": c.Priority,
		},
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseCreated,
		CaseID: c.ID,
		Actor:  actor,
		Payload: events.CaseCreatedPayload{
			PartnerCode: c.PartnerCode,
			Priority:    c.Priority,
			Title:       c.Title,
		},
	})
	return c, nil
}

// GetCase fetches one case with read-time derivations refreshed.
func (s *CaseService) GetCase(ctx context.Context, caseID string) (*domain.ClarificationCase, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.IsArchived() {
		return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
	}
	c.StaleSinceDays = sla.StaleDays(c, s.now())
	return c, nil
}

// GetCaseByKey fetches one case by its external key (KLF-XXXXXXXX).
func (s *CaseService) GetCaseByKey(ctx context.Context, externalKey string) (*domain.ClarificationCase, error) {
	c, err := s.cases.GetByExternalKey(ctx, strings.ToUpper(strings.TrimSpace(externalKey)))
	if err != nil {
		return nil, err
	}
	if c.IsArchived() {
		return nil, apperrors.NewNotFound("case", map[string]any{"external_key": externalKey})
	}
	c.StaleSinceDays = sla.StaleDays(c, s.now())
	return c, nil
}

// ListCases returns cases matching the filter, stale counters refreshed.
func (s *CaseService) ListCases(ctx context.Context, filter repository.CaseFilter) ([]domain.ClarificationCase, error) {
	cases, err := s.cases.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range cases {
		cases[i].StaleSinceDays = sla.StaleDays(&cases[i], now)
	}
	return cases, nil
}

// ChangeStatus applies a lifecycle transition. The caller supplies the
// case version it read; a mismatch fails with a stale-version error
// before anything is written, which keeps per-case transitions strictly
// ordered.
func (s *CaseService) ChangeStatus(ctx context.Context, actor, caseID string, input StatusChangeInput) (*domain.ClarificationCase, error) {
	c, err := s.activeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Version != input.Version {
		return nil, apperrors.NewStaleVersion(input.Version)
	}

	change, err := workflow.Transition(c, input.TargetStatus, actor, input.Reason, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cases.Update(ctx, c, input.Version); err != nil {
		return nil, err
	}
	newValue := map[string]any{
		"status":     change.To,
		"waiting_on": c.WaitingOn,
	}
	if strings.TrimSpace(input.InternalStatus) != "" {
		newValue["internal_status"] = strings.TrimSpace(input.InternalStatus)
	}
	if err := s.recordHistory(ctx, &domain.CaseHistory{
		CaseID:     c.ID,
		Actor:      actor,
		ChangeType: domain.ChangeTypeStatus,
		Message:    change.Message,
		OldValue: map[string]any{
			"status": change.From,
		},
		NewValue: newValue,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseStatusChanged,
		CaseID: c.ID,
		Actor:  actor,
		Payload: events.CaseStatusChangedPayload{
			OldStatus: change.From,
			NewStatus: change.To,
			WaitingOn: c.WaitingOn,
			Message:   change.Message,
		},
	})
	return c, nil
}

// Reopen moves a Resolved or Closed case back into active handling.
func (s *CaseService) Reopen(ctx context.Context, actor, caseID string, expectedVersion int64) (*domain.ClarificationCase, error) {
	return s.ChangeStatus(ctx, actor, caseID, StatusChangeInput{
		TargetStatus: domain.CaseStatusInternal,
		Version:      expectedVersion,
	})
}

// Escalate overrides the lifecycle; legal from any state.
func (s *CaseService) Escalate(ctx context.Context, actor, caseID, reason string, expectedVersion int64) (*domain.ClarificationCase, error) {
	return s.ChangeStatus(ctx, actor, caseID, StatusChangeInput{
		TargetStatus: domain.CaseStatusEscalated,
		Reason:       reason,
		Version:      expectedVersion,
	})
}

// UpdatePriority changes the SLA urgency of a case.
func (s *CaseService) UpdatePriority(ctx context.Context, actor, caseID string, priority domain.CasePriority, expectedVersion int64) (*domain.ClarificationCase, error) {
	c, err := s.activeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Version != expectedVersion {
		return nil, apperrors.NewStaleVersion(expectedVersion)
	}
	oldPriority := c.Priority
	c.Priority = priority
	c.Version++
	c.UpdatedAt = s.now()
	if err := s.cases.Update(ctx, c, expectedVersion); err != nil {
		return nil, err
	}
	if err := s.recordHistory(ctx, &domain.CaseHistory{
		CaseID:     c.ID,
		Actor:      actor,
		ChangeType: domain.ChangeTypePriority,
		Message:    "Priorität geändert",
		OldValue:   map[string]any{"priority": oldPriority},
		NewValue:   map[string]any{"priority": priority},
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// RecordEmail stores correspondence metadata and stamps the case's
// last-inbound/last-outbound timestamps. An inbound answer does not
// auto-transition a Sent case; the operator decides the follow-up.
func (s *CaseService) RecordEmail(ctx context.Context, actor, caseID string, input EmailInput, expectedVersion int64) (*domain.CaseEmail, error) {
	if input.Direction != domain.EmailDirectionInbound && input.Direction != domain.EmailDirectionOutbound {
		return nil, apperrors.NewValidationError("direction must be INBOUND or OUTBOUND", nil)
	}
	c, err := s.activeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Version != expectedVersion {
		return nil, apperrors.NewStaleVersion(expectedVersion)
	}

	email := &domain.CaseEmail{
		CaseID:      c.ID,
		Direction:   input.Direction,
		Address:     strings.TrimSpace(input.Address),
		Subject:     strings.TrimSpace(input.Subject),
		BodyPreview: stringPreview(input.Body, 200),
		RecordedBy:  actor,
	}
	if err := s.emails.Create(ctx, email); err != nil {
		return nil, err
	}

	now := s.now()
	if input.Direction == domain.EmailDirectionInbound {
		c.LastInboundAt = &now
	} else {
		c.LastOutboundAt = &now
	}
	c.Version++
	c.UpdatedAt = now
	if err := s.cases.Update(ctx, c, expectedVersion); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseEmailRecorded,
		CaseID: c.ID,
		Actor:  actor,
		Payload: events.CaseEmailRecordedPayload{
			EmailID:   email.ID,
			Direction: email.Direction,
			Subject:   email.Subject,
		},
	})
	return email, nil
}

// AddNote appends an internal note; the case row itself is untouched.
func (s *CaseService) AddNote(ctx context.Context, actor, caseID, body string) (*domain.CaseNote, error) {
	c, err := s.activeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	note := &domain.CaseNote{
		CaseID: c.ID,
		Author: actor,
		Body:   strings.TrimSpace(body),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseNoteAdded,
		CaseID: c.ID,
		Actor:  actor,
		Payload: events.CaseNoteAddedPayload{
			NoteID:      note.ID,
			BodyPreview: stringPreview(note.Body, 120),
		},
	})
	return note, nil
}

// AddAttachment stores attachment metadata for a case.
func (s *CaseService) AddAttachment(ctx context.Context, actor, caseID string, input AttachmentInput) (*domain.AttachmentReference, error) {
	c, err := s.activeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	att := &domain.AttachmentReference{
		CaseID:     c.ID,
		StorageKey: input.StorageKey,
		FileName:   input.FileName,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
		UploadedBy: actor,
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseAttachmentAdded,
		CaseID: c.ID,
		Actor:  actor,
		Payload: events.CaseAttachmentAddedPayload{
			AttachmentID: att.ID,
			FileName:     att.FileName,
			SizeBytes:    att.SizeBytes,
		},
	})
	return att, nil
}

// Archive soft-deletes a case. Archived cases behave as not found.
func (s *CaseService) Archive(ctx context.Context, actor, caseID string, expectedVersion int64) error {
	c, err := s.activeCase(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Version != expectedVersion {
		return apperrors.NewStaleVersion(expectedVersion)
	}
	now := s.now()
	c.ArchivedAt = &now
	c.Version++
	c.UpdatedAt = now
	if err := s.cases.Update(ctx, c, expectedVersion); err != nil {
		return err
	}
	if err := s.recordHistory(ctx, &domain.CaseHistory{
		CaseID:     c.ID,
		Actor:      actor,
		ChangeType: domain.ChangeTypeArchived,
		Message:    "Klärfall archiviert",
	}); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseArchived,
		CaseID: c.ID,
		Actor:  actor,
	})
	return nil
}

// ListPartners returns the market-partner directory entries.
func (s *CaseService) ListPartners(ctx context.Context) ([]domain.MarketPartner, error) {
	return s.partners.List(ctx)
}

// Timeline assembles the activity feed for one case.
func (s *CaseService) Timeline(ctx context.Context, caseID string) ([]domain.TimelineEvent, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	emails, err := s.emails.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return timeline.Build(c, notes, emails, attachments), nil
}

// History returns the audit trail for one case.
func (s *CaseService) History(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.history.ListByCase(ctx, caseID, limit, offset)
}

func (s *CaseService) activeCase(ctx context.Context, caseID string) (*domain.ClarificationCase, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.IsArchived() {
		return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
	}
	return c, nil
}

func (s *CaseService) recordHistory(ctx context.Context, entry *domain.CaseHistory) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, entry)
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateCaseKey() string {
	return "KLF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
