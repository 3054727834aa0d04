package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/spec-kit/clarification-service/internal/domain"
	"github.com/spec-kit/clarification-service/internal/events"
	"github.com/spec-kit/clarification-service/internal/repository"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// fakeCaseRepo is an in-memory CaseRepository enforcing the same
// version guard as the SQL implementation.
type fakeCaseRepo struct {
	cases  map[string]domain.ClarificationCase
	nextID int
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{cases: make(map[string]domain.ClarificationCase)}
}

func (r *fakeCaseRepo) Create(_ context.Context, c *domain.ClarificationCase) error {
	r.nextID++
	c.ID = "case-" + strconv.Itoa(r.nextID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	r.cases[c.ID] = *c
	return nil
}

func (r *fakeCaseRepo) Update(_ context.Context, c *domain.ClarificationCase, expectedVersion int64) error {
	stored, ok := r.cases[c.ID]
	if !ok {
		return apperrors.NewNotFound("case", nil)
	}
	if stored.Version != expectedVersion {
		return apperrors.NewStaleVersion(expectedVersion)
	}
	r.cases[c.ID] = *c
	return nil
}

func (r *fakeCaseRepo) GetByID(_ context.Context, id string) (*domain.ClarificationCase, error) {
	stored, ok := r.cases[id]
	if !ok {
		return nil, apperrors.NewNotFound("case", nil)
	}
	c := stored
	return &c, nil
}

func (r *fakeCaseRepo) GetByExternalKey(_ context.Context, key string) (*domain.ClarificationCase, error) {
	for _, stored := range r.cases {
		if stored.ExternalKey == key {
			c := stored
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFound("case", nil)
}

func (r *fakeCaseRepo) ListWithFilter(_ context.Context, filter repository.CaseFilter) ([]domain.ClarificationCase, error) {
	var result []domain.ClarificationCase
	for _, stored := range r.cases {
		if !filter.IncludeArchived && stored.ArchivedAt != nil {
			continue
		}
		result = append(result, stored)
	}
	return result, nil
}

type fakeNoteRepo struct{ notes []domain.CaseNote }

func (r *fakeNoteRepo) Create(_ context.Context, note *domain.CaseNote) error {
	note.ID = "note-" + strconv.Itoa(len(r.notes)+1)
	note.CreatedAt = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	r.notes = append(r.notes, *note)
	return nil
}

func (r *fakeNoteRepo) ListByCase(_ context.Context, caseID string) ([]domain.CaseNote, error) {
	var result []domain.CaseNote
	for _, note := range r.notes {
		if note.CaseID == caseID {
			result = append(result, note)
		}
	}
	return result, nil
}

type fakeEmailRepo struct{ emails []domain.CaseEmail }

func (r *fakeEmailRepo) Create(_ context.Context, email *domain.CaseEmail) error {
	email.ID = "email-" + strconv.Itoa(len(r.emails)+1)
	email.CreatedAt = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	r.emails = append(r.emails, *email)
	return nil
}

func (r *fakeEmailRepo) ListByCase(_ context.Context, caseID string) ([]domain.CaseEmail, error) {
	var result []domain.CaseEmail
	for _, email := range r.emails {
		if email.CaseID == caseID {
			result = append(result, email)
		}
	}
	return result, nil
}

type fakeAttachmentRepo struct{ attachments []domain.AttachmentReference }

func (r *fakeAttachmentRepo) Create(_ context.Context, att *domain.AttachmentReference) error {
	att.ID = "att-" + strconv.Itoa(len(r.attachments)+1)
	att.CreatedAt = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	r.attachments = append(r.attachments, *att)
	return nil
}

func (r *fakeAttachmentRepo) ListByCase(_ context.Context, caseID string) ([]domain.AttachmentReference, error) {
	var result []domain.AttachmentReference
	for _, att := range r.attachments {
		if att.CaseID == caseID {
			result = append(result, att)
		}
	}
	return result, nil
}

type fakeHistoryRepo struct{ entries []domain.CaseHistory }

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.CaseHistory) error {
	entry.ID = "hist-" + strconv.Itoa(len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByCase(_ context.Context, caseID string, _, _ int) ([]domain.CaseHistory, error) {
	var result []domain.CaseHistory
	for _, entry := range r.entries {
		if entry.CaseID == caseID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakePartnerRepo struct{ partners map[string]domain.MarketPartner }

func (r *fakePartnerRepo) GetByCode(_ context.Context, code string) (*domain.MarketPartner, error) {
	partner, ok := r.partners[code]
	if !ok {
		return nil, apperrors.NewNotFound("market partner", nil)
	}
	return &partner, nil
}

func (r *fakePartnerRepo) List(_ context.Context) ([]domain.MarketPartner, error) {
	var result []domain.MarketPartner
	for _, partner := range r.partners {
		result = append(result, partner)
	}
	return result, nil
}

type fakeDispatcher struct{ published []events.Event }

func (d *fakeDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *fakeDispatcher) Subscribe(events.EventType, events.EventHandler) {}

type caseFixture struct {
	service    *CaseService
	cases      *fakeCaseRepo
	history    *fakeHistoryRepo
	dispatcher *fakeDispatcher
	now        time.Time
}

func newCaseFixture() *caseFixture {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	cases := newFakeCaseRepo()
	history := &fakeHistoryRepo{}
	dispatcher := &fakeDispatcher{}
	svc := NewCaseService(CaseDependencies{
		CaseRepo:       cases,
		NoteRepo:       &fakeNoteRepo{},
		EmailRepo:      &fakeEmailRepo{},
		AttachmentRepo: &fakeAttachmentRepo{},
		HistoryRepo:    history,
		PartnerRepo: &fakePartnerRepo{partners: map[string]domain.MarketPartner{
			"9900123456789": {Code: "9900123456789", Name: "Netz AG", IsActive: true},
			"9900999999999": {Code: "9900999999999", Name: "Alt GmbH", IsActive: false},
		}},
		Dispatcher: dispatcher,
		Now:        func() time.Time { return now },
	})
	return &caseFixture{service: svc, cases: cases, history: history, dispatcher: dispatcher, now: now}
}

func (f *caseFixture) seedCase(t *testing.T, status domain.CaseStatus) *domain.ClarificationCase {
	t.Helper()
	c := &domain.ClarificationCase{
		ExternalKey: "KLF-TEST01",
		PartnerCode: "9900123456789",
		CreatedBy:   "op-1",
		Title:       "Zählerstand strittig",
		Status:      status,
		Priority:    domain.CasePriorityMedium,
		WaitingOn:   domain.WaitingSelf,
		Version:     1,
	}
	if status == domain.CaseStatusSent || status == domain.CaseStatusPending || status == domain.CaseStatusInProgress {
		c.WaitingOn = domain.WaitingPartner
	}
	if err := f.cases.Create(context.Background(), c); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return c
}

func TestCreateCaseDefaults(t *testing.T) {
	f := newCaseFixture()

	c, err := f.service.CreateCase(context.Background(), "op-1", CaseCreateInput{
		PartnerCode: "9900123456789",
		Title:       "  Bilanzkreis unklar  ",
	})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if c.Status != domain.CaseStatusDraft {
		t.Errorf("status = %s, want DRAFT", c.Status)
	}
	if c.Priority != domain.CasePriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", c.Priority)
	}
	if c.WaitingOn != domain.WaitingSelf {
		t.Errorf("waitingOn = %s, want US", c.WaitingOn)
	}
	if c.Title != "Bilanzkreis unklar" {
		t.Errorf("title not trimmed: %q", c.Title)
	}
	if len(f.dispatcher.published) != 1 || f.dispatcher.published[0].Type != events.EventCaseCreated {
		t.Errorf("expected one case_created event, got %v", f.dispatcher.published)
	}
}

func TestCreateCaseRejectsInactivePartner(t *testing.T) {
	f := newCaseFixture()
	_, err := f.service.CreateCase(context.Background(), "op-1", CaseCreateInput{
		PartnerCode: "9900999999999",
		Title:       "Test",
	})
	if !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestChangeStatusAppliesTransition(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusReadyToSend)

	updated, err := f.service.ChangeStatus(context.Background(), "op-2", seeded.ID, StatusChangeInput{
		TargetStatus: domain.CaseStatusSent,
		Version:      seeded.Version,
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Status != domain.CaseStatusSent {
		t.Errorf("status = %s, want SENT", updated.Status)
	}
	if updated.WaitingOn != domain.WaitingPartner {
		t.Errorf("waitingOn = %s, want MP", updated.WaitingOn)
	}
	if updated.Version != seeded.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, seeded.Version+1)
	}

	stored, _ := f.cases.GetByID(context.Background(), seeded.ID)
	if stored.Status != domain.CaseStatusSent {
		t.Errorf("stored status = %s, want SENT", stored.Status)
	}

	if len(f.history.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(f.history.entries))
	}
	if f.history.entries[0].Message != "Anfrage an Marktpartner versendet" {
		t.Errorf("audit message = %q", f.history.entries[0].Message)
	}
	if len(f.dispatcher.published) != 1 || f.dispatcher.published[0].Type != events.EventCaseStatusChanged {
		t.Errorf("expected one case_status_changed event")
	}
}

func TestChangeStatusRecordsInternalStatusAnnotation(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusDraft)

	_, err := f.service.ChangeStatus(context.Background(), "op-2", seeded.ID, StatusChangeInput{
		TargetStatus:   domain.CaseStatusInternal,
		InternalStatus: "Rückfrage Netzbetreiber",
		Version:        seeded.Version,
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if len(f.history.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(f.history.entries))
	}
	if got := f.history.entries[0].NewValue["internal_status"]; got != "Rückfrage Netzbetreiber" {
		t.Errorf("internal_status annotation = %v", got)
	}

	stored, _ := f.cases.GetByID(context.Background(), seeded.ID)
	if stored.Status != domain.CaseStatusInternal {
		t.Errorf("stored status = %s, want INTERNAL", stored.Status)
	}
}

func TestChangeStatusRejectsIllegalEdge(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusDraft)

	_, err := f.service.ChangeStatus(context.Background(), "op-2", seeded.ID, StatusChangeInput{
		TargetStatus: domain.CaseStatusSent,
		Version:      seeded.Version,
	})
	if !apperrors.HasCode(err, "INVALID_TRANSITION") {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}

	stored, _ := f.cases.GetByID(context.Background(), seeded.ID)
	if stored.Status != domain.CaseStatusDraft || stored.Version != seeded.Version {
		t.Error("rejected transition must leave the stored case unchanged")
	}
	if len(f.history.entries) != 0 || len(f.dispatcher.published) != 0 {
		t.Error("rejected transition must not record history or publish events")
	}
}

func TestChangeStatusDetectsStaleVersion(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusDraft)

	_, err := f.service.ChangeStatus(context.Background(), "op-2", seeded.ID, StatusChangeInput{
		TargetStatus: domain.CaseStatusInternal,
		Version:      seeded.Version - 1,
	})
	if !apperrors.HasCode(err, "STALE_VERSION") {
		t.Errorf("expected STALE_VERSION, got %v", err)
	}
}

func TestReopenRestoresSelfWaiting(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusClosed)

	updated, err := f.service.Reopen(context.Background(), "op-2", seeded.ID, seeded.Version)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if updated.Status != domain.CaseStatusInternal {
		t.Errorf("status = %s, want INTERNAL", updated.Status)
	}
	if updated.WaitingOn != domain.WaitingSelf {
		t.Errorf("waitingOn = %s, want US", updated.WaitingOn)
	}
	if f.history.entries[0].Message != "Klärfall wiedereröffnet" {
		t.Errorf("audit message = %q", f.history.entries[0].Message)
	}
}

func TestRecordEmailStampsTimestamps(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusSent)

	_, err := f.service.RecordEmail(context.Background(), "op-2", seeded.ID, EmailInput{
		Direction: domain.EmailDirectionInbound,
		Subject:   "AW: Anfrage",
		Body:      "Antwort des Marktpartners",
	}, seeded.Version)
	if err != nil {
		t.Fatalf("RecordEmail: %v", err)
	}

	stored, _ := f.cases.GetByID(context.Background(), seeded.ID)
	if stored.LastInboundAt == nil || !stored.LastInboundAt.Equal(f.now) {
		t.Errorf("lastInboundAt = %v, want %v", stored.LastInboundAt, f.now)
	}
	if stored.LastOutboundAt != nil {
		t.Error("lastOutboundAt must stay unset for inbound mail")
	}
	if stored.Version != seeded.Version+1 {
		t.Errorf("version = %d, want %d", stored.Version, seeded.Version+1)
	}
	// Recording an answer never auto-transitions; the operator decides.
	if stored.Status != domain.CaseStatusSent {
		t.Errorf("status = %s, want SENT", stored.Status)
	}
}

func TestRecordEmailRejectsUnknownDirection(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusSent)

	_, err := f.service.RecordEmail(context.Background(), "op-2", seeded.ID, EmailInput{Direction: "SIDEWAYS"}, seeded.Version)
	if !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestArchivedCaseBehavesAsNotFound(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusResolved)

	if err := f.service.Archive(context.Background(), "op-2", seeded.ID, seeded.Version); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := f.service.GetCase(context.Background(), seeded.ID); !apperrors.HasCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND after archive, got %v", err)
	}
	if _, err := f.service.ChangeStatus(context.Background(), "op-2", seeded.ID, StatusChangeInput{
		TargetStatus: domain.CaseStatusInternal,
		Version:      seeded.Version + 1,
	}); !apperrors.HasCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND for archived mutation, got %v", err)
	}
}

func TestTimelineIncludesAllCategories(t *testing.T) {
	f := newCaseFixture()
	seeded := f.seedCase(t, domain.CaseStatusSent)

	if _, err := f.service.AddNote(context.Background(), "op-2", seeded.ID, "interne Notiz"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, err := f.service.AddAttachment(context.Background(), "op-2", seeded.ID, AttachmentInput{
		StorageKey: "s3://bucket/key",
		FileName:   "lastgang.csv",
		MimeType:   "text/csv",
		SizeBytes:  2048,
	}); err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}

	timeline, err := f.service.Timeline(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}

	kinds := map[domain.TimelineEventKind]int{}
	for _, event := range timeline {
		kinds[event.Kind]++
	}
	if kinds[domain.TimelineCreated] != 1 {
		t.Errorf("created events = %d, want 1", kinds[domain.TimelineCreated])
	}
	if kinds[domain.TimelineStatusChanged] != 1 {
		t.Errorf("status events = %d, want 1", kinds[domain.TimelineStatusChanged])
	}
	if kinds[domain.TimelineNoteAdded] != 1 {
		t.Errorf("note events = %d, want 1", kinds[domain.TimelineNoteAdded])
	}
	if kinds[domain.TimelineAttachmentAdded] != 1 {
		t.Errorf("attachment events = %d, want 1", kinds[domain.TimelineAttachmentAdded])
	}
}
