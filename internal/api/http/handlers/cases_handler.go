package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clarification-service/internal/api/dto"
	"github.com/spec-kit/clarification-service/internal/domain"
	"github.com/spec-kit/clarification-service/internal/repository"
	"github.com/spec-kit/clarification-service/internal/service"
	"github.com/spec-kit/clarification-service/internal/sla"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// operatorHeader carries the acting operator's identifier. Verifying it
// is the job of the gateway in front of this service.
const operatorHeader = "X-Operator"

// CasesHandler manages clarification case endpoints.
type CasesHandler struct {
	service *service.CaseService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService) *CasesHandler {
	return &CasesHandler{service: caseService}
}

// CreateCase POST /cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PartnerCode == "" || req.Title == "" {
		return apperrors.NewValidationError("partnerCode and title required", nil)
	}

	input := service.CaseCreateInput{
		PartnerCode:  req.PartnerCode,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		SlaDueAt:     req.SlaDueAt,
		NextActionAt: req.NextActionAt,
	}
	record, err := h.service.CreateCase(c.Context(), actorFrom(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	filter := parseCaseQuery(c)
	cases, err := h.service.ListCases(c.Context(), filter)
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		items = append(items, caseResponse(&cases[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	record, err := h.service.GetCase(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// GetCaseByKey GET /cases/key/:key.
func (h *CasesHandler) GetCaseByKey(c *fiber.Ctx) error {
	record, err := h.service.GetCaseByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// ChangeStatus POST /cases/:id/status.
func (h *CasesHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetStatus == "" {
		return apperrors.NewValidationError("targetStatus required", nil)
	}
	record, err := h.service.ChangeStatus(c.Context(), actorFrom(c), c.Params("id"), service.StatusChangeInput{
		TargetStatus:   req.TargetStatus,
		InternalStatus: req.InternalStatus,
		Reason:         req.Reason,
		Version:        req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// Reopen POST /cases/:id/reopen.
func (h *CasesHandler) Reopen(c *fiber.Ctx) error {
	var req dto.ReopenCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.service.Reopen(c.Context(), actorFrom(c), c.Params("id"), req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// Escalate POST /cases/:id/escalate.
func (h *CasesHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.service.Escalate(c.Context(), actorFrom(c), c.Params("id"), req.Reason, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// UpdatePriority PATCH /cases/:id/priority.
func (h *CasesHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Priority == "" {
		return apperrors.NewValidationError("priority required", nil)
	}
	record, err := h.service.UpdatePriority(c.Context(), actorFrom(c), c.Params("id"), req.Priority, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(record, time.Now())})
}

// RecordEmail POST /cases/:id/emails.
func (h *CasesHandler) RecordEmail(c *fiber.Ctx) error {
	var req dto.RecordEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Direction == "" {
		return apperrors.NewValidationError("direction required", nil)
	}
	email, err := h.service.RecordEmail(c.Context(), actorFrom(c), c.Params("id"), service.EmailInput{
		Direction: req.Direction,
		Address:   req.Address,
		Subject:   req.Subject,
		Body:      req.Body,
	}, req.Version)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": emailResponse(email)})
}

// AddNote POST /cases/:id/notes.
func (h *CasesHandler) AddNote(c *fiber.Ctx) error {
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}
	note, err := h.service.AddNote(c.Context(), actorFrom(c), c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

// AddAttachment POST /cases/:id/attachments.
func (h *CasesHandler) AddAttachment(c *fiber.Ctx) error {
	var req dto.AddAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StorageKey == "" || req.FileName == "" {
		return apperrors.NewValidationError("storageKey and fileName required", nil)
	}
	att, err := h.service.AddAttachment(c.Context(), actorFrom(c), c.Params("id"), service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(att)})
}

// Archive POST /cases/:id/archive.
func (h *CasesHandler) Archive(c *fiber.Ctx) error {
	var req dto.ArchiveCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.Archive(c.Context(), actorFrom(c), c.Params("id"), req.Version); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Timeline GET /cases/:id/timeline.
func (h *CasesHandler) Timeline(c *fiber.Ctx) error {
	events, err := h.service.Timeline(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TimelineEventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.TimelineEventResponse{
			Kind:        event.Kind,
			Timestamp:   event.Timestamp,
			Actor:       event.Actor,
			Title:       event.Title,
			Description: event.Description,
			Metadata:    event.Metadata,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// History GET /cases/:id/history.
func (h *CasesHandler) History(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 100)
	offset := parseInt(c.Query("offset"), 0)
	entries, err := h.service.History(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryEntryResponse{
			ID:         entry.ID,
			Actor:      entry.Actor,
			ChangeType: entry.ChangeType,
			Message:    entry.Message,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPartners GET /partners.
func (h *CasesHandler) ListPartners(c *fiber.Ctx) error {
	partners, err := h.service.ListPartners(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.PartnerResponse, 0, len(partners))
	for _, partner := range partners {
		items = append(items, dto.PartnerResponse{
			Code:         partner.Code,
			Name:         partner.Name,
			Role:         partner.Role,
			ContactEmail: partner.ContactEmail,
			IsActive:     partner.IsActive,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func actorFrom(c *fiber.Ctx) string {
	actor := strings.TrimSpace(c.Get(operatorHeader))
	if actor == "" {
		return "system"
	}
	return actor
}

func parseCaseQuery(c *fiber.Ctx) repository.CaseFilter {
	filter := repository.CaseFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.CaseStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.CasePriority(strings.TrimSpace(part)))
		}
	}
	if waiting := c.Query("waitingOn"); waiting != "" {
		party := domain.WaitingParty(strings.TrimSpace(waiting))
		filter.WaitingOn = &party
	}
	if partner := c.Query("partnerCode"); partner != "" {
		filter.PartnerCode = &partner
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("pageSize"), 50)
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, fallback int) int {
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func caseResponse(c *domain.ClarificationCase, now time.Time) dto.CaseResponse {
	return dto.CaseResponse{
		ID:                    c.ID,
		ExternalKey:           c.ExternalKey,
		PartnerCode:           c.PartnerCode,
		Title:                 c.Title,
		Description:           c.Description,
		Status:                c.Status,
		Priority:              c.Priority,
		WaitingOn:             c.WaitingOn,
		NextActionAt:          c.NextActionAt,
		EffectiveNextActionAt: sla.EffectiveNextAction(c),
		SlaDueAt:              c.SlaDueAt,
		LastInboundAt:         c.LastInboundAt,
		LastOutboundAt:        c.LastOutboundAt,
		StaleSinceDays:        c.StaleSinceDays,
		Overdue:               sla.IsOverdue(c, now),
		Version:               c.Version,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

func noteResponse(note *domain.CaseNote) dto.NoteResponse {
	return dto.NoteResponse{
		ID:        note.ID,
		Author:    note.Author,
		Body:      note.Body,
		CreatedAt: note.CreatedAt,
	}
}

func emailResponse(email *domain.CaseEmail) dto.EmailResponse {
	return dto.EmailResponse{
		ID:          email.ID,
		Direction:   email.Direction,
		Address:     email.Address,
		Subject:     email.Subject,
		BodyPreview: email.BodyPreview,
		CreatedAt:   email.CreatedAt,
	}
}

func attachmentResponse(att *domain.AttachmentReference) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:        att.ID,
		FileName:  att.FileName,
		MimeType:  att.MimeType,
		SizeBytes: att.SizeBytes,
		CreatedAt: att.CreatedAt,
	}
}
