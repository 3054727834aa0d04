package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clarification-service/internal/domain"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// CaseFilter captures listing parameters.
type CaseFilter struct {
	Statuses        []domain.CaseStatus
	Priorities      []domain.CasePriority
	WaitingOn       *domain.WaitingParty
	PartnerCode     *string
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	IncludeArchived bool
	Limit           int
	Offset          int
}

// CaseRepository encapsulates clarification case persistence. Update is
// version-guarded: the supplied expected version must match the stored
// row or the write fails with a stale-version error.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.ClarificationCase) error
	Update(ctx context.Context, c *domain.ClarificationCase, expectedVersion int64) error
	GetByID(ctx context.Context, id string) (*domain.ClarificationCase, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.ClarificationCase, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.ClarificationCase, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `id, external_key, partner_code, created_by, title, description, status, priority,
	       waiting_on, next_action_at, sla_due_at, last_inbound_at, last_outbound_at,
	       stale_since_days, version, created_at, updated_at, archived_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.ClarificationCase) error {
	const query = `
        INSERT INTO clarification_cases
            (external_key, partner_code, created_by, title, description, status, priority,
             waiting_on, next_action_at, sla_due_at, stale_since_days, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		c.ExternalKey,
		c.PartnerCode,
		c.CreatedBy,
		c.Title,
		c.Description,
		c.Status,
		c.Priority,
		c.WaitingOn,
		c.NextActionAt,
		c.SlaDueAt,
		c.StaleSinceDays,
		c.Version,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update writes the in-memory state of the case. The row is matched on
// both id and expectedVersion; zero rows means either a concurrent
// writer won (stale version) or the case is gone.
func (r *caseRepository) Update(ctx context.Context, c *domain.ClarificationCase, expectedVersion int64) error {
	const query = `
        UPDATE clarification_cases SET
            partner_code=$1, title=$2, description=$3, status=$4, priority=$5,
            waiting_on=$6, next_action_at=$7, sla_due_at=$8, last_inbound_at=$9,
            last_outbound_at=$10, stale_since_days=$11, version=$12, updated_at=$13,
            archived_at=$14
        WHERE id=$15 AND version=$16`
	cmd, err := r.pool.Exec(ctx, query,
		c.PartnerCode,
		c.Title,
		c.Description,
		c.Status,
		c.Priority,
		c.WaitingOn,
		c.NextActionAt,
		c.SlaDueAt,
		c.LastInboundAt,
		c.LastOutboundAt,
		c.StaleSinceDays,
		c.Version,
		c.UpdatedAt,
		c.ArchivedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		exists, err := r.exists(ctx, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.NewStaleVersion(expectedVersion)
		}
		return apperrors.NewNotFound("case", map[string]any{"case_id": c.ID})
	}
	return nil
}

func (r *caseRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clarification_cases WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.ClarificationCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM clarification_cases WHERE id=$1`, caseColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *caseRepository) GetByExternalKey(ctx context.Context, key string) (*domain.ClarificationCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM clarification_cases WHERE external_key=$1`, caseColumns)
	return r.fetchSingle(ctx, query, key)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ClarificationCase, error) {
	var c domain.ClarificationCase
	if err := scanCase(r.pool.QueryRow(ctx, query, arg), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", nil)
		}
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.ClarificationCase, error) {
	base := fmt.Sprintf(`SELECT %s FROM clarification_cases`, caseColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if !filter.IncludeArchived {
		clauses = append(clauses, "archived_at IS NULL")
	}
	if filter.PartnerCode != nil {
		args = append(args, *filter.PartnerCode)
		clauses = append(clauses, fmt.Sprintf("partner_code=$%d", len(args)))
	}
	if filter.WaitingOn != nil {
		args = append(args, *filter.WaitingOn)
		clauses = append(clauses, fmt.Sprintf("waiting_on=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner, c *domain.ClarificationCase) error {
	return row.Scan(
		&c.ID,
		&c.ExternalKey,
		&c.PartnerCode,
		&c.CreatedBy,
		&c.Title,
		&c.Description,
		&c.Status,
		&c.Priority,
		&c.WaitingOn,
		&c.NextActionAt,
		&c.SlaDueAt,
		&c.LastInboundAt,
		&c.LastOutboundAt,
		&c.StaleSinceDays,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ArchivedAt,
	)
}

func scanCases(rows pgx.Rows) ([]domain.ClarificationCase, error) {
	var result []domain.ClarificationCase
	for rows.Next() {
		var c domain.ClarificationCase
		if err := scanCase(rows, &c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
