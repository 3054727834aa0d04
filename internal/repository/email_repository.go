package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clarification-service/internal/domain"
)

// EmailRepository stores correspondence metadata.
type EmailRepository interface {
	Create(ctx context.Context, email *domain.CaseEmail) error
	ListByCase(ctx context.Context, caseID string) ([]domain.CaseEmail, error)
}

type emailRepository struct {
	pool *pgxpool.Pool
}

// NewEmailRepository builds repository.
func NewEmailRepository(pool *pgxpool.Pool) EmailRepository {
	return &emailRepository{pool: pool}
}

func (r *emailRepository) Create(ctx context.Context, email *domain.CaseEmail) error {
	const query = `
        INSERT INTO case_emails (case_id, direction, address, subject, body_preview, recorded_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		email.CaseID,
		email.Direction,
		email.Address,
		email.Subject,
		email.BodyPreview,
		email.RecordedBy,
	).Scan(&email.ID, &email.CreatedAt)
}

func (r *emailRepository) ListByCase(ctx context.Context, caseID string) ([]domain.CaseEmail, error) {
	const query = `
        SELECT id, case_id, direction, address, subject, body_preview, recorded_by, created_at
        FROM case_emails WHERE case_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseEmail
	for rows.Next() {
		var email domain.CaseEmail
		if err := rows.Scan(
			&email.ID,
			&email.CaseID,
			&email.Direction,
			&email.Address,
			&email.Subject,
			&email.BodyPreview,
			&email.RecordedBy,
			&email.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, email)
	}
	return result, rows.Err()
}
