package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clarification-service/internal/domain"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// PartnerRepository looks up market-partner directory entries. The
// directory itself is maintained by an external system; this service
// only reads it.
type PartnerRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.MarketPartner, error)
	List(ctx context.Context) ([]domain.MarketPartner, error)
}

type partnerRepository struct {
	pool *pgxpool.Pool
}

// NewPartnerRepository builds repository.
func NewPartnerRepository(pool *pgxpool.Pool) PartnerRepository {
	return &partnerRepository{pool: pool}
}

func (r *partnerRepository) GetByCode(ctx context.Context, code string) (*domain.MarketPartner, error) {
	const query = `
        SELECT code, name, role, contact_email, is_active, created_at
        FROM market_partners WHERE code=$1`
	var partner domain.MarketPartner
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&partner.Code,
		&partner.Name,
		&partner.Role,
		&partner.ContactEmail,
		&partner.IsActive,
		&partner.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("market partner", map[string]any{"code": code})
		}
		return nil, err
	}
	return &partner, nil
}

func (r *partnerRepository) List(ctx context.Context) ([]domain.MarketPartner, error) {
	const query = `
        SELECT code, name, role, contact_email, is_active, created_at
        FROM market_partners ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MarketPartner
	for rows.Next() {
		var partner domain.MarketPartner
		if err := rows.Scan(
			&partner.Code,
			&partner.Name,
			&partner.Role,
			&partner.ContactEmail,
			&partner.IsActive,
			&partner.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, partner)
	}
	return result, rows.Err()
}
