package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

const resellerColumns = `id, name, current_balance, balance_limit, created_at, updated_at`

type resellerRepository struct {
	db sqlx.ExtContext
}

func NewResellerRepository(db sqlx.ExtContext) ResellerRepository {
	return &resellerRepository{db: db}
}

func (r *resellerRepository) Create(ctx context.Context, reseller *domain.ResellerProfile) error {
	query := `
		INSERT INTO resellers (` + resellerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		reseller.ID,
		reseller.Name,
		reseller.CurrentBalance,
		reseller.BalanceLimit,
		reseller.CreatedAt,
		reseller.UpdatedAt,
	)

	return mapQueryError("create reseller", err)
}

func (r *resellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResellerProfile, error) {
	return r.get(ctx, `SELECT `+resellerColumns+` FROM resellers WHERE id = $1`, id)
}

func (r *resellerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ResellerProfile, error) {
	return r.get(ctx, `SELECT `+resellerColumns+` FROM resellers WHERE id = $1 FOR UPDATE`, id)
}

func (r *resellerRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.ResellerProfile, error) {
	var reseller domain.ResellerProfile
	if err := sqlx.GetContext(ctx, r.db, &reseller, query, id); err != nil {
		return nil, mapQueryError("get reseller", err)
	}
	return &reseller, nil
}

func (r *resellerRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error {
	query := `UPDATE resellers SET current_balance = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, balance, time.Now())
	return expectOneRow("update reseller balance", res, err)
}
