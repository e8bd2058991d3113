package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

const customerColumns = `id, reseller_id, package_id, name, phone, advance_balance, status, created_at, updated_at`

type customerRepository struct {
	db sqlx.ExtContext
}

func NewCustomerRepository(db sqlx.ExtContext) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.CustomerProfile) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.ResellerID,
		customer.PackageID,
		customer.Name,
		customer.Phone,
		customer.AdvanceBalance,
		customer.Status,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	return mapQueryError("create customer", err)
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerProfile, error) {
	return r.get(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.CustomerProfile, error) {
	return r.get(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
}

func (r *customerRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.CustomerProfile, error) {
	var customer domain.CustomerProfile
	if err := sqlx.GetContext(ctx, r.db, &customer, query, id); err != nil {
		return nil, mapQueryError("get customer", err)
	}
	return &customer, nil
}

func (r *customerRepository) ListByStatus(ctx context.Context, status domain.CustomerStatus) ([]domain.CustomerProfile, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE status = $1 ORDER BY created_at, id`

	customers := []domain.CustomerProfile{}
	if err := sqlx.SelectContext(ctx, r.db, &customers, query, status); err != nil {
		return nil, mapQueryError("list customers", err)
	}
	return customers, nil
}

func (r *customerRepository) UpdateAdvanceBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error {
	query := `UPDATE customers SET advance_balance = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, balance, time.Now())
	return expectOneRow("update advance balance", res, err)
}

func (r *customerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CustomerStatus) error {
	query := `UPDATE customers SET status = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return expectOneRow("update customer status", res, err)
}
