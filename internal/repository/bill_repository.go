package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
)

const billColumns = `id, customer_id, package_id, amount, discount_amount, due_date, status, month, year, paid_at, created_at, updated_at`

type billRepository struct {
	db sqlx.ExtContext
}

func NewBillRepository(db sqlx.ExtContext) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) Create(ctx context.Context, bill *domain.Bill) error {
	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		bill.ID,
		bill.CustomerID,
		bill.PackageID,
		bill.Amount,
		bill.DiscountAmount,
		bill.DueDate,
		bill.Status,
		bill.Month,
		bill.Year,
		bill.PaidAt,
		bill.CreatedAt,
		bill.UpdatedAt,
	)

	return mapQueryError("create bill", err)
}

func (r *billRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	return r.get(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
}

func (r *billRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	return r.get(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 FOR UPDATE`, id)
}

func (r *billRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Bill, error) {
	var bill domain.Bill
	if err := sqlx.GetContext(ctx, r.db, &bill, query, id); err != nil {
		return nil, mapQueryError("get bill", err)
	}
	return &bill, nil
}

func (r *billRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE customer_id = $1
		ORDER BY year DESC, month DESC
	`

	bills := []domain.Bill{}
	if err := sqlx.SelectContext(ctx, r.db, &bills, query, customerID); err != nil {
		return nil, mapQueryError("list bills", err)
	}
	return bills, nil
}

func (r *billRepository) ExistsForPeriod(ctx context.Context, customerID uuid.UUID, month, year int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bills WHERE customer_id = $1 AND month = $2 AND year = $3)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, customerID, month, year); err != nil {
		return false, mapQueryError("check bill period", err)
	}
	return exists, nil
}

func (r *billRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE status <> $1 AND due_date < $2
		ORDER BY due_date
	`

	bills := []domain.Bill{}
	if err := sqlx.SelectContext(ctx, r.db, &bills, query, domain.BillStatusPaid, now); err != nil {
		return nil, mapQueryError("list overdue bills", err)
	}
	return bills, nil
}

func (r *billRepository) Update(ctx context.Context, bill *domain.Bill) error {
	query := `
		UPDATE bills
		SET status = $2, discount_amount = $3, due_date = $4, paid_at = $5, updated_at = $6
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		bill.ID,
		bill.Status,
		bill.DiscountAmount,
		bill.DueDate,
		bill.PaidAt,
		bill.UpdatedAt,
	)
	return expectOneRow("update bill", res, err)
}
