package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
)

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, bill_id, customer_id, amount, method, trx_id, collected_by, approved_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.BillID,
		payment.CustomerID,
		payment.Amount,
		payment.Method,
		payment.TrxID,
		payment.CollectedBy,
		payment.ApprovedBy,
		payment.Notes,
		payment.CreatedAt,
	)

	return mapQueryError("create payment", err)
}

func (r *paymentRepository) ListByBill(ctx context.Context, billID uuid.UUID) ([]domain.Payment, error) {
	query := `
		SELECT id, bill_id, customer_id, amount, method, trx_id, collected_by, approved_by, notes, created_at
		FROM payments
		WHERE bill_id = $1
		ORDER BY created_at, id
	`

	payments := []domain.Payment{}
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, billID); err != nil {
		return nil, mapQueryError("list payments", err)
	}
	return payments, nil
}
