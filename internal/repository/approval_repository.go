package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
)

const approvalColumns = `id, bill_id, amount, method, trx_id, collected_by, status, approved_by, approved_at, notes, created_at`

type approvalRepository struct {
	db sqlx.ExtContext
}

func NewApprovalRepository(db sqlx.ExtContext) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, approval *domain.PendingPaymentApproval) error {
	query := `
		INSERT INTO payment_approvals (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		approval.ID,
		approval.BillID,
		approval.Amount,
		approval.Method,
		approval.TrxID,
		approval.CollectedBy,
		approval.Status,
		approval.ApprovedBy,
		approval.ApprovedAt,
		approval.Notes,
		approval.CreatedAt,
	)

	return mapQueryError("create approval", err)
}

func (r *approvalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingPaymentApproval, error) {
	return r.get(ctx, `SELECT `+approvalColumns+` FROM payment_approvals WHERE id = $1`, id)
}

func (r *approvalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PendingPaymentApproval, error) {
	return r.get(ctx, `SELECT `+approvalColumns+` FROM payment_approvals WHERE id = $1 FOR UPDATE`, id)
}

func (r *approvalRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.PendingPaymentApproval, error) {
	var approval domain.PendingPaymentApproval
	if err := sqlx.GetContext(ctx, r.db, &approval, query, id); err != nil {
		return nil, mapQueryError("get approval", err)
	}
	return &approval, nil
}

func (r *approvalRepository) ListPending(ctx context.Context) ([]domain.PendingPaymentApproval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM payment_approvals
		WHERE status = $1
		ORDER BY created_at, id
	`

	approvals := []domain.PendingPaymentApproval{}
	if err := sqlx.SelectContext(ctx, r.db, &approvals, query, domain.ApprovalStatusPending); err != nil {
		return nil, mapQueryError("list approvals", err)
	}
	return approvals, nil
}

func (r *approvalRepository) Update(ctx context.Context, approval *domain.PendingPaymentApproval) error {
	query := `
		UPDATE payment_approvals
		SET status = $2, approved_by = $3, approved_at = $4, notes = $5
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		approval.ID,
		approval.Status,
		approval.ApprovedBy,
		approval.ApprovedAt,
		approval.Notes,
	)
	return expectOneRow("update approval", res, err)
}
