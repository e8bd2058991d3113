package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// ApprovalService holds employee collections until an admin confirms them.
// Nothing reaches the ledger before approval.
type ApprovalService struct {
	store    repository.Store
	payments *PaymentService
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func NewApprovalService(store repository.Store, payments *PaymentService, m *metrics.Metrics, log *zap.Logger) *ApprovalService {
	return &ApprovalService{
		store:    store,
		payments: payments,
		metrics:  m,
		log:      log.Named("approval.service"),
		now:      time.Now,
	}
}

// Submit records an employee's claim of a collected payment
func (s *ApprovalService) Submit(ctx context.Context, billID uuid.UUID, req domain.CollectionRequest) (*domain.PendingPaymentApproval, error) {
	if !req.Amount.IsPositive() {
		return nil, customError.WrapValidation("amount must be greater than 0")
	}
	if req.CollectedBy == "" || req.Method == "" {
		return nil, customError.WrapValidation("collector and method are required")
	}

	repos := s.store.Repositories()

	bill, err := repos.Bills.GetByID(ctx, billID)
	if err != nil {
		return nil, normalize(notFound(err, func() error { return customError.WrapBillNotFound(billID.String()) }))
	}
	if bill.IsPaid() {
		return nil, customError.WrapInvalidBillState(billID.String(), "bill is already paid")
	}

	approval := &domain.PendingPaymentApproval{
		ID:          uuid.New(),
		BillID:      bill.ID,
		Amount:      req.Amount,
		Method:      req.Method,
		TrxID:       req.TrxID,
		CollectedBy: req.CollectedBy,
		Status:      domain.ApprovalStatusPending,
		Notes:       req.Notes,
		CreatedAt:   s.now(),
	}
	if err := repos.Approvals.Create(ctx, approval); err != nil {
		return nil, normalize(err)
	}

	s.log.Info("collection submitted",
		zap.String("approval_id", approval.ID.String()),
		zap.String("bill_id", billID.String()),
		zap.String("collected_by", req.CollectedBy),
		zap.String("amount", req.Amount.String()),
	)
	return approval, nil
}

// Decide approves or rejects a pending collection. Approval replays the
// collection through the reconciliation engine in the same transaction.
func (s *ApprovalService) Decide(ctx context.Context, approvalID uuid.UUID, req domain.DecisionRequest) (*domain.DecisionResponse, error) {
	var (
		decided domain.PendingPaymentApproval
		out     *applied
		in      PaymentInput
	)

	err := s.payments.tx.run(ctx, "decide_approval", func(ctx context.Context, repos repository.Repositories) error {
		out = nil

		approval, err := repos.Approvals.GetForUpdate(ctx, approvalID)
		if err != nil {
			return notFound(err, func() error { return customError.WrapApprovalNotFound(approvalID.String()) })
		}
		collectorNotes := approval.Notes

		if err := approval.Decide(req.Decision, req.ApprovedBy, req.Notes, s.now()); err != nil {
			return err
		}

		if approval.Status == domain.ApprovalStatusApproved {
			approver := req.ApprovedBy
			in = PaymentInput{
				Source:      metrics.SourceApproval,
				CashAmount:  approval.Amount,
				AdvanceDraw: money.Zero(),
				Method:      approval.Method,
				TrxID:       approval.TrxID,
				Notes:       collectorNotes,
				CollectedBy: approval.CollectedBy,
				ApprovedBy:  &approver,
				SendReceipt: req.SendReceipt,
			}
			out, err = s.payments.applyWithin(ctx, repos, approval.BillID, in)
			if err != nil {
				return err
			}
		}

		if err := repos.Approvals.Update(ctx, approval); err != nil {
			return err
		}
		decided = *approval
		return nil
	})
	if err != nil {
		if req.Decision == domain.DecisionApprove {
			s.metrics.PaymentFailed(metrics.SourceApproval, customError.Code(err))
		}
		return nil, err
	}

	s.metrics.ApprovalDecided(string(decided.Status))
	s.log.Info("approval decided",
		zap.String("approval_id", approvalID.String()),
		zap.String("status", string(decided.Status)),
		zap.String("approved_by", req.ApprovedBy),
	)

	resp := &domain.DecisionResponse{Approval: decided}
	if out != nil {
		s.payments.afterCommit(ctx, out, in)
		resp.Payment = out.response()
	}
	return resp, nil
}

// ListPending returns the admin queue, oldest first
func (s *ApprovalService) ListPending(ctx context.Context) ([]domain.PendingPaymentApproval, error) {
	approvals, err := s.store.Repositories().Approvals.ListPending(ctx)
	if err != nil {
		return nil, normalize(err)
	}
	return approvals, nil
}

func (s *ApprovalService) Get(ctx context.Context, approvalID uuid.UUID) (*domain.PendingPaymentApproval, error) {
	approval, err := s.store.Repositories().Approvals.GetByID(ctx, approvalID)
	if err != nil {
		return nil, normalize(notFound(err, func() error { return customError.WrapApprovalNotFound(approvalID.String()) }))
	}
	return approval, nil
}
