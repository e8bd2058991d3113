package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/cache"
	"github.com/naimprince010-ship-it/isp-billing/internal/config"
	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/notify"
	"github.com/naimprince010-ship-it/isp-billing/internal/reconciliation"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// SideEffects receives post-commit work. Implementations must not block.
type SideEffects interface {
	Receipt(event notify.ReceiptEvent)
	DeviceSync(event notify.DeviceSyncEvent)
}

// PaymentInput is the common shape of the three payment entry points
type PaymentInput struct {
	Source string

	CashAmount     money.Amount
	DiscountAmount *money.Amount
	AdvanceDraw    money.Amount

	Method      string
	TrxID       *string
	Notes       *string
	CollectedBy string
	ApprovedBy  *string
	SendReceipt bool

	// ResellerID restricts the payment to bills of the reseller's own customers
	ResellerID *uuid.UUID
}

// applied is the committed outcome of one reconciliation
type applied struct {
	result   *reconciliation.Result
	customer domain.CustomerProfile
	prior    []domain.Payment
}

func (a *applied) response() *domain.PaymentResponse {
	payments := make([]domain.Payment, 0, len(a.prior)+len(a.result.Payments))
	payments = append(payments, a.prior...)
	payments = append(payments, a.result.Payments...)
	return &domain.PaymentResponse{
		Bill:           a.result.Bill,
		Payments:       payments,
		AdvanceBalance: a.result.AdvanceBalance,
		TotalPaid:      a.result.TotalPaid,
		Due:            a.result.Due,
	}
}

type PaymentService struct {
	tx      txRunner
	engine  *reconciliation.Engine
	cache   cache.BillSummaryCache
	effects SideEffects
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewPaymentService(
	store repository.Store,
	engine *reconciliation.Engine,
	summaries cache.BillSummaryCache,
	effects SideEffects,
	m *metrics.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) *PaymentService {
	log = log.Named("payment.service")
	return &PaymentService{
		tx:      txRunner{store: store, maxRetries: cfg.Business.MaxConflictRetries, metrics: m, log: log},
		engine:  engine,
		cache:   summaries,
		effects: effects,
		metrics: m,
		log:     log,
	}
}

// PayDirect records a cash payment made by the customer or taken by an admin
func (s *PaymentService) PayDirect(ctx context.Context, billID uuid.UUID, req domain.DirectPaymentRequest) (*domain.PaymentResponse, error) {
	return s.ApplyPayment(ctx, billID, PaymentInput{
		Source:      metrics.SourceDirect,
		CashAmount:  req.Amount,
		Method:      req.Method,
		TrxID:       req.TrxID,
		Notes:       req.Notes,
		CollectedBy: req.CollectedBy,
		SendReceipt: req.SendReceipt,
	})
}

// PayAsReseller records a payment taken by a reseller operator, optionally
// discounting the bill and drawing on the customer's advance balance
func (s *PaymentService) PayAsReseller(ctx context.Context, resellerID, billID uuid.UUID, req domain.ResellerPaymentRequest) (*domain.PaymentResponse, error) {
	draw := money.Zero()
	if req.AdvanceDraw != nil {
		draw = *req.AdvanceDraw
	}
	return s.ApplyPayment(ctx, billID, PaymentInput{
		Source:         metrics.SourceReseller,
		CashAmount:     req.Amount,
		DiscountAmount: req.DiscountAmount,
		AdvanceDraw:    draw,
		Method:         req.Method,
		TrxID:          req.TrxID,
		Notes:          req.Notes,
		CollectedBy:    req.CollectedBy,
		SendReceipt:    req.SendReceipt,
		ResellerID:     &resellerID,
	})
}

// ApplyPayment reconciles one payment against a bill in a single transaction
// and dispatches receipts and device re-enable after commit.
func (s *PaymentService) ApplyPayment(ctx context.Context, billID uuid.UUID, in PaymentInput) (*domain.PaymentResponse, error) {
	var out *applied
	err := s.tx.run(ctx, "apply_payment", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		out, err = s.applyWithin(ctx, repos, billID, in)
		return err
	})
	if err != nil {
		s.metrics.PaymentFailed(in.Source, customError.Code(err))
		s.log.Info("payment rejected",
			zap.String("bill_id", billID.String()),
			zap.String("source", in.Source),
			zap.Error(err),
		)
		return nil, err
	}

	s.afterCommit(ctx, out, in)
	return out.response(), nil
}

// applyWithin runs the reconciliation inside an open transaction.
// Lock order: bill, then customer.
func (s *PaymentService) applyWithin(ctx context.Context, repos repository.Repositories, billID uuid.UUID, in PaymentInput) (*applied, error) {
	bill, err := repos.Bills.GetForUpdate(ctx, billID)
	if err != nil {
		return nil, notFound(err, func() error { return customError.WrapBillNotFound(billID.String()) })
	}

	customer, err := repos.Customers.GetForUpdate(ctx, bill.CustomerID)
	if err != nil {
		return nil, notFound(err, func() error { return customError.WrapCustomerNotFound(bill.CustomerID.String()) })
	}
	if in.ResellerID != nil && !customer.BelongsTo(*in.ResellerID) {
		return nil, customError.WrapBillNotFound(billID.String())
	}

	prior, err := repos.Payments.ListByBill(ctx, bill.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ApplyPayment(*bill, prior, reconciliation.PaymentRequest{
		CashAmount:             in.CashAmount,
		DiscountAmount:         in.DiscountAmount,
		AdvanceDraw:            in.AdvanceDraw,
		CustomerAdvanceBalance: customer.AdvanceBalance,
		Method:                 in.Method,
		TrxID:                  in.TrxID,
		Notes:                  in.Notes,
		CollectedBy:            in.CollectedBy,
		ApprovedBy:             in.ApprovedBy,
		SendReceipt:            in.SendReceipt,
	})
	if err != nil {
		return nil, err
	}

	for i := range result.Payments {
		if err := repos.Payments.Create(ctx, &result.Payments[i]); err != nil {
			return nil, err
		}
	}
	if err := repos.Bills.Update(ctx, &result.Bill); err != nil {
		return nil, err
	}
	if !result.AdvanceBalance.Equal(customer.AdvanceBalance) {
		if err := repos.Customers.UpdateAdvanceBalance(ctx, customer.ID, result.AdvanceBalance); err != nil {
			return nil, err
		}
		customer.AdvanceBalance = result.AdvanceBalance
	}
	// a paid bill lifts a suspension; INACTIVE accounts stay closed
	if result.ActivateCustomer && customer.Status == domain.CustomerStatusSuspended {
		if err := repos.Customers.UpdateStatus(ctx, customer.ID, domain.CustomerStatusActive); err != nil {
			return nil, err
		}
		customer.Status = domain.CustomerStatusActive
	}

	return &applied{result: result, customer: *customer, prior: prior}, nil
}

func (s *PaymentService) afterCommit(ctx context.Context, out *applied, in PaymentInput) {
	bill := out.result.Bill

	if err := s.cache.Invalidate(ctx, bill.ID); err != nil {
		s.log.Warn("bill summary invalidation failed", zap.String("bill_id", bill.ID.String()), zap.Error(err))
	}
	s.metrics.PaymentApplied(in.Source, string(bill.Status))

	s.log.Info("payment applied",
		zap.String("bill_id", bill.ID.String()),
		zap.String("customer_id", bill.CustomerID.String()),
		zap.String("source", in.Source),
		zap.String("status", string(bill.Status)),
		zap.String("total_paid", out.result.TotalPaid.String()),
		zap.String("due", out.result.Due.String()),
	)

	now := time.Now()
	if in.SendReceipt {
		ids := make([]uuid.UUID, 0, len(out.result.Payments))
		received := money.Zero()
		for _, p := range out.result.Payments {
			ids = append(ids, p.ID)
			received = received.Add(p.Amount)
		}
		s.effects.Receipt(notify.ReceiptEvent{
			BillID:      bill.ID,
			CustomerID:  bill.CustomerID,
			PaymentIDs:  ids,
			Amount:      received,
			TotalPaid:   out.result.TotalPaid,
			Due:         out.result.Due,
			Status:      bill.Status,
			Month:       bill.Month,
			Year:        bill.Year,
			CollectedBy: in.CollectedBy,
			OccurredAt:  now,
		})
	}
	if out.result.BecamePaid {
		s.effects.DeviceSync(notify.DeviceSyncEvent{
			CustomerID: bill.CustomerID,
			BillID:     bill.ID,
			Action:     notify.DeviceActionEnable,
			OccurredAt: now,
		})
	}
}
