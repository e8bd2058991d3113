package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// minimumCash is the smallest cash amount a payment may carry
var minimumCash = money.New(1)

// PaymentRequest is the input of a single reconciliation
type PaymentRequest struct {
	CashAmount     money.Amount
	DiscountAmount *money.Amount
	AdvanceDraw    money.Amount

	// CustomerAdvanceBalance is the balance read under lock in the same transaction
	CustomerAdvanceBalance money.Amount

	Method      string
	TrxID       *string
	Notes       *string
	CollectedBy string
	ApprovedBy  *string
	SendReceipt bool
}

// Result holds every write produced by ApplyPayment. Callers persist all of it or none of it.
type Result struct {
	Bill           domain.Bill
	Payments       []domain.Payment
	AdvanceBalance money.Amount

	// ActivateCustomer is set when the bill becomes PAID
	ActivateCustomer bool

	EffectiveTotal money.Amount
	TotalPaid      money.Amount
	Overpay        money.Amount
	Due            money.Amount
	BecamePaid     bool
}

// Engine reconciles payments against bills. It performs no I/O.
type Engine struct {
	now   func() time.Time
	newID func() uuid.UUID
}

type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides payment id generation
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyPayment computes the new bill status, payment records and customer advance
// balance for one payment against bill given the payments already recorded for it.
func (e *Engine) ApplyPayment(bill domain.Bill, prior []domain.Payment, req PaymentRequest) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if bill.IsPaid() {
		return nil, customError.WrapInvalidBillState(bill.ID.String(), "bill is already paid")
	}
	for _, p := range prior {
		if p.BillID != bill.ID {
			return nil, customError.WrapValidation("prior payment " + p.ID.String() + " belongs to another bill")
		}
	}

	// 1. Resolve discount
	discount := bill.DiscountAmount
	if req.DiscountAmount != nil {
		discount = *req.DiscountAmount
	}
	if discount.GreaterThan(bill.Amount) {
		return nil, customError.WrapInvalidDiscount(discount.String(), bill.Amount.String())
	}

	// 2. Effective total must leave something to pay
	effectiveTotal := bill.Amount.Sub(discount)
	if !effectiveTotal.IsPositive() {
		return nil, customError.WrapInvalidBillState(bill.ID.String(), "effective total is not positive")
	}

	// 3. Advance draw is bounded by the locked balance
	if req.AdvanceDraw.GreaterThan(req.CustomerAdvanceBalance) {
		return nil, customError.WrapInsufficientAdvance(req.AdvanceDraw.String(), req.CustomerAdvanceBalance.String())
	}

	// 4-8. Aggregate and settle
	priorPaid := domain.TotalPaid(prior)
	totalPaid := money.Sum(priorPaid, req.CashAmount, req.AdvanceDraw)

	status := domain.BillStatusPartial
	if totalPaid.GreaterThanOrEqual(effectiveTotal) {
		status = domain.BillStatusPaid
	}

	overpay := totalPaid.Sub(effectiveTotal).ClampZero()
	advanceBalance := req.CustomerAdvanceBalance.Sub(req.AdvanceDraw).Add(overpay)

	// 9. Writes
	now := e.now()
	payments := make([]domain.Payment, 0, 2)
	payments = append(payments, domain.Payment{
		ID:          e.newID(),
		BillID:      bill.ID,
		CustomerID:  bill.CustomerID,
		Amount:      req.CashAmount,
		Method:      req.Method,
		TrxID:       req.TrxID,
		CollectedBy: req.CollectedBy,
		ApprovedBy:  req.ApprovedBy,
		Notes:       req.Notes,
		CreatedAt:   now,
	})
	if req.AdvanceDraw.IsPositive() {
		payments = append(payments, domain.Payment{
			ID:          e.newID(),
			BillID:      bill.ID,
			CustomerID:  bill.CustomerID,
			Amount:      req.AdvanceDraw,
			Method:      domain.PaymentMethodAdvance,
			CollectedBy: req.CollectedBy,
			ApprovedBy:  req.ApprovedBy,
			CreatedAt:   now,
		})
	}

	updated := bill
	updated.Status = status
	updated.DiscountAmount = discount
	updated.UpdatedAt = now
	becamePaid := status == domain.BillStatusPaid
	if becamePaid {
		paidAt := now
		updated.PaidAt = &paidAt
	}

	return &Result{
		Bill:             updated,
		Payments:         payments,
		AdvanceBalance:   advanceBalance,
		ActivateCustomer: becamePaid,
		EffectiveTotal:   effectiveTotal,
		TotalPaid:        totalPaid,
		Overpay:          overpay,
		Due:              effectiveTotal.Sub(totalPaid).ClampZero(),
		BecamePaid:       becamePaid,
	}, nil
}

// Due returns what is still owed on bill given its recorded payments, never negative
func Due(bill domain.Bill, payments []domain.Payment) money.Amount {
	return bill.EffectiveTotal().Sub(domain.TotalPaid(payments)).ClampZero()
}

func validateRequest(req PaymentRequest) error {
	if req.CashAmount.LessThan(minimumCash) {
		return customError.WrapValidation("cash amount must be at least " + minimumCash.String())
	}
	if req.AdvanceDraw.IsNegative() {
		return customError.WrapValidation("advance draw must not be negative")
	}
	if req.DiscountAmount != nil && req.DiscountAmount.IsNegative() {
		return customError.WrapValidation("discount must not be negative")
	}
	if req.CustomerAdvanceBalance.IsNegative() {
		return customError.WrapValidation("customer advance balance must not be negative")
	}
	if req.Method == "" {
		return customError.WrapValidation("payment method is required")
	}
	if req.CollectedBy == "" {
		return customError.WrapValidation("collector is required")
	}
	return nil
}
