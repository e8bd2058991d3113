package domain

import (
	"time"

	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// DTOs for requests and responses

// DirectPaymentRequest is submitted by an admin or by the customer
type DirectPaymentRequest struct {
	Amount      money.Amount `json:"amount" validate:"gt=0"`
	Method      string       `json:"method" validate:"required,max=32"`
	TrxID       *string      `json:"trx_id,omitempty" validate:"omitempty,max=64"`
	Notes       *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	CollectedBy string       `json:"collected_by" validate:"required"`
	SendReceipt bool         `json:"send_receipt"`
}

// ResellerPaymentRequest is submitted by a reseller operator and may carry a discount or an advance draw
type ResellerPaymentRequest struct {
	Amount         money.Amount  `json:"amount" validate:"gt=0"`
	DiscountAmount *money.Amount `json:"discount_amount,omitempty" validate:"omitempty,gte=0"`
	AdvanceDraw    *money.Amount `json:"advance_draw,omitempty" validate:"omitempty,gte=0"`
	Method         string        `json:"method" validate:"required,max=32"`
	TrxID          *string       `json:"trx_id,omitempty" validate:"omitempty,max=64"`
	Notes          *string       `json:"notes,omitempty" validate:"omitempty,max=500"`
	CollectedBy    string        `json:"collected_by" validate:"required"`
	SendReceipt    bool          `json:"send_receipt"`
}

// CollectionRequest is an employee's claim of a collected payment
type CollectionRequest struct {
	Amount      money.Amount `json:"amount" validate:"gt=0"`
	Method      string       `json:"method" validate:"required,max=32"`
	TrxID       *string      `json:"trx_id,omitempty" validate:"omitempty,max=64"`
	Notes       *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	CollectedBy string       `json:"collected_by" validate:"required"`
}

type DecisionRequest struct {
	Decision    Decision `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	ApprovedBy  string   `json:"approved_by" validate:"required"`
	Notes       *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
	SendReceipt bool     `json:"send_receipt"`
}

type ProvisionSubscriberRequest struct {
	PackageID string     `json:"package_id" validate:"required,uuid"`
	Name      string     `json:"name" validate:"required,max=120"`
	Phone     string     `json:"phone" validate:"required,max=32"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

type RechargeRequest struct {
	Amount money.Amount `json:"amount" validate:"gt=0"`
}

type ExtendDueDateRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// PaymentResponse is returned by every payment entry point
type PaymentResponse struct {
	Bill           Bill         `json:"bill"`
	Payments       []Payment    `json:"payments"`
	AdvanceBalance money.Amount `json:"advance_balance"`
	TotalPaid      money.Amount `json:"total_paid"`
	Due            money.Amount `json:"due"`
}

type DecisionResponse struct {
	Approval PendingPaymentApproval `json:"approval"`
	Payment  *PaymentResponse       `json:"payment,omitempty"`
}

type ProvisionResponse struct {
	Customer        CustomerProfile `json:"customer"`
	Bill            Bill            `json:"bill"`
	ResellerBalance money.Amount    `json:"reseller_balance"`
}
