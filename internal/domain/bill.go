package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// BillStatus is the settlement state of a bill
type BillStatus string

const (
	BillStatusPending BillStatus = "PENDING"
	BillStatusPartial BillStatus = "PARTIAL"
	BillStatusPaid    BillStatus = "PAID"
)

// Bill is one billing-period obligation of a customer
type Bill struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	CustomerID     uuid.UUID    `json:"customer_id" db:"customer_id"`
	PackageID      uuid.UUID    `json:"package_id" db:"package_id"`
	Amount         money.Amount `json:"amount" db:"amount"`
	DiscountAmount money.Amount `json:"discount_amount" db:"discount_amount"`
	DueDate        time.Time    `json:"due_date" db:"due_date"`
	Status         BillStatus   `json:"status" db:"status"`
	Month          int          `json:"month" db:"month"`
	Year           int          `json:"year" db:"year"`
	PaidAt         *time.Time   `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// EffectiveTotal is the amount that must be paid for the bill to become PAID
func (b Bill) EffectiveTotal() money.Amount {
	return b.Amount.Sub(b.DiscountAmount)
}

func (b Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// BillSummary is the read model served to operators
type BillSummary struct {
	Bill           Bill         `json:"bill"`
	EffectiveTotal money.Amount `json:"effective_total"`
	TotalPaid      money.Amount `json:"total_paid"`
	Due            money.Amount `json:"due"`
	Payments       []Payment    `json:"payments"`
}
