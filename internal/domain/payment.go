package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// PaymentMethodAdvance marks a payment drawn from the customer's advance balance
const PaymentMethodAdvance = "ADVANCE"

// Payment is an immutable record of money applied against a bill
type Payment struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	BillID      uuid.UUID    `json:"bill_id" db:"bill_id"`
	CustomerID  uuid.UUID    `json:"customer_id" db:"customer_id"`
	Amount      money.Amount `json:"amount" db:"amount"`
	Method      string       `json:"method" db:"method"`
	TrxID       *string      `json:"trx_id,omitempty" db:"trx_id"`
	CollectedBy string       `json:"collected_by" db:"collected_by"`
	ApprovedBy  *string      `json:"approved_by,omitempty" db:"approved_by"`
	Notes       *string      `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

func (p Payment) IsAdvanceDraw() bool {
	return p.Method == PaymentMethodAdvance
}

// TotalPaid sums the amounts of the given payments
func TotalPaid(payments []Payment) money.Amount {
	total := money.Zero()
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
