package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// ResellerProfile holds a reseller's prepaid float.
// BalanceLimit is informational and never enforced at debit time.
type ResellerProfile struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	CurrentBalance money.Amount `json:"current_balance" db:"current_balance"`
	BalanceLimit   money.Amount `json:"balance_limit" db:"balance_limit"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}
