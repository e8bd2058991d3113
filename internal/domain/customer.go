package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "ACTIVE"
	CustomerStatusSuspended CustomerStatus = "SUSPENDED"
	CustomerStatusInactive  CustomerStatus = "INACTIVE"
)

// CustomerProfile is the billing-relevant part of a subscriber.
// AdvanceBalance is credit owed to the customer from prior overpayment.
type CustomerProfile struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	ResellerID     *uuid.UUID     `json:"reseller_id,omitempty" db:"reseller_id"`
	PackageID      uuid.UUID      `json:"package_id" db:"package_id"`
	Name           string         `json:"name" db:"name"`
	Phone          string         `json:"phone" db:"phone"`
	AdvanceBalance money.Amount   `json:"advance_balance" db:"advance_balance"`
	Status         CustomerStatus `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// BelongsTo reports whether the customer was provisioned under the reseller
func (c CustomerProfile) BelongsTo(resellerID uuid.UUID) bool {
	return c.ResellerID != nil && *c.ResellerID == resellerID
}

// Package is an internet plan with a flat monthly price
type Package struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Price     money.Amount `json:"price" db:"price"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
