package domain

import (
	"time"

	"github.com/google/uuid"

	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// ApprovalStatus is the state of an employee-collected payment claim.
// PENDING is the only non-terminal state.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Decision is an admin's verdict on a pending approval
type Decision string

const (
	DecisionApprove Decision = "APPROVED"
	DecisionReject  Decision = "REJECTED"
)

// PendingPaymentApproval is a collection claim that has not reached the ledger yet
type PendingPaymentApproval struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	BillID      uuid.UUID      `json:"bill_id" db:"bill_id"`
	Amount      money.Amount   `json:"amount" db:"amount"`
	Method      string         `json:"method" db:"method"`
	TrxID       *string        `json:"trx_id,omitempty" db:"trx_id"`
	CollectedBy string         `json:"collected_by" db:"collected_by"`
	Status      ApprovalStatus `json:"status" db:"status"`
	ApprovedBy  *string        `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	Notes       *string        `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// Decide moves a PENDING request to its terminal state and stamps the approver.
// Admin notes replace the collector's notes only when provided.
func (a *PendingPaymentApproval) Decide(decision Decision, approver string, notes *string, now time.Time) error {
	if a.Status != ApprovalStatusPending {
		return customError.WrapAlreadyProcessed(a.ID.String(), string(a.Status))
	}
	if approver == "" {
		return customError.WrapValidation("approver is required")
	}

	switch decision {
	case DecisionApprove:
		a.Status = ApprovalStatusApproved
	case DecisionReject:
		a.Status = ApprovalStatusRejected
	default:
		return customError.WrapValidation("decision must be APPROVED or REJECTED")
	}

	a.ApprovedBy = &approver
	decidedAt := now
	a.ApprovedAt = &decidedAt
	if notes != nil {
		a.Notes = notes
	}
	return nil
}
