package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

var (
	// ErrNotFound is returned by every lookup that matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate record")
)

// BillRepository defines the interface for bill data operations
type BillRepository interface {
	// Create inserts a bill; ErrDuplicate when the customer already has one for the period
	Create(ctx context.Context, bill *domain.Bill) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error)

	// GetForUpdate reads the bill and holds its row lock until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bill, error)

	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Bill, error)

	// ExistsForPeriod reports whether the customer already has a bill for month/year
	ExistsForPeriod(ctx context.Context, customerID uuid.UUID, month, year int) (bool, error)

	// ListOverdue returns unpaid bills whose due date is before now
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Bill, error)

	// Update writes status, discount, due date and paid_at
	Update(ctx context.Context, bill *domain.Bill) error
}

// PaymentRepository defines the interface for payment data operations.
// Payments are append-only.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error

	// ListByBill returns the bill's payments oldest first
	ListByBill(ctx context.Context, billID uuid.UUID) ([]domain.Payment, error)
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.CustomerProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerProfile, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.CustomerProfile, error)

	// ListByStatus returns customers in the given status
	ListByStatus(ctx context.Context, status domain.CustomerStatus) ([]domain.CustomerProfile, error)

	UpdateAdvanceBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CustomerStatus) error
}

type ResellerRepository interface {
	Create(ctx context.Context, reseller *domain.ResellerProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ResellerProfile, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ResellerProfile, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error
}

type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.Package) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Package, error)
}

type ApprovalRepository interface {
	Create(ctx context.Context, approval *domain.PendingPaymentApproval) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingPaymentApproval, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PendingPaymentApproval, error)

	// ListPending returns PENDING requests oldest first
	ListPending(ctx context.Context) ([]domain.PendingPaymentApproval, error)

	// Update writes the decision fields
	Update(ctx context.Context, approval *domain.PendingPaymentApproval) error
}

// Repositories groups the stores bound to one connection or transaction
type Repositories struct {
	Bills     BillRepository
	Payments  PaymentRepository
	Customers CustomerRepository
	Resellers ResellerRepository
	Packages  PackageRepository
	Approvals ApprovalRepository
}

// TxFunc runs inside a transaction. Returning an error rolls everything back.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store is the unit of atomicity for every ledger mutation
type Store interface {
	// Repositories returns stores that run each call on its own
	Repositories() Repositories

	// WithinTx commits every write made through repos, or none of them
	WithinTx(ctx context.Context, fn TxFunc) error

	Ping(ctx context.Context) error
}
