package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

type billRepository struct{ s *session }

func (r *billRepository) Create(ctx context.Context, bill *domain.Bill) error {
	return r.s.write(ctx, OpCreateBill, func(st *state) error {
		if _, ok := st.bills[bill.ID]; ok {
			return fmt.Errorf("create bill: %w", repository.ErrDuplicate)
		}
		for _, b := range st.bills {
			if b.CustomerID == bill.CustomerID && b.Month == bill.Month && b.Year == bill.Year {
				return fmt.Errorf("create bill: %w", repository.ErrDuplicate)
			}
		}
		st.bills[bill.ID] = *bill
		return nil
	})
}

func (r *billRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	var bill domain.Bill
	err := r.s.read(ctx, func(st *state) error {
		b, ok := st.bills[id]
		if !ok {
			return fmt.Errorf("get bill: %w", repository.ErrNotFound)
		}
		bill = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	return r.GetByID(ctx, id)
}

func (r *billRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Bill, error) {
	bills := []domain.Bill{}
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.CustomerID == customerID {
				bills = append(bills, b)
			}
		}
		return nil
	})
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].Year != bills[j].Year {
			return bills[i].Year > bills[j].Year
		}
		return bills[i].Month > bills[j].Month
	})
	return bills, err
}

func (r *billRepository) ExistsForPeriod(ctx context.Context, customerID uuid.UUID, month, year int) (bool, error) {
	exists := false
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.CustomerID == customerID && b.Month == month && b.Year == year {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r *billRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Bill, error) {
	bills := []domain.Bill{}
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.Status != domain.BillStatusPaid && b.DueDate.Before(now) {
				bills = append(bills, b)
			}
		}
		return nil
	})
	sort.Slice(bills, func(i, j int) bool { return bills[i].DueDate.Before(bills[j].DueDate) })
	return bills, err
}

func (r *billRepository) Update(ctx context.Context, bill *domain.Bill) error {
	return r.s.write(ctx, OpUpdateBill, func(st *state) error {
		current, ok := st.bills[bill.ID]
		if !ok {
			return fmt.Errorf("update bill: %w", repository.ErrNotFound)
		}
		current.Status = bill.Status
		current.DiscountAmount = bill.DiscountAmount
		current.DueDate = bill.DueDate
		current.PaidAt = bill.PaidAt
		current.UpdatedAt = bill.UpdatedAt
		st.bills[bill.ID] = current
		return nil
	})
}

type paymentRepository struct{ s *session }

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.s.write(ctx, OpCreatePayment, func(st *state) error {
		if _, ok := st.bills[payment.BillID]; !ok {
			return fmt.Errorf("create payment: bill %s: %w", payment.BillID, repository.ErrNotFound)
		}
		st.payments[payment.BillID] = append(st.payments[payment.BillID], *payment)
		return nil
	})
}

func (r *paymentRepository) ListByBill(ctx context.Context, billID uuid.UUID) ([]domain.Payment, error) {
	payments := []domain.Payment{}
	err := r.s.read(ctx, func(st *state) error {
		payments = append(payments, st.payments[billID]...)
		return nil
	})
	return payments, err
}

type customerRepository struct{ s *session }

func (r *customerRepository) Create(ctx context.Context, customer *domain.CustomerProfile) error {
	return r.s.write(ctx, OpCreateCustomer, func(st *state) error {
		if _, ok := st.customers[customer.ID]; ok {
			return fmt.Errorf("create customer: %w", repository.ErrDuplicate)
		}
		st.customers[customer.ID] = *customer
		return nil
	})
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerProfile, error) {
	var customer domain.CustomerProfile
	err := r.s.read(ctx, func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return fmt.Errorf("get customer: %w", repository.ErrNotFound)
		}
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.CustomerProfile, error) {
	return r.GetByID(ctx, id)
}

func (r *customerRepository) ListByStatus(ctx context.Context, status domain.CustomerStatus) ([]domain.CustomerProfile, error) {
	customers := []domain.CustomerProfile{}
	err := r.s.read(ctx, func(st *state) error {
		for _, c := range st.customers {
			if c.Status == status {
				customers = append(customers, c)
			}
		}
		return nil
	})
	sort.Slice(customers, func(i, j int) bool { return customers[i].CreatedAt.Before(customers[j].CreatedAt) })
	return customers, err
}

func (r *customerRepository) UpdateAdvanceBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error {
	return r.update(ctx, id, func(c *domain.CustomerProfile) { c.AdvanceBalance = balance })
}

func (r *customerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CustomerStatus) error {
	return r.update(ctx, id, func(c *domain.CustomerProfile) { c.Status = status })
}

func (r *customerRepository) update(ctx context.Context, id uuid.UUID, mutate func(*domain.CustomerProfile)) error {
	return r.s.write(ctx, OpUpdateCustomer, func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return fmt.Errorf("update customer: %w", repository.ErrNotFound)
		}
		mutate(&c)
		c.UpdatedAt = time.Now()
		st.customers[id] = c
		return nil
	})
}

type resellerRepository struct{ s *session }

func (r *resellerRepository) Create(ctx context.Context, reseller *domain.ResellerProfile) error {
	return r.s.write(ctx, "resellers.create", func(st *state) error {
		if _, ok := st.resellers[reseller.ID]; ok {
			return fmt.Errorf("create reseller: %w", repository.ErrDuplicate)
		}
		st.resellers[reseller.ID] = *reseller
		return nil
	})
}

func (r *resellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResellerProfile, error) {
	var reseller domain.ResellerProfile
	err := r.s.read(ctx, func(st *state) error {
		v, ok := st.resellers[id]
		if !ok {
			return fmt.Errorf("get reseller: %w", repository.ErrNotFound)
		}
		reseller = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reseller, nil
}

func (r *resellerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ResellerProfile, error) {
	return r.GetByID(ctx, id)
}

func (r *resellerRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error {
	return r.s.write(ctx, OpUpdateReseller, func(st *state) error {
		v, ok := st.resellers[id]
		if !ok {
			return fmt.Errorf("update reseller: %w", repository.ErrNotFound)
		}
		v.CurrentBalance = balance
		v.UpdatedAt = time.Now()
		st.resellers[id] = v
		return nil
	})
}

type packageRepository struct{ s *session }

func (r *packageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	return r.s.write(ctx, "packages.create", func(st *state) error {
		if _, ok := st.packages[pkg.ID]; ok {
			return fmt.Errorf("create package: %w", repository.ErrDuplicate)
		}
		st.packages[pkg.ID] = *pkg
		return nil
	})
}

func (r *packageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Package, error) {
	var pkg domain.Package
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.packages[id]
		if !ok {
			return fmt.Errorf("get package: %w", repository.ErrNotFound)
		}
		pkg = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

type approvalRepository struct{ s *session }

func (r *approvalRepository) Create(ctx context.Context, approval *domain.PendingPaymentApproval) error {
	return r.s.write(ctx, OpCreateApproval, func(st *state) error {
		if _, ok := st.approvals[approval.ID]; ok {
			return fmt.Errorf("create approval: %w", repository.ErrDuplicate)
		}
		st.approvals[approval.ID] = *approval
		return nil
	})
}

func (r *approvalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingPaymentApproval, error) {
	var approval domain.PendingPaymentApproval
	err := r.s.read(ctx, func(st *state) error {
		a, ok := st.approvals[id]
		if !ok {
			return fmt.Errorf("get approval: %w", repository.ErrNotFound)
		}
		approval = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PendingPaymentApproval, error) {
	return r.GetByID(ctx, id)
}

func (r *approvalRepository) ListPending(ctx context.Context) ([]domain.PendingPaymentApproval, error) {
	approvals := []domain.PendingPaymentApproval{}
	err := r.s.read(ctx, func(st *state) error {
		for _, a := range st.approvals {
			if a.Status == domain.ApprovalStatusPending {
				approvals = append(approvals, a)
			}
		}
		return nil
	})
	sort.Slice(approvals, func(i, j int) bool { return approvals[i].CreatedAt.Before(approvals[j].CreatedAt) })
	return approvals, err
}

func (r *approvalRepository) Update(ctx context.Context, approval *domain.PendingPaymentApproval) error {
	return r.s.write(ctx, OpUpdateApproval, func(st *state) error {
		current, ok := st.approvals[approval.ID]
		if !ok {
			return fmt.Errorf("update approval: %w", repository.ErrNotFound)
		}
		current.Status = approval.Status
		current.ApprovedBy = approval.ApprovedBy
		current.ApprovedAt = approval.ApprovedAt
		current.Notes = approval.Notes
		st.approvals[approval.ID] = current
		return nil
	})
}
