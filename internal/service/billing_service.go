package service

import (
	"context"
	"errors"
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
	"github.com/naimprince010-ship-it/isp-billing/pkg/utils"
)

// GenerationReport summarises one monthly bill run
type GenerationReport struct {
	Month   int `json:"month"`
	Year    int `json:"year"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type BillingService struct {
	store   repository.Store
	tx      txRunner
	cache   cache.BillSummaryCache
	effects SideEffects
	metrics *metrics.Metrics
	config  *config.Config
	log     *zap.Logger
	now     func() time.Time
}

func NewBillingService(
	store repository.Store,
	summaries cache.BillSummaryCache,
	effects SideEffects,
	m *metrics.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) *BillingService {
	log = log.Named("billing.service")
	return &BillingService{
		store:   store,
		tx:      txRunner{store: store, maxRetries: cfg.Business.MaxConflictRetries, metrics: m, log: log},
		cache:   summaries,
		effects: effects,
		metrics: m,
		config:  cfg,
		log:     log,
		now:     time.Now,
	}
}

func (s *BillingService) GetBill(ctx context.Context, billID uuid.UUID) (*domain.Bill, error) {
	bill, err := s.store.Repositories().Bills.GetByID(ctx, billID)
	if err != nil {
		return nil, normalize(notFound(err, func() error { return customError.WrapBillNotFound(billID.String()) }))
	}
	return bill, nil
}

// GetBillSummary returns the bill with its payments, total paid and due.
// Cache failures fall back to the database.
func (s *BillingService) GetBillSummary(ctx context.Context, billID uuid.UUID) (*domain.BillSummary, error) {
	cached, ok, err := s.cache.Get(ctx, billID)
	switch {
	case err != nil:
		s.metrics.CacheLookup("error")
		s.log.Warn("bill summary cache read failed", zap.String("bill_id", billID.String()), zap.Error(err))
	case ok:
		s.metrics.CacheLookup("hit")
		return cached, nil
	default:
		s.metrics.CacheLookup("miss")
	}

	// taken before the database read so a payment committing in between
	// makes the write below a no-op
	generation, genErr := s.cache.Generation(ctx, billID)

	repos := s.store.Repositories()
	bill, err := repos.Bills.GetByID(ctx, billID)
	if err != nil {
		return nil, normalize(notFound(err, func() error { return customError.WrapBillNotFound(billID.String()) }))
	}
	payments, err := repos.Payments.ListByBill(ctx, billID)
	if err != nil {
		return nil, normalize(err)
	}

	summary := &domain.BillSummary{
		Bill:           *bill,
		EffectiveTotal: bill.EffectiveTotal(),
		TotalPaid:      domain.TotalPaid(payments),
		Due:            reconciliation.Due(*bill, payments),
		Payments:       payments,
	}

	switch {
	case genErr != nil:
		s.log.Warn("bill summary generation read failed", zap.String("bill_id", billID.String()), zap.Error(genErr))
	default:
		err := s.cache.Set(ctx, summary, generation)
		switch {
		case errors.Is(err, cache.ErrStaleSummary):
			s.log.Debug("bill changed while loading summary, not cached", zap.String("bill_id", billID.String()))
		case err != nil:
			s.log.Warn("bill summary cache write failed", zap.String("bill_id", billID.String()), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *BillingService) ListCustomerBills(ctx context.Context, customerID uuid.UUID) ([]domain.Bill, error) {
	repos := s.store.Repositories()
	if _, err := repos.Customers.GetByID(ctx, customerID); err != nil {
		return nil, normalize(notFound(err, func() error { return customError.WrapCustomerNotFound(customerID.String()) }))
	}

	bills, err := repos.Bills.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, normalize(err)
	}
	return bills, nil
}

// ExtendDueDate moves an unpaid bill's due date later
func (s *BillingService) ExtendDueDate(ctx context.Context, billID uuid.UUID, dueDate time.Time) (*domain.Bill, error) {
	if dueDate.IsZero() {
		return nil, customError.WrapValidation("due date is required")
	}

	var updated *domain.Bill
	err := s.tx.run(ctx, "extend_due_date", func(ctx context.Context, repos repository.Repositories) error {
		bill, err := repos.Bills.GetForUpdate(ctx, billID)
		if err != nil {
			return notFound(err, func() error { return customError.WrapBillNotFound(billID.String()) })
		}
		if bill.IsPaid() {
			return customError.WrapInvalidBillState(billID.String(), "bill is already paid")
		}
		if !dueDate.After(bill.DueDate) {
			return customError.WrapValidation("new due date must be after " + bill.DueDate.Format(time.RFC3339))
		}

		bill.DueDate = dueDate
		bill.UpdatedAt = s.now()
		if err := repos.Bills.Update(ctx, bill); err != nil {
			return err
		}
		updated = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, billID); err != nil {
		s.log.Warn("bill summary invalidation failed", zap.String("bill_id", billID.String()), zap.Error(err))
	}
	s.log.Info("due date extended", zap.String("bill_id", billID.String()), zap.Time("due_date", dueDate))
	return updated, nil
}

// GenerateMonthlyBills creates the bill of the period containing at for every
// ACTIVE customer that does not have one yet. Running it twice is harmless.
func (s *BillingService) GenerateMonthlyBills(ctx context.Context, at time.Time) (*GenerationReport, error) {
	loc := s.config.Location()
	at = at.In(loc)
	month, year := utils.BillingPeriod(at)
	dueDate := utils.CalculateDueDate(year, month, s.config.Business.BillDueDay, loc)

	customers, err := s.store.Repositories().Customers.ListByStatus(ctx, domain.CustomerStatusActive)
	if err != nil {
		return nil, normalize(err)
	}

	report := &GenerationReport{Month: month, Year: year}
	for _, customer := range customers {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		created := false
		err := s.tx.run(ctx, "generate_bill", func(ctx context.Context, repos repository.Repositories) error {
			created = false
			exists, err := repos.Bills.ExistsForPeriod(ctx, customer.ID, month, year)
			if err != nil || exists {
				return err
			}

			pkg, err := repos.Packages.GetByID(ctx, customer.PackageID)
			if err != nil {
				return notFound(err, func() error { return customError.WrapPackageNotFound(customer.PackageID.String()) })
			}

			now := s.now()
			bill := domain.Bill{
				ID:             uuid.New(),
				CustomerID:     customer.ID,
				PackageID:      pkg.ID,
				Amount:         pkg.Price,
				DiscountAmount: money.Zero(),
				DueDate:        dueDate,
				Status:         domain.BillStatusPending,
				Month:          month,
				Year:           year,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := repos.Bills.Create(ctx, &bill); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return nil
				}
				return err
			}
			created = true
			return nil
		})

		switch {
		case err != nil:
			report.Failed++
			s.metrics.BillGeneration("failed")
			s.log.Error("bill generation failed", zap.String("customer_id", customer.ID.String()), zap.Error(err))
		case created:
			report.Created++
			s.metrics.BillGeneration("created")
		default:
			report.Skipped++
			s.metrics.BillGeneration("skipped")
		}
	}

	s.log.Info("monthly bills generated",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// SuspendOverdueCustomers suspends ACTIVE customers holding an unpaid bill past
// its due date. Each bill is re-checked under lock before the customer changes.
func (s *BillingService) SuspendOverdueCustomers(ctx context.Context, now time.Time) (int, error) {
	bills, err := s.store.Repositories().Bills.ListOverdue(ctx, now)
	if err != nil {
		return 0, normalize(err)
	}

	suspended := 0
	seen := make(map[uuid.UUID]bool)
	for _, candidate := range bills {
		if seen[candidate.CustomerID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return suspended, err
		}

		changed := false
		err := s.tx.run(ctx, "suspend_overdue", func(ctx context.Context, repos repository.Repositories) error {
			changed = false
			bill, err := repos.Bills.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if bill.IsPaid() || !utils.IsDateOverdue(bill.DueDate, now) {
				return nil
			}

			customer, err := repos.Customers.GetForUpdate(ctx, bill.CustomerID)
			if err != nil {
				return err
			}
			if customer.Status != domain.CustomerStatusActive {
				return nil
			}
			if err := repos.Customers.UpdateStatus(ctx, customer.ID, domain.CustomerStatusSuspended); err != nil {
				return err
			}
			changed = true
			return nil
		})
		if err != nil {
			s.log.Error("auto suspend failed", zap.String("customer_id", candidate.CustomerID.String()), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}

		seen[candidate.CustomerID] = true
		suspended++
		s.metrics.CustomerSuspended()
		s.effects.DeviceSync(notify.DeviceSyncEvent{
			CustomerID: candidate.CustomerID,
			BillID:     candidate.ID,
			Action:     notify.DeviceActionDisable,
			OccurredAt: now,
		})
	}

	s.log.Info("overdue customers suspended", zap.Int("count", suspended), zap.Int("overdue_bills", len(bills)))
	return suspended, nil
}

// RechargeReseller credits a reseller's prepaid balance
func (s *BillingService) RechargeReseller(ctx context.Context, resellerID uuid.UUID, amount money.Amount) (*domain.ResellerProfile, error) {
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("amount must be greater than 0")
	}

	var reseller *domain.ResellerProfile
	err := s.tx.run(ctx, "recharge_reseller", func(ctx context.Context, repos repository.Repositories) error {
		r, err := repos.Resellers.GetForUpdate(ctx, resellerID)
		if err != nil {
			return notFound(err, func() error { return customError.WrapResellerNotFound(resellerID.String()) })
		}
		r.CurrentBalance = r.CurrentBalance.Add(amount)
		if err := repos.Resellers.UpdateBalance(ctx, r.ID, r.CurrentBalance); err != nil {
			return err
		}
		reseller = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reseller recharged",
		zap.String("reseller_id", resellerID.String()),
		zap.String("amount", amount.String()),
		zap.String("balance", reseller.CurrentBalance.String()),
	)
	return reseller, nil
}
