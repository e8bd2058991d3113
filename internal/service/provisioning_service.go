package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/config"
	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/reconciliation"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
	"github.com/naimprince010-ship-it/isp-billing/pkg/utils"
)

// ProvisioningService creates subscribers paid for from a reseller's prepaid balance
type ProvisioningService struct {
	tx      txRunner
	metrics *metrics.Metrics
	log     *zap.Logger
	config  *config.Config
	now     func() time.Time
}

func NewProvisioningService(store repository.Store, m *metrics.Metrics, cfg *config.Config, log *zap.Logger) *ProvisioningService {
	log = log.Named("provisioning.service")
	return &ProvisioningService{
		tx:      txRunner{store: store, maxRetries: cfg.Business.MaxConflictRetries, metrics: m, log: log},
		metrics: m,
		log:     log,
		config:  cfg,
		now:     time.Now,
	}
}

// ProvisionSubscriber debits the package price from the reseller and creates an
// ACTIVE customer with a PENDING first bill. A zero dueDate uses the configured
// due day of the current month, or of the next month when that day has passed.
func (s *ProvisioningService) ProvisionSubscriber(ctx context.Context, resellerID, packageID uuid.UUID, name, phone string, dueDate time.Time) (*domain.ProvisionResponse, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, customError.WrapValidation("name and phone are required")
	}

	now := s.now().In(s.config.Location())
	month, year := utils.BillingPeriod(now)
	if dueDate.IsZero() {
		dueDate = s.firstDueDate(now)
	}

	var resp *domain.ProvisionResponse
	err := s.tx.run(ctx, "provision_subscriber", func(ctx context.Context, repos repository.Repositories) error {
		reseller, err := repos.Resellers.GetForUpdate(ctx, resellerID)
		if err != nil {
			return notFound(err, func() error { return customError.WrapResellerNotFound(resellerID.String()) })
		}

		pkg, err := repos.Packages.GetByID(ctx, packageID)
		if err != nil {
			return notFound(err, func() error { return customError.WrapPackageNotFound(packageID.String()) })
		}

		remaining, err := reconciliation.DebitForNewSubscriber(reseller.CurrentBalance, pkg.Price)
		if err != nil {
			return err
		}
		if err := repos.Resellers.UpdateBalance(ctx, reseller.ID, remaining); err != nil {
			return err
		}

		customer := domain.CustomerProfile{
			ID:             uuid.New(),
			ResellerID:     &reseller.ID,
			PackageID:      pkg.ID,
			Name:           name,
			Phone:          phone,
			AdvanceBalance: money.Zero(),
			Status:         domain.CustomerStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repos.Customers.Create(ctx, &customer); err != nil {
			return err
		}

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
			return err
		}

		resp = &domain.ProvisionResponse{
			Customer:        customer,
			Bill:            bill,
			ResellerBalance: remaining,
		}
		return nil
	})
	if err != nil {
		s.log.Info("provisioning rejected", zap.String("reseller_id", resellerID.String()), zap.Error(err))
		return nil, err
	}

	s.metrics.SubscriberProvisioned()
	s.log.Info("subscriber provisioned",
		zap.String("reseller_id", resellerID.String()),
		zap.String("customer_id", resp.Customer.ID.String()),
		zap.String("reseller_balance", resp.ResellerBalance.String()),
	)
	return resp, nil
}

func (s *ProvisioningService) firstDueDate(now time.Time) time.Time {
	month, year := utils.BillingPeriod(now)
	due := utils.CalculateDueDate(year, month, s.config.Business.BillDueDay, now.Location())
	if utils.IsDateOverdue(due, now) {
		next := utils.StartOfMonth(now).AddDate(0, 1, 0)
		due = utils.CalculateDueDate(next.Year(), int(next.Month()), s.config.Business.BillDueDay, now.Location())
	}
	return due
}
