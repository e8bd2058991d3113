package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/cache"
	"github.com/naimprince010-ship-it/isp-billing/internal/config"
	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/notify"
	"github.com/naimprince010-ship-it/isp-billing/internal/reconciliation"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository/memory"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// recordingEffects captures post-commit side effects synchronously
type recordingEffects struct {
	mu       sync.Mutex
	receipts []notify.ReceiptEvent
	syncs    []notify.DeviceSyncEvent
}

func (r *recordingEffects) Receipt(event notify.ReceiptEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, event)
}

func (r *recordingEffects) DeviceSync(event notify.DeviceSyncEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = append(r.syncs, event)
}

func (r *recordingEffects) Receipts() []notify.ReceiptEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.ReceiptEvent(nil), r.receipts...)
}

func (r *recordingEffects) Syncs() []notify.DeviceSyncEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.DeviceSyncEvent(nil), r.syncs...)
}

type fixture struct {
	cfg          *config.Config
	store        *memory.Store
	effects      *recordingEffects
	metrics      *metrics.Metrics
	payments     *PaymentService
	approvals    *ApprovalService
	provisioning *ProvisioningService
	billing      *BillingService
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
		Business: config.BusinessConfig{
			BillDueDay:         10,
			MaxConflictRetries: 3,
			TxTimeout:          time.Second,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, cache.NoopCache{})
}

func newFixtureWithCache(t *testing.T, summaries cache.BillSummaryCache) *fixture {
	t.Helper()

	cfg := testConfig()
	store := memory.NewStore(cfg.Business.TxTimeout)
	effects := &recordingEffects{}
	m := metrics.New(prometheus.NewRegistry(), metrics.Config{Environment: "test"})
	log := zap.NewNop()

	payments := NewPaymentService(store, reconciliation.NewEngine(), summaries, effects, m, cfg, log)
	return &fixture{
		cfg:          cfg,
		store:        store,
		effects:      effects,
		metrics:      m,
		payments:     payments,
		approvals:    NewApprovalService(store, payments, m, log),
		provisioning: NewProvisioningService(store, m, cfg, log),
		billing:      NewBillingService(store, summaries, effects, m, cfg, log),
	}
}

func (f *fixture) seedPackage(t *testing.T, price string) domain.Package {
	t.Helper()
	pkg := domain.Package{ID: uuid.New(), Name: "Home " + price, Price: money.MustParse(price), CreatedAt: time.Now()}
	require.NoError(t, f.store.Repositories().Packages.Create(context.Background(), &pkg))
	return pkg
}

func (f *fixture) seedReseller(t *testing.T, balance string) domain.ResellerProfile {
	t.Helper()
	reseller := domain.ResellerProfile{
		ID:             uuid.New(),
		Name:           "Zone reseller",
		CurrentBalance: money.MustParse(balance),
		BalanceLimit:   money.MustParse("500"),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, f.store.Repositories().Resellers.Create(context.Background(), &reseller))
	return reseller
}

func (f *fixture) seedCustomer(t *testing.T, resellerID *uuid.UUID, pkg domain.Package, advance string, status domain.CustomerStatus) domain.CustomerProfile {
	t.Helper()
	customer := domain.CustomerProfile{
		ID:             uuid.New(),
		ResellerID:     resellerID,
		PackageID:      pkg.ID,
		Name:           "Karim",
		Phone:          "01800000000",
		AdvanceBalance: money.MustParse(advance),
		Status:         status,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, f.store.Repositories().Customers.Create(context.Background(), &customer))
	return customer
}

func (f *fixture) seedBill(t *testing.T, customer domain.CustomerProfile, amount, discount string, dueDate time.Time) domain.Bill {
	t.Helper()
	bill := domain.Bill{
		ID:             uuid.New(),
		CustomerID:     customer.ID,
		PackageID:      customer.PackageID,
		Amount:         money.MustParse(amount),
		DiscountAmount: money.MustParse(discount),
		DueDate:        dueDate,
		Status:         domain.BillStatusPending,
		Month:          int(dueDate.Month()),
		Year:           dueDate.Year(),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, f.store.Repositories().Bills.Create(context.Background(), &bill))
	return bill
}

func (f *fixture) seedPayment(t *testing.T, bill domain.Bill, amount string) {
	t.Helper()
	payment := domain.Payment{
		ID:          uuid.New(),
		BillID:      bill.ID,
		CustomerID:  bill.CustomerID,
		Amount:      money.MustParse(amount),
		Method:      "CASH",
		CollectedBy: "seed",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.store.Repositories().Payments.Create(context.Background(), &payment))
}

// standardBill seeds a package, a direct customer and one bill
func (f *fixture) standardBill(t *testing.T, amount, discount, advance string) (domain.CustomerProfile, domain.Bill) {
	t.Helper()
	pkg := f.seedPackage(t, amount)
	customer := f.seedCustomer(t, nil, pkg, advance, domain.CustomerStatusActive)
	bill := f.seedBill(t, customer, amount, discount, time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC))
	return customer, bill
}

func (f *fixture) loadBill(t *testing.T, id uuid.UUID) *domain.Bill {
	t.Helper()
	bill, err := f.store.Repositories().Bills.GetByID(context.Background(), id)
	require.NoError(t, err)
	return bill
}

func (f *fixture) loadCustomer(t *testing.T, id uuid.UUID) *domain.CustomerProfile {
	t.Helper()
	customer, err := f.store.Repositories().Customers.GetByID(context.Background(), id)
	require.NoError(t, err)
	return customer
}

func (f *fixture) listPayments(t *testing.T, billID uuid.UUID) []domain.Payment {
	t.Helper()
	payments, err := f.store.Repositories().Payments.ListByBill(context.Background(), billID)
	require.NoError(t, err)
	return payments
}

func cash(amount string) domain.DirectPaymentRequest {
	return domain.DirectPaymentRequest{
		Amount:      money.MustParse(amount),
		Method:      "CASH",
		CollectedBy: "admin-1",
	}
}

func amountPtr(s string) *money.Amount {
	a := money.MustParse(s)
	return &a
}
