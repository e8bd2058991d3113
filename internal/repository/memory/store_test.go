package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

func seedBill(t *testing.T, store *Store) domain.Bill {
	t.Helper()
	bill := domain.Bill{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		PackageID:  uuid.New(),
		Amount:     money.NewFromInt(800),
		Status:     domain.BillStatusPending,
		Month:      4,
		Year:       2024,
		DueDate:    time.Date(2024, time.April, 10, 23, 59, 59, 0, time.UTC),
	}
	require.NoError(t, store.Repositories().Bills.Create(context.Background(), &bill))
	return bill
}

func TestStore_CommitAppliesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(time.Second)
	bill := seedBill(t, store)

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		b, err := repos.Bills.GetForUpdate(ctx, bill.ID)
		if err != nil {
			return err
		}
		b.Status = domain.BillStatusPartial
		if err := repos.Payments.Create(ctx, &domain.Payment{ID: uuid.New(), BillID: b.ID, Amount: money.NewFromInt(100)}); err != nil {
			return err
		}
		return repos.Bills.Update(ctx, b)
	})
	require.NoError(t, err)

	got, err := store.Repositories().Bills.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusPartial, got.Status)

	payments, err := store.Repositories().Payments.ListByBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestStore_FailedTxLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	store := NewStore(time.Second)
	bill := seedBill(t, store)
	boom := errors.New("disk on fire")
	store.FailOn(OpUpdateBill, boom)

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Payments.Create(ctx, &domain.Payment{ID: uuid.New(), BillID: bill.ID, Amount: money.NewFromInt(100)}); err != nil {
			return err
		}
		b := bill
		b.Status = domain.BillStatusPartial
		return repos.Bills.Update(ctx, &b)
	})
	assert.ErrorIs(t, err, boom)

	payments, err := store.Repositories().Payments.ListByBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	got, err := store.Repositories().Bills.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusPending, got.Status)
}

func TestStore_FailTimes(t *testing.T) {
	ctx := context.Background()
	store := NewStore(time.Second)
	conflict := customError.WrapConcurrencyConflict(errors.New("could not serialize"))
	store.FailTimes(OpCommit, conflict, 2)

	noop := func(ctx context.Context, repos repository.Repositories) error { return nil }

	assert.ErrorIs(t, store.WithinTx(ctx, noop), customError.ErrConcurrencyConflict)
	assert.ErrorIs(t, store.WithinTx(ctx, noop), customError.ErrConcurrencyConflict)
	assert.NoError(t, store.WithinTx(ctx, noop))
}

func TestStore_Timeout(t *testing.T) {
	store := NewStore(10 * time.Millisecond)

	err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		<-ctx.Done()
		return nil
	})

	assert.ErrorIs(t, err, customError.ErrTransactionTimeout)
	assert.True(t, customError.IsRetryable(err))
}

func TestBillRepository_UniquePeriod(t *testing.T) {
	ctx := context.Background()
	store := NewStore(time.Second)
	bill := seedBill(t, store)

	dup := bill
	dup.ID = uuid.New()
	err := store.Repositories().Bills.Create(ctx, &dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	exists, err := store.Repositories().Bills.ExistsForPeriod(ctx, bill.CustomerID, bill.Month, bill.Year)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBillRepository_ListOverdue(t *testing.T) {
	ctx := context.Background()
	store := NewStore(time.Second)
	overdue := seedBill(t, store)

	paid := seedBill(t, store)
	paid.Status = domain.BillStatusPaid
	require.NoError(t, store.Repositories().Bills.Update(ctx, &paid))

	bills, err := store.Repositories().Bills.ListOverdue(ctx, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, overdue.ID, bills[0].ID)
}

func TestRepositories_NotFound(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(time.Second).Repositories()
	id := uuid.New()

	_, err := repos.Bills.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repos.Customers.GetForUpdate(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repos.Resellers.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repos.Packages.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repos.Approvals.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repos.Customers.UpdateStatus(ctx, id, domain.CustomerStatusSuspended), repository.ErrNotFound)
}
