// Package memory is an in-process Store used for local runs and tests.
// Transactions are serialised and commit by swapping a private snapshot in,
// so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
)

// Operation names accepted by FailOn
const (
	OpCreateBill     = "bills.create"
	OpUpdateBill     = "bills.update"
	OpCreatePayment  = "payments.create"
	OpCreateCustomer = "customers.create"
	OpUpdateCustomer = "customers.update"
	OpUpdateReseller = "resellers.update"
	OpCreateApproval = "approvals.create"
	OpUpdateApproval = "approvals.update"
	OpCommit         = "commit"
)

type state struct {
	bills     map[uuid.UUID]domain.Bill
	payments  map[uuid.UUID][]domain.Payment
	customers map[uuid.UUID]domain.CustomerProfile
	resellers map[uuid.UUID]domain.ResellerProfile
	packages  map[uuid.UUID]domain.Package
	approvals map[uuid.UUID]domain.PendingPaymentApproval
}

func newState() *state {
	return &state{
		bills:     map[uuid.UUID]domain.Bill{},
		payments:  map[uuid.UUID][]domain.Payment{},
		customers: map[uuid.UUID]domain.CustomerProfile{},
		resellers: map[uuid.UUID]domain.ResellerProfile{},
		packages:  map[uuid.UUID]domain.Package{},
		approvals: map[uuid.UUID]domain.PendingPaymentApproval{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.bills {
		c.bills[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = append([]domain.Payment(nil), v...)
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.resellers {
		c.resellers[k] = v
	}
	for k, v := range s.packages {
		c.packages[k] = v
	}
	for k, v := range s.approvals {
		c.approvals[k] = v
	}
	return c
}

type fault struct {
	err       error
	remaining int
}

// Store implements repository.Store in memory
type Store struct {
	mu        sync.Mutex
	state     *state
	txTimeout time.Duration

	faultMu sync.Mutex
	faults  map[string]*fault
}

var _ repository.Store = (*Store)(nil)

func NewStore(txTimeout time.Duration) *Store {
	return &Store{
		state:     newState(),
		txTimeout: txTimeout,
		faults:    map[string]*fault{},
	}
}

// FailOn makes every future op fail with err until ClearFaults
func (s *Store) FailOn(op string, err error) {
	s.FailTimes(op, err, -1)
}

// FailTimes makes the next n calls of op fail with err
func (s *Store) FailTimes(op string, err error, n int) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = &fault{err: err, remaining: n}
}

func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = map[string]*fault{}
}

func (s *Store) injected(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(s.faults, op)
		}
	}
	return f.err
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Repositories returns stores that each lock the committed state per call
func (s *Store) Repositories() repository.Repositories {
	return (&session{store: s}).repositories()
}

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	sess := &session{store: s, tx: snapshot}

	if err := fn(ctx, sess.repositories()); err != nil {
		return repository.TxError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return customError.WrapTransactionTimeout(err)
		}
		return err
	}
	if err := s.injected(OpCommit); err != nil {
		return err
	}

	s.state = snapshot
	return nil
}

// session routes repository calls to a transaction snapshot or, outside a
// transaction, to the committed state under the store lock
type session struct {
	store *Store
	tx    *state
}

func (s *session) repositories() repository.Repositories {
	return repository.Repositories{
		Bills:     &billRepository{s},
		Payments:  &paymentRepository{s},
		Customers: &customerRepository{s},
		Resellers: &resellerRepository{s},
		Packages:  &packageRepository{s},
		Approvals: &approvalRepository{s},
	}
}

func (s *session) read(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return fn(s.store.state)
}

func (s *session) write(ctx context.Context, op string, fn func(*state) error) error {
	if err := s.store.injected(op); err != nil {
		return err
	}
	return s.read(ctx, fn)
}
