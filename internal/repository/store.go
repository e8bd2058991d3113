package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
)

//go:embed schema.sql
var schema string

// Postgres error codes that mean "retry the whole transaction"
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqUniqueViolation      = "23505"
	pqQueryCanceled        = "57014"
)

// PostgresStore runs repositories over a sqlx connection pool
type PostgresStore struct {
	db        *sqlx.DB
	isolation sql.IsolationLevel
	txTimeout time.Duration
}

func NewPostgresStore(db *sqlx.DB, isolation sql.IsolationLevel, txTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:        db,
		isolation: isolation,
		txTimeout: txTimeout,
	}
}

func newRepositories(db sqlx.ExtContext) Repositories {
	return Repositories{
		Bills:     NewBillRepository(db),
		Payments:  NewPaymentRepository(db),
		Customers: NewCustomerRepository(db),
		Resellers: NewResellerRepository(db),
		Packages:  NewPackageRepository(db),
		Approvals: NewApprovalRepository(db),
	}
}

func (s *PostgresStore) Repositories() Repositories {
	return newRepositories(s.db)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn TxFunc) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: s.isolation})
	if err != nil {
		return TxError(ctx, fmt.Errorf("begin transaction: %w", err))
	}

	if err := fn(ctx, newRepositories(tx)); err != nil {
		_ = tx.Rollback()
		return TxError(ctx, err)
	}

	if err := tx.Commit(); err != nil {
		return TxError(ctx, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// TxError classifies a failed transaction. Lock and serialization failures become
// ConcurrencyConflict, an expired deadline becomes TransactionTimeout, and domain
// errors pass through untouched.
func TxError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return customError.WrapConcurrencyConflict(err)
		}
	}

	if errors.Is(err, customError.ErrConcurrencyConflict) || errors.Is(err, customError.ErrTransactionTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if !customError.IsBusiness(err) || customError.Code(err) == customError.ErrCodeDatabaseError {
			return customError.WrapTransactionTimeout(err)
		}
	}
	return err
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func mapQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case pqQueryCanceled:
			return fmt.Errorf("%s: %w: %v", op, context.DeadlineExceeded, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectOneRow(op string, res sql.Result, err error) error {
	if err != nil {
		return mapQueryError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
