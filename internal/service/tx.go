package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
)

// txRunner retries a transaction on ConcurrencyConflict with fresh reads.
// Every other failure is returned after the first attempt.
type txRunner struct {
	store      repository.Store
	maxRetries int
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func (r txRunner) run(ctx context.Context, op string, fn repository.TxFunc) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err = r.store.WithinTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, customError.ErrConcurrencyConflict) || ctx.Err() != nil {
			break
		}
		if attempt < r.maxRetries {
			r.metrics.ConflictRetried()
			r.log.Warn("transaction conflict, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	return normalize(err)
}

// normalize gives every error leaving the service layer a BusinessError code
func normalize(err error) error {
	if err == nil || customError.IsBusiness(err) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

// notFound converts a repository miss into the domain error built by wrap
func notFound(err error, wrap func() error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrap()
	}
	return err
}
