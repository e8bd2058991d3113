package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher runs post-commit side effects in the background.
// Failures are logged and counted; they never reach the caller.
type Dispatcher struct {
	notifier Notifier
	devices  DeviceSync
	metrics  *metrics.Metrics
	log      *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, devices DeviceSync, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		devices:  devices,
		metrics:  m,
		log:      log.Named("notify.dispatcher"),
		timeout:  defaultDispatchTimeout,
	}
}

func (d *Dispatcher) Receipt(event ReceiptEvent) {
	d.run("receipt", func(ctx context.Context) error {
		return d.notifier.SendReceipt(ctx, event)
	}, zap.String("bill_id", event.BillID.String()))
}

func (d *Dispatcher) DeviceSync(event DeviceSyncEvent) {
	d.run("device_sync", func(ctx context.Context) error {
		return d.devices.Sync(ctx, event)
	}, zap.String("customer_id", event.CustomerID.String()), zap.String("action", event.Action))
}

func (d *Dispatcher) run(kind string, fn func(ctx context.Context) error, fields ...zap.Field) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.metrics.NotificationFailed(kind)
				d.log.Error("side effect panicked", append(fields, zap.String("kind", kind), zap.Any("panic", r))...)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.metrics.NotificationFailed(kind)
			d.log.Warn("side effect failed", append(fields, zap.String("kind", kind), zap.Error(err))...)
		}
	}()
}

// Wait blocks until every dispatched side effect has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
