package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

const (
	ReceiptQueue    = "billing.receipts"
	DeviceSyncQueue = "provisioning.device_sync"
)

// Device actions carried by DeviceSyncEvent
const (
	DeviceActionEnable  = "ENABLE"
	DeviceActionDisable = "DISABLE"
)

// ReceiptEvent tells the customer that a payment was recorded
type ReceiptEvent struct {
	BillID      uuid.UUID         `json:"bill_id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	PaymentIDs  []uuid.UUID       `json:"payment_ids"`
	Amount      money.Amount      `json:"amount"`
	TotalPaid   money.Amount      `json:"total_paid"`
	Due         money.Amount      `json:"due"`
	Status      domain.BillStatus `json:"status"`
	Month       int               `json:"month"`
	Year        int               `json:"year"`
	CollectedBy string            `json:"collected_by"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

type DeviceSyncEvent struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BillID     uuid.UUID `json:"bill_id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers payment receipts
type Notifier interface {
	SendReceipt(ctx context.Context, event ReceiptEvent) error
}

// DeviceSync restores or cuts network access on the customer's router
type DeviceSync interface {
	Sync(ctx context.Context, event DeviceSyncEvent) error
}

// LogNotifier only logs. It stands in for both collaborators when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notify.log")}
}

func (n *LogNotifier) SendReceipt(_ context.Context, event ReceiptEvent) error {
	n.log.Info("receipt",
		zap.String("bill_id", event.BillID.String()),
		zap.String("customer_id", event.CustomerID.String()),
		zap.String("amount", event.Amount.String()),
		zap.String("due", event.Due.String()),
		zap.String("status", string(event.Status)),
	)
	return nil
}

func (n *LogNotifier) Sync(_ context.Context, event DeviceSyncEvent) error {
	n.log.Info("device sync",
		zap.String("customer_id", event.CustomerID.String()),
		zap.String("action", event.Action),
	)
	return nil
}
