package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/naimprince010-ship-it/isp-billing/pkg/response"
)

// Pinger is satisfied by repository.Store
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerHealth is satisfied by the RabbitMQ connection
type BrokerHealth interface {
	IsHealthy() bool
}

type HealthHandler struct {
	store   Pinger
	redis   *redis.Client
	broker  BrokerHealth
	timeout time.Duration
}

// NewHealthHandler builds the probes. redis and broker may be nil when not configured.
func NewHealthHandler(store Pinger, redis *redis.Client, broker BrokerHealth, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		store:   store,
		redis:   redis,
		broker:  broker,
		timeout: timeout,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    map[string]string{},
	})
}

// Ready checks the database and, when configured, Redis and RabbitMQ
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		status.Status = "error"
		status.Checks["database"] = "failed: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status.Status = "error"
			status.Checks["redis"] = "failed: " + err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	if h.broker != nil {
		if h.broker.IsHealthy() {
			status.Checks["rabbitmq"] = "ok"
		} else {
			status.Status = "error"
			status.Checks["rabbitmq"] = "failed: connection closed"
		}
	}

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}

func (h *HealthHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.Ready).Methods(http.MethodGet)
}
