package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
	"github.com/naimprince010-ship-it/isp-billing/pkg/response"
)

type PaymentService interface {
	PayDirect(ctx context.Context, billID uuid.UUID, req domain.DirectPaymentRequest) (*domain.PaymentResponse, error)
	PayAsReseller(ctx context.Context, resellerID, billID uuid.UUID, req domain.ResellerPaymentRequest) (*domain.PaymentResponse, error)
}

type ApprovalService interface {
	Submit(ctx context.Context, billID uuid.UUID, req domain.CollectionRequest) (*domain.PendingPaymentApproval, error)
	Decide(ctx context.Context, approvalID uuid.UUID, req domain.DecisionRequest) (*domain.DecisionResponse, error)
	ListPending(ctx context.Context) ([]domain.PendingPaymentApproval, error)
}

type ProvisioningService interface {
	ProvisionSubscriber(ctx context.Context, resellerID, packageID uuid.UUID, name, phone string, dueDate time.Time) (*domain.ProvisionResponse, error)
}

type BillingService interface {
	GetBillSummary(ctx context.Context, billID uuid.UUID) (*domain.BillSummary, error)
	ListCustomerBills(ctx context.Context, customerID uuid.UUID) ([]domain.Bill, error)
	ExtendDueDate(ctx context.Context, billID uuid.UUID, dueDate time.Time) (*domain.Bill, error)
	RechargeReseller(ctx context.Context, resellerID uuid.UUID, amount money.Amount) (*domain.ResellerProfile, error)
}

type BillingHandler struct {
	payments     PaymentService
	approvals    ApprovalService
	provisioning ProvisioningService
	billing      BillingService
	validator    *validator.Validate
	log          *zap.Logger
}

func NewBillingHandler(
	payments PaymentService,
	approvals ApprovalService,
	provisioning ProvisioningService,
	billing BillingService,
	log *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		payments:     payments,
		approvals:    approvals,
		provisioning: provisioning,
		billing:      billing,
		validator:    newValidator(),
		log:          log.Named("http"),
	}
}

// Register mounts the billing API on r
func (h *BillingHandler) Register(r *mux.Router) {
	r.HandleFunc("/bills/{billId}", h.GetBill).Methods(http.MethodGet)
	r.HandleFunc("/bills/{billId}/due-date", h.ExtendDueDate).Methods(http.MethodPatch)
	r.HandleFunc("/bills/{billId}/payments", h.PayDirect).Methods(http.MethodPost)
	r.HandleFunc("/bills/{billId}/collections", h.SubmitCollection).Methods(http.MethodPost)
	r.HandleFunc("/customers/{customerId}/bills", h.ListCustomerBills).Methods(http.MethodGet)
	r.HandleFunc("/approvals", h.ListPendingApprovals).Methods(http.MethodGet)
	r.HandleFunc("/approvals/{approvalId}/decision", h.DecideApproval).Methods(http.MethodPost)
	r.HandleFunc("/resellers/{resellerId}/bills/{billId}/payments", h.PayAsReseller).Methods(http.MethodPost)
	r.HandleFunc("/resellers/{resellerId}/subscribers", h.ProvisionSubscriber).Methods(http.MethodPost)
	r.HandleFunc("/resellers/{resellerId}/recharge", h.RechargeReseller).Methods(http.MethodPost)
}

func (h *BillingHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	billID, err := pathID(r, "billId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	summary, err := h.billing.GetBillSummary(r.Context(), billID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Success(w, summary)
}

func (h *BillingHandler) ListCustomerBills(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	bills, err := h.billing.ListCustomerBills(r.Context(), customerID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Success(w, bills)
}

func (h *BillingHandler) ExtendDueDate(w http.ResponseWriter, r *http.Request) {
	billID, err := pathID(r, "billId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.ExtendDueDateRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	bill, err := h.billing.ExtendDueDate(r.Context(), billID, req.DueDate)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Success(w, bill)
}

func (h *BillingHandler) PayDirect(w http.ResponseWriter, r *http.Request) {
	billID, err := pathID(r, "billId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.DirectPaymentRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.payments.PayDirect(r.Context(), billID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Created(w, resp)
}

func (h *BillingHandler) PayAsReseller(w http.ResponseWriter, r *http.Request) {
	resellerID, err := pathID(r, "resellerId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	billID, err := pathID(r, "billId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.ResellerPaymentRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.payments.PayAsReseller(r.Context(), resellerID, billID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Created(w, resp)
}

// SubmitCollection queues an employee collection; nothing is posted until approval
func (h *BillingHandler) SubmitCollection(w http.ResponseWriter, r *http.Request) {
	billID, err := pathID(r, "billId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.CollectionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	approval, err := h.approvals.Submit(r.Context(), billID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.JSON(w, http.StatusAccepted, approval)
}

func (h *BillingHandler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.approvals.ListPending(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Success(w, approvals)
}

func (h *BillingHandler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	approvalID, err := pathID(r, "approvalId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.DecisionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.approvals.Decide(r.Context(), approvalID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Success(w, resp)
}

func (h *BillingHandler) ProvisionSubscriber(w http.ResponseWriter, r *http.Request) {
	resellerID, err := pathID(r, "resellerId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.ProvisionSubscriberRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	// validated as a uuid above
	packageID := uuid.MustParse(req.PackageID)
	var dueDate time.Time
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	resp, err := h.provisioning.ProvisionSubscriber(r.Context(), resellerID, packageID, req.Name, req.Phone, dueDate)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Created(w, resp)
}

func (h *BillingHandler) RechargeReseller(w http.ResponseWriter, r *http.Request) {
	resellerID, err := pathID(r, "resellerId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req domain.RechargeRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	reseller, err := h.billing.RechargeReseller(r.Context(), resellerID, req.Amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response.Success(w, reseller)
}
