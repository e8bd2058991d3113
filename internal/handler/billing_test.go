package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

type serviceMocks struct {
	payments     *MockPaymentService
	approvals    *MockApprovalService
	provisioning *MockProvisioningService
	billing      *MockBillingService
}

func (m serviceMocks) assertExpectations(t *testing.T) {
	m.payments.AssertExpectations(t)
	m.approvals.AssertExpectations(t)
	m.provisioning.AssertExpectations(t)
	m.billing.AssertExpectations(t)
}

func newTestRouter() (*mux.Router, serviceMocks) {
	m := serviceMocks{
		payments:     &MockPaymentService{},
		approvals:    &MockApprovalService{},
		provisioning: &MockProvisioningService{},
		billing:      &MockBillingService{},
	}
	h := NewBillingHandler(m.payments, m.approvals, m.provisioning, m.billing, zap.NewNop())
	router := mux.NewRouter()
	h.Register(router.PathPrefix("/api/v1").Subrouter())
	return router, m
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Code      string          `json:"code"`
	Retryable bool            `json:"retryable"`
	Message   string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func amountIs(expected string) func(money.Amount) bool {
	want := money.MustParse(expected)
	return func(a money.Amount) bool { return a.Equal(want) }
}

func TestBillingHandler_PayDirect(t *testing.T) {
	billID := uuid.New()

	tests := []struct {
		name           string
		path           string
		body           string
		setupMock      func(m serviceMocks)
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, env envelope)
	}{
		{
			name: "payment recorded",
			path: "/api/v1/bills/" + billID.String() + "/payments",
			body: `{"amount":"800","method":"CASH","collected_by":"admin-1","send_receipt":true}`,
			setupMock: func(m serviceMocks) {
				m.payments.On("PayDirect", mock.Anything, billID, mock.MatchedBy(func(req domain.DirectPaymentRequest) bool {
					return amountIs("800")(req.Amount) && req.Method == "CASH" && req.SendReceipt
				})).Return(&domain.PaymentResponse{
					Bill:      domain.Bill{ID: billID, Status: domain.BillStatusPaid},
					TotalPaid: money.MustParse("800"),
					Due:       money.Zero(),
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, env envelope) {
				var resp domain.PaymentResponse
				require.NoError(t, json.Unmarshal(env.Data, &resp))
				assert.Equal(t, domain.BillStatusPaid, resp.Bill.Status)
				assert.Equal(t, "0.00", resp.Due.String())
			},
		},
		{
			name:           "zero amount rejected before the service",
			path:           "/api/v1/bills/" + billID.String() + "/payments",
			body:           `{"amount":"0","method":"CASH","collected_by":"admin-1"}`,
			setupMock:      func(m serviceMocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "sub-paisa amount rejected",
			path:           "/api/v1/bills/" + billID.String() + "/payments",
			body:           `{"amount":"0.001","method":"CASH","collected_by":"admin-1"}`,
			setupMock:      func(m serviceMocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "negative amount past int64 minor units",
			path:           "/api/v1/bills/" + billID.String() + "/payments",
			body:           `{"amount":"-184467440737095516.15","method":"CASH","collected_by":"admin-1"}`,
			setupMock:      func(m serviceMocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "amount wider than the ledger column",
			path:           "/api/v1/bills/" + billID.String() + "/payments",
			body:           `{"amount":"1000000000000","method":"CASH","collected_by":"admin-1"}`,
			setupMock:      func(m serviceMocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "missing collector",
			path:           "/api/v1/bills/" + billID.String() + "/payments",
			body:           `{"amount":"100","method":"CASH"}`,
			setupMock:      func(m serviceMocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "malformed bill id",
			path:           "/api/v1/bills/not-a-uuid/payments",
			body:           `{"amount":"100","method":"CASH","collected_by":"admin-1"}`,
			setupMock:      func(m serviceMocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name: "paid bill",
			path: "/api/v1/bills/" + billID.String() + "/payments",
			body: `{"amount":"100","method":"CASH","collected_by":"admin-1"}`,
			setupMock: func(m serviceMocks) {
				m.payments.On("PayDirect", mock.Anything, billID, mock.Anything).
					Return(nil, customError.WrapInvalidBillState(billID.String(), "bill is already paid")).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   customError.ErrCodeInvalidBillState,
		},
		{
			name: "unknown bill",
			path: "/api/v1/bills/" + billID.String() + "/payments",
			body: `{"amount":"100","method":"CASH","collected_by":"admin-1"}`,
			setupMock: func(m serviceMocks) {
				m.payments.On("PayDirect", mock.Anything, billID, mock.Anything).
					Return(nil, customError.WrapBillNotFound(billID.String())).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   customError.ErrCodeBillNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newTestRouter()
			tt.setupMock(m)

			w := serve(router, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			if tt.expectedCode != "" {
				assert.False(t, env.Success)
				assert.Equal(t, tt.expectedCode, env.Code)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, env)
			}
			m.assertExpectations(t)
		})
	}
}

func TestBillingHandler_PayAsReseller(t *testing.T) {
	router, m := newTestRouter()
	resellerID, billID := uuid.New(), uuid.New()

	m.payments.On("PayAsReseller", mock.Anything, resellerID, billID, mock.MatchedBy(func(req domain.ResellerPaymentRequest) bool {
		return req.AdvanceDraw != nil && amountIs("250")(*req.AdvanceDraw) &&
			req.DiscountAmount != nil && amountIs("50")(*req.DiscountAmount)
	})).Return(nil, customError.WrapInsufficientAdvance("250.00", "200.00")).Once()

	w := serve(router, http.MethodPost,
		"/api/v1/resellers/"+resellerID.String()+"/bills/"+billID.String()+"/payments",
		`{"amount":"100","discount_amount":"50","advance_draw":"250","method":"CASH","collected_by":"op-1"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, customError.ErrCodeInsufficientAdvance, env.Code)
	assert.False(t, env.Retryable)
	m.assertExpectations(t)
}

func TestBillingHandler_NegativeAdvanceDrawRejected(t *testing.T) {
	router, m := newTestRouter()

	w := serve(router, http.MethodPost,
		"/api/v1/resellers/"+uuid.NewString()+"/bills/"+uuid.NewString()+"/payments",
		`{"amount":"100","advance_draw":"-5","method":"CASH","collected_by":"op-1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost,
		"/api/v1/resellers/"+uuid.NewString()+"/bills/"+uuid.NewString()+"/payments",
		`{"amount":"100","discount_amount":"99999999999999999999","method":"CASH","collected_by":"op-1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, customError.ErrCodeValidation, decodeEnvelope(t, w).Code)
	m.assertExpectations(t)
}

func TestBillingHandler_Collections(t *testing.T) {
	router, m := newTestRouter()
	billID, approvalID := uuid.New(), uuid.New()

	m.approvals.On("Submit", mock.Anything, billID, mock.MatchedBy(func(req domain.CollectionRequest) bool {
		return amountIs("500")(req.Amount) && req.CollectedBy == "employee-7"
	})).Return(&domain.PendingPaymentApproval{ID: approvalID, BillID: billID, Status: domain.ApprovalStatusPending}, nil).Once()

	w := serve(router, http.MethodPost, "/api/v1/bills/"+billID.String()+"/collections",
		`{"amount":"500","method":"CASH","collected_by":"employee-7"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var approval domain.PendingPaymentApproval
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &approval))
	assert.Equal(t, approvalID, approval.ID)
	assert.Equal(t, domain.ApprovalStatusPending, approval.Status)

	m.approvals.On("ListPending", mock.Anything).
		Return([]domain.PendingPaymentApproval{{ID: approvalID}}, nil).Once()

	w = serve(router, http.MethodGet, "/api/v1/approvals", "")
	assert.Equal(t, http.StatusOK, w.Code)
	m.assertExpectations(t)
}

func TestBillingHandler_DecideApproval(t *testing.T) {
	approvalID := uuid.New()

	t.Run("approved", func(t *testing.T) {
		router, m := newTestRouter()
		m.approvals.On("Decide", mock.Anything, approvalID, mock.MatchedBy(func(req domain.DecisionRequest) bool {
			return req.Decision == domain.DecisionApprove && req.ApprovedBy == "admin-2"
		})).Return(&domain.DecisionResponse{
			Approval: domain.PendingPaymentApproval{ID: approvalID, Status: domain.ApprovalStatusApproved},
		}, nil).Once()

		w := serve(router, http.MethodPost, "/api/v1/approvals/"+approvalID.String()+"/decision",
			`{"decision":"APPROVED","approved_by":"admin-2"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		m.assertExpectations(t)
	})

	t.Run("unknown decision", func(t *testing.T) {
		router, m := newTestRouter()

		w := serve(router, http.MethodPost, "/api/v1/approvals/"+approvalID.String()+"/decision",
			`{"decision":"MAYBE","approved_by":"admin-2"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.assertExpectations(t)
	})

	t.Run("already processed", func(t *testing.T) {
		router, m := newTestRouter()
		m.approvals.On("Decide", mock.Anything, approvalID, mock.Anything).
			Return(nil, customError.WrapAlreadyProcessed(approvalID.String(), "APPROVED")).Once()

		w := serve(router, http.MethodPost, "/api/v1/approvals/"+approvalID.String()+"/decision",
			`{"decision":"REJECTED","approved_by":"admin-2"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, customError.ErrCodeAlreadyProcessed, decodeEnvelope(t, w).Code)
		m.assertExpectations(t)
	})
}

func TestBillingHandler_ProvisionSubscriber(t *testing.T) {
	router, m := newTestRouter()
	resellerID, packageID := uuid.New(), uuid.New()

	m.provisioning.On("ProvisionSubscriber", mock.Anything, resellerID, packageID, "Rahim", "01711111111", time.Time{}).
		Return(&domain.ProvisionResponse{ResellerBalance: money.MustParse("400")}, nil).Once()

	w := serve(router, http.MethodPost, "/api/v1/resellers/"+resellerID.String()+"/subscribers",
		`{"package_id":"`+packageID.String()+`","name":"Rahim","phone":"01711111111"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	m.assertExpectations(t)

	m.provisioning.On("ProvisionSubscriber", mock.Anything, resellerID, packageID, "Rahim", "01711111111", time.Time{}).
		Return(nil, customError.WrapInsufficientBalance("1000.00", "1200.00")).Once()

	w = serve(router, http.MethodPost, "/api/v1/resellers/"+resellerID.String()+"/subscribers",
		`{"package_id":"`+packageID.String()+`","name":"Rahim","phone":"01711111111"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, customError.ErrCodeInsufficientBalance, decodeEnvelope(t, w).Code)

	w = serve(router, http.MethodPost, "/api/v1/resellers/"+resellerID.String()+"/subscribers",
		`{"package_id":"nope","name":"Rahim","phone":"01711111111"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBillingHandler_BillReads(t *testing.T) {
	router, m := newTestRouter()
	billID, customerID := uuid.New(), uuid.New()

	m.billing.On("GetBillSummary", mock.Anything, billID).Return(&domain.BillSummary{
		Bill: domain.Bill{ID: billID, Status: domain.BillStatusPartial},
		Due:  money.MustParse("200"),
	}, nil).Once()
	m.billing.On("ListCustomerBills", mock.Anything, customerID).
		Return(nil, customError.WrapCustomerNotFound(customerID.String())).Once()

	w := serve(router, http.MethodGet, "/api/v1/bills/"+billID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	var summary domain.BillSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &summary))
	assert.Equal(t, "200.00", summary.Due.String())

	w = serve(router, http.MethodGet, "/api/v1/customers/"+customerID.String()+"/bills", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	m.assertExpectations(t)
}

func TestBillingHandler_ExtendDueDateAndRecharge(t *testing.T) {
	router, m := newTestRouter()
	billID, resellerID := uuid.New(), uuid.New()
	due := time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)

	m.billing.On("ExtendDueDate", mock.Anything, billID, mock.MatchedBy(func(d time.Time) bool { return d.Equal(due) })).
		Return(&domain.Bill{ID: billID, DueDate: due}, nil).Once()
	m.billing.On("RechargeReseller", mock.Anything, resellerID, mock.MatchedBy(amountIs("250.50"))).
		Return(&domain.ResellerProfile{ID: resellerID, CurrentBalance: money.MustParse("1250.50")}, nil).Once()

	w := serve(router, http.MethodPatch, "/api/v1/bills/"+billID.String()+"/due-date", `{"due_date":"2024-04-20T00:00:00Z"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/resellers/"+resellerID.String()+"/recharge", `{"amount":"250.50"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/resellers/"+resellerID.String()+"/recharge", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPatch, "/api/v1/bills/"+billID.String()+"/due-date", `{"due_date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.assertExpectations(t)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"validation", customError.WrapValidation("bad"), http.StatusBadRequest, customError.ErrCodeValidation, false},
		{"approval not found", customError.WrapApprovalNotFound("a"), http.StatusNotFound, customError.ErrCodeApprovalNotFound, false},
		{"package not found", customError.WrapPackageNotFound("p"), http.StatusNotFound, customError.ErrCodePackageNotFound, false},
		{"invalid discount", customError.WrapInvalidDiscount("900.00", "800.00"), http.StatusUnprocessableEntity, customError.ErrCodeInvalidDiscount, false},
		{"conflict", customError.WrapConcurrencyConflict(errors.New("40001")), http.StatusConflict, customError.ErrCodeConcurrencyConflict, true},
		{"timeout", customError.WrapTransactionTimeout(errors.New("deadline")), http.StatusServiceUnavailable, customError.ErrCodeTransactionTimeout, true},
		{"database", customError.WrapDatabaseError(errors.New("connection reset")), http.StatusInternalServerError, customError.ErrCodeDatabaseError, false},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, customError.ErrCodeDatabaseError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			writeError(w, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.retryable, env.Retryable)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", env.Message)
			}
		})
	}
}
