package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) PayDirect(ctx context.Context, billID uuid.UUID, req domain.DirectPaymentRequest) (*domain.PaymentResponse, error) {
	args := m.Called(ctx, billID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) PayAsReseller(ctx context.Context, resellerID, billID uuid.UUID, req domain.ResellerPaymentRequest) (*domain.PaymentResponse, error) {
	args := m.Called(ctx, resellerID, billID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResponse), args.Error(1)
}

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Submit(ctx context.Context, billID uuid.UUID, req domain.CollectionRequest) (*domain.PendingPaymentApproval, error) {
	args := m.Called(ctx, billID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingPaymentApproval), args.Error(1)
}

func (m *MockApprovalService) Decide(ctx context.Context, approvalID uuid.UUID, req domain.DecisionRequest) (*domain.DecisionResponse, error) {
	args := m.Called(ctx, approvalID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DecisionResponse), args.Error(1)
}

func (m *MockApprovalService) ListPending(ctx context.Context) ([]domain.PendingPaymentApproval, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingPaymentApproval), args.Error(1)
}

type MockProvisioningService struct {
	mock.Mock
}

func (m *MockProvisioningService) ProvisionSubscriber(ctx context.Context, resellerID, packageID uuid.UUID, name, phone string, dueDate time.Time) (*domain.ProvisionResponse, error) {
	args := m.Called(ctx, resellerID, packageID, name, phone, dueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProvisionResponse), args.Error(1)
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) GetBillSummary(ctx context.Context, billID uuid.UUID) (*domain.BillSummary, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillSummary), args.Error(1)
}

func (m *MockBillingService) ListCustomerBills(ctx context.Context, customerID uuid.UUID) ([]domain.Bill, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bill), args.Error(1)
}

func (m *MockBillingService) ExtendDueDate(ctx context.Context, billID uuid.UUID, dueDate time.Time) (*domain.Bill, error) {
	args := m.Called(ctx, billID, dueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bill), args.Error(1)
}

func (m *MockBillingService) RechargeReseller(ctx context.Context, resellerID uuid.UUID, amount money.Amount) (*domain.ResellerProfile, error) {
	args := m.Called(ctx, resellerID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResellerProfile), args.Error(1)
}
