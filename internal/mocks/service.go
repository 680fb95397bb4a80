package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mpcredit/financing-engine/internal/domain"
)

type MockFinancingService struct {
	mock.Mock
}

// NewMockFinancingService creates a new mock financing service instance
func NewMockFinancingService() *MockFinancingService {
	return &MockFinancingService{}
}

func (m *MockFinancingService) CreatePlanTemplate(ctx context.Context, request *domain.CreatePlanTemplateRequest) (*domain.PaymentPlanTemplate, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentPlanTemplate), args.Error(1)
}

func (m *MockFinancingService) GetPlanTemplate(ctx context.Context, planID uuid.UUID) (*domain.PaymentPlanTemplate, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentPlanTemplate), args.Error(1)
}

func (m *MockFinancingService) ListPlanTemplates(ctx context.Context) ([]*domain.PaymentPlanTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentPlanTemplate), args.Error(1)
}

func (m *MockFinancingService) CalculatePlan(ctx context.Context, planID uuid.UUID, request *domain.CalculatePlanRequest) (*domain.CalculatePlanResponse, error) {
	args := m.Called(ctx, planID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CalculatePlanResponse), args.Error(1)
}

func (m *MockFinancingService) CreateContract(ctx context.Context, request *domain.CreateContractRequest) (*domain.CreateContractResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateContractResponse), args.Error(1)
}

func (m *MockFinancingService) GetContract(ctx context.Context, contractID uuid.UUID) (*domain.FinancingContract, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancingContract), args.Error(1)
}

func (m *MockFinancingService) SignContract(ctx context.Context, contractID uuid.UUID, request *domain.SignContractRequest) (*domain.FinancingContract, error) {
	args := m.Called(ctx, contractID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancingContract), args.Error(1)
}

func (m *MockFinancingService) RegisterPayment(ctx context.Context, contractID uuid.UUID, request *domain.RegisterPaymentRequest) (*domain.PaymentOutcome, error) {
	args := m.Called(ctx, contractID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentOutcome), args.Error(1)
}

func (m *MockFinancingService) GetPaymentHistory(ctx context.Context, contractID uuid.UUID) ([]*domain.PaymentRecord, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentRecord), args.Error(1)
}

func (m *MockFinancingService) GetCustomerBalance(ctx context.Context, customerID string) (*domain.CustomerBalanceResponse, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerBalanceResponse), args.Error(1)
}
