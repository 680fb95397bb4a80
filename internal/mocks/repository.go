package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/mpcredit/financing-engine/internal/domain"
)

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.PaymentPlanTemplate) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentPlanTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentPlanTemplate), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context) ([]*domain.PaymentPlanTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentPlanTemplate), args.Error(1)
}

func (m *MockPlanRepository) UpdateLastInstallment(ctx context.Context, id uuid.UUID, lastInstallment decimal.Decimal) error {
	args := m.Called(ctx, id, lastInstallment)
	return args.Error(0)
}

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, contract *domain.FinancingContract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FinancingContract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so callers mutating it do not change the fixture.
	contract := *args.Get(0).(*domain.FinancingContract)
	return &contract, args.Error(1)
}

func (m *MockContractRepository) ListBalancesByCustomer(ctx context.Context, customerID string) ([]domain.ContractBalance, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContractBalance), args.Error(1)
}

func (m *MockContractRepository) ListDueBefore(ctx context.Context, state domain.DebtState, before time.Time) ([]*domain.FinancingContract, error) {
	args := m.Called(ctx, state, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FinancingContract), args.Error(1)
}

func (m *MockContractRepository) SaveSettlement(ctx context.Context, contract *domain.FinancingContract, expectedVersion int, payment *domain.PaymentRecord) error {
	args := m.Called(ctx, contract, expectedVersion, payment)
	return args.Error(0)
}

func (m *MockContractRepository) Sign(ctx context.Context, id uuid.UUID, contractHash string, signedAt, updatedAt time.Time) error {
	args := m.Called(ctx, id, contractHash, signedAt, updatedAt)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*domain.PaymentRecord, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentRecord), args.Error(1)
}

type MockContractCache struct {
	mock.Mock
}

func (m *MockContractCache) Get(ctx context.Context, id uuid.UUID) (*domain.FinancingContract, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.FinancingContract), args.Bool(1), args.Error(2)
}

func (m *MockContractCache) Set(ctx context.Context, contract *domain.FinancingContract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
