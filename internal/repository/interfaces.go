package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpcredit/financing-engine/internal/domain"
)

// ErrVersionConflict is returned when a contract row changed between read and write.
var ErrVersionConflict = errors.New("contract version conflict")

// PlanRepository defines the interface for payment plan template operations
type PlanRepository interface {
	// Create stores a new plan template
	Create(ctx context.Context, plan *domain.PaymentPlanTemplate) error

	// GetByID retrieves a plan template; sql.ErrNoRows when missing
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentPlanTemplate, error)

	// List returns every plan template ordered by name
	List(ctx context.Context) ([]*domain.PaymentPlanTemplate, error)

	// UpdateLastInstallment stores the last installment of the latest calculation
	UpdateLastInstallment(ctx context.Context, id uuid.UUID, lastInstallment decimal.Decimal) error
}

// ContractRepository defines the interface for financing contract operations
type ContractRepository interface {
	// Create stores a new contract
	Create(ctx context.Context, contract *domain.FinancingContract) error

	// GetByID retrieves a contract; sql.ErrNoRows when missing
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FinancingContract, error)

	// ListBalancesByCustomer returns the balance view of every contract of a customer
	ListBalancesByCustomer(ctx context.Context, customerID string) ([]domain.ContractBalance, error)

	// ListDueBefore returns contracts in state whose next due date is before the given time
	ListDueBefore(ctx context.Context, state domain.DebtState, before time.Time) ([]*domain.FinancingContract, error)

	// SaveSettlement writes the contract's balance fields and, when payment is
	// not nil, appends it to the ledger in the same transaction. The write only
	// succeeds if the stored version still equals expectedVersion.
	SaveSettlement(ctx context.Context, contract *domain.FinancingContract, expectedVersion int, payment *domain.PaymentRecord) error

	// Sign records the signature hash and time and bumps the version;
	// sql.ErrNoRows when missing
	Sign(ctx context.Context, id uuid.UUID, contractHash string, signedAt, updatedAt time.Time) error
}

// PaymentRepository defines the interface for payment ledger operations
type PaymentRepository interface {
	// GetByContractID retrieves all payments of a contract, most recent first
	GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*domain.PaymentRecord, error)
}

// ContractCache is a read-through cache in front of ContractRepository.GetByID.
// Set never replaces a cached contract with one of a lower or equal version.
type ContractCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.FinancingContract, bool, error)
	Set(ctx context.Context, contract *domain.FinancingContract) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}
