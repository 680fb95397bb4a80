package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mpcredit/financing-engine/internal/domain"
)

type contractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `id, customer_id, plan_template_id, plan_name, total_price, base_amount, down_payment_paid,
	interest_rate_percent, duration_weeks, amount_financed, weekly_installment, final_installment,
	weeks_remaining, remaining_balance, next_due_date, debt_state, contract_hash, signed_at, version,
	created_at, updated_at`

func (r *contractRepository) Create(ctx context.Context, contract *domain.FinancingContract) error {
	query := `
		INSERT INTO financing_contracts (` + contractColumns + `)
		VALUES (:id, :customer_id, :plan_template_id, :plan_name, :total_price, :base_amount, :down_payment_paid,
			:interest_rate_percent, :duration_weeks, :amount_financed, :weekly_installment, :final_installment,
			:weeks_remaining, :remaining_balance, :next_due_date, :debt_state, :contract_hash, :signed_at, :version,
			:created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, contract)
	return err
}

func (r *contractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FinancingContract, error) {
	query := `SELECT ` + contractColumns + ` FROM financing_contracts WHERE id = $1`

	var contract domain.FinancingContract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}

	return &contract, nil
}

func (r *contractRepository) ListBalancesByCustomer(ctx context.Context, customerID string) ([]domain.ContractBalance, error) {
	query := `
		SELECT id, total_price, remaining_balance, weeks_remaining, debt_state, next_due_date
		FROM financing_contracts
		WHERE customer_id = $1
		ORDER BY created_at
	`

	balances := []domain.ContractBalance{}
	if err := r.db.SelectContext(ctx, &balances, query, customerID); err != nil {
		return nil, err
	}

	return balances, nil
}

func (r *contractRepository) ListDueBefore(ctx context.Context, state domain.DebtState, before time.Time) ([]*domain.FinancingContract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM financing_contracts
		WHERE debt_state = $1 AND next_due_date < $2 AND remaining_balance > 0
		ORDER BY next_due_date
	`

	contracts := []*domain.FinancingContract{}
	if err := r.db.SelectContext(ctx, &contracts, query, state, before); err != nil {
		return nil, err
	}

	return contracts, nil
}

func (r *contractRepository) SaveSettlement(ctx context.Context, contract *domain.FinancingContract, expectedVersion int, payment *domain.PaymentRecord) error {
	query := `
		UPDATE financing_contracts
		SET weeks_remaining = $3, remaining_balance = $4, next_due_date = $5, debt_state = $6,
			version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $2
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query,
		contract.ID,
		expectedVersion,
		contract.WeeksRemaining,
		contract.RemainingBalance,
		contract.NextDueDate,
		contract.DebtState,
		contract.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	if payment != nil {
		if _, err = tx.NamedExecContext(ctx, insertPaymentQuery, payment); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	contract.Version = expectedVersion + 1
	return nil
}

func (r *contractRepository) Sign(ctx context.Context, id uuid.UUID, contractHash string, signedAt, updatedAt time.Time) error {
	query := `
		UPDATE financing_contracts
		SET contract_hash = $2, signed_at = $3, version = version + 1, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, contractHash, signedAt, updatedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
