package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mpcredit/financing-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// insertPaymentQuery appends to the ledger; it runs inside SaveSettlement's transaction.
const insertPaymentQuery = `
	INSERT INTO payments (id, contract_id, amount, method, weeks_covered, recorded_at)
	VALUES (:id, :contract_id, :amount, :method, :weeks_covered, :recorded_at)
`

func (r *paymentRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT id, contract_id, amount, method, weeks_covered, recorded_at
		FROM payments
		WHERE contract_id = $1
		ORDER BY recorded_at DESC, id DESC
	`

	payments := []*domain.PaymentRecord{}
	if err := r.db.SelectContext(ctx, &payments, query, contractID); err != nil {
		return nil, err
	}

	return payments, nil
}

