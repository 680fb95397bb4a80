package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mpcredit/financing-engine/internal/domain"
)

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `id, name, duration_weeks, interest_rate_percent, down_payment, last_installment, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *domain.PaymentPlanTemplate) error {
	query := `
		INSERT INTO payment_plan_templates (` + planColumns + `)
		VALUES (:id, :name, :duration_weeks, :interest_rate_percent, :down_payment, :last_installment, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, plan)
	return err
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentPlanTemplate, error) {
	query := `SELECT ` + planColumns + ` FROM payment_plan_templates WHERE id = $1`

	var plan domain.PaymentPlanTemplate
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]*domain.PaymentPlanTemplate, error) {
	query := `SELECT ` + planColumns + ` FROM payment_plan_templates ORDER BY name`

	plans := []*domain.PaymentPlanTemplate{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *planRepository) UpdateLastInstallment(ctx context.Context, id uuid.UUID, lastInstallment decimal.Decimal) error {
	query := `
		UPDATE payment_plan_templates
		SET last_installment = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, lastInstallment, time.Now())
	return err
}
