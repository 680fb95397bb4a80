package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentPlanTemplate is a reusable financing plan offered at the point of sale.
// Contracts snapshot the template when they are created, so later edits never
// change an existing schedule.
type PaymentPlanTemplate struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	Name                string          `json:"name" db:"name"`
	DurationWeeks       int             `json:"duration_weeks" db:"duration_weeks"`
	InterestRatePercent decimal.Decimal `json:"interest_rate_percent" db:"interest_rate_percent"`
	DownPayment         decimal.Decimal `json:"down_payment" db:"down_payment"`
	LastInstallment     decimal.Decimal `json:"last_installment" db:"last_installment"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// PlanResult is the amortization schedule produced by the plan calculator.
type PlanResult struct {
	PlanName            string            `json:"plan_name"`
	DurationWeeks       int               `json:"duration_weeks"`
	InterestRatePercent decimal.Decimal   `json:"interest_rate_percent"`
	DownPayment         decimal.Decimal   `json:"down_payment"`
	TotalPrice          decimal.Decimal   `json:"total_price"`
	AmountFinanced      decimal.Decimal   `json:"amount_financed"`
	WeeklyInstallment   decimal.Decimal   `json:"weekly_installment"`
	Installments        []decimal.Decimal `json:"installments"`
	LastInstallment     decimal.Decimal   `json:"last_installment"`
	TotalPaid           decimal.Decimal   `json:"total_paid"`
}

// DTOs for requests and responses

type CreatePlanTemplateRequest struct {
	Name                string          `json:"name" validate:"required,max=120"`
	DurationWeeks       int             `json:"duration_weeks" validate:"required,gt=0"`
	InterestRatePercent decimal.Decimal `json:"interest_rate_percent" validate:"decimal_gte=0"`
	DownPayment         decimal.Decimal `json:"down_payment" validate:"decimal_gte=0"`
}

type CalculatePlanRequest struct {
	TotalPrice  decimal.Decimal  `json:"total_price" validate:"decimal_gt=0"`
	BaseAmount  *decimal.Decimal `json:"base_amount,omitempty"`
	DownPayment *decimal.Decimal `json:"down_payment,omitempty"`
}

type CalculatePlanResponse struct {
	Plan   *PaymentPlanTemplate `json:"plan"`
	Result *PlanResult          `json:"result"`
}
