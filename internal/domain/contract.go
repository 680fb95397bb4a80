package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtState is the repayment state of a financing contract.
type DebtState string

const (
	DebtStateCurrent DebtState = "CURRENT"
	DebtStateOverdue DebtState = "OVERDUE"
	DebtStateSettled DebtState = "SETTLED"
)

// IsTerminal reports whether no further transition can leave the state.
func (s DebtState) IsTerminal() bool {
	return s == DebtStateSettled
}

// FinancingContract is a device sale financed in weekly installments.
// The schedule fields are frozen at creation time; only the balance fields
// (WeeksRemaining, RemainingBalance, NextDueDate, DebtState) move afterwards.
type FinancingContract struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	CustomerID          string          `json:"customer_id" db:"customer_id"`
	PlanTemplateID      uuid.UUID       `json:"plan_template_id" db:"plan_template_id"`
	PlanName            string          `json:"plan_name" db:"plan_name"`
	TotalPrice          decimal.Decimal `json:"total_price" db:"total_price"`
	BaseAmount          decimal.Decimal `json:"base_amount" db:"base_amount"`
	DownPaymentPaid     decimal.Decimal `json:"down_payment_paid" db:"down_payment_paid"`
	InterestRatePercent decimal.Decimal `json:"interest_rate_percent" db:"interest_rate_percent"`
	DurationWeeks       int             `json:"duration_weeks" db:"duration_weeks"`
	AmountFinanced      decimal.Decimal `json:"amount_financed" db:"amount_financed"`
	WeeklyInstallment   decimal.Decimal `json:"weekly_installment" db:"weekly_installment"`
	FinalInstallment    decimal.Decimal `json:"final_installment" db:"final_installment"`
	WeeksRemaining      int             `json:"weeks_remaining" db:"weeks_remaining"`
	RemainingBalance    decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	NextDueDate         time.Time       `json:"next_due_date" db:"next_due_date"`
	DebtState           DebtState       `json:"debt_state" db:"debt_state"`
	ContractHash        *string         `json:"contract_hash,omitempty" db:"contract_hash"`
	SignedAt            *time.Time      `json:"signed_at,omitempty" db:"signed_at"`
	Version             int             `json:"-" db:"version"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// IsSettled reports whether the contract has nothing left to collect. The
// balance is authoritative; DebtState follows it.
func (c *FinancingContract) IsSettled() bool {
	return !c.RemainingBalance.IsPositive()
}

type CreateContractRequest struct {
	CustomerID     string           `json:"customer_id" validate:"required"`
	PlanTemplateID uuid.UUID        `json:"plan_template_id" validate:"required"`
	TotalPrice     decimal.Decimal  `json:"total_price" validate:"decimal_gt=0"`
	BaseAmount     *decimal.Decimal `json:"base_amount,omitempty"`
	DownPayment    *decimal.Decimal `json:"down_payment,omitempty"`
}

type CreateContractResponse struct {
	Contract *FinancingContract `json:"contract"`
	Plan     *PlanResult        `json:"plan"`
}

type SignContractRequest struct {
	ContractHash string     `json:"contract_hash" validate:"required,max=128"`
	SignedAt     *time.Time `json:"signed_at,omitempty"`
}

type ContractBalance struct {
	ContractID       uuid.UUID       `json:"contract_id" db:"id"`
	TotalPrice       decimal.Decimal `json:"total_price" db:"total_price"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	WeeksRemaining   int             `json:"weeks_remaining" db:"weeks_remaining"`
	DebtState        DebtState       `json:"debt_state" db:"debt_state"`
	NextDueDate      time.Time       `json:"next_due_date" db:"next_due_date"`
}

type CustomerBalanceResponse struct {
	CustomerID   string            `json:"customer_id"`
	Contracts    []ContractBalance `json:"contracts"`
	TotalBalance decimal.Decimal   `json:"total_balance"`
}
