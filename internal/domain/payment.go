package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer paid at the branch.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether m is one of the accepted methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// PaymentRecord is an append-only ledger entry; it is never updated or deleted.
type PaymentRecord struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ContractID   uuid.UUID       `json:"contract_id" db:"contract_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Method       PaymentMethod   `json:"method" db:"method"`
	WeeksCovered int             `json:"weeks_covered" db:"weeks_covered"`
	RecordedAt   time.Time       `json:"recorded_at" db:"recorded_at"`
}

type RegisterPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Method PaymentMethod   `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
}

// PaymentOutcome is what the caller gets back after an accepted payment.
type PaymentOutcome struct {
	ContractID       uuid.UUID        `json:"contract_id"`
	Payment          *PaymentRecord   `json:"payment"`
	WeeksCovered     int              `json:"weeks_covered"`
	RemainingBalance decimal.Decimal  `json:"remaining_balance"`
	WeeksRemaining   int              `json:"weeks_remaining"`
	NextDueDate      time.Time        `json:"next_due_date"`
	DebtState        DebtState        `json:"debt_state"`
	History          []*PaymentRecord `json:"history"`
}
