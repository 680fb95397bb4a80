// Package settlement applies payments to a contract's running balance.
package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpcredit/financing-engine/internal/domain"
	customError "github.com/mpcredit/financing-engine/pkg/errors"
	"github.com/mpcredit/financing-engine/pkg/utils"
)

// Result describes the effect of one accepted payment.
type Result struct {
	Payment          *domain.PaymentRecord
	WeeksCovered     int
	RemainingBalance decimal.Decimal
	WeeksRemaining   int
	NextDueDate      time.Time
	DebtState        domain.DebtState
}

// Validate checks amount against the contract's frozen schedule without
// touching the contract.
func Validate(contract *domain.FinancingContract, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return customError.WrapInvalidPaymentAmount(amount)
	}
	if contract.IsSettled() {
		return customError.WrapContractAlreadySettled(contract.ID.String())
	}

	// Paying off the whole balance is accepted regardless of alignment.
	if amount.Equal(contract.RemainingBalance) {
		return nil
	}

	weekly := contract.WeeklyInstallment
	misaligned := customError.WrapMisalignedPayment(amount, weekly, contract.FinalInstallment)

	if isFinalInstallment(contract, amount) {
		if amount.LessThan(weekly) {
			return misaligned
		}
		return nil
	}
	// A zero weekly installment only happens when the financed amount is smaller
	// than the number of weeks; then only the final installment or a payoff fit.
	if !weekly.IsPositive() || amount.LessThan(weekly) {
		return misaligned
	}
	if !amount.Mod(weekly).IsZero() {
		return misaligned
	}

	return nil
}

// Apply validates amount and, only if it is accepted, moves the contract's
// balance, week count, due date and debt state forward in one step. On
// rejection the contract is left exactly as it was and no record is produced.
func Apply(contract *domain.FinancingContract, amount decimal.Decimal, method domain.PaymentMethod, now time.Time) (*Result, error) {
	if err := Validate(contract, amount); err != nil {
		return nil, err
	}

	next := *contract

	weeksCovered := WeeksCovered(contract, amount)

	next.RemainingBalance = contract.RemainingBalance.Sub(amount)
	if next.RemainingBalance.IsNegative() {
		next.RemainingBalance = decimal.Zero
	}

	next.WeeksRemaining = contract.WeeksRemaining - weeksCovered
	if next.WeeksRemaining < 0 {
		next.WeeksRemaining = 0
	}

	if next.NextDueDate.IsZero() {
		next.NextDueDate = now
	}
	next.NextDueDate = utils.AddWeeks(next.NextDueDate, max(weeksCovered, 1))

	switch {
	case !next.RemainingBalance.IsPositive():
		next.WeeksRemaining = 0
		next.DebtState = domain.DebtStateSettled
	case next.DebtState != domain.DebtStateCurrent:
		next.DebtState = domain.DebtStateCurrent
	}
	next.UpdatedAt = now

	record := &domain.PaymentRecord{
		ID:           uuid.New(),
		ContractID:   contract.ID,
		Amount:       amount,
		Method:       method,
		WeeksCovered: weeksCovered,
		RecordedAt:   now,
	}

	*contract = next

	return &Result{
		Payment:          record,
		WeeksCovered:     weeksCovered,
		RemainingBalance: next.RemainingBalance,
		WeeksRemaining:   next.WeeksRemaining,
		NextDueDate:      next.NextDueDate,
		DebtState:        next.DebtState,
	}, nil
}

// WeeksCovered is the number of scheduled weeks an aligned payment retires.
// A payment that clears the balance closes every remaining week; one that
// leaves money owed never retires the last week.
func WeeksCovered(contract *domain.FinancingContract, amount decimal.Decimal) int {
	if amount.GreaterThanOrEqual(contract.RemainingBalance) {
		return contract.WeeksRemaining
	}

	covered := 0
	switch {
	case isFinalInstallment(contract, amount):
		covered = 1
	case contract.WeeklyInstallment.IsPositive():
		covered = int(amount.Div(contract.WeeklyInstallment).Floor().IntPart())
	}

	if covered > contract.WeeksRemaining-1 {
		covered = max(contract.WeeksRemaining-1, 0)
	}
	return covered
}

// isFinalInstallment reports whether amount is the closing installment of the
// schedule. Only the last scheduled week can take it.
func isFinalInstallment(contract *domain.FinancingContract, amount decimal.Decimal) bool {
	return contract.WeeksRemaining == 1 && amount.Equal(contract.FinalInstallment)
}

// MarkOverdue moves a CURRENT contract whose due date has passed to OVERDUE.
// It reports whether the state changed.
func MarkOverdue(contract *domain.FinancingContract, now time.Time) bool {
	if contract.DebtState.IsTerminal() || contract.DebtState == domain.DebtStateOverdue || contract.IsSettled() {
		return false
	}
	if contract.NextDueDate.IsZero() || !utils.IsDateOverdue(contract.NextDueDate, now) {
		return false
	}
	contract.DebtState = domain.DebtStateOverdue
	contract.UpdatedAt = now
	return true
}
