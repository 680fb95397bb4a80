package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpcredit/financing-engine/internal/domain"
	customError "github.com/mpcredit/financing-engine/pkg/errors"
)

var (
	now     = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	dueDate = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newContract(weekly, final, balance int64, weeks int) *domain.FinancingContract {
	return &domain.FinancingContract{
		ID:                uuid.New(),
		CustomerID:        "MP-UR6279",
		WeeklyInstallment: dec(weekly),
		FinalInstallment:  dec(final),
		RemainingBalance:  dec(balance),
		WeeksRemaining:    weeks,
		NextDueDate:       dueDate,
		DebtState:         domain.DebtStateCurrent,
	}
}

func TestApply_Accepted(t *testing.T) {
	tests := []struct {
		name            string
		contract        *domain.FinancingContract
		amount          int64
		expectedWeeks   int
		expectedBalance int64
		expectedLeft    int
		expectedDueDays int
		expectedState   domain.DebtState
	}{
		{
			name:            "two weekly installments",
			contract:        newContract(225, 225, 900, 4),
			amount:          450,
			expectedWeeks:   2,
			expectedBalance: 450,
			expectedLeft:    2,
			expectedDueDays: 14,
			expectedState:   domain.DebtStateCurrent,
		},
		{
			name:            "single weekly installment",
			contract:        newContract(333, 334, 1000, 3),
			amount:          333,
			expectedWeeks:   1,
			expectedBalance: 667,
			expectedLeft:    2,
			expectedDueDays: 7,
			expectedState:   domain.DebtStateCurrent,
		},
		{
			name:            "last week equals balance and final installment",
			contract:        newContract(225, 225, 225, 1),
			amount:          225,
			expectedWeeks:   1,
			expectedBalance: 0,
			expectedLeft:    0,
			expectedDueDays: 7,
			expectedState:   domain.DebtStateSettled,
		},
		{
			name:            "full payoff ignores alignment",
			contract:        newContract(333, 334, 667, 2),
			amount:          667,
			expectedWeeks:   2,
			expectedBalance: 0,
			expectedLeft:    0,
			expectedDueDays: 14,
			expectedState:   domain.DebtStateSettled,
		},
		{
			name:            "final installment closes the schedule",
			contract:        newContract(333, 334, 334, 1),
			amount:          334,
			expectedWeeks:   1,
			expectedBalance: 0,
			expectedLeft:    0,
			expectedDueDays: 7,
			expectedState:   domain.DebtStateSettled,
		},
		{
			name:            "weekly equal to final installment keeps the schedule open",
			contract:        newContract(225, 225, 900, 4),
			amount:          225,
			expectedWeeks:   1,
			expectedBalance: 675,
			expectedLeft:    3,
			expectedDueDays: 7,
			expectedState:   domain.DebtStateCurrent,
		},
		{
			name:            "multiples short of the balance leave the last week open",
			contract:        newContract(247, 249, 990, 4),
			amount:          988,
			expectedWeeks:   3,
			expectedBalance: 2,
			expectedLeft:    1,
			expectedDueDays: 21,
			expectedState:   domain.DebtStateCurrent,
		},
		{
			name:            "overpaying multiple floors balance at zero",
			contract:        newContract(100, 50, 150, 2),
			amount:          200,
			expectedWeeks:   2,
			expectedBalance: 0,
			expectedLeft:    0,
			expectedDueDays: 14,
			expectedState:   domain.DebtStateSettled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contractID := tt.contract.ID

			result, err := Apply(tt.contract, dec(tt.amount), domain.PaymentMethodCash, now)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedWeeks, result.WeeksCovered)
			assert.True(t, result.RemainingBalance.Equal(dec(tt.expectedBalance)), "balance %s", result.RemainingBalance)
			assert.Equal(t, tt.expectedLeft, result.WeeksRemaining)
			assert.Equal(t, dueDate.AddDate(0, 0, tt.expectedDueDays), result.NextDueDate)
			assert.Equal(t, tt.expectedState, result.DebtState)

			assert.True(t, tt.contract.RemainingBalance.Equal(result.RemainingBalance))
			assert.Equal(t, tt.expectedLeft, tt.contract.WeeksRemaining)
			assert.Equal(t, tt.expectedState, tt.contract.DebtState)

			require.NotNil(t, result.Payment)
			assert.Equal(t, contractID, result.Payment.ContractID)
			assert.True(t, result.Payment.Amount.Equal(dec(tt.amount)))
			assert.Equal(t, domain.PaymentMethodCash, result.Payment.Method)
			assert.Equal(t, tt.expectedWeeks, result.Payment.WeeksCovered)
			assert.Equal(t, now, result.Payment.RecordedAt)
		})
	}
}

func TestApply_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		contract    *domain.FinancingContract
		amount      decimal.Decimal
		expectedErr error
	}{
		{
			name:        "not a multiple nor final installment",
			contract:    newContract(225, 225, 900, 4),
			amount:      dec(300),
			expectedErr: customError.ErrMisalignedPaymentAmount,
		},
		{
			name:        "below weekly installment",
			contract:    newContract(225, 225, 900, 4),
			amount:      dec(100),
			expectedErr: customError.ErrMisalignedPaymentAmount,
		},
		{
			name:        "fractional amount",
			contract:    newContract(225, 225, 900, 4),
			amount:      decimal.RequireFromString("225.50"),
			expectedErr: customError.ErrMisalignedPaymentAmount,
		},
		{
			name:        "zero amount",
			contract:    newContract(225, 225, 900, 4),
			amount:      decimal.Zero,
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:        "negative amount",
			contract:    newContract(225, 225, 900, 4),
			amount:      dec(-225),
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name: "already settled",
			contract: func() *domain.FinancingContract {
				c := newContract(225, 225, 0, 0)
				c.DebtState = domain.DebtStateSettled
				return c
			}(),
			amount:      dec(225),
			expectedErr: customError.ErrContractAlreadySettled,
		},
		{
			name:        "final installment before the last week",
			contract:    newContract(247, 249, 496, 2),
			amount:      dec(249),
			expectedErr: customError.ErrMisalignedPaymentAmount,
		},
		{
			name:        "zero weekly installment only takes final or payoff",
			contract:    newContract(0, 3, 3, 4),
			amount:      dec(1),
			expectedErr: customError.ErrMisalignedPaymentAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.contract

			result, err := Apply(tt.contract, tt.amount, domain.PaymentMethodCard, now)

			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
			assert.Equal(t, before, *tt.contract)
		})
	}
}

func TestApply_MisalignedReportsMinimum(t *testing.T) {
	contract := newContract(225, 225, 900, 4)

	_, err := Apply(contract, dec(300), domain.PaymentMethodCash, now)

	var be *customError.BusinessError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, customError.ErrCodeMisalignedPaymentAmount, be.Code)
	minimum, ok := be.Details["minimum_amount"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, minimum.Equal(dec(225)))
}

func TestApply_OverdueReturnsToCurrent(t *testing.T) {
	contract := newContract(225, 225, 900, 4)
	contract.DebtState = domain.DebtStateOverdue

	result, err := Apply(contract, dec(225), domain.PaymentMethodTransfer, now)
	require.NoError(t, err)

	assert.Equal(t, domain.DebtStateCurrent, result.DebtState)
	assert.Equal(t, domain.DebtStateCurrent, contract.DebtState)
}

func TestApply_ZeroDueDateStartsFromNow(t *testing.T) {
	contract := newContract(225, 225, 900, 4)
	contract.NextDueDate = time.Time{}

	result, err := Apply(contract, dec(225), domain.PaymentMethodCash, now)
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 0, 7), result.NextDueDate)
}

func TestApply_SequenceIsMonotonic(t *testing.T) {
	contract := newContract(333, 334, 1000, 3)
	payments := []int64{333, 333, 334}

	previousBalance := contract.RemainingBalance
	previousDue := contract.NextDueDate

	for _, amount := range payments {
		result, err := Apply(contract, dec(amount), domain.PaymentMethodCash, now)
		require.NoError(t, err)

		assert.True(t, result.RemainingBalance.LessThanOrEqual(previousBalance))
		assert.False(t, result.RemainingBalance.IsNegative())
		assert.True(t, result.NextDueDate.Sub(previousDue) >= 7*24*time.Hour)

		previousBalance = result.RemainingBalance
		previousDue = result.NextDueDate
	}

	assert.True(t, contract.RemainingBalance.IsZero())
	assert.Equal(t, 0, contract.WeeksRemaining)
	assert.Equal(t, domain.DebtStateSettled, contract.DebtState)

	_, err := Apply(contract, dec(333), domain.PaymentMethodCash, now)
	assert.True(t, errors.Is(err, customError.ErrContractAlreadySettled))
}

func TestApply_PayoffAfterIrregularHistory(t *testing.T) {
	contract := newContract(225, 230, 905, 4)

	_, err := Apply(contract, dec(300), domain.PaymentMethodCash, now)
	require.Error(t, err)

	_, err = Apply(contract, dec(450), domain.PaymentMethodCash, now)
	require.NoError(t, err)

	result, err := Apply(contract, dec(455), domain.PaymentMethodCash, now)
	require.NoError(t, err)

	assert.Equal(t, domain.DebtStateSettled, result.DebtState)
	assert.Equal(t, 0, result.WeeksRemaining)
	assert.True(t, result.RemainingBalance.IsZero())
}

func TestMarkOverdue(t *testing.T) {
	tests := []struct {
		name          string
		state         domain.DebtState
		balance       int64
		at            time.Time
		expected      bool
		expectedState domain.DebtState
	}{
		{name: "past due current", state: domain.DebtStateCurrent, balance: 900, at: dueDate.Add(time.Hour), expected: true, expectedState: domain.DebtStateOverdue},
		{name: "not yet due", state: domain.DebtStateCurrent, balance: 900, at: dueDate.Add(-time.Hour), expected: false, expectedState: domain.DebtStateCurrent},
		{name: "already overdue", state: domain.DebtStateOverdue, balance: 900, at: dueDate.Add(time.Hour), expected: false, expectedState: domain.DebtStateOverdue},
		{name: "settled never leaves", state: domain.DebtStateSettled, balance: 0, at: dueDate.Add(time.Hour), expected: false, expectedState: domain.DebtStateSettled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := newContract(225, 225, tt.balance, 4)
			contract.DebtState = tt.state

			assert.Equal(t, tt.expected, MarkOverdue(contract, tt.at))
			assert.Equal(t, tt.expectedState, contract.DebtState)
		})
	}
}

func TestApply_EvenScheduleCollectsEveryWeek(t *testing.T) {
	contract := newContract(225, 225, 900, 4)

	for week := 1; week <= 4; week++ {
		result, err := Apply(contract, dec(225), domain.PaymentMethodCash, now)
		require.NoError(t, err, "week %d", week)

		assert.True(t, result.RemainingBalance.Equal(dec(int64(900-225*week))))
		assert.Equal(t, 4-week, result.WeeksRemaining)
		assert.Equal(t, result.RemainingBalance.IsZero(), result.DebtState == domain.DebtStateSettled)
	}

	_, err := Apply(contract, dec(225), domain.PaymentMethodCash, now)
	assert.True(t, errors.Is(err, customError.ErrContractAlreadySettled))
}

func TestApply_StaleSettledStateWithBalanceIsCollectable(t *testing.T) {
	contract := newContract(225, 225, 675, 3)
	contract.DebtState = domain.DebtStateSettled

	result, err := Apply(contract, dec(675), domain.PaymentMethodCash, now)
	require.NoError(t, err)

	assert.True(t, result.RemainingBalance.IsZero())
	assert.Equal(t, domain.DebtStateSettled, result.DebtState)
}
