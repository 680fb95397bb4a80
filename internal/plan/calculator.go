// Package plan computes integer weekly installment schedules.
package plan

import (
	"github.com/mpcredit/financing-engine/internal/domain"
	customError "github.com/mpcredit/financing-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundHalfUp rounds to a whole currency unit with ties going away from zero.
// It is the only rounding rule applied to financed amounts.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// AmountToFinance returns base - down, inflated by the interest rate and
// rounded to a whole unit.
func AmountToFinance(baseAmount, downPayment, interestRatePercent decimal.Decimal) decimal.Decimal {
	amount := baseAmount.Sub(downPayment)
	if interestRatePercent.GreaterThan(decimal.Zero) {
		amount = amount.Mul(decimal.NewFromInt(1).Add(interestRatePercent.Div(hundred)))
	}
	return RoundHalfUp(amount)
}

// Split divides amount into weeks whole installments. Every installment but
// the last equals floor(amount/weeks); the last absorbs the remainder so the
// installments always add up to amount exactly.
func Split(amount decimal.Decimal, weeks int) (base decimal.Decimal, installments []decimal.Decimal) {
	base, remainder := amount.QuoRem(decimal.NewFromInt(int64(weeks)), 0)

	installments = make([]decimal.Decimal, weeks)
	for i := 0; i < weeks-1; i++ {
		installments[i] = base
	}
	installments[weeks-1] = base.Add(remainder)

	return base, installments
}

// Compute builds the schedule for a template and the actual sale amounts.
// Down-payment limits are checked by the caller; only the parameters that
// would make the arithmetic meaningless are rejected here.
func Compute(template domain.PaymentPlanTemplate, totalPrice, downPayment, baseAmount decimal.Decimal) (*domain.PlanResult, error) {
	if template.DurationWeeks <= 0 {
		return nil, customError.WrapInvalidPlanParameters("duration_weeks must be greater than 0")
	}
	if totalPrice.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidPlanParameters("total_price must be greater than 0")
	}

	amountToFinance := AmountToFinance(baseAmount, downPayment, template.InterestRatePercent)
	weekly, installments := Split(amountToFinance, template.DurationWeeks)

	return &domain.PlanResult{
		PlanName:            template.Name,
		DurationWeeks:       template.DurationWeeks,
		InterestRatePercent: template.InterestRatePercent,
		DownPayment:         downPayment,
		TotalPrice:          totalPrice,
		AmountFinanced:      amountToFinance,
		WeeklyInstallment:   weekly,
		Installments:        installments,
		LastInstallment:     installments[len(installments)-1],
		TotalPaid:           downPayment.Add(Sum(installments)),
	}, nil
}

// Sum adds up installments.
func Sum(installments []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, i := range installments {
		total = total.Add(i)
	}
	return total
}
