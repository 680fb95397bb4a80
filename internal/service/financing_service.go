package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mpcredit/financing-engine/internal/domain"
	"github.com/mpcredit/financing-engine/internal/lock"
	"github.com/mpcredit/financing-engine/internal/logger"
	"github.com/mpcredit/financing-engine/internal/metrics"
	"github.com/mpcredit/financing-engine/internal/plan"
	"github.com/mpcredit/financing-engine/internal/repository"
	"github.com/mpcredit/financing-engine/internal/settlement"
	customError "github.com/mpcredit/financing-engine/pkg/errors"
	"github.com/mpcredit/financing-engine/pkg/utils"
)

const moduleName = "service"

// maxDownPaymentRatio is the largest share of the base amount a customer may pay up front.
var maxDownPaymentRatio = decimal.NewFromFloat(0.5)

type FinancingService struct {
	PlanRepo     repository.PlanRepository
	ContractRepo repository.ContractRepository
	PaymentRepo  repository.PaymentRepository
	Cache        repository.ContractCache
	Locker       lock.Locker
	Metrics      *metrics.Recorder
	Logger       logrus.FieldLogger

	now func() time.Time
}

func NewFinancingService(
	planRepo repository.PlanRepository,
	contractRepo repository.ContractRepository,
	paymentRepo repository.PaymentRepository,
	cache repository.ContractCache,
	locker lock.Locker,
	recorder *metrics.Recorder,
	log logrus.FieldLogger,
) *FinancingService {
	if cache == nil {
		cache = repository.NoopContractCache{}
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &FinancingService{
		PlanRepo:     planRepo,
		ContractRepo: contractRepo,
		PaymentRepo:  paymentRepo,
		Cache:        cache,
		Locker:       locker,
		Metrics:      recorder,
		Logger:       log,
		now:          time.Now,
	}
}

func (s *FinancingService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// CreatePlanTemplate stores a new financing plan offered at the branches
func (s *FinancingService) CreatePlanTemplate(ctx context.Context, request *domain.CreatePlanTemplateRequest) (*domain.PaymentPlanTemplate, error) {
	if request.DurationWeeks < 1 {
		return nil, customError.WrapInvalidPlanParameters("duration_weeks must be greater than 0")
	}
	if request.InterestRatePercent.IsNegative() {
		return nil, customError.WrapInvalidPlanParameters("interest_rate_percent must not be negative")
	}
	if request.DownPayment.IsNegative() {
		return nil, customError.WrapInvalidPlanParameters("down_payment must not be negative")
	}

	now := s.clock()
	template := &domain.PaymentPlanTemplate{
		ID:                  uuid.New(),
		Name:                request.Name,
		DurationWeeks:       request.DurationWeeks,
		InterestRatePercent: request.InterestRatePercent,
		DownPayment:         request.DownPayment,
		LastInstallment:     decimal.Zero,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.PlanRepo.Create(ctx, template); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return template, nil
}

// GetPlanTemplate returns a single plan template
func (s *FinancingService) GetPlanTemplate(ctx context.Context, planID uuid.UUID) (*domain.PaymentPlanTemplate, error) {
	template, err := s.PlanRepo.GetByID(ctx, planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPlanNotFound(planID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return template, nil
}

// ListPlanTemplates returns every plan template
func (s *FinancingService) ListPlanTemplates(ctx context.Context) ([]*domain.PaymentPlanTemplate, error) {
	templates, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return templates, nil
}

// CalculatePlan previews the schedule of a template for the given sale
// amounts and stores the resulting last installment on the template.
func (s *FinancingService) CalculatePlan(ctx context.Context, planID uuid.UUID, request *domain.CalculatePlanRequest) (*domain.CalculatePlanResponse, error) {
	template, err := s.GetPlanTemplate(ctx, planID)
	if err != nil {
		return nil, err
	}

	baseAmount, downPayment := resolveAmounts(template, request.TotalPrice, request.BaseAmount, request.DownPayment)
	if err := validateFinancingAmounts(request.TotalPrice, baseAmount, downPayment); err != nil {
		return nil, err
	}

	result, err := plan.Compute(*template, request.TotalPrice, downPayment, baseAmount)
	if err != nil {
		return nil, err
	}

	if err := s.PlanRepo.UpdateLastInstallment(ctx, template.ID, result.LastInstallment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	template.LastInstallment = result.LastInstallment

	return &domain.CalculatePlanResponse{Plan: template, Result: result}, nil
}

// CreateContract validates the sale against the plan template, computes the
// schedule and freezes it into a new contract.
func (s *FinancingService) CreateContract(ctx context.Context, request *domain.CreateContractRequest) (*domain.CreateContractResponse, error) {
	template, err := s.GetPlanTemplate(ctx, request.PlanTemplateID)
	if err != nil {
		return nil, err
	}

	baseAmount, downPayment := resolveAmounts(template, request.TotalPrice, request.BaseAmount, request.DownPayment)
	if err := validateFinancingAmounts(request.TotalPrice, baseAmount, downPayment); err != nil {
		return nil, err
	}

	result, err := plan.Compute(*template, request.TotalPrice, downPayment, baseAmount)
	if err != nil {
		return nil, err
	}
	if !result.AmountFinanced.IsPositive() {
		return nil, customError.WrapInvalidPlanParameters("amount to finance must be greater than 0")
	}

	now := s.clock()
	contract := &domain.FinancingContract{
		ID:                  uuid.New(),
		CustomerID:          request.CustomerID,
		PlanTemplateID:      template.ID,
		PlanName:            template.Name,
		TotalPrice:          request.TotalPrice,
		BaseAmount:          baseAmount,
		DownPaymentPaid:     downPayment,
		InterestRatePercent: template.InterestRatePercent,
		DurationWeeks:       template.DurationWeeks,
		AmountFinanced:      result.AmountFinanced,
		WeeklyInstallment:   result.WeeklyInstallment,
		FinalInstallment:    result.LastInstallment,
		WeeksRemaining:      template.DurationWeeks,
		RemainingBalance:    result.AmountFinanced,
		NextDueDate:         utils.AddWeeks(now, 1),
		DebtState:           domain.DebtStateCurrent,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.ContractRepo.Create(ctx, contract); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.Metrics.ContractCreated()
	s.Logger.WithFields(logrus.Fields{
		"contract_id":        contract.ID,
		"customer_id":        contract.CustomerID,
		"plan":               contract.PlanName,
		"amount_financed":    contract.AmountFinanced,
		"weekly_installment": contract.WeeklyInstallment,
		"final_installment":  contract.FinalInstallment,
	}).Info("contract created")

	return &domain.CreateContractResponse{Contract: contract, Plan: result}, nil
}

// GetContract returns a contract, served from cache when possible
func (s *FinancingService) GetContract(ctx context.Context, contractID uuid.UUID) (*domain.FinancingContract, error) {
	if cached, ok, err := s.Cache.Get(ctx, contractID); err != nil {
		logger.LogError(s.Logger, moduleName, "GetContract", "read contract cache", contractID, customError.WrapCacheError(err))
	} else if ok {
		return cached, nil
	}

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	// The cache keeps whichever copy has the higher version, so a read racing
	// a payment cannot overwrite the newer contract.
	if err := s.Cache.Set(ctx, contract); err != nil {
		logger.LogError(s.Logger, moduleName, "GetContract", "write contract cache", contractID, customError.WrapCacheError(err))
	}

	return contract, nil
}

// SignContract records the hash of the signed contract document
func (s *FinancingService) SignContract(ctx context.Context, contractID uuid.UUID, request *domain.SignContractRequest) (*domain.FinancingContract, error) {
	signedAt := s.clock()
	if request.SignedAt != nil {
		signedAt = request.SignedAt.UTC()
	}

	err := s.ContractRepo.Sign(ctx, contractID, request.ContractHash, signedAt, s.clock())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapContractNotFound(contractID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	s.refreshCache(ctx, "SignContract", contract)

	return contract, nil
}

// RegisterPayment applies a payment to the contract's balance. The whole
// read-validate-write cycle runs under the contract's lock and the write is
// a compare-and-swap on the contract version.
func (s *FinancingService) RegisterPayment(ctx context.Context, contractID uuid.UUID, request *domain.RegisterPaymentRequest) (*domain.PaymentOutcome, error) {
	if !request.Method.Valid() {
		s.Metrics.PaymentRejected(customError.ErrCodeInvalidPaymentMethod)
		return nil, customError.WrapInvalidPaymentMethod(string(request.Method))
	}

	release, err := s.Locker.Acquire(ctx, contractID.String())
	if err != nil {
		logger.LogError(s.Logger, moduleName, "RegisterPayment", "acquire contract lock", contractID, err)
		return nil, customError.WrapContractLocked(contractID.String())
	}
	defer release()

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	expectedVersion := contract.Version

	result, err := settlement.Apply(contract, request.Amount, request.Method, s.clock())
	if err != nil {
		var be *customError.BusinessError
		if errors.As(err, &be) {
			s.Metrics.PaymentRejected(be.Code)
		}
		s.Logger.WithFields(logrus.Fields{
			"contract_id": contractID,
			"amount":      request.Amount,
			"reason":      err.Error(),
		}).Info("payment rejected")
		return nil, err
	}

	err = s.ContractRepo.SaveSettlement(ctx, contract, expectedVersion, result.Payment)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, customError.WrapConcurrentUpdate(contractID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.refreshCache(ctx, "RegisterPayment", contract)

	s.Metrics.PaymentAccepted(string(request.Method), result.DebtState.IsTerminal())

	s.Logger.WithFields(logrus.Fields{
		"contract_id":       contractID,
		"payment_id":        result.Payment.ID,
		"amount":            request.Amount,
		"weeks_covered":     result.WeeksCovered,
		"remaining_balance": result.RemainingBalance,
		"debt_state":        result.DebtState,
	}).Info("payment registered")

	history, err := s.PaymentRepo.GetByContractID(ctx, contractID)
	if err != nil {
		// The payment is committed; fall back to the record we just wrote.
		logger.LogError(s.Logger, moduleName, "RegisterPayment", "load payment history", contractID, err)
		history = []*domain.PaymentRecord{result.Payment}
	}

	return &domain.PaymentOutcome{
		ContractID:       contractID,
		Payment:          result.Payment,
		WeeksCovered:     result.WeeksCovered,
		RemainingBalance: result.RemainingBalance,
		WeeksRemaining:   result.WeeksRemaining,
		NextDueDate:      result.NextDueDate,
		DebtState:        result.DebtState,
		History:          history,
	}, nil
}

// GetPaymentHistory returns the payments of a contract, most recent first
func (s *FinancingService) GetPaymentHistory(ctx context.Context, contractID uuid.UUID) ([]*domain.PaymentRecord, error) {
	if _, err := s.loadContract(ctx, contractID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByContractID(ctx, contractID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return payments, nil
}

// GetCustomerBalance sums the remaining balance of every contract of a customer
func (s *FinancingService) GetCustomerBalance(ctx context.Context, customerID string) (*domain.CustomerBalanceResponse, error) {
	balances, err := s.ContractRepo.ListBalancesByCustomer(ctx, customerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.RemainingBalance)
	}

	return &domain.CustomerBalanceResponse{
		CustomerID:   customerID,
		Contracts:    balances,
		TotalBalance: total,
	}, nil
}

// MarkOverdueContracts moves every CURRENT contract whose due date passed
// before now to OVERDUE and returns how many changed. Contracts that are busy
// or changed underneath are skipped; the next run picks them up.
func (s *FinancingService) MarkOverdueContracts(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.ContractRepo.ListDueBefore(ctx, domain.DebtStateCurrent, now)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	marked := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return marked, err
		}

		changed, err := s.markOverdue(ctx, candidate.ID, now)
		if err != nil {
			logger.LogError(s.Logger, moduleName, "MarkOverdueContracts", "mark contract overdue", candidate.ID, err)
			continue
		}
		if changed {
			marked++
		}
	}

	s.Metrics.ContractsMarkedOverdue(marked)
	s.Logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"marked":     marked,
	}).Info("overdue sweep finished")

	return marked, nil
}

func (s *FinancingService) markOverdue(ctx context.Context, contractID uuid.UUID, now time.Time) (bool, error) {
	release, err := s.Locker.Acquire(ctx, contractID.String())
	if err != nil {
		return false, err
	}
	defer release()

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return false, err
	}
	expectedVersion := contract.Version

	if !settlement.MarkOverdue(contract, now) {
		return false, nil
	}

	if err := s.ContractRepo.SaveSettlement(ctx, contract, expectedVersion, nil); err != nil {
		return false, err
	}
	s.refreshCache(ctx, "MarkOverdueContracts", contract)

	s.Logger.WithFields(logrus.Fields{
		"contract_id":  contractID,
		"due_date":     contract.NextDueDate,
		"weeks_behind": utils.WeeksOverdue(contract.NextDueDate, now),
	}).Info("contract marked overdue")

	return true, nil
}

// UpcomingDue lists CURRENT contracts falling due between now and now+within.
func (s *FinancingService) UpcomingDue(ctx context.Context, now time.Time, within time.Duration) ([]*domain.FinancingContract, error) {
	contracts, err := s.ContractRepo.ListDueBefore(ctx, domain.DebtStateCurrent, now.Add(within))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	upcoming := make([]*domain.FinancingContract, 0, len(contracts))
	for _, c := range contracts {
		if !utils.IsDateOverdue(c.NextDueDate, now) {
			upcoming = append(upcoming, c)
		}
	}

	return upcoming, nil
}

func (s *FinancingService) loadContract(ctx context.Context, contractID uuid.UUID) (*domain.FinancingContract, error) {
	contract, err := s.ContractRepo.GetByID(ctx, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapContractNotFound(contractID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return contract, nil
}

// refreshCache stores the freshly written contract; if that fails the entry is
// dropped so readers fall back to the database.
func (s *FinancingService) refreshCache(ctx context.Context, funcName string, contract *domain.FinancingContract) {
	err := s.Cache.Set(ctx, contract)
	if err == nil {
		return
	}
	logger.LogError(s.Logger, moduleName, funcName, "refresh contract cache", contract.ID, customError.WrapCacheError(err))

	if err := s.Cache.Invalidate(ctx, contract.ID); err != nil {
		logger.LogError(s.Logger, moduleName, funcName, "invalidate contract cache", contract.ID, customError.WrapCacheError(err))
	}
}

// resolveAmounts fills in the optional sale amounts: the base defaults to the
// total price and the down payment to the template's.
func resolveAmounts(template *domain.PaymentPlanTemplate, totalPrice decimal.Decimal, baseAmount, downPayment *decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	base := totalPrice
	if baseAmount != nil {
		base = *baseAmount
	}

	down := template.DownPayment
	if downPayment != nil {
		down = *downPayment
	}

	return base, down
}

// validateFinancingAmounts enforces the sale-time rules the calculator trusts.
func validateFinancingAmounts(totalPrice, baseAmount, downPayment decimal.Decimal) error {
	if !totalPrice.IsPositive() {
		return customError.WrapInvalidPlanParameters("total_price must be greater than 0")
	}
	if !baseAmount.IsPositive() {
		return customError.WrapInvalidPlanParameters("base_amount must be greater than 0")
	}
	if downPayment.IsNegative() {
		return customError.WrapInvalidPlanParameters("down_payment must not be negative")
	}
	if downPayment.GreaterThan(baseAmount.Mul(maxDownPaymentRatio)) {
		return customError.WrapInvalidPlanParameters("down_payment must not exceed half of base_amount")
	}

	return nil
}
