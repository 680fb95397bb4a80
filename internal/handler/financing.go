package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mpcredit/financing-engine/internal/domain"
	"github.com/mpcredit/financing-engine/pkg/response"
)

// FinancingService is the use-case surface the HTTP layer needs.
type FinancingService interface {
	CreatePlanTemplate(ctx context.Context, request *domain.CreatePlanTemplateRequest) (*domain.PaymentPlanTemplate, error)
	GetPlanTemplate(ctx context.Context, planID uuid.UUID) (*domain.PaymentPlanTemplate, error)
	ListPlanTemplates(ctx context.Context) ([]*domain.PaymentPlanTemplate, error)
	CalculatePlan(ctx context.Context, planID uuid.UUID, request *domain.CalculatePlanRequest) (*domain.CalculatePlanResponse, error)
	CreateContract(ctx context.Context, request *domain.CreateContractRequest) (*domain.CreateContractResponse, error)
	GetContract(ctx context.Context, contractID uuid.UUID) (*domain.FinancingContract, error)
	SignContract(ctx context.Context, contractID uuid.UUID, request *domain.SignContractRequest) (*domain.FinancingContract, error)
	RegisterPayment(ctx context.Context, contractID uuid.UUID, request *domain.RegisterPaymentRequest) (*domain.PaymentOutcome, error)
	GetPaymentHistory(ctx context.Context, contractID uuid.UUID) ([]*domain.PaymentRecord, error)
	GetCustomerBalance(ctx context.Context, customerID string) (*domain.CustomerBalanceResponse, error)
}

type FinancingHandler struct {
	service   FinancingService
	validator *validator.Validate
	logger    logrus.FieldLogger
}

func NewFinancingHandler(service FinancingService, logger logrus.FieldLogger) *FinancingHandler {
	return &FinancingHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the financing API on router under /api/v1.
func (h *FinancingHandler) RegisterRoutes(router *mux.Router) {
	router.NotFoundHandler = http.HandlerFunc(routeNotFound)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/plans", h.CreatePlanTemplate).Methods(http.MethodPost)
	api.HandleFunc("/plans", h.ListPlanTemplates).Methods(http.MethodGet)
	api.HandleFunc("/plans/{planId}", h.GetPlanTemplate).Methods(http.MethodGet)
	api.HandleFunc("/plans/{planId}/calculate", h.CalculatePlan).Methods(http.MethodPost)

	api.HandleFunc("/contracts", h.CreateContract).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{contractId}", h.GetContract).Methods(http.MethodGet)
	api.HandleFunc("/contracts/{contractId}/sign", h.SignContract).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{contractId}/payments", h.RegisterPayment).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{contractId}/payments", h.GetPaymentHistory).Methods(http.MethodGet)

	api.HandleFunc("/customers/{customerId}/balance", h.GetCustomerBalance).Methods(http.MethodGet)
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, "Route not found: "+r.URL.Path)
}

func (h *FinancingHandler) CreatePlanTemplate(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePlanTemplateRequest
	if !h.decode(w, r, &request) {
		return
	}

	template, err := h.service.CreatePlanTemplate(r.Context(), &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, template)
}

func (h *FinancingHandler) ListPlanTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListPlanTemplates(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, templates)
}

func (h *FinancingHandler) GetPlanTemplate(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "planId")
	if !ok {
		return
	}

	template, err := h.service.GetPlanTemplate(r.Context(), planID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, template)
}

func (h *FinancingHandler) CalculatePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "planId")
	if !ok {
		return
	}

	var request domain.CalculatePlanRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.CalculatePlan(r.Context(), planID, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, result)
}

func (h *FinancingHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateContractRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.CreateContract(r.Context(), &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}

func (h *FinancingHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathID(w, r, "contractId")
	if !ok {
		return
	}

	contract, err := h.service.GetContract(r.Context(), contractID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, contract)
}

func (h *FinancingHandler) SignContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathID(w, r, "contractId")
	if !ok {
		return
	}

	var request domain.SignContractRequest
	if !h.decode(w, r, &request) {
		return
	}

	contract, err := h.service.SignContract(r.Context(), contractID, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, contract)
}

func (h *FinancingHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathID(w, r, "contractId")
	if !ok {
		return
	}

	var request domain.RegisterPaymentRequest
	if !h.decode(w, r, &request) {
		return
	}

	outcome, err := h.service.RegisterPayment(r.Context(), contractID, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, outcome)
}

func (h *FinancingHandler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathID(w, r, "contractId")
	if !ok {
		return
	}

	payments, err := h.service.GetPaymentHistory(r.Context(), contractID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, payments)
}

func (h *FinancingHandler) GetCustomerBalance(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]
	if customerID == "" {
		response.BadRequest(w, "customerId is required", nil)
		return
	}

	balance, err := h.service.GetCustomerBalance(r.Context(), customerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, balance)
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure.
func (h *FinancingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func (h *FinancingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Warn("request failed")

	response.BusinessError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}
