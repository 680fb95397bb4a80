package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mpcredit/financing-engine/internal/domain"
	"github.com/mpcredit/financing-engine/internal/mocks"
	customError "github.com/mpcredit/financing-engine/pkg/errors"
)

func newRouter(svc *mocks.MockFinancingService) *mux.Router {
	log, _ := logtest.NewNullLogger()
	router := mux.NewRouter()
	NewFinancingHandler(svc, log).RegisterRoutes(router)
	return router
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFinancingHandler_RegisterPayment(t *testing.T) {
	contractID := uuid.New()
	path := "/api/v1/contracts/" + contractID.String() + "/payments"

	tests := []struct {
		name           string
		path           string
		requestBody    interface{}
		setupMock      func(*mocks.MockFinancingService)
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "accepted payment",
			path:        path,
			requestBody: map[string]interface{}{"amount": "494", "method": "CASH"},
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("RegisterPayment", mock.Anything, contractID, mock.MatchedBy(func(req *domain.RegisterPaymentRequest) bool {
					return req.Amount.Equal(decimal.NewFromInt(494)) && req.Method == domain.PaymentMethodCash
				})).Return(&domain.PaymentOutcome{
					ContractID:       contractID,
					WeeksCovered:     2,
					RemainingBalance: decimal.NewFromInt(496),
					WeeksRemaining:   2,
					DebtState:        domain.DebtStateCurrent,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var wrapper struct {
					Success bool                  `json:"success"`
					Data    domain.PaymentOutcome `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapper))
				assert.True(t, wrapper.Success)
				assert.Equal(t, 2, wrapper.Data.WeeksCovered)
				assert.True(t, wrapper.Data.RemainingBalance.Equal(decimal.NewFromInt(496)))
			},
		},
		{
			name:        "misaligned amount carries minimum",
			path:        path,
			requestBody: map[string]interface{}{"amount": "300", "method": "CARD"},
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("RegisterPayment", mock.Anything, contractID, mock.Anything).
					Return(nil, customError.WrapMisalignedPayment(decimal.NewFromInt(300), decimal.NewFromInt(247), decimal.NewFromInt(249))).Once()
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				body := errorBody(t, w)
				assert.Equal(t, customError.ErrCodeMisalignedPaymentAmount, body["code"])
				details := body["details"].(map[string]interface{})
				assert.Equal(t, "247", details["minimum_amount"])
			},
		},
		{
			name:        "settled contract",
			path:        path,
			requestBody: map[string]interface{}{"amount": "247", "method": "CASH"},
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("RegisterPayment", mock.Anything, contractID, mock.Anything).
					Return(nil, customError.WrapContractAlreadySettled(contractID.String())).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:        "contract not found",
			path:        path,
			requestBody: map[string]interface{}{"amount": "247", "method": "CASH"},
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("RegisterPayment", mock.Anything, contractID, mock.Anything).
					Return(nil, customError.WrapContractNotFound(contractID.String())).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "zero amount fails validation",
			path:           path,
			requestBody:    map[string]interface{}{"amount": "0", "method": "CASH"},
			setupMock:      func(m *mocks.MockFinancingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown method fails validation",
			path:           path,
			requestBody:    map[string]interface{}{"amount": "247", "method": "CHEQUE"},
			setupMock:      func(m *mocks.MockFinancingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON payload",
			path:           path,
			requestBody:    "not json",
			setupMock:      func(m *mocks.MockFinancingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid contract id",
			path:           "/api/v1/contracts/not-a-uuid/payments",
			requestBody:    map[string]interface{}{"amount": "247", "method": "CASH"},
			setupMock:      func(m *mocks.MockFinancingService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockFinancingService()
			tt.setupMock(svc)

			w := doRequest(newRouter(svc), http.MethodPost, tt.path, tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestFinancingHandler_CreatePlanTemplate(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*mocks.MockFinancingService)
		expectedStatus int
	}{
		{
			name: "created",
			requestBody: map[string]interface{}{
				"name": "Semanal 20", "duration_weeks": 20, "interest_rate_percent": "6", "down_payment": "300",
			},
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("CreatePlanTemplate", mock.Anything, mock.MatchedBy(func(req *domain.CreatePlanTemplateRequest) bool {
					return req.DurationWeeks == 20 && req.InterestRatePercent.Equal(decimal.NewFromInt(6))
				})).Return(&domain.PaymentPlanTemplate{ID: uuid.New(), Name: "Semanal 20"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "negative interest rate",
			requestBody: map[string]interface{}{
				"name": "Broken", "duration_weeks": 20, "interest_rate_percent": "-1", "down_payment": "0",
			},
			setupMock:      func(m *mocks.MockFinancingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "zero duration",
			requestBody: map[string]interface{}{
				"name": "Broken", "duration_weeks": 0, "interest_rate_percent": "0", "down_payment": "0",
			},
			setupMock:      func(m *mocks.MockFinancingService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockFinancingService()
			tt.setupMock(svc)

			w := doRequest(newRouter(svc), http.MethodPost, "/api/v1/plans", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestFinancingHandler_CalculatePlan(t *testing.T) {
	planID := uuid.New()
	svc := mocks.NewMockFinancingService()
	svc.On("CalculatePlan", mock.Anything, planID, mock.MatchedBy(func(req *domain.CalculatePlanRequest) bool {
		return req.TotalPrice.Equal(decimal.NewFromInt(1000)) && req.DownPayment == nil
	})).Return(&domain.CalculatePlanResponse{
		Plan:   &domain.PaymentPlanTemplate{ID: planID},
		Result: &domain.PlanResult{AmountFinanced: decimal.NewFromInt(990)},
	}, nil)

	w := doRequest(newRouter(svc), http.MethodPost, "/api/v1/plans/"+planID.String()+"/calculate",
		map[string]interface{}{"total_price": "1000"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestFinancingHandler_CreateContract(t *testing.T) {
	planID := uuid.New()
	svc := mocks.NewMockFinancingService()
	svc.On("CreateContract", mock.Anything, mock.MatchedBy(func(req *domain.CreateContractRequest) bool {
		return req.CustomerID == "CUST-1" && req.PlanTemplateID == planID && req.DownPayment.Equal(decimal.NewFromInt(200))
	})).Return(&domain.CreateContractResponse{Contract: &domain.FinancingContract{ID: uuid.New()}}, nil)

	w := doRequest(newRouter(svc), http.MethodPost, "/api/v1/contracts", map[string]interface{}{
		"customer_id": "CUST-1", "plan_template_id": planID, "total_price": "1000", "down_payment": "200",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)

	w = doRequest(newRouter(svc), http.MethodPost, "/api/v1/contracts", map[string]interface{}{
		"plan_template_id": planID, "total_price": "1000",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFinancingHandler_Reads(t *testing.T) {
	contractID := uuid.New()
	planID := uuid.New()

	tests := []struct {
		name           string
		path           string
		setupMock      func(*mocks.MockFinancingService)
		expectedStatus int
	}{
		{
			name: "get contract",
			path: "/api/v1/contracts/" + contractID.String(),
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("GetContract", mock.Anything, contractID).Return(&domain.FinancingContract{ID: contractID}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "payment history",
			path: "/api/v1/contracts/" + contractID.String() + "/payments",
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("GetPaymentHistory", mock.Anything, contractID).Return([]*domain.PaymentRecord{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "customer balance",
			path: "/api/v1/customers/CUST-1/balance",
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("GetCustomerBalance", mock.Anything, "CUST-1").Return(&domain.CustomerBalanceResponse{CustomerID: "CUST-1"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "list plans",
			path: "/api/v1/plans",
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("ListPlanTemplates", mock.Anything).Return([]*domain.PaymentPlanTemplate{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "missing plan",
			path: "/api/v1/plans/" + planID.String(),
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("GetPlanTemplate", mock.Anything, planID).Return(nil, customError.WrapPlanNotFound(planID.String()))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "database failure",
			path: "/api/v1/contracts/" + contractID.String(),
			setupMock: func(m *mocks.MockFinancingService) {
				m.On("GetContract", mock.Anything, contractID).Return(nil, customError.WrapDatabaseError(errors.New("timeout")))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockFinancingService()
			tt.setupMock(svc)

			w := doRequest(newRouter(svc), http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestFinancingHandler_SignContract(t *testing.T) {
	contractID := uuid.New()
	svc := mocks.NewMockFinancingService()
	svc.On("SignContract", mock.Anything, contractID, mock.MatchedBy(func(req *domain.SignContractRequest) bool {
		return req.ContractHash == "sha256:abc"
	})).Return(&domain.FinancingContract{ID: contractID}, nil)

	w := doRequest(newRouter(svc), http.MethodPost, "/api/v1/contracts/"+contractID.String()+"/sign",
		map[string]interface{}{"contract_hash": "sha256:abc"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(newRouter(svc), http.MethodPost, "/api/v1/contracts/"+contractID.String()+"/sign",
		map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestFinancingHandler_UnknownRoute(t *testing.T) {
	svc := mocks.NewMockFinancingService()

	w := doRequest(newRouter(svc), http.MethodGet, "/api/v1/devices", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := errorBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Route not found: /api/v1/devices", body["message"])
}

func TestFinancingHandler_APIResponsesAreJSON(t *testing.T) {
	svc := mocks.NewMockFinancingService()
	svc.On("ListPlanTemplates", mock.Anything).Return([]*domain.PaymentPlanTemplate{}, nil)

	w := doRequest(newRouter(svc), http.MethodGet, "/api/v1/plans", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name           string
		db             Pinger
		expectedStatus int
	}{
		{name: "database up", db: fakePinger{}, expectedStatus: http.StatusOK},
		{name: "database down", db: fakePinger{err: errors.New("refused")}, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, nil, 0)
			w := httptest.NewRecorder()

			h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestValidator_DecimalTags(t *testing.T) {
	v := newValidator()

	assert.NoError(t, v.Struct(domain.RegisterPaymentRequest{Amount: decimal.NewFromInt(1), Method: domain.PaymentMethodCash}))
	assert.Error(t, v.Struct(domain.RegisterPaymentRequest{Amount: decimal.NewFromInt(-5), Method: domain.PaymentMethodCash}))
	assert.NoError(t, v.Struct(domain.CreatePlanTemplateRequest{Name: "Zero", DurationWeeks: 1}))
}
