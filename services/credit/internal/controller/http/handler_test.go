package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"studyspot/pkg/apperror"
	"studyspot/pkg/creditclient"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/roles"
	"studyspot/services/credit/internal/entity"
	"studyspot/services/credit/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCreditUseCase struct {
	mock.Mock
}

var _ usecase.CreditUseCase = (*MockCreditUseCase)(nil)

func (m *MockCreditUseCase) ListPackages(ctx context.Context, actor roles.Actor) ([]*entity.Package, error) {
	args := m.Called(actor)
	return args.Get(0).([]*entity.Package), args.Error(1)
}

func (m *MockCreditUseCase) CreatePackage(ctx context.Context, actor roles.Actor, input usecase.PackageInput) (*entity.Package, error) {
	args := m.Called(actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Package), args.Error(1)
}

func (m *MockCreditUseCase) UpdatePackage(ctx context.Context, actor roles.Actor, id string, input usecase.PackageUpdate) (*entity.Package, error) {
	args := m.Called(actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Package), args.Error(1)
}

func (m *MockCreditUseCase) GetBalances(ctx context.Context, actor roles.Actor) ([]entity.Balance, error) {
	args := m.Called(actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Balance), args.Error(1)
}

func (m *MockCreditUseCase) SetThreshold(ctx context.Context, actor roles.Actor, creditType string, threshold int64) (*entity.Balance, error) {
	args := m.Called(actor, creditType, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Balance), args.Error(1)
}

func (m *MockCreditUseCase) Purchase(ctx context.Context, actor roles.Actor, packageID string) (*entity.Transaction, error) {
	args := m.Called(actor, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockCreditUseCase) Grant(ctx context.Context, actor roles.Actor, input usecase.MovementInput) (*entity.Transaction, error) {
	args := m.Called(actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockCreditUseCase) ListTransactions(ctx context.Context, actor roles.Actor, creditType string, limit, offset int) ([]*entity.Transaction, int64, error) {
	args := m.Called(actor, creditType, limit, offset)
	return args.Get(0).([]*entity.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockCreditUseCase) movement(method string, input usecase.MovementInput) (*entity.Balance, error) {
	args := m.MethodCalled(method, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Balance), args.Error(1)
}

func (m *MockCreditUseCase) Consume(ctx context.Context, input usecase.MovementInput) (*entity.Balance, error) {
	return m.movement("Consume", input)
}

func (m *MockCreditUseCase) Refund(ctx context.Context, input usecase.MovementInput) (*entity.Balance, error) {
	return m.movement("Refund", input)
}

func (m *MockCreditUseCase) InternalGrant(ctx context.Context, input usecase.MovementInput) (*entity.Balance, error) {
	return m.movement("InternalGrant", input)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func withActor(userID, role, tenantID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
		c.Set(middleware.ContextTenantID, tenantID)
		c.Next()
	}
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var ownerActor = roles.Actor{UserID: "o1", Role: roles.LibraryOwner, TenantID: "t1"}

func TestGetBalance(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	handler := NewCreditHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/credits/balance", withActor("o1", roles.LibraryOwner, "t1"), handler.GetBalance)

	mockUseCase.On("GetBalances", ownerActor).Return([]entity.Balance{
		{TenantID: "t1", CreditType: "sms", Balance: 50, LowBalanceThreshold: 100, Level: entity.LevelLow},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/credits/balance", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		TenantID string           `json:"tenant_id"`
		Balances []entity.Balance `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "t1", body.TenantID)
	require.Len(t, body.Balances, 1)
	assert.Equal(t, entity.LevelLow, body.Balances[0].Level)
}

func TestCreatePackage_InvalidType(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	handler := NewCreditHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/credits/packages", withActor("a1", roles.SuperAdmin, ""), handler.CreatePackage)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPost, "/credits/packages", map[string]interface{}{
		"name": "Fax pack", "credit_type": "fax", "credits": 10,
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeValidation)
	mockUseCase.AssertNotCalled(t, "CreatePackage", mock.Anything, mock.Anything)
}

func TestPurchase(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	handler := NewCreditHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/credits/purchase", withActor("o1", roles.LibraryOwner, "t1"), handler.Purchase)

	mockUseCase.On("Purchase", ownerActor, "pkg-1").Return(&entity.Transaction{ID: "tx-1", Type: "purchase", Amount: 1000}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPost, "/credits/purchase", map[string]string{"package_id": "pkg-1"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"tx-1"`)
}

func TestSetThreshold(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	handler := NewCreditHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.PUT("/credits/threshold", withActor("o1", roles.LibraryOwner, "t1"), handler.SetThreshold)

	mockUseCase.On("SetThreshold", ownerActor, "email", int64(0)).Return(&entity.Balance{CreditType: "email"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPut, "/credits/threshold", map[string]interface{}{"credit_type": "email", "threshold": 0}))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListTransactions(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	handler := NewCreditHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/credits/transactions", withActor("o1", roles.LibraryOwner, "t1"), handler.ListTransactions)

	mockUseCase.On("ListTransactions", ownerActor, "sms", 5, 10).Return([]*entity.Transaction{{ID: "tx-1"}}, int64(11), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/credits/transactions?credit_type=sms&limit=5&offset=10", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":11`)
}

// The internal API is exercised through the client other services use.
func newInternalServer(t *testing.T, uc usecase.CreditUseCase) *httptest.Server {
	t.Helper()
	handler := NewInternalHandler(uc, logger.New())
	router := setupTestRouter()
	internal := router.Group("/internal/credits", middleware.InternalAPIKey("secret"))
	internal.POST("/consume", handler.Consume)
	internal.POST("/refund", handler.Refund)
	internal.POST("/grant", handler.Grant)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestInternalConsume_RoundTrip(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	srv := newInternalServer(t, mockUseCase)

	input := usecase.MovementInput{TenantID: "t1", CreditType: "sms", Amount: 3, Reference: "msg-1"}
	mockUseCase.On("Consume", input).Return(&entity.Balance{TenantID: "t1", CreditType: "sms", Balance: 97}, nil)

	res, err := creditclient.NewClient(srv.URL, "secret").Consume(context.Background(), creditclient.Request{
		TenantID: "t1", CreditType: "sms", Amount: 3, Reference: "msg-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(97), res.Balance)
}

func TestInternalConsume_InsufficientIs402(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	srv := newInternalServer(t, mockUseCase)

	mockUseCase.On("Consume", mock.Anything).Return(nil, apperror.PaymentRequired(usecase.CodeInsufficientCredits, "Insufficient sms credits"))

	_, err := creditclient.NewClient(srv.URL, "secret").Consume(context.Background(), creditclient.Request{
		TenantID: "t1", CreditType: "sms", Amount: 500,
	})

	assert.True(t, apperror.IsCode(err, creditclient.CodeInsufficientCredits))
}

func TestInternal_RejectsWrongKey(t *testing.T) {
	mockUseCase := new(MockCreditUseCase)
	srv := newInternalServer(t, mockUseCase)

	_, err := creditclient.NewClient(srv.URL, "wrong").Grant(context.Background(), creditclient.Request{
		TenantID: "t1", CreditType: "sms", Amount: 5,
	})

	require.Error(t, err)
	mockUseCase.AssertNotCalled(t, "InternalGrant", mock.Anything)
}
