package usecase

import (
	"context"
	"errors"
	"testing"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/credit/internal/entity"
	"studyspot/services/credit/internal/repo/cache"
	"studyspot/services/credit/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCreditRepository struct {
	mock.Mock
}

var _ persistent.CreditRepository = (*MockCreditRepository)(nil)

func (m *MockCreditRepository) CreatePackage(ctx context.Context, pkg *entity.Package) error {
	args := m.Called(ctx, pkg)
	pkg.ID = "pkg-new"
	return args.Error(0)
}

func (m *MockCreditRepository) GetPackage(ctx context.Context, id string) (*entity.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Package), args.Error(1)
}

func (m *MockCreditRepository) ListPackages(ctx context.Context, includeInactive bool) ([]*entity.Package, error) {
	args := m.Called(ctx, includeInactive)
	return args.Get(0).([]*entity.Package), args.Error(1)
}

func (m *MockCreditRepository) UpdatePackage(ctx context.Context, pkg *entity.Package) error {
	return m.Called(ctx, pkg).Error(0)
}

func (m *MockCreditRepository) Balances(ctx context.Context, tenantID string) ([]*entity.Balance, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*entity.Balance), args.Error(1)
}

func (m *MockCreditRepository) SetThreshold(ctx context.Context, tenantID, creditType string, threshold int64) (*entity.Balance, error) {
	args := m.Called(ctx, tenantID, creditType, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Balance), args.Error(1)
}

func (m *MockCreditRepository) Apply(ctx context.Context, mv entity.Movement) (*entity.Balance, *entity.Transaction, error) {
	args := m.Called(ctx, mv)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*entity.Balance), args.Get(1).(*entity.Transaction), args.Error(2)
}

func (m *MockCreditRepository) ListTransactions(ctx context.Context, tenantID, creditType string, limit, offset int) ([]*entity.Transaction, int64, error) {
	args := m.Called(ctx, tenantID, creditType, limit, offset)
	return args.Get(0).([]*entity.Transaction), args.Get(1).(int64), args.Error(2)
}

type memoryCache struct {
	entries     map[string][]entity.Balance
	invalidated []string
}

var _ cache.BalanceCache = (*memoryCache)(nil)

func (c *memoryCache) Get(_ context.Context, tenantID string) ([]entity.Balance, bool) {
	b, ok := c.entries[tenantID]
	return b, ok
}

func (c *memoryCache) Set(_ context.Context, tenantID string, balances []entity.Balance) {
	if c.entries == nil {
		c.entries = map[string][]entity.Balance{}
	}
	c.entries[tenantID] = balances
}

func (c *memoryCache) Invalidate(_ context.Context, tenantID string) {
	delete(c.entries, tenantID)
	c.invalidated = append(c.invalidated, tenantID)
}

type recordingPublisher struct {
	keys     []string
	payloads []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload interface{}, _ int) error {
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

var (
	platform = roles.Actor{UserID: "admin", Role: roles.PlatformAdmin}
	owner    = roles.Actor{UserID: "o1", Role: roles.LibraryOwner, TenantID: "t1"}
	staff    = roles.Actor{UserID: "st1", Role: roles.LibraryStaff, TenantID: "t1"}
	student  = roles.Actor{UserID: "s1", Role: roles.Student, TenantID: "t1"}
)

type creditFixture struct {
	repo      *MockCreditRepository
	cache     *memoryCache
	publisher *recordingPublisher
	uc        CreditUseCase
}

func newCreditFixture() *creditFixture {
	f := &creditFixture{
		repo:      new(MockCreditRepository),
		cache:     &memoryCache{},
		publisher: &recordingPublisher{},
	}
	f.uc = NewCreditUseCase(f.repo, f.cache, f.publisher, logger.New())
	return f
}

func TestGetBalances_FillsMissingTypesAndCaches(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("Balances", ctx, "t1").Return([]*entity.Balance{
		{TenantID: "t1", CreditType: models.CreditTypeWhatsApp, Balance: 40, LowBalanceThreshold: 50, Level: entity.LevelLow},
	}, nil).Once()

	balances, err := f.uc.GetBalances(ctx, owner)
	require.NoError(t, err)
	require.Len(t, balances, 3)
	assert.Equal(t, models.CreditTypeSMS, balances[0].CreditType)
	assert.Equal(t, int64(0), balances[0].Balance)
	assert.Equal(t, entity.LevelEmpty, balances[0].Level)
	assert.Equal(t, int64(40), balances[1].Balance)
	assert.Equal(t, entity.LevelLow, balances[1].Level)
	assert.Equal(t, models.CreditTypeEmail, balances[2].CreditType)

	again, err := f.uc.GetBalances(ctx, staff)
	require.NoError(t, err)
	assert.Equal(t, balances, again)
	f.repo.AssertNumberOfCalls(t, "Balances", 1)
}

func TestGetBalances_StudentForbidden(t *testing.T) {
	f := newCreditFixture()
	_, err := f.uc.GetBalances(context.Background(), student)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestConsume_InsufficientCredits(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("Apply", ctx, mock.Anything).Return(nil, nil, persistent.ErrInsufficientCredits)

	_, err := f.uc.Consume(ctx, MovementInput{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: 5, Reference: "msg-1"})

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 402, appErr.Status)
	assert.Equal(t, CodeInsufficientCredits, appErr.Code)
	assert.Empty(t, f.cache.invalidated)
}

func TestConsume_PublishesOnceWhenCrossingThreshold(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("Apply", ctx, entity.Movement{TenantID: "t1", CreditType: models.CreditTypeSMS, Type: models.CreditTxConsume, Amount: -10, Reference: "msg-1"}).
		Return(&entity.Balance{TenantID: "t1", CreditType: models.CreditTypeSMS, Balance: 95, LowBalanceThreshold: 100},
			&entity.Transaction{BalanceBefore: 105, BalanceAfter: 95}, nil)
	f.repo.On("Apply", ctx, entity.Movement{TenantID: "t1", CreditType: models.CreditTypeSMS, Type: models.CreditTxConsume, Amount: -10, Reference: "msg-2"}).
		Return(&entity.Balance{TenantID: "t1", CreditType: models.CreditTypeSMS, Balance: 85, LowBalanceThreshold: 100},
			&entity.Transaction{BalanceBefore: 95, BalanceAfter: 85}, nil)

	balance, err := f.uc.Consume(ctx, MovementInput{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: 10, Reference: "msg-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(95), balance.Balance)

	_, err = f.uc.Consume(ctx, MovementInput{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: 10, Reference: "msg-2"})
	require.NoError(t, err)

	require.Equal(t, []string{events.CreditLow}, f.publisher.keys)
	assert.Equal(t, events.CreditLowBalance{TenantID: "t1", CreditType: "sms", Balance: 95, Threshold: 100}, f.publisher.payloads[0])
	assert.Equal(t, []string{"t1", "t1"}, f.cache.invalidated)
}

func TestMovementValidation(t *testing.T) {
	f := newCreditFixture()
	ctx := context.Background()

	tests := []MovementInput{
		{CreditType: models.CreditTypeSMS, Amount: 1},
		{TenantID: "t1", CreditType: "fax", Amount: 1},
		{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: 0},
		{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: -3},
	}
	for _, input := range tests {
		_, err := f.uc.Consume(ctx, input)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "%+v", input)
		_, err = f.uc.Refund(ctx, input)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "%+v", input)
	}
	f.repo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestRefund_CreditsBack(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("Apply", ctx, entity.Movement{TenantID: "t1", CreditType: models.CreditTypeEmail, Type: models.CreditTxRefund, Amount: 3, Reference: "msg-9"}).
		Return(&entity.Balance{TenantID: "t1", CreditType: models.CreditTypeEmail, Balance: 13}, &entity.Transaction{}, nil)

	balance, err := f.uc.Refund(ctx, MovementInput{TenantID: "t1", CreditType: models.CreditTypeEmail, Amount: 3, Reference: "msg-9"})

	require.NoError(t, err)
	assert.Equal(t, int64(13), balance.Balance)
	assert.Empty(t, f.publisher.keys)
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("GetPackage", ctx, "pkg-1").Return(&entity.Package{ID: "pkg-1", Name: "SMS 1000", CreditType: models.CreditTypeSMS, Credits: 1000, IsActive: true}, nil)
	f.repo.On("Apply", ctx, mock.MatchedBy(func(m entity.Movement) bool {
		return m.TenantID == "t1" && m.Type == models.CreditTxPurchase && m.Amount == 1000 && m.PackageID == "pkg-1"
	})).Return(&entity.Balance{Balance: 1000}, &entity.Transaction{ID: "tx-1", PackageID: "pkg-1", Amount: 1000}, nil)

	tx, err := f.uc.Purchase(ctx, owner, "pkg-1")

	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)
}

func TestPurchase_InactivePackageAndRoles(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("GetPackage", ctx, "old").Return(&entity.Package{ID: "old", IsActive: false}, nil)

	_, err := f.uc.Purchase(ctx, owner, "old")
	assert.True(t, apperror.IsCode(err, CodePackageUnavailable))

	_, err = f.uc.Purchase(ctx, staff, "old")
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestGrant_PlatformOnly(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	input := MovementInput{TenantID: "t9", CreditType: models.CreditTypeWhatsApp, Amount: 200, Reference: "welcome"}

	_, err := f.uc.Grant(ctx, owner, input)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	f.repo.On("Apply", ctx, entity.Movement{TenantID: "t9", CreditType: models.CreditTypeWhatsApp, Type: models.CreditTxGrant, Amount: 200, Reference: "welcome"}).
		Return(&entity.Balance{Balance: 200}, &entity.Transaction{ID: "tx-g"}, nil)
	tx, err := f.uc.Grant(ctx, platform, input)
	require.NoError(t, err)
	assert.Equal(t, "tx-g", tx.ID)
	assert.Equal(t, []string{"t9"}, f.cache.invalidated)
}

func TestPackages(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("ListPackages", ctx, false).Return([]*entity.Package{{ID: "a"}}, nil)
	f.repo.On("ListPackages", ctx, true).Return([]*entity.Package{{ID: "a"}, {ID: "b"}}, nil)

	visible, err := f.uc.ListPackages(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := f.uc.ListPackages(ctx, platform)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.uc.CreatePackage(ctx, owner, PackageInput{Name: "x", CreditType: "sms", Credits: 1})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	f.repo.On("CreatePackage", ctx, mock.Anything).Return(nil)
	pkg, err := f.uc.CreatePackage(ctx, platform, PackageInput{Name: "SMS 500", CreditType: "sms", Credits: 500, Price: 15000})
	require.NoError(t, err)
	assert.Equal(t, "pkg-new", pkg.ID)
	assert.True(t, pkg.IsActive)

	deactivate := false
	f.repo.On("GetPackage", ctx, "pkg-new").Return(pkg, nil)
	f.repo.On("UpdatePackage", ctx, pkg).Return(nil)
	updated, err := f.uc.UpdatePackage(ctx, platform, "pkg-new", PackageUpdate{IsActive: &deactivate})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestSetThreshold(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.cache.Set(ctx, "t1", []entity.Balance{{}})
	f.repo.On("SetThreshold", ctx, "t1", models.CreditTypeSMS, int64(20)).Return(&entity.Balance{LowBalanceThreshold: 20}, nil)

	balance, err := f.uc.SetThreshold(ctx, owner, models.CreditTypeSMS, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.LowBalanceThreshold)
	_, cached := f.cache.Get(ctx, "t1")
	assert.False(t, cached)

	_, err = f.uc.SetThreshold(ctx, owner, models.CreditTypeSMS, -1)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.uc.SetThreshold(ctx, staff, models.CreditTypeSMS, 10)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestApply_WrapsInfrastructureErrors(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	f.repo.On("Apply", ctx, mock.Anything).Return(nil, nil, errors.New("connection reset"))

	_, err := f.uc.InternalGrant(ctx, MovementInput{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: 5})

	require.Error(t, err)
	_, isAppErr := apperror.As(err)
	assert.False(t, isAppErr)
}
