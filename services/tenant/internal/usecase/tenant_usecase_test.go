package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/tenant/internal/entity"
	"studyspot/services/tenant/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) CreateWithOwner(ctx context.Context, tenant *entity.Tenant, owner *entity.Owner) error {
	args := m.Called(ctx, tenant, owner)
	tenant.ID = "tenant-1"
	owner.ID = "owner-1"
	tenant.OwnerUserID = owner.ID
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context, filter entity.TenantFilter, limit, offset int) ([]*entity.Tenant, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]*entity.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *entity.Tenant) error {
	return m.Called(ctx, tenant).Error(0)
}

var _ persistent.TenantRepository = (*MockTenantRepository)(nil)

type recordingPublisher struct {
	keys     []string
	payloads []interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error {
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

type stubStorage struct{ key string }

func (s *stubStorage) UploadFile(ctx context.Context, key string, file io.Reader, contentType string) (string, error) {
	s.key = key
	return "http://cdn/" + key, nil
}

var (
	admin = roles.Actor{UserID: "admin", Role: roles.PlatformAdmin}
	owner = roles.Actor{UserID: "o1", Role: roles.LibraryOwner, TenantID: "t1"}
	staff = roles.Actor{UserID: "s1", Role: roles.LibraryStaff, TenantID: "t1"}
)

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"gyan-study-centre": true, "gyan-study-centre-2": true}
	exists := func(s string) (bool, error) { return taken[s], nil }

	s, err := UniqueSlug("Gyan Study Centre", exists)
	require.NoError(t, err)
	assert.Equal(t, "gyan-study-centre-3", s)

	s, err = UniqueSlug("Fresh Start", exists)
	require.NoError(t, err)
	assert.Equal(t, "fresh-start", s)

	s, err = UniqueSlug("!!!", exists)
	require.NoError(t, err)
	assert.Equal(t, "library", s)

	_, err = UniqueSlug("x", func(string) (bool, error) { return false, errors.New("db down") })
	assert.EqualError(t, err, "db down")

	_, err = UniqueSlug("x", func(string) (bool, error) { return true, nil })
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	publisher := &recordingPublisher{}
	uc := NewTenantUseCase(repo, nil, publisher, logger.New())

	repo.On("EmailTaken", ctx, "asha@gyan.in").Return(false, nil)
	repo.On("SlugExists", ctx, "gyan-study-centre").Return(true, nil)
	repo.On("SlugExists", ctx, "gyan-study-centre-2").Return(false, nil)
	repo.On("CreateWithOwner", ctx, mock.MatchedBy(func(tn *entity.Tenant) bool {
		return tn.Slug == "gyan-study-centre-2" && tn.Status == models.TenantStatusActive
	}), mock.MatchedBy(func(o *entity.Owner) bool {
		return o.Email == "asha@gyan.in" && o.PasswordHash != "secret123"
	})).Return(nil)

	tenant, err := uc.CreateTenant(ctx, admin, CreateTenantInput{
		Name: "Gyan Study Centre", OwnerName: "Asha", OwnerEmail: "Asha@Gyan.in", OwnerPassword: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "owner-1", tenant.OwnerUserID)
	require.Equal(t, []string{events.TenantCreated}, publisher.keys)
	assert.Equal(t, "owner-1", publisher.payloads[0].(events.Tenant).OwnerUserID)
	repo.AssertExpectations(t)
}

func TestCreateTenant_SlugTakenConcurrentlyRetries(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	uc := NewTenantUseCase(repo, nil, nil, logger.New())

	repo.On("EmailTaken", ctx, "ravi@gyan.in").Return(false, nil)
	repo.On("SlugExists", ctx, "gyan").Return(false, nil).Once()
	repo.On("CreateWithOwner", ctx, mock.MatchedBy(func(tn *entity.Tenant) bool { return tn.Slug == "gyan" }), mock.Anything).
		Return(persistent.ErrSlugTaken).Once()
	repo.On("SlugExists", ctx, "gyan").Return(true, nil)
	repo.On("SlugExists", ctx, "gyan-2").Return(false, nil)
	repo.On("CreateWithOwner", ctx, mock.MatchedBy(func(tn *entity.Tenant) bool { return tn.Slug == "gyan-2" }), mock.Anything).
		Return(nil).Once()

	tenant, err := uc.CreateTenant(ctx, admin, CreateTenantInput{Name: "Gyan", OwnerName: "Ravi", OwnerEmail: "ravi@gyan.in", OwnerPassword: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, "gyan-2", tenant.Slug)
	repo.AssertExpectations(t)
}

func TestCreateTenant_UniqueViolationsAreConflicts(t *testing.T) {
	ctx := context.Background()
	input := CreateTenantInput{Name: "Gyan", OwnerName: "Ravi", OwnerEmail: "ravi@gyan.in", OwnerPassword: "secret123"}

	repo := new(MockTenantRepository)
	repo.On("EmailTaken", ctx, "ravi@gyan.in").Return(false, nil)
	repo.On("SlugExists", ctx, "gyan").Return(false, nil)
	repo.On("CreateWithOwner", ctx, mock.Anything, mock.Anything).Return(persistent.ErrEmailTaken).Once()

	_, err := NewTenantUseCase(repo, nil, nil, logger.New()).CreateTenant(ctx, admin, input)
	assert.True(t, apperror.IsCode(err, "EMAIL_TAKEN"))

	repo = new(MockTenantRepository)
	repo.On("EmailTaken", ctx, "ravi@gyan.in").Return(false, nil)
	repo.On("SlugExists", ctx, "gyan").Return(false, nil)
	repo.On("CreateWithOwner", ctx, mock.Anything, mock.Anything).Return(persistent.ErrSlugTaken)

	_, err = NewTenantUseCase(repo, nil, nil, logger.New()).CreateTenant(ctx, admin, input)
	assert.True(t, apperror.IsCode(err, "SLUG_TAKEN"))
	repo.AssertNumberOfCalls(t, "CreateWithOwner", slugRaceRetries+1)
}

func TestCreateTenant_OwnerEmailTaken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	repo.On("EmailTaken", ctx, "asha@gyan.in").Return(true, nil)

	_, err := NewTenantUseCase(repo, nil, nil, logger.New()).CreateTenant(ctx, admin, CreateTenantInput{Name: "Gyan", OwnerEmail: "asha@gyan.in"})
	assert.True(t, apperror.IsCode(err, "EMAIL_TAKEN"))
}

func TestGetTenant_Visibility(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	repo.On("GetByID", ctx, "t1").Return(&entity.Tenant{ID: "t1"}, nil)
	uc := NewTenantUseCase(repo, nil, nil, logger.New())

	_, err := uc.GetTenant(ctx, owner, "t2")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	tenant, err := uc.GetTenant(ctx, staff, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tenant.ID)

	_, err = uc.GetTenant(ctx, admin, "t1")
	require.NoError(t, err)
}

func TestSuspendAndActivate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	tenant := &entity.Tenant{ID: "t1", Status: models.TenantStatusActive}
	repo.On("GetByID", ctx, "t1").Return(tenant, nil)
	repo.On("Update", ctx, tenant).Return(nil)
	uc := NewTenantUseCase(repo, nil, nil, logger.New())

	_, err := uc.Suspend(ctx, owner, "t1")
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	suspended, err := uc.Suspend(ctx, admin, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusSuspended, suspended.Status)

	_, err = uc.Suspend(ctx, admin, "t1")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidStatus))

	activated, err := uc.Activate(ctx, admin, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusActive, activated.Status)
}

func TestUpdateSettings_Merges(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	tenant := &entity.Tenant{ID: "t1", Settings: map[string]interface{}{"timezone": "Asia/Kolkata", "currency": "INR", "theme": "dark"}}
	repo.On("GetByID", ctx, "t1").Return(tenant, nil)
	repo.On("Update", ctx, tenant).Return(nil)

	settings, err := NewTenantUseCase(repo, nil, nil, logger.New()).UpdateSettings(ctx, owner, "t1", map[string]interface{}{
		"currency": "USD", "theme": nil, "booking_window_days": float64(14),
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"timezone": "Asia/Kolkata", "currency": "USD", "booking_window_days": float64(14)}, settings)
}

func TestUpdateTenant_StaffForbidden(t *testing.T) {
	name := "New"
	_, err := NewTenantUseCase(new(MockTenantRepository), nil, nil, logger.New()).UpdateTenant(context.Background(), staff, "t1", UpdateTenantInput{Name: &name})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestUploadLogo(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	tenant := &entity.Tenant{ID: "t1"}
	repo.On("GetByID", ctx, "t1").Return(tenant, nil)
	repo.On("Update", ctx, tenant).Return(nil)
	storage := &stubStorage{}

	updated, err := NewTenantUseCase(repo, storage, nil, logger.New()).UploadLogo(ctx, owner, "t1", bytes.NewReader([]byte("png")), ".png", "image/png")

	require.NoError(t, err)
	assert.Regexp(t, `^tenants/t1/logo-[0-9a-f-]{36}\.png$`, storage.key)
	assert.Equal(t, "http://cdn/"+storage.key, updated.LogoURL)
}

func TestGetPublic(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	repo.On("GetBySlug", ctx, "gyan").Return(&entity.Tenant{ID: "t1", Name: "Gyan", Slug: "gyan", City: "Pune", Status: models.TenantStatusActive, Email: "private@x.in"}, nil)

	public, err := NewTenantUseCase(repo, nil, nil, logger.New()).GetPublic(ctx, "gyan")
	require.NoError(t, err)
	assert.Equal(t, &entity.PublicTenant{Name: "Gyan", Slug: "gyan", City: "Pune", Status: models.TenantStatusActive}, public)
}
