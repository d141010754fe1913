package persistent

import (
	"context"
	"testing"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/services/tenant/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.User{}))
	return db
}

func TestCreateWithOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()

	tenant := &entity.Tenant{Name: "Gyan", Slug: "gyan", Status: models.TenantStatusActive, Settings: map[string]interface{}{"timezone": "Asia/Kolkata"}}
	owner := &entity.Owner{Name: "Asha", Email: "asha@gyan.in", PasswordHash: "hash"}
	require.NoError(t, repo.CreateWithOwner(ctx, tenant, owner))

	assert.NotEmpty(t, tenant.ID)
	assert.NotEmpty(t, owner.ID)
	assert.Equal(t, owner.ID, tenant.OwnerUserID)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", owner.ID).Error)
	assert.Equal(t, tenant.ID, *user.TenantID)
	assert.Equal(t, "library_owner", user.Role)

	stored, err := repo.GetBySlug(ctx, "gyan")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, stored.OwnerUserID)
	assert.Equal(t, "Asia/Kolkata", stored.Settings["timezone"])

	exists, err := repo.SlugExists(ctx, "gyan")
	require.NoError(t, err)
	assert.True(t, exists)

	taken, err := repo.EmailTaken(ctx, "asha@gyan.in")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestCreateWithOwner_RollsBackOnDuplicateOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.User{Email: "dup@x.in", Name: "Dup", Password: "h", Role: "student"}).Error)

	err := repo.CreateWithOwner(ctx, &entity.Tenant{Name: "Dup", Slug: "dup", Status: models.TenantStatusActive}, &entity.Owner{Name: "Dup", Email: "dup@x.in", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	exists, err := repo.SlugExists(ctx, "dup")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateWithOwner_DuplicateSlug(t *testing.T) {
	repo := NewTenantRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateWithOwner(ctx, &entity.Tenant{Name: "Gyan", Slug: "gyan", Status: models.TenantStatusActive}, &entity.Owner{Name: "A", Email: "a@gyan.in", PasswordHash: "h"}))

	err := repo.CreateWithOwner(ctx, &entity.Tenant{Name: "Gyan", Slug: "gyan", Status: models.TenantStatusActive}, &entity.Owner{Name: "B", Email: "b@gyan.in", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	taken, err := repo.EmailTaken(ctx, "b@gyan.in")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestListAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()

	for _, tnt := range []*models.Tenant{
		{Name: "Alpha Library", Slug: "alpha-library", Email: "a@x.in", Status: models.TenantStatusActive},
		{Name: "Beta Study", Slug: "beta-study", Email: "b@x.in", Status: models.TenantStatusSuspended},
		{Name: "Gamma Library", Slug: "gamma-library", Email: "g@x.in", Status: models.TenantStatusActive},
	} {
		require.NoError(t, db.Create(tnt).Error)
	}

	tenants, total, err := repo.List(ctx, entity.TenantFilter{Status: models.TenantStatusActive, Query: "library"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tenants, 2)

	beta, err := repo.GetBySlug(ctx, "beta-study")
	require.NoError(t, err)
	beta.Status = models.TenantStatusActive
	beta.City = "Nagpur"
	require.NoError(t, repo.Update(ctx, beta))

	reloaded, err := repo.GetByID(ctx, beta.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusActive, reloaded.Status)
	assert.Equal(t, "Nagpur", reloaded.City)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}
