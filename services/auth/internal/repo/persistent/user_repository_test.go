package persistent

import (
	"context"
	"testing"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/auth/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.User{}))
	return db
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &entity.User{TenantID: "tenant-1", Email: "ravi@example.com", Name: "Ravi", Password: "hash", Role: roles.Student, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	byEmail, err := repo.GetByEmail(ctx, "RAVI@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "tenant-1", byEmail.TenantID)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLoginAt)
	assert.True(t, at.Equal(*byID.LastLoginAt))
}

func TestUserRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, u := range []*entity.User{
		{TenantID: "t1", Email: "a@x.com", Name: "Anita", Password: "h", Role: roles.Student},
		{TenantID: "t1", Email: "b@x.com", Name: "Bala", Password: "h", Role: roles.LibraryStaff},
		{TenantID: "t2", Email: "c@x.com", Name: "Chetan", Password: "h", Role: roles.Student},
		{Email: "admin@x.com", Name: "Admin", Password: "h", Role: roles.SuperAdmin},
	} {
		require.NoError(t, repo.Create(ctx, u))
	}

	users, total, err := repo.List(ctx, entity.UserFilter{TenantID: "t1"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ctx, entity.UserFilter{Role: roles.Student, Query: "chet"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "c@x.com", users[0].Email)

	users, total, err = repo.List(ctx, entity.UserFilter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, users, 1)
}

func TestUserRepository_Tenants(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tenant := &models.Tenant{Name: "Gyan", Slug: "gyan", Status: models.TenantStatusActive}
	require.NoError(t, db.Create(tenant).Error)

	bySlug, err := repo.GetTenantBySlug(ctx, "gyan")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, bySlug.ID)
	assert.Equal(t, models.TenantStatusActive, bySlug.Status)

	_, err = repo.GetTenantByID(ctx, "nope")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}
