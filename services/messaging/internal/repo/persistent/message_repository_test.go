package persistent

import (
	"context"
	"testing"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/messaging/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Message{}, &models.MessageRecipient{}, &models.User{}, &models.Tenant{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, tenantID, role string, active bool) {
	tid := tenantID
	require.NoError(t, db.Create(&models.User{
		ID:       id,
		TenantID: &tid,
		Email:    id + "@studyspot.test",
		Name:     id,
		Phone:    "+91980000" + id,
		Password: "x",
		Role:     role,
	}).Error)
	if !active {
		require.NoError(t, db.Model(&models.User{ID: id}).Update("is_active", false).Error)
	}
}

func newMessage(tenantID, channel string, userIDs ...string) *entity.Message {
	msg := &entity.Message{
		TenantID:       tenantID,
		SenderID:       "owner",
		Channel:        channel,
		Body:           "Library closed on Sunday",
		RecipientCount: len(userIDs),
		Status:         models.MessageStatusQueued,
	}
	for _, id := range userIDs {
		msg.Recipients = append(msg.Recipients, &entity.Recipient{UserID: id, Address: id, Status: models.RecipientStatusQueued})
	}
	return msg
}

func TestMessages_CreateAndGet(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	ctx := context.Background()

	msg := newMessage("t1", models.ChannelInApp, "s1", "s2")
	require.NoError(t, repo.Create(ctx, msg))
	require.NotEmpty(t, msg.ID)
	require.Len(t, msg.Recipients, 2)
	assert.Equal(t, msg.ID, msg.Recipients[0].MessageID)

	bare, err := repo.Get(ctx, msg.ID, false)
	require.NoError(t, err)
	assert.Empty(t, bare.Recipients)

	full, err := repo.Get(ctx, msg.ID, true)
	require.NoError(t, err)
	assert.Len(t, full.Recipients, 2)

	_, err = repo.Get(ctx, "missing", false)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestMessages_StatusAndRecipientUpdates(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	ctx := context.Background()

	msg := newMessage("t1", models.ChannelSMS, "s1")
	require.NoError(t, repo.Create(ctx, msg))

	require.NoError(t, repo.SetStatus(ctx, msg.ID, models.MessageStatusSending))
	err := repo.SetStatus(ctx, "missing", models.MessageStatusSent)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	now := time.Now().UTC()
	rcpt := msg.Recipients[0]
	rcpt.Status = models.RecipientStatusDelivered
	rcpt.DeliveredAt = &now
	require.NoError(t, repo.UpdateRecipient(ctx, rcpt))

	got, err := repo.Get(ctx, msg.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusSending, got.Status)
	assert.Equal(t, models.RecipientStatusDelivered, got.Recipients[0].Status)
	assert.NotNil(t, got.Recipients[0].DeliveredAt)
}

func TestMessages_ListFilters(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newMessage("t1", models.ChannelInApp, "s1")))
	require.NoError(t, repo.Create(ctx, newMessage("t1", models.ChannelSMS, "s1")))
	require.NoError(t, repo.Create(ctx, newMessage("t2", models.ChannelSMS, "s9")))

	all, total, err := repo.List(ctx, MessageFilter{TenantID: "t1"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	sms, total, err := repo.List(ctx, MessageFilter{TenantID: "t1", Channel: models.ChannelSMS}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.ChannelSMS, sms[0].Channel)

	page, total, err := repo.List(ctx, MessageFilter{}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)
}

func TestContacts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	seedUser(t, db, "s1", "t1", roles.Student, true)
	seedUser(t, db, "s2", "t1", roles.Student, false)
	seedUser(t, db, "st1", "t1", roles.LibraryStaff, true)
	seedUser(t, db, "s3", "t2", roles.Student, true)

	students, err := repo.ActiveStudents(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].UserID)
	assert.Equal(t, "s1@studyspot.test", students[0].Email)

	contacts, err := repo.TenantContacts(ctx, "t1", []string{"s1", "s2", "st1", "s3"})
	require.NoError(t, err)
	ids := []string{}
	for _, c := range contacts {
		ids = append(ids, c.UserID)
	}
	assert.ElementsMatch(t, []string{"s1", "st1"}, ids)

	none, err := repo.TenantContacts(ctx, "t1", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTenantOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	owner := "o1"
	require.NoError(t, db.Create(&models.Tenant{ID: "t1", Name: "Focus Hub", Slug: "focus-hub", OwnerUserID: &owner}).Error)
	require.NoError(t, db.Create(&models.Tenant{ID: "t2", Name: "Quiet Desk", Slug: "quiet-desk"}).Error)

	got, err := repo.TenantOwner(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got)

	got, err = repo.TenantOwner(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repo.TenantOwner(ctx, "t3")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}
