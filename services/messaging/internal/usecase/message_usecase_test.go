package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/creditclient"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/messaging/internal/entity"
	"studyspot/services/messaging/internal/repo/persistent"
	"studyspot/services/messaging/internal/sender"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessageRepository struct {
	mock.Mock
}

var _ persistent.MessageRepository = (*MockMessageRepository)(nil)

func (m *MockMessageRepository) Create(ctx context.Context, msg *entity.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepository) Get(ctx context.Context, id string, withRecipients bool) (*entity.Message, error) {
	args := m.Called(ctx, id, withRecipients)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Message), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, filter persistent.MessageFilter, limit, offset int) ([]*entity.Message, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]*entity.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) SetStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockMessageRepository) UpdateRecipient(ctx context.Context, recipient *entity.Recipient) error {
	return m.Called(ctx, recipient).Error(0)
}

func (m *MockMessageRepository) TenantContacts(ctx context.Context, tenantID string, userIDs []string) ([]entity.Contact, error) {
	args := m.Called(ctx, tenantID, userIDs)
	return args.Get(0).([]entity.Contact), args.Error(1)
}

func (m *MockMessageRepository) ActiveStudents(ctx context.Context, tenantID string) ([]entity.Contact, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]entity.Contact), args.Error(1)
}

func (m *MockMessageRepository) TenantOwner(ctx context.Context, tenantID string) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

type stubCredits struct {
	consumed   []creditclient.Request
	refunded   []creditclient.Request
	consumeErr error
}

func (s *stubCredits) Consume(ctx context.Context, req creditclient.Request) (*creditclient.Result, error) {
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	s.consumed = append(s.consumed, req)
	return &creditclient.Result{TenantID: req.TenantID, CreditType: req.CreditType}, nil
}

func (s *stubCredits) Refund(ctx context.Context, req creditclient.Request) (*creditclient.Result, error) {
	s.refunded = append(s.refunded, req)
	return &creditclient.Result{TenantID: req.TenantID, CreditType: req.CreditType}, nil
}

// failingSender fails for the listed user ids.
type failingSender struct {
	failFor map[string]bool
	sent    []string
}

func (s *failingSender) Send(ctx context.Context, msg *entity.Message, rcpt *entity.Recipient) error {
	if s.failFor[rcpt.UserID] {
		return errors.New("provider rejected")
	}
	s.sent = append(s.sent, rcpt.UserID)
	return nil
}

type recordingPublisher struct {
	keys     []string
	payloads []interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, payload interface{}, priority int) error {
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

type messageFixture struct {
	repo      *MockMessageRepository
	credits   *stubCredits
	sms       *failingSender
	publisher *recordingPublisher
	uc        *messageUseCase
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		repo:      new(MockMessageRepository),
		credits:   &stubCredits{},
		sms:       &failingSender{failFor: map[string]bool{}},
		publisher: &recordingPublisher{},
	}
	senders := map[string]sender.Sender{models.ChannelSMS: f.sms, models.ChannelInApp: f.sms}
	f.uc = NewMessageUseCase(f.repo, f.credits, senders, f.publisher, logger.New()).(*messageUseCase)
	f.uc.now = func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) }
	return f
}

var owner = roles.Actor{UserID: "owner", Role: roles.LibraryOwner, TenantID: "t1"}

func contacts(ids ...string) []entity.Contact {
	out := make([]entity.Contact, len(ids))
	for i, id := range ids {
		out[i] = entity.Contact{UserID: id, Phone: "+91" + id, Email: id + "@x.in"}
	}
	return out
}

func TestSendMessage_SMSConsumesCreditsAndPublishes(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	body := strings.Repeat("a", 200) // two segments

	f.repo.On("TenantContacts", ctx, "t1", []string{"s1", "s2"}).Return(contacts("s1", "s2"), nil)
	f.repo.On("Create", ctx, mock.AnythingOfType("*entity.Message")).Return(nil)

	msg, err := f.uc.SendMessage(ctx, owner, SendMessageInput{
		Channel:      models.ChannelSMS,
		Body:         body,
		RecipientIDs: []string{"s1", "s2", "s1"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.MessageStatusQueued, msg.Status)
	assert.Equal(t, 2, msg.RecipientCount)
	assert.Equal(t, int64(4), msg.CreditsUsed)
	assert.Equal(t, "+91s1", msg.Recipients[0].Address)

	require.Len(t, f.credits.consumed, 1)
	assert.Equal(t, creditclient.Request{TenantID: "t1", CreditType: models.CreditTypeSMS, Amount: 4, Reference: "message:" + msg.ID}, f.credits.consumed[0])

	require.Equal(t, []string{events.MessageDispatch}, f.publisher.keys)
	assert.Equal(t, events.Dispatch{MessageID: msg.ID, TenantID: "t1"}, f.publisher.payloads[0])
}

func TestSendMessage_InAppIsFree(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.repo.On("ActiveStudents", ctx, "t1").Return(contacts("s1", "s2", "s3"), nil)
	f.repo.On("Create", ctx, mock.AnythingOfType("*entity.Message")).Return(nil)

	msg, err := f.uc.SendMessage(ctx, owner, SendMessageInput{Channel: models.ChannelInApp, Body: "Holiday on Monday", Audience: entity.AudienceAllStudents})
	require.NoError(t, err)

	assert.Equal(t, 3, msg.RecipientCount)
	assert.Zero(t, msg.CreditsUsed)
	assert.Empty(t, f.credits.consumed)
}

func TestSendMessage_RejectsForeignRecipients(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.repo.On("TenantContacts", ctx, "t1", []string{"s1", "other"}).Return(contacts("s1"), nil)

	_, err := f.uc.SendMessage(ctx, owner, SendMessageInput{Channel: models.ChannelSMS, Body: "hi", RecipientIDs: []string{"s1", "other"}})
	assert.True(t, apperror.IsCode(err, CodeInvalidRecipients))
	assert.Empty(t, f.credits.consumed)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_NeedsRecipientsOrAudience(t *testing.T) {
	f := newMessageFixture()

	_, err := f.uc.SendMessage(context.Background(), owner, SendMessageInput{Channel: models.ChannelSMS, Body: "hi"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.uc.SendMessage(context.Background(), roles.Actor{UserID: "a", Role: roles.PlatformAdmin}, SendMessageInput{Channel: models.ChannelSMS, Body: "hi"})
	assert.True(t, apperror.IsCode(err, apperror.CodeBadRequest))
}

func TestSendMessage_InsufficientCredits(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.credits.consumeErr = apperror.PaymentRequired(creditclient.CodeInsufficientCredits, "Insufficient credits")

	f.repo.On("TenantContacts", ctx, "t1", []string{"s1"}).Return(contacts("s1"), nil)

	_, err := f.uc.SendMessage(ctx, owner, SendMessageInput{Channel: models.ChannelSMS, Body: "hi", RecipientIDs: []string{"s1"}})
	assert.True(t, apperror.IsCode(err, creditclient.CodeInsufficientCredits))
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.keys)
}

func TestSendMessage_CreditServiceDown(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.credits.consumeErr = errors.New("connection refused")

	f.repo.On("TenantContacts", ctx, "t1", []string{"s1"}).Return(contacts("s1"), nil)

	_, err := f.uc.SendMessage(ctx, owner, SendMessageInput{Channel: models.ChannelSMS, Body: "hi", RecipientIDs: []string{"s1"}})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.Status)
}

func TestSendMessage_RefundsWhenSaveFails(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.repo.On("TenantContacts", ctx, "t1", []string{"s1"}).Return(contacts("s1"), nil)
	f.repo.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

	_, err := f.uc.SendMessage(ctx, owner, SendMessageInput{Channel: models.ChannelSMS, Body: "hi", RecipientIDs: []string{"s1"}})
	require.Error(t, err)
	require.Len(t, f.credits.refunded, 1)
	assert.Equal(t, int64(1), f.credits.refunded[0].Amount)
	assert.Empty(t, f.publisher.keys)
}

func queuedMessage(channel string, userIDs ...string) *entity.Message {
	msg := &entity.Message{ID: "m1", TenantID: "t1", Channel: channel, Body: "hi", Status: models.MessageStatusQueued}
	for _, id := range userIDs {
		msg.Recipients = append(msg.Recipients, &entity.Recipient{ID: "r-" + id, UserID: id, Address: "+91" + id, Status: models.RecipientStatusQueued})
	}
	return msg
}

func TestDispatch_PartialFailureRefundsFailedRecipients(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.sms.failFor["s2"] = true

	f.repo.On("Get", ctx, "m1", true).Return(queuedMessage(models.ChannelSMS, "s1", "s2", "s3"), nil)
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusSending).Return(nil).Once()
	f.repo.On("UpdateRecipient", ctx, mock.Anything).Return(nil).Times(3)
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusPartiallyFailed).Return(nil).Once()

	require.NoError(t, f.uc.Dispatch(ctx, "m1"))

	assert.Equal(t, []string{"s1", "s3"}, f.sms.sent)
	require.Len(t, f.credits.refunded, 1)
	assert.Equal(t, int64(1), f.credits.refunded[0].Amount)
	f.repo.AssertExpectations(t)
}

func TestDispatch_RedeliveryAfterStatusFailureRefundsOnce(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.sms.failFor["s2"] = true

	msg := queuedMessage(models.ChannelSMS, "s1", "s2")
	f.repo.On("Get", ctx, "m1", true).Return(msg, nil)
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusSending).Return(nil)
	f.repo.On("UpdateRecipient", ctx, mock.Anything).Return(nil)
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusPartiallyFailed).Return(errors.New("db down")).Once()

	require.Error(t, f.uc.Dispatch(ctx, "m1"))
	assert.Empty(t, f.credits.refunded)

	msg.Status = models.MessageStatusSending
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusPartiallyFailed).Return(nil).Once()

	require.NoError(t, f.uc.Dispatch(ctx, "m1"))

	assert.Equal(t, []string{"s1"}, f.sms.sent)
	require.Len(t, f.credits.refunded, 1)
	assert.Equal(t, int64(1), f.credits.refunded[0].Amount)
	assert.Equal(t, "message:m1:undelivered", f.credits.refunded[0].Reference)
}

func TestDispatch_AllDelivered(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	msg := queuedMessage(models.ChannelSMS, "s1", "s2")
	msg.Recipients[0].Status = models.RecipientStatusDelivered

	f.repo.On("Get", ctx, "m1", true).Return(msg, nil)
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusSending).Return(nil)
	f.repo.On("UpdateRecipient", ctx, msg.Recipients[1]).Return(nil).Once()
	f.repo.On("SetStatus", ctx, "m1", models.MessageStatusSent).Return(nil)

	require.NoError(t, f.uc.Dispatch(ctx, "m1"))

	assert.Equal(t, []string{"s2"}, f.sms.sent)
	assert.NotNil(t, msg.Recipients[1].DeliveredAt)
	assert.Empty(t, f.credits.refunded)
	f.repo.AssertExpectations(t)
}

func TestDispatch_UnknownChannelFailsEveryone(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.repo.On("Get", ctx, "m1", true).Return(queuedMessage(models.ChannelEmail, "s1", "s2"), nil)
	f.repo.On("SetStatus", ctx, "m1", mock.Anything).Return(nil)
	f.repo.On("UpdateRecipient", ctx, mock.Anything).Return(nil)

	require.NoError(t, f.uc.Dispatch(ctx, "m1"))

	f.repo.AssertCalled(t, "SetStatus", ctx, "m1", models.MessageStatusFailed)
	require.Len(t, f.credits.refunded, 1)
	assert.Equal(t, models.CreditTypeEmail, f.credits.refunded[0].CreditType)
	assert.Equal(t, int64(2), f.credits.refunded[0].Amount)
}

func TestDispatch_SkipsSettledAndMissingMessages(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	settled := queuedMessage(models.ChannelSMS, "s1")
	settled.Status = models.MessageStatusSent
	f.repo.On("Get", ctx, "m1", true).Return(settled, nil)
	f.repo.On("Get", ctx, "gone", true).Return(nil, apperror.NotFound("message not found"))

	require.NoError(t, f.uc.Dispatch(ctx, "m1"))
	require.NoError(t, f.uc.Dispatch(ctx, "gone"))
	f.repo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessage_HidesOtherTenants(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.repo.On("Get", ctx, "m1", true).Return(&entity.Message{ID: "m1", TenantID: "t2"}, nil)

	_, err := f.uc.GetMessage(ctx, owner, "m1")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	got, err := f.uc.GetMessage(ctx, roles.Actor{UserID: "a", Role: roles.SuperAdmin}, "m1")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.TenantID)
}

func TestListMessages_ScopesToTenant(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.repo.On("List", ctx, persistent.MessageFilter{TenantID: "t1", Channel: "sms"}, 20, 0).Return([]*entity.Message{}, int64(0), nil)

	_, _, err := f.uc.ListMessages(ctx, owner, persistent.MessageFilter{TenantID: "t9", Channel: "sms"}, 20, 0)
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}
