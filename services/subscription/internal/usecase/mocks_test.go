package usecase

import (
	"context"
	"strconv"
	"time"

	"studyspot/pkg/creditclient"
	"studyspot/services/subscription/internal/entity"
	"studyspot/services/subscription/internal/repo/persistent"

	"github.com/stretchr/testify/mock"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

var _ persistent.SubscriptionRepository = (*MockSubscriptionRepository)(nil)

func (m *MockSubscriptionRepository) CreatePlan(ctx context.Context, plan *entity.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockSubscriptionRepository) UpdatePlan(ctx context.Context, plan *entity.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockSubscriptionRepository) GetPlan(ctx context.Context, id string) (*entity.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockSubscriptionRepository) GetPlanByCode(ctx context.Context, code string) (*entity.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockSubscriptionRepository) ListPlans(ctx context.Context, publicOnly bool) ([]*entity.Plan, error) {
	args := m.Called(ctx, publicOnly)
	return args.Get(0).([]*entity.Plan), args.Error(1)
}

func (m *MockSubscriptionRepository) GetSubscription(ctx context.Context, tenantID string) (*entity.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetSubscriptionByID(ctx context.Context, id string) (*entity.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListSubscriptions(ctx context.Context, status string, limit, offset int) ([]*entity.Subscription, int64, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*entity.Subscription), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubscriptionRepository) DueForRenewal(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Apply(ctx context.Context, change persistent.BillingChange) error {
	return m.Called(ctx, change).Error(0)
}

func (m *MockSubscriptionRepository) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockSubscriptionRepository) ListInvoices(ctx context.Context, filter persistent.InvoiceFilter, limit, offset int) ([]*entity.Invoice, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]*entity.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubscriptionRepository) OverdueCandidates(ctx context.Context, now time.Time) ([]*entity.Invoice, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*entity.Invoice), args.Error(1)
}

func (m *MockSubscriptionRepository) SaveInvoice(ctx context.Context, invoice *entity.Invoice, sub *entity.Subscription) error {
	return m.Called(ctx, invoice, sub).Error(0)
}

func (m *MockSubscriptionRepository) CountUsage(ctx context.Context, tenantID string) (entity.Counts, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(entity.Counts), args.Error(1)
}

type sequenceNumbers struct {
	next int
}

func (s *sequenceNumbers) Invoice() string {
	s.next++
	return "INV-" + strconv.Itoa(s.next)
}

type stubGranter struct {
	granted []creditclient.Request
	err     error
}

func (s *stubGranter) Grant(ctx context.Context, req creditclient.Request) (*creditclient.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.granted = append(s.granted, req)
	return &creditclient.Result{TenantID: req.TenantID, CreditType: req.CreditType}, nil
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

// assignIDs mimics the repository filling generated ids on Apply.
func assignIDs(args mock.Arguments) {
	change := args.Get(1).(persistent.BillingChange)
	if change.Subscription.ID == "" {
		change.Subscription.ID = "sub-1"
	}
	if change.NewInvoice != nil {
		change.NewInvoice.ID = "inv-" + change.NewInvoice.Number
		change.NewInvoice.SubscriptionID = change.Subscription.ID
	}
}
