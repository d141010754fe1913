package usecase

import (
	"context"
	"errors"
	"fmt"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/credit/internal/entity"
	"studyspot/services/credit/internal/repo/cache"
	"studyspot/services/credit/internal/repo/persistent"
)

const (
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodePackageUnavailable  = "PACKAGE_UNAVAILABLE"

	creditLowPriority = 4
)

type PackageInput struct {
	Name       string
	CreditType string
	Credits    int64
	Price      int64
}

type PackageUpdate struct {
	Name     *string
	Credits  *int64
	Price    *int64
	IsActive *bool
}

// Movement request from another service or a platform grant.
type MovementInput struct {
	TenantID   string
	CreditType string
	Amount     int64
	Reference  string
}

type CreditUseCase interface {
	ListPackages(ctx context.Context, actor roles.Actor) ([]*entity.Package, error)
	CreatePackage(ctx context.Context, actor roles.Actor, input PackageInput) (*entity.Package, error)
	UpdatePackage(ctx context.Context, actor roles.Actor, id string, input PackageUpdate) (*entity.Package, error)

	GetBalances(ctx context.Context, actor roles.Actor) ([]entity.Balance, error)
	SetThreshold(ctx context.Context, actor roles.Actor, creditType string, threshold int64) (*entity.Balance, error)
	Purchase(ctx context.Context, actor roles.Actor, packageID string) (*entity.Transaction, error)
	Grant(ctx context.Context, actor roles.Actor, input MovementInput) (*entity.Transaction, error)
	ListTransactions(ctx context.Context, actor roles.Actor, creditType string, limit, offset int) ([]*entity.Transaction, int64, error)

	Consume(ctx context.Context, input MovementInput) (*entity.Balance, error)
	Refund(ctx context.Context, input MovementInput) (*entity.Balance, error)
	InternalGrant(ctx context.Context, input MovementInput) (*entity.Balance, error)
}

type creditUseCase struct {
	repo      persistent.CreditRepository
	cache     cache.BalanceCache
	publisher events.Publisher
	logger    *logger.Logger
}

func NewCreditUseCase(repo persistent.CreditRepository, balanceCache cache.BalanceCache, publisher events.Publisher, logger *logger.Logger) CreditUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &creditUseCase{
		repo:      repo,
		cache:     balanceCache,
		publisher: publisher,
		logger:    logger,
	}
}

func ValidCreditType(creditType string) bool {
	for _, t := range models.CreditTypes {
		if t == creditType {
			return true
		}
	}
	return false
}

func validateMovement(input MovementInput) error {
	if input.TenantID == "" {
		return apperror.Validation("tenant_id is required")
	}
	if !ValidCreditType(input.CreditType) {
		return apperror.Validation("credit_type must be one of sms, whatsapp, email")
	}
	if input.Amount <= 0 {
		return apperror.Validation("amount must be greater than 0")
	}
	return nil
}

func forbidden() error {
	return apperror.Forbidden(apperror.CodeForbidden, "Insufficient permissions")
}

func (uc *creditUseCase) ListPackages(ctx context.Context, actor roles.Actor) ([]*entity.Package, error) {
	return uc.repo.ListPackages(ctx, actor.IsPlatform())
}

func (uc *creditUseCase) CreatePackage(ctx context.Context, actor roles.Actor, input PackageInput) (*entity.Package, error) {
	if !actor.IsPlatform() {
		return nil, forbidden()
	}
	if !ValidCreditType(input.CreditType) {
		return nil, apperror.Validation("credit_type must be one of sms, whatsapp, email")
	}
	if input.Credits <= 0 || input.Price < 0 {
		return nil, apperror.Validation("credits must be positive and price not negative")
	}

	pkg := &entity.Package{
		Name:       input.Name,
		CreditType: input.CreditType,
		Credits:    input.Credits,
		Price:      input.Price,
		IsActive:   true,
	}
	if err := uc.repo.CreatePackage(ctx, pkg); err != nil {
		return nil, fmt.Errorf("failed to create credit package: %w", err)
	}
	uc.logger.Info("Credit package %s created: %d %s credits", pkg.ID, pkg.Credits, pkg.CreditType)
	return pkg, nil
}

func (uc *creditUseCase) UpdatePackage(ctx context.Context, actor roles.Actor, id string, input PackageUpdate) (*entity.Package, error) {
	if !actor.IsPlatform() {
		return nil, forbidden()
	}
	pkg, err := uc.repo.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		pkg.Name = *input.Name
	}
	if input.Credits != nil {
		if *input.Credits <= 0 {
			return nil, apperror.Validation("credits must be positive")
		}
		pkg.Credits = *input.Credits
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperror.Validation("price must not be negative")
		}
		pkg.Price = *input.Price
	}
	if input.IsActive != nil {
		pkg.IsActive = *input.IsActive
	}

	if err := uc.repo.UpdatePackage(ctx, pkg); err != nil {
		return nil, fmt.Errorf("failed to update credit package: %w", err)
	}
	return pkg, nil
}

// GetBalances lists every credit type, reporting missing rows as empty.
func (uc *creditUseCase) GetBalances(ctx context.Context, actor roles.Actor) ([]entity.Balance, error) {
	if actor.TenantID == "" {
		return nil, apperror.BadRequest("tenant_id is required")
	}
	if actor.IsStudent() {
		return nil, forbidden()
	}
	if cached, ok := uc.cache.Get(ctx, actor.TenantID); ok {
		return cached, nil
	}

	rows, err := uc.repo.Balances(ctx, actor.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	byType := make(map[string]*entity.Balance, len(rows))
	for _, row := range rows {
		byType[row.CreditType] = row
	}

	balances := make([]entity.Balance, 0, len(models.CreditTypes))
	for _, creditType := range models.CreditTypes {
		if row, ok := byType[creditType]; ok {
			balances = append(balances, *row)
			continue
		}
		balances = append(balances, entity.Balance{
			TenantID:            actor.TenantID,
			CreditType:          creditType,
			LowBalanceThreshold: persistent.DefaultLowBalanceThreshold,
		}.WithLevel())
	}

	uc.cache.Set(ctx, actor.TenantID, balances)
	return balances, nil
}

func (uc *creditUseCase) SetThreshold(ctx context.Context, actor roles.Actor, creditType string, threshold int64) (*entity.Balance, error) {
	if !actor.IsPlatform() && actor.Role != roles.LibraryOwner {
		return nil, forbidden()
	}
	if actor.TenantID == "" {
		return nil, apperror.BadRequest("tenant_id is required")
	}
	if !ValidCreditType(creditType) {
		return nil, apperror.Validation("credit_type must be one of sms, whatsapp, email")
	}
	if threshold < 0 {
		return nil, apperror.Validation("threshold must not be negative")
	}

	balance, err := uc.repo.SetThreshold(ctx, actor.TenantID, creditType, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to set threshold: %w", err)
	}
	uc.cache.Invalidate(ctx, actor.TenantID)
	return balance, nil
}

func (uc *creditUseCase) Purchase(ctx context.Context, actor roles.Actor, packageID string) (*entity.Transaction, error) {
	if !actor.IsPlatform() && actor.Role != roles.LibraryOwner {
		return nil, forbidden()
	}
	if actor.TenantID == "" {
		return nil, apperror.BadRequest("tenant_id is required")
	}

	pkg, err := uc.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, apperror.Unprocessable(CodePackageUnavailable, "Credit package is no longer available")
	}

	_, tx, err := uc.apply(ctx, entity.Movement{
		TenantID:   actor.TenantID,
		CreditType: pkg.CreditType,
		Type:       models.CreditTxPurchase,
		Amount:     pkg.Credits,
		Reference:  pkg.Name,
		PackageID:  pkg.ID,
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Tenant %s purchased package %s (%d %s credits)", actor.TenantID, pkg.ID, pkg.Credits, pkg.CreditType)
	return tx, nil
}

func (uc *creditUseCase) Grant(ctx context.Context, actor roles.Actor, input MovementInput) (*entity.Transaction, error) {
	if !actor.IsPlatform() {
		return nil, forbidden()
	}
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	_, tx, err := uc.apply(ctx, entity.Movement{
		TenantID:   input.TenantID,
		CreditType: input.CreditType,
		Type:       models.CreditTxGrant,
		Amount:     input.Amount,
		Reference:  input.Reference,
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Granted %d %s credits to tenant %s by %s", input.Amount, input.CreditType, input.TenantID, actor.UserID)
	return tx, nil
}

func (uc *creditUseCase) ListTransactions(ctx context.Context, actor roles.Actor, creditType string, limit, offset int) ([]*entity.Transaction, int64, error) {
	if actor.TenantID == "" {
		return nil, 0, apperror.BadRequest("tenant_id is required")
	}
	if actor.IsStudent() {
		return nil, 0, forbidden()
	}
	if creditType != "" && !ValidCreditType(creditType) {
		return nil, 0, apperror.Validation("credit_type must be one of sms, whatsapp, email")
	}
	return uc.repo.ListTransactions(ctx, actor.TenantID, creditType, limit, offset)
}

func (uc *creditUseCase) Consume(ctx context.Context, input MovementInput) (*entity.Balance, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	balance, tx, err := uc.apply(ctx, entity.Movement{
		TenantID:   input.TenantID,
		CreditType: input.CreditType,
		Type:       models.CreditTxConsume,
		Amount:     -input.Amount,
		Reference:  input.Reference,
	})
	if err != nil {
		return nil, err
	}

	if entity.CrossedThreshold(tx.BalanceBefore, tx.BalanceAfter, balance.LowBalanceThreshold) {
		uc.logger.Warn("Tenant %s %s credits low: %d left", balance.TenantID, balance.CreditType, balance.Balance)
		payload := events.CreditLowBalance{
			TenantID:   balance.TenantID,
			CreditType: balance.CreditType,
			Balance:    balance.Balance,
			Threshold:  balance.LowBalanceThreshold,
		}
		if err := uc.publisher.Publish(ctx, events.CreditLow, payload, creditLowPriority); err != nil {
			uc.logger.Error("Failed to publish %s for tenant %s: %v", events.CreditLow, balance.TenantID, err)
		}
	}
	return balance, nil
}

func (uc *creditUseCase) Refund(ctx context.Context, input MovementInput) (*entity.Balance, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	balance, _, err := uc.apply(ctx, entity.Movement{
		TenantID:   input.TenantID,
		CreditType: input.CreditType,
		Type:       models.CreditTxRefund,
		Amount:     input.Amount,
		Reference:  input.Reference,
	})
	return balance, err
}

func (uc *creditUseCase) InternalGrant(ctx context.Context, input MovementInput) (*entity.Balance, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	balance, _, err := uc.apply(ctx, entity.Movement{
		TenantID:   input.TenantID,
		CreditType: input.CreditType,
		Type:       models.CreditTxGrant,
		Amount:     input.Amount,
		Reference:  input.Reference,
	})
	return balance, err
}

func (uc *creditUseCase) apply(ctx context.Context, m entity.Movement) (*entity.Balance, *entity.Transaction, error) {
	balance, tx, err := uc.repo.Apply(ctx, m)
	if err != nil {
		if errors.Is(err, persistent.ErrInsufficientCredits) {
			return nil, nil, apperror.PaymentRequired(CodeInsufficientCredits, fmt.Sprintf("Insufficient %s credits", m.CreditType))
		}
		return nil, nil, fmt.Errorf("failed to apply %s of %d %s credits: %w", m.Type, m.Amount, m.CreditType, err)
	}
	uc.cache.Invalidate(ctx, m.TenantID)
	return balance, tx, nil
}
