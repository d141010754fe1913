package persistent

import (
	"context"
	"errors"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/services/credit/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLowBalanceThreshold applies to balance rows created on first use.
const DefaultLowBalanceThreshold = 100

var ErrInsufficientCredits = errors.New("insufficient credits")

type CreditRepository interface {
	CreatePackage(ctx context.Context, pkg *entity.Package) error
	GetPackage(ctx context.Context, id string) (*entity.Package, error)
	ListPackages(ctx context.Context, includeInactive bool) ([]*entity.Package, error)
	UpdatePackage(ctx context.Context, pkg *entity.Package) error

	Balances(ctx context.Context, tenantID string) ([]*entity.Balance, error)
	SetThreshold(ctx context.Context, tenantID, creditType string, threshold int64) (*entity.Balance, error)
	// Apply moves the balance by m.Amount under a row lock and records the
	// transaction. Debits that would go negative return ErrInsufficientCredits.
	Apply(ctx context.Context, m entity.Movement) (*entity.Balance, *entity.Transaction, error)
	ListTransactions(ctx context.Context, tenantID, creditType string, limit, offset int) ([]*entity.Transaction, int64, error)
}

type creditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) CreditRepository {
	return &creditRepository{db: db}
}

func (r *creditRepository) CreatePackage(ctx context.Context, pkg *entity.Package) error {
	pkgModel := ToPackageModel(pkg)
	if err := r.db.WithContext(ctx).Create(pkgModel).Error; err != nil {
		return err
	}
	*pkg = *ToPackageEntity(pkgModel)
	return nil
}

func (r *creditRepository) GetPackage(ctx context.Context, id string) (*entity.Package, error) {
	var pkgModel models.CreditPackage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkgModel).Error; err != nil {
		return nil, apperror.FromDB(err, "credit package")
	}
	return ToPackageEntity(&pkgModel), nil
}

func (r *creditRepository) ListPackages(ctx context.Context, includeInactive bool) ([]*entity.Package, error) {
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var pkgModels []models.CreditPackage
	if err := query.Order("credit_type, credits").Find(&pkgModels).Error; err != nil {
		return nil, err
	}

	packages := make([]*entity.Package, len(pkgModels))
	for i := range pkgModels {
		packages[i] = ToPackageEntity(&pkgModels[i])
	}
	return packages, nil
}

func (r *creditRepository) UpdatePackage(ctx context.Context, pkg *entity.Package) error {
	return r.db.WithContext(ctx).Save(ToPackageModel(pkg)).Error
}

func (r *creditRepository) Balances(ctx context.Context, tenantID string) ([]*entity.Balance, error) {
	var rows []models.CreditBalance
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&rows).Error; err != nil {
		return nil, err
	}

	balances := make([]*entity.Balance, len(rows))
	for i := range rows {
		balances[i] = ToBalanceEntity(&rows[i])
	}
	return balances, nil
}

// lockBalance returns the tenant's balance row for creditType, creating it
// first when missing, locked for the rest of tx.
func lockBalance(tx *gorm.DB, tenantID, creditType string) (*models.CreditBalance, error) {
	seed := models.CreditBalance{TenantID: tenantID, CreditType: creditType, LowBalanceThreshold: DefaultLowBalanceThreshold}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var row models.CreditBalance
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND credit_type = ?", tenantID, creditType).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *creditRepository) SetThreshold(ctx context.Context, tenantID, creditType string, threshold int64) (*entity.Balance, error) {
	var balance *entity.Balance
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockBalance(tx, tenantID, creditType)
		if err != nil {
			return err
		}
		if err := tx.Model(row).Update("low_balance_threshold", threshold).Error; err != nil {
			return err
		}
		row.LowBalanceThreshold = threshold
		balance = ToBalanceEntity(row)
		return nil
	})
	return balance, err
}

func (r *creditRepository) Apply(ctx context.Context, m entity.Movement) (*entity.Balance, *entity.Transaction, error) {
	var (
		balance     *entity.Balance
		transaction *entity.Transaction
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockBalance(tx, m.TenantID, m.CreditType)
		if err != nil {
			return err
		}

		before := row.Balance
		after := before + m.Amount
		if after < 0 {
			return ErrInsufficientCredits
		}
		if err := tx.Model(row).Update("balance", after).Error; err != nil {
			return err
		}
		row.Balance = after

		txModel := &models.CreditTransaction{
			TenantID:      m.TenantID,
			CreditType:    m.CreditType,
			Type:          m.Type,
			Amount:        m.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Reference:     m.Reference,
		}
		if m.PackageID != "" {
			packageID := m.PackageID
			txModel.PackageID = &packageID
		}
		if err := tx.Create(txModel).Error; err != nil {
			return err
		}

		balance = ToBalanceEntity(row)
		transaction = ToTransactionEntity(txModel)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return balance, transaction, nil
}

func (r *creditRepository) ListTransactions(ctx context.Context, tenantID, creditType string, limit, offset int) ([]*entity.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("tenant_id = ?", tenantID)
	if creditType != "" {
		query = query.Where("credit_type = ?", creditType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CreditTransaction
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	transactions := make([]*entity.Transaction, len(rows))
	for i := range rows {
		transactions[i] = ToTransactionEntity(&rows[i])
	}
	return transactions, total, nil
}
