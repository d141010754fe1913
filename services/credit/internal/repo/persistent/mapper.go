package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/credit/internal/entity"
)

func ToPackageEntity(m *models.CreditPackage) *entity.Package {
	return &entity.Package{
		ID:         m.ID,
		Name:       m.Name,
		CreditType: m.CreditType,
		Credits:    m.Credits,
		Price:      m.Price,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func ToPackageModel(e *entity.Package) *models.CreditPackage {
	return &models.CreditPackage{
		ID:         e.ID,
		Name:       e.Name,
		CreditType: e.CreditType,
		Credits:    e.Credits,
		Price:      e.Price,
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func ToBalanceEntity(m *models.CreditBalance) *entity.Balance {
	b := entity.Balance{
		TenantID:            m.TenantID,
		CreditType:          m.CreditType,
		Balance:             m.Balance,
		LowBalanceThreshold: m.LowBalanceThreshold,
	}.WithLevel()
	return &b
}

func ToTransactionEntity(m *models.CreditTransaction) *entity.Transaction {
	tx := &entity.Transaction{
		ID:            m.ID,
		TenantID:      m.TenantID,
		CreditType:    m.CreditType,
		Type:          m.Type,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Reference:     m.Reference,
		CreatedAt:     m.CreatedAt,
	}
	if m.PackageID != nil {
		tx.PackageID = *m.PackageID
	}
	return tx
}
