package main

import (
	"errors"
	"fmt"
	"os"

	"studyspot/pkg/config"
	"studyspot/pkg/database"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"

	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoPassword = "password123"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New().With("cmd", "seed")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := seedDatabase(db, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		os.Exit(1)
	}

	log.Info("Database seeded successfully!")
}

func seedDatabase(db *gorm.DB, log *logger.Logger) error {
	if err := seedPlans(db, log); err != nil {
		return err
	}
	if err := seedCreditPackages(db, log); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := ensureUser(db, log, &models.User{
		Email: "admin@studyspot.in", Name: "Platform Admin", Password: string(hash), Role: roles.SuperAdmin, IsActive: true,
	}); err != nil {
		return err
	}

	return seedDemoTenant(db, log, string(hash))
}

func seedPlans(db *gorm.DB, log *logger.Logger) error {
	plans := []models.SubscriptionPlan{
		{
			Code: "starter", Name: "Starter", Description: "One library, up to 50 seats",
			Price: 99900, BillingPeriod: models.BillingMonth, TrialDays: 14,
			MaxLibraries: 1, MaxSeats: 50, MaxStudents: 150, IncludedCredits: 200,
			Features: datatypes.JSONMap{"analytics": false, "whatsapp": false},
		},
		{
			Code: "growth", Name: "Growth", Description: "Up to three libraries",
			Price: 249900, BillingPeriod: models.BillingMonth,
			MaxLibraries: 3, MaxSeats: 200, MaxStudents: 600, IncludedCredits: 1000,
			Features: datatypes.JSONMap{"analytics": true, "whatsapp": true},
		},
		{
			Code: "enterprise-annual", Name: "Enterprise (annual)", Description: "Unlimited libraries, billed yearly",
			Price: 2499900, BillingPeriod: models.BillingYear,
			IncludedCredits: 10000,
			Features:        datatypes.JSONMap{"analytics": true, "whatsapp": true, "priority_support": true},
		},
	}

	for i := range plans {
		var existing models.SubscriptionPlan
		if err := db.Where("code = ?", plans[i].Code).First(&existing).Error; err == nil {
			log.Info("Plan %s already exists, skipping", plans[i].Code)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		plans[i].IsActive = true
		plans[i].IsPublic = true
		if err := db.Create(&plans[i]).Error; err != nil {
			return fmt.Errorf("failed to create plan %s: %w", plans[i].Code, err)
		}
		log.Info("Created plan: %s", plans[i].Code)
	}
	return nil
}

func seedCreditPackages(db *gorm.DB, log *logger.Logger) error {
	packages := []models.CreditPackage{
		{Name: "SMS 500", CreditType: models.CreditTypeSMS, Credits: 500, Price: 12500},
		{Name: "SMS 2000", CreditType: models.CreditTypeSMS, Credits: 2000, Price: 45000},
		{Name: "WhatsApp 1000", CreditType: models.CreditTypeWhatsApp, Credits: 1000, Price: 60000},
		{Name: "Email 5000", CreditType: models.CreditTypeEmail, Credits: 5000, Price: 20000},
	}

	for i := range packages {
		var count int64
		if err := db.Model(&models.CreditPackage{}).Where("name = ?", packages[i].Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		packages[i].IsActive = true
		if err := db.Create(&packages[i]).Error; err != nil {
			return fmt.Errorf("failed to create credit package %s: %w", packages[i].Name, err)
		}
		log.Info("Created credit package: %s", packages[i].Name)
	}
	return nil
}

func ensureUser(db *gorm.DB, log *logger.Logger, user *models.User) (*models.User, error) {
	var existing models.User
	err := db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		log.Info("User %s already exists, skipping", user.Email)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	log.Info("Created user: %s (%s)", user.Email, user.Role)
	return user, nil
}

func seedDemoTenant(db *gorm.DB, log *logger.Logger, passwordHash string) error {
	name := "Gyan Study Centre"
	tenantSlug := slug.Make(name)

	var tenant models.Tenant
	err := db.Where("slug = ?", tenantSlug).First(&tenant).Error
	if err == nil {
		log.Info("Tenant %s already exists, skipping demo data", tenantSlug)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		tenant = models.Tenant{
			Name: name, Slug: tenantSlug, Email: "owner@gyan.example", Phone: "+919800000001",
			Address: "12 MG Road", City: "Pune", Status: models.TenantStatusActive,
			Settings: datatypes.JSONMap{"timezone": "Asia/Kolkata"},
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}

		owner, err := ensureUser(tx, log, &models.User{
			TenantID: &tenant.ID, Email: "owner@gyan.example", Name: "Asha Kulkarni",
			Password: passwordHash, Role: roles.LibraryOwner, IsActive: true,
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&tenant).Update("owner_user_id", owner.ID).Error; err != nil {
			return err
		}

		for i, email := range []string{"ravi@student.example", "meera@student.example"} {
			if _, err := ensureUser(tx, log, &models.User{
				TenantID: &tenant.ID, Email: email, Name: fmt.Sprintf("Demo Student %d", i+1),
				Phone: fmt.Sprintf("+91990000000%d", i+1), Password: passwordHash, Role: roles.Student, IsActive: true,
			}); err != nil {
				return err
			}
		}

		library := models.Library{
			TenantID: tenant.ID, Name: "Gyan Main Hall", Address: "12 MG Road", City: "Pune",
			OpenTime: "06:00", CloseTime: "23:00", IsActive: true,
		}
		if err := tx.Create(&library).Error; err != nil {
			return fmt.Errorf("failed to create library: %w", err)
		}

		seats := make([]models.Seat, 0, 40)
		for n := 1; n <= 40; n++ {
			zone := "quiet"
			if n > 30 {
				zone = "discussion"
			}
			seats = append(seats, models.Seat{
				TenantID: tenant.ID, LibraryID: library.ID, Label: fmt.Sprintf("A%d", n),
				Zone: zone, Status: models.SeatStatusAvailable,
			})
		}
		if err := tx.Create(&seats).Error; err != nil {
			return fmt.Errorf("failed to create seats: %w", err)
		}

		plans := []models.FeePlan{
			{TenantID: tenant.ID, Name: "Hourly", PlanType: "hourly", Price: 3000, IsActive: true},
			{TenantID: tenant.ID, Name: "Day pass", PlanType: "daily", Price: 15000, IsActive: true},
			{TenantID: tenant.ID, LibraryID: &library.ID, Name: "Monthly reserved", PlanType: "monthly", Price: 180000, DiscountPercent: 10, IsActive: true},
		}
		if err := tx.Create(&plans).Error; err != nil {
			return fmt.Errorf("failed to create fee plans: %w", err)
		}

		for _, creditType := range models.CreditTypes {
			balance := models.CreditBalance{TenantID: tenant.ID, CreditType: creditType, Balance: 100, LowBalanceThreshold: 50}
			if err := tx.Create(&balance).Error; err != nil {
				return fmt.Errorf("failed to create credit balance: %w", err)
			}
		}

		log.Info("Created demo tenant %s with library %s and %d seats", tenant.Slug, library.Name, len(seats))
		return nil
	})
}
