package main

import (
	"studyspot/pkg/config"
	app "studyspot/services/credit/internal/app"

	_ "studyspot/services/credit/docs" // Swagger docs
)

// @title           Credit Service API
// @version         1.0
// @description     Messaging credit packages, balances and the internal debit API

// @contact.name   StudySpot Platform Team
// @contact.email  platform@studyspot.in

// @host      localhost:8005
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey InternalKey
// @in header
// @name X-Internal-API-Key

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := cfg.ValidateJWTSecret(); err != nil {
		panic(err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		panic(err)
	}

	if err := application.Run(); err != nil {
		panic(err)
	}

	application.Wait()

	if err := application.Shutdown(); err != nil {
		panic(err)
	}
}
