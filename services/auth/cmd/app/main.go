package main

import (
	"studyspot/pkg/config"
	app "studyspot/services/auth/internal/app"

	_ "studyspot/services/auth/docs" // Swagger docs
)

// @title           Auth Service API
// @version         1.0
// @description     Registration, login, profiles and user administration for StudySpot

// @contact.name   StudySpot Platform Team
// @contact.email  platform@studyspot.in

// @host      localhost:8001
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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
