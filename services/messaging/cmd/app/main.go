package main

import (
	"studyspot/pkg/config"
	app "studyspot/services/messaging/internal/app"

	_ "studyspot/services/messaging/docs" // Swagger docs
)

// @title           Messaging Service API
// @version         1.0
// @description     Outbound SMS, WhatsApp, email and in-app messages plus realtime notifications

// @contact.name   StudySpot Platform Team
// @contact.email  platform@studyspot.in

// @host      localhost:8006
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
