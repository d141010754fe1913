package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"studyspot/migrations"
	"studyspot/pkg/config"
	"studyspot/pkg/logger"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v3"
)

// gooseLogger adapts logger.Logger to goose.Logger.
type gooseLogger struct {
	*logger.Logger
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.Fatal(format, v...)
}

func main() {
	log := logger.New().With("cmd", "migrate")

	app := &cli.Command{
		Name:  "migrate",
		Usage: "Apply and inspect StudySpot database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory for new migration files (create only)",
				Value: "migrations",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(log, func(db *sql.DB) error {
						if err := goose.UpContext(ctx, db, "."); err != nil {
							return fmt.Errorf("failed to run migrations: %w", err)
						}
						log.Info("Migrations applied successfully")
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the latest migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(log, func(db *sql.DB) error {
						if err := goose.DownContext(ctx, db, "."); err != nil {
							return fmt.Errorf("failed to rollback migrations: %w", err)
						}
						log.Info("Migrations rolled back successfully")
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "Print the status of every migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(log, func(db *sql.DB) error {
						return goose.StatusContext(ctx, db, ".")
					})
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new SQL migration file",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("name is required for create command")
					}
					goose.SetBaseFS(nil)
					if err := goose.Create(nil, cmd.String("dir"), name, "sql"); err != nil {
						return fmt.Errorf("failed to create migration: %w", err)
					}
					log.Info("Created migration: %s", name)
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal("migrate: %v", err)
	}
}

func withDB(log *logger.Logger, fn func(db *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	goose.SetLogger(gooseLogger{log})
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	return fn(db)
}
