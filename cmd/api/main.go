package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/arklim/social-platform-accounts/gen/docs/swagger"
	"github.com/arklim/social-platform-accounts/internal/infra/app"
	"github.com/arklim/social-platform-accounts/internal/infra/config"
)

// @title Social Platform Accounts API
// @version 1.0
// @description Account registration, email verification, and authentication service.
// @BasePath /
func main() {
	if err := run(); err != nil {
		log.Printf("accounts-api: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine, real deployments rely on the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	return application.Run(ctx)
}
