package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymportal/internal/billing"
	"gymportal/internal/config"
	"gymportal/internal/db"
	"gymportal/internal/email"
	"gymportal/internal/gym"
	"gymportal/internal/identity"
	"gymportal/internal/logger"
	"gymportal/internal/membership"
	"gymportal/internal/reception"
	"gymportal/internal/server"
	"gymportal/internal/subscription"
	"gymportal/internal/user"

	"github.com/redis/go-redis/v9"
)

// @title Gym Portal API
// @version 1.0
// @description Gym provisioning, reception staff and subscription access.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init()
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	logger.Info("Starting gym portal", "identity_provider", cfg.IdentityProvider)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	provider, err := identity.New(cfg)
	if err != nil {
		logger.Fatalf("Failed to configure identity provider: %v", err)
	}

	userRepo := user.NewRepository(database)
	gymRepo := gym.NewRepository(database)
	grantRepo := membership.NewRepository(database)
	subRepo := subscription.NewRepository(database)

	emailService := email.New(rdb, email.Config{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailService.Start(ctx)
	go reportQueueLength(ctx, emailService)

	subService := subscription.NewService(
		subRepo,
		subscription.NewCache(rdb, time.Minute),
		grantRepo,
		provider,
		emailService,
		cfg.TrialDays,
	)
	gymService := gym.NewService(gymRepo, userRepo, subService)
	receptionService := reception.NewService(
		gymService,
		provider,
		userRepo,
		grantRepo,
		subService,
		emailService,
		reception.Options{LoginURL: cfg.LoginURL(), EchoCredentials: cfg.EchoReceptionCredentials},
	)

	srv := server.New(cfg, provider, server.Handlers{
		User:         user.NewHandler(userRepo),
		Gym:          gym.NewHandler(gymService),
		Reception:    reception.NewHandler(receptionService),
		Subscription: subscription.NewHandler(subService),
		Billing:      billing.NewWebhookHandler(cfg.StripeWebhookSecret, subService, provider, emailService),
		System: server.NewSystemHandler(map[string]server.Check{
			"postgres": func(ctx context.Context) error {
				clean, err := db.Exists(ctx, database, "SELECT NOT dirty FROM schema_migrations LIMIT 1")
				if err != nil {
					return err
				}
				if !clean {
					return errors.New("migrations missing or dirty")
				}
				return nil
			},
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		}),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func reportQueueLength(ctx context.Context, emails *email.Service) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emails.QueueLength(ctx)
		}
	}
}
