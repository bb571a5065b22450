package main

import (
	"context"
	"fmt"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/internal/services/payment"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/internal/storage/memory"
	"github.com/impactbridge/marketplace/internal/storage/relational"
	"github.com/impactbridge/marketplace/internal/utils"
	"github.com/impactbridge/marketplace/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg        *config.Config
	store      storage.Storage
	hub        *services.SSEHub
	projects   *services.ProjectService
	auth       *services.AuthService
	donations  *services.DonationService
	stats      *services.StatsService
	payments   *payment.Service
	reconciler *services.StatsReconciler
	taskQueue  services.TaskQueue
	worker     *services.Worker
}

// openStorage returns the backend selected by cfg.Driver, migrated and
// ready for use.
func openStorage(cfg *config.DatabaseConfig, mode string) (storage.Storage, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		return memory.New(), nil
	}

	db, err := models.OpenDB(cfg, mode)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return relational.New(db), nil
}

// bootstrap initializes all application dependencies: storage, services,
// queue and schedulers.
func bootstrap(ctx context.Context, cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	store, err := openStorage(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Database.Driver, err)
	}
	logger.Infof("Storage ready (driver: %s)", cfg.Database.Driver)

	hub := services.NewSSEHub()
	svc := &appServices{
		cfg:       cfg,
		store:     store,
		hub:       hub,
		projects:  services.NewProjectService(store),
		auth:      services.NewAuthService(store, &cfg.JWT),
		donations: services.NewDonationService(store, hub),
		stats:     services.NewStatsService(store),
	}

	if cfg.Database.Seed {
		if _, err := svc.projects.SeedIfEmpty(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to seed sample projects")
		}
	}

	gateway := payment.NewStripeGateway(&cfg.Stripe)
	if cfg.Stripe.SecretKey == "" {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, payment intents will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, webhooks will be rejected")
	}
	svc.payments = payment.NewService(gateway, store, svc.donations, &cfg.Stripe)

	// Uses Redis when enabled, otherwise books donations inside the webhook request.
	svc.taskQueue = services.NewTaskQueue(cfg, svc.payments.ProcessDonation)
	svc.payments.SetQueue(svc.taskQueue)

	if svc.taskQueue.IsAsync() {
		svc.worker = services.NewWorker(&cfg.Redis, svc.payments.ProcessDonation)
		if svc.worker != nil {
			if err := svc.worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start worker")
			}
		}
	}

	svc.reconciler = services.NewStatsReconciler(store, &cfg.Reconcile)
	if err := svc.reconciler.StartScheduler(); err != nil {
		logger.Error().Err(err).Msg("Failed to start stats reconciler")
	}

	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.reconciler.StopScheduler()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if err := s.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close storage")
	}
}
