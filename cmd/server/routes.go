package main

import (
	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/handlers"
	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/impactbridge/marketplace/internal/middleware"
	"github.com/impactbridge/marketplace/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine. The
// returned limiter must be stopped on shutdown.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(metrics.GinMiddleware())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.Origins))

	// Throttles card checkouts and gateway callbacks per IP.
	paymentLimiter := middleware.NewRateLimiter(svc.cfg.RateLimit.RPS, svc.cfg.RateLimit.Burst)

	healthHandler := handlers.NewHealthHandler(svc.store, svc.taskQueue, svc.hub)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	projectHandler := handlers.NewProjectHandler(svc.projects)
	userHandler := handlers.NewUserHandler(svc.auth, svc.donations, svc.stats)
	donationHandler := handlers.NewDonationHandler(svc.donations, svc.stats)
	paymentHandler := handlers.NewPaymentHandler(svc.payments)
	sseHandler := handlers.NewSSEHandler(svc.hub)

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(), middleware.AuditLog())
	{
		// Projects
		api.GET("/projects", projectHandler.List)
		api.POST("/projects", projectHandler.Create)
		api.POST("/projects/seed", projectHandler.Seed)
		api.GET("/projects/:id", projectHandler.GetByID)
		api.PUT("/projects/:id", projectHandler.Update)
		api.DELETE("/projects/:id", projectHandler.Delete)
		api.GET("/projects/:id/donations", projectHandler.Donations)
		api.GET("/projects/:id/impact", projectHandler.Impact)
		api.POST("/projects/:id/impact", projectHandler.RecordImpact)

		// Users & auth
		api.POST("/users", userHandler.Create)
		api.GET("/users/:id/donations", userHandler.Donations)
		api.GET("/users/:id/stats", userHandler.Stats)
		api.POST("/auth/login", userHandler.Login)
		api.GET("/auth/me", middleware.AuthRequired(), userHandler.GetCurrentUser)

		// Donations & stats
		api.POST("/donations", donationHandler.Create)
		api.GET("/stats/global", donationHandler.GlobalStats)

		// Payments
		payments := api.Group("", paymentLimiter.Middleware())
		{
			payments.POST("/create-payment-intent", paymentHandler.CreateIntent)
			payments.POST("/webhooks/stripe", paymentHandler.Webhook)
		}
		api.GET("/payments/config", paymentHandler.Config)

		// Live donation feed
		api.GET("/events/donations", sseHandler.StreamDonationEvents)
	}

	return paymentLimiter
}
