package server

import (
	"context"
	"errors"
	"log/slog"

	"civicwatch/internal/category"
	"civicwatch/internal/classification"
	"civicwatch/internal/config"
	"civicwatch/internal/db"
	"civicwatch/internal/email"
	"civicwatch/internal/handlers"
	"civicwatch/internal/handlers/api"
	"civicwatch/internal/metrics"
	"civicwatch/internal/middleware"
	"civicwatch/internal/storage"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	DB       *db.DB
	Registry *category.Registry
	Gate     *classification.Gate
	Images   storage.ImageStore
	Notifier *email.Notifier
	Roles    *config.YAMLConfig
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Dependencies) error {
	if s.Cfg.OIDCIssuer == "" {
		return errors.New("OIDC_ISSUER is required")
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.DB)

	authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.DB, deps.Roles)
	if err != nil {
		return err
	}
	pageHandler := handlers.NewPageHandler(deps.DB, deps.Registry, s.Cfg)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	var notifier api.ReportNotifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}

	classifyHandler := api.NewClassifyHandler(deps.Gate, s.Cfg.MaxImageBytes)
	categoryHandler := api.NewCategoryHandler(deps.Registry)
	reportHandler := api.NewReportHandler(deps.DB, deps.Gate, deps.Images, deps.Registry, s.Cfg.MaxImageBytes)
	voteHandler := api.NewVoteHandler(deps.DB)
	moderationHandler := api.NewModerationHandler(deps.DB, notifier)
	userHandler := api.NewUserHandler(deps.DB)

	// Operational endpoints
	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", metrics.Handler())

	// Auth routes
	s.App.Get("/auth/login", authHandler.Login)
	s.App.Get("/auth/callback", authHandler.Callback)
	s.App.Get("/auth/logout", authHandler.Logout)

	// Pages
	s.App.Get("/", authMiddleware.OptionalAuth, pageHandler.Index)
	s.App.Get("/login", authMiddleware.OptionalAuth, pageHandler.Login)

	// Public API
	apiGroup := s.App.Group("/api")
	apiGroup.Get("/categories", categoryHandler.List)
	apiGroup.Get("/reports", reportHandler.List)
	apiGroup.Get("/reports/:id", authMiddleware.OptionalAuth, reportHandler.Get)

	// Citizen API
	apiGroup.Post("/classify", authMiddleware.RequireAuth, classifyHandler.Classify)
	apiGroup.Post("/reports", authMiddleware.RequireAuth, reportHandler.Create)
	apiGroup.Post("/reports/:id/vote", authMiddleware.RequireAuth, voteHandler.Vote)

	// Admin API
	admin := apiGroup.Group("/admin", authMiddleware.RequireAuth, middleware.RequireAdmin)
	admin.Get("/reports", moderationHandler.List)
	admin.Post("/reports/:id/moderate", moderationHandler.Moderate)
	admin.Put("/reports/:id/status", moderationHandler.UpdateStatus)
	admin.Get("/users", userHandler.List)
	admin.Post("/users/:id/role", userHandler.UpdateRole)

	slog.Info("routes registered", "classification", deps.Gate.Mode())
	return nil
}
