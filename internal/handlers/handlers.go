// Package handlers serves the server-rendered pages and the OIDC login flow.
// The JSON API lives in the api subpackage.
package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/category"
	"civicwatch/internal/config"
	"civicwatch/internal/middleware"
	"civicwatch/internal/models"
)

// recentReportsLimit is how many approved reports the home page lists.
const recentReportsLimit = 20

// ReportLister is the read side the home page needs.
type ReportLister interface {
	ListApprovedReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

// PageHandler renders the HTML pages.
type PageHandler struct {
	reports  ReportLister
	registry *category.Registry
	cfg      *config.Config
}

// NewPageHandler creates a new page handler.
func NewPageHandler(reports ReportLister, registry *category.Registry, cfg *config.Config) *PageHandler {
	return &PageHandler{reports: reports, registry: registry, cfg: cfg}
}

// Index renders the home page with the latest approved reports.
func (h *PageHandler) Index(c fiber.Ctx) error {
	reports, err := h.reports.ListApprovedReports(c.Context(), models.ReportFilter{Limit: recentReportsLimit})
	if err != nil {
		slog.ErrorContext(c.Context(), "failed to list reports for home page", "error", err)
		reports = nil
	}

	return c.Render("index", MergeBranding(fiber.Map{
		"User":       middleware.CurrentUser(c),
		"Reports":    reports,
		"Categories": h.registry.All(),
	}, h.cfg))
}

// Login renders the login page, or sends signed-in users home.
func (h *PageHandler) Login(c fiber.Ctx) error {
	if middleware.CurrentUser(c) != nil {
		return c.Redirect().To("/")
	}
	return c.Render("login", MergeBranding(fiber.Map{}, h.cfg))
}
