package api

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/db"
	"civicwatch/internal/metrics"
	"civicwatch/internal/middleware"
	"civicwatch/internal/models"
	"civicwatch/internal/moderation"
)

// adminListLimit caps the moderation queue returned in one request.
const adminListLimit = 200

// ModerationHandler handles report moderation and status changes via JSON API.
// Routes are mounted behind RequireAuth and RequireAdmin.
type ModerationHandler struct {
	reports  ReportStore
	notifier ReportNotifier
}

// NewModerationHandler creates a new API moderation handler. notifier may be nil.
func NewModerationHandler(reports ReportStore, notifier ReportNotifier) *ModerationHandler {
	return &ModerationHandler{reports: reports, notifier: notifier}
}

// List returns reports in one moderation status, oldest first. Defaults to pending.
func (h *ModerationHandler) List(c fiber.Ctx) error {
	status := moderation.StatusPending
	if raw := c.Query("moderation_status"); raw != "" {
		parsed, err := moderation.ParseModerationStatus(raw)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "moderation_status must be pending, approved or rejected")
		}
		status = parsed
	}

	reports, err := h.reports.ListReportsByModerationStatus(c.Context(), status, adminListLimit)
	if err != nil {
		slog.ErrorContext(c.Context(), "failed to list reports for moderation", "status", status, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch reports")
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return jsonSuccess(c, reports)
}

// Moderate approves or rejects a report. Both actions need a reason.
func (h *ModerationHandler) Moderate(c fiber.Ctx) error {
	admin := middleware.CurrentUser(c)
	if admin == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, ok := reportID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid report id")
	}

	var body struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	action, err := moderation.ParseAction(body.Action)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "action must be approve or reject")
	}
	reason, err := moderation.ValidateReason(body.Reason)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.reports.ModerateReport(c.Context(), id, action.TargetStatus(), reason, admin.ID)
	if err != nil {
		if errors.Is(err, db.ErrReportNotFound) {
			return jsonError(c, fiber.StatusNotFound, "report not found")
		}
		slog.ErrorContext(c.Context(), "failed to moderate report", "report_id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to moderate report")
	}

	metrics.RecordModeration(string(action))
	slog.InfoContext(c.Context(), "report moderated",
		"report_id", report.ID,
		"action", action,
		"moderator_id", admin.ID,
	)

	if h.notifier != nil {
		h.notifier.NotifyReportModerated(c.Context(), report, reason)
	}
	return jsonSuccess(c, report)
}

// UpdateStatus sets a report's operational status. Any status may follow any other.
func (h *ModerationHandler) UpdateStatus(c fiber.Ctx) error {
	id, ok := reportID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid report id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	status, err := moderation.ParseStatus(body.Status)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "status must be new, in_progress or resolved")
	}

	report, err := h.reports.UpdateReportStatus(c.Context(), id, status)
	if err != nil {
		if errors.Is(err, db.ErrReportNotFound) {
			return jsonError(c, fiber.StatusNotFound, "report not found")
		}
		slog.ErrorContext(c.Context(), "failed to update report status", "report_id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to update status")
	}

	if h.notifier != nil {
		h.notifier.NotifyReportStatusChanged(c.Context(), report)
	}
	return jsonSuccess(c, report)
}
