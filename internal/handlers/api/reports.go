package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/category"
	"civicwatch/internal/db"
	"civicwatch/internal/middleware"
	"civicwatch/internal/models"
	"civicwatch/internal/moderation"
	"civicwatch/internal/storage"
	"civicwatch/internal/validation"
)

const cleanupTimeout = 10 * time.Second

// ReportHandler handles citizen report submission and reads via JSON API.
type ReportHandler struct {
	reports  ReportStore
	gate     Classifier
	images   storage.ImageStore
	registry *category.Registry
	maxBytes int
}

// NewReportHandler creates a new API report handler.
func NewReportHandler(reports ReportStore, gate Classifier, images storage.ImageStore, registry *category.Registry, maxImageBytes int) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		gate:     gate,
		images:   images,
		registry: registry,
		maxBytes: maxImageBytes,
	}
}

// List returns approved reports, optionally filtered by problem and status.
func (h *ReportHandler) List(c fiber.Ctx) error {
	filter := models.ReportFilter{
		Problem: strings.TrimSpace(c.Query("problem")),
	}

	if filter.Problem != "" {
		if _, ok := h.registry.FindByID(filter.Problem); !ok {
			return jsonError(c, fiber.StatusBadRequest, "unknown problem category")
		}
	}

	if raw := c.Query("status"); raw != "" {
		status, err := moderation.ParseStatus(raw)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		filter.Status = status
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return jsonError(c, fiber.StatusBadRequest, "limit must be a positive integer")
		}
		filter.Limit = limit
	}

	reports, err := h.reports.ListApprovedReports(c.Context(), filter)
	if err != nil {
		slog.ErrorContext(c.Context(), "failed to list reports", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch reports")
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return jsonSuccess(c, reports)
}

// Get returns one report. Reports that are not approved are only visible to
// administrators and to their author; everyone else gets a 404.
func (h *ReportHandler) Get(c fiber.Ctx) error {
	id, ok := reportID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid report id")
	}

	report, err := h.reports.GetReportByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrReportNotFound) {
			return jsonError(c, fiber.StatusNotFound, "report not found")
		}
		slog.ErrorContext(c.Context(), "failed to fetch report", "report_id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch report")
	}

	var viewerID string
	var isAdmin bool
	if user := middleware.CurrentUser(c); user != nil {
		viewerID = user.ID.String()
		isAdmin = user.IsAdmin()
	}
	if !moderation.CanView(report.ModerationStatus, report.UserID.String(), viewerID, isAdmin) {
		return jsonError(c, fiber.StatusNotFound, "report not found")
	}

	return jsonSuccess(c, report)
}

// Create validates a submission, runs the photo through the classification
// gate, uploads it and stores the report as pending moderation.
func (h *ReportHandler) Create(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	problem := strings.TrimSpace(c.FormValue("problem"))
	if problem == "" {
		return jsonError(c, fiber.StatusBadRequest, "problem is required")
	}
	if _, ok := h.registry.FindByID(problem); !ok {
		return jsonError(c, fiber.StatusBadRequest, "unknown problem category")
	}

	description, ok, msg := validation.NormalizeDescription(c.FormValue("description"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	lat, okLat := validation.ParseCoordinate(c.FormValue("lat"))
	lng, okLng := validation.ParseCoordinate(c.FormValue("lng"))
	if !okLat || !okLng {
		return jsonError(c, fiber.StatusBadRequest, "lat and lng must be numbers")
	}
	if ok, msg := validation.ValidateCoordinates(lat, lng); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	img, err := readImage(c, h.maxBytes)
	if err != nil {
		return imageError(c, err)
	}

	res := h.gate.Classify(c.Context(), img.data, img.contentType, problem)
	if !res.Success {
		return jsonGateResult(c, res)
	}

	key := storage.NewImageKey(img.contentType)
	imageURL, err := h.images.Put(c.Context(), key, img.data, img.contentType)
	if err != nil {
		if errors.Is(err, storage.ErrStorageDisabled) {
			return jsonError(c, fiber.StatusServiceUnavailable, "image storage is unavailable")
		}
		slog.ErrorContext(c.Context(), "failed to upload report image", "key", key, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to store image")
	}

	report, err := h.reports.CreateReport(c.Context(), models.NewReport{
		UserID:          user.ID,
		Problem:         problem,
		Description:     description,
		Lat:             lat,
		Lng:             lng,
		ImageURL:        imageURL,
		ImageStorageKey: key,
	})
	if err != nil {
		slog.ErrorContext(c.Context(), "failed to create report", "user_id", user.ID, "error", err)
		h.discardImage(key)
		return jsonError(c, fiber.StatusInternalServerError, "failed to create report")
	}

	slog.InfoContext(c.Context(), "report created",
		"report_id", report.ID,
		"problem", report.Problem,
		"classification", res.Kind,
		"confidence", res.Confidence,
	)
	return jsonCreated(c, report)
}

// discardImage removes an uploaded object whose report could not be stored.
// It runs detached from the request so a client disconnect does not skip it.
func (h *ReportHandler) discardImage(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := h.images.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete orphaned report image", "key", key, "error", err)
	}
}
