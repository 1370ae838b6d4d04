package api

import (
	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/category"
	"civicwatch/internal/models"
)

// CategoryHandler lists the report categories.
type CategoryHandler struct {
	registry *category.Registry
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(registry *category.Registry) *CategoryHandler {
	return &CategoryHandler{registry: registry}
}

// List returns every category in display order with its effective threshold.
func (h *CategoryHandler) List(c fiber.Ctx) error {
	all := h.registry.All()
	resp := make([]models.CategoryResponse, len(all))
	for i, cat := range all {
		resp[i] = models.CategoryResponse{
			ID:        cat.ID,
			Label:     cat.Label,
			Threshold: cat.Threshold,
		}
	}
	return jsonSuccess(c, resp)
}
