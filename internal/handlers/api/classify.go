package api

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/validation"
)

var (
	errImageMissing     = errors.New("image is required")
	errImageTooLarge    = errors.New("image is too large")
	errImageUnsupported = errors.New("image must be a JPEG, PNG, WebP or GIF")
)

// upload is an image read from a multipart form with its sniffed content type.
type upload struct {
	data        []byte
	contentType string
}

const defaultMaxImageBytes = 10 << 20

// readImage reads the "image" form file, capped at maxBytes.
func readImage(c fiber.Ctx, maxBytes int) (*upload, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	fh, err := c.FormFile("image")
	if err != nil || fh.Size == 0 {
		return nil, errImageMissing
	}
	if fh.Size > int64(maxBytes) {
		return nil, errImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errImageMissing
	}
	if len(data) > maxBytes {
		return nil, errImageTooLarge
	}

	ct, ok := validation.DetectImageType(data)
	if !ok {
		return nil, errImageUnsupported
	}
	return &upload{data: data, contentType: ct}, nil
}

// imageError maps a readImage failure onto a JSON response.
func imageError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errImageMissing), errors.Is(err, errImageUnsupported):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, errImageTooLarge):
		return jsonError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	default:
		return jsonError(c, fiber.StatusBadRequest, "invalid image upload")
	}
}

// ClassifyHandler exposes the classification gate on its own so clients can
// check a photo before filling in a report.
type ClassifyHandler struct {
	gate     Classifier
	maxBytes int
}

// NewClassifyHandler creates a new classification handler.
func NewClassifyHandler(gate Classifier, maxImageBytes int) *ClassifyHandler {
	return &ClassifyHandler{gate: gate, maxBytes: maxImageBytes}
}

// Classify runs the uploaded image through the gate. expected_category is optional.
func (h *ClassifyHandler) Classify(c fiber.Ctx) error {
	img, err := readImage(c, h.maxBytes)
	if err != nil {
		return imageError(c, err)
	}

	expected := strings.TrimSpace(c.FormValue("expected_category"))
	res := h.gate.Classify(c.Context(), img.data, img.contentType, expected)
	return jsonGateResult(c, res)
}
