package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/classification"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonCreated returns a 201 response with data wrapped in the standard envelope.
func jsonCreated(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonGateResult writes a classification gate result. Rejections keep the
// structured result under data next to the user-facing message.
func jsonGateResult(c fiber.Ctx, res classification.Result) error {
	if res.Success {
		return jsonSuccess(c, res)
	}
	return c.Status(res.HTTPStatus()).JSON(fiber.Map{
		"status": "error",
		"error":  res.Message,
		"data":   res,
	})
}

// reportID parses the :id route parameter.
func reportID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
