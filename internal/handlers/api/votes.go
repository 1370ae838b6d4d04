package api

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/db"
	"civicwatch/internal/metrics"
	"civicwatch/internal/middleware"
	"civicwatch/internal/voting"
)

// VoteHandler applies up/down votes on reports.
type VoteHandler struct {
	votes VoteStore
}

// NewVoteHandler creates a new API vote handler.
func NewVoteHandler(votes VoteStore) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Vote sets the current user's vote on a report. The body is
// {"vote": "up"|"down"|"none"|null}; a missing or null vote retracts.
func (h *VoteHandler) Vote(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, ok := reportID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid report id")
	}

	var body struct {
		Vote *string `json:"vote"`
	}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	dir, err := voting.ParseDirection(body.Vote)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "vote must be up, down, none or null")
	}

	tally, err := h.votes.ApplyVote(c.Context(), user.ID, id, dir)
	if err != nil {
		if errors.Is(err, db.ErrReportNotFound) {
			return jsonError(c, fiber.StatusNotFound, "report not found")
		}
		slog.ErrorContext(c.Context(), "failed to apply vote", "report_id", id, "user_id", user.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to apply vote")
	}

	metrics.RecordVote(string(dir))
	return jsonSuccess(c, tally)
}
