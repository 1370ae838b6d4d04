package api

import (
	"context"

	"github.com/google/uuid"

	"civicwatch/internal/classification"
	"civicwatch/internal/models"
	"civicwatch/internal/voting"
)

// ReportStore is the persistence the report and moderation endpoints use.
type ReportStore interface {
	CreateReport(ctx context.Context, in models.NewReport) (*models.Report, error)
	GetReportByID(ctx context.Context, id int64) (*models.Report, error)
	ListApprovedReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	ListReportsByModerationStatus(ctx context.Context, status string, limit int) ([]models.Report, error)
	ModerateReport(ctx context.Context, id int64, status, reason string, moderatorID uuid.UUID) (*models.Report, error)
	UpdateReportStatus(ctx context.Context, id int64, status string) (*models.Report, error)
}

// VoteStore applies votes to the ledger.
type VoteStore interface {
	ApplyVote(ctx context.Context, userID uuid.UUID, reportID int64, dir voting.Direction) (*voting.Tally, error)
}

// UserStore is the persistence the user administration endpoints use.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role string) error
}

// Classifier runs the image classification gate.
type Classifier interface {
	Classify(ctx context.Context, image []byte, contentType, expectedID string) classification.Result
}

// ReportNotifier tells reporters about changes to their reports. Implementations
// are best-effort and never fail the caller.
type ReportNotifier interface {
	NotifyReportModerated(ctx context.Context, r *models.Report, reason string)
	NotifyReportStatusChanged(ctx context.Context, r *models.Report)
}
