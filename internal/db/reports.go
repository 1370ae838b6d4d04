package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"civicwatch/internal/models"
)

// Listing bounds for report queries.
const (
	DefaultReportLimit = 50
	MaxReportLimit     = 200
)

// reportColumns is the standard column list for report queries, joined with
// the author's name and email.
const reportColumns = `r.id, r.user_id, r.problem, r.description, r.lat, r.lng,
	r.image_url, r.image_storage_key, r.upvotes, r.downvotes, r.status,
	r.moderation_status, r.moderation_reason, r.moderated_by, r.moderated_at,
	r.created_at, r.updated_at, COALESCE(u.name, ''), COALESCE(u.email, '')`

const reportFrom = ` FROM reports r LEFT JOIN users u ON u.id = r.user_id`

func reportDest(r *models.Report) []any {
	return []any{
		&r.ID,
		&r.UserID,
		&r.Problem,
		&r.Description,
		&r.Lat,
		&r.Lng,
		&r.ImageURL,
		&r.ImageStorageKey,
		&r.Upvotes,
		&r.Downvotes,
		&r.Status,
		&r.ModerationStatus,
		&r.ModerationReason,
		&r.ModeratedBy,
		&r.ModeratedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.AuthorName,
		&r.AuthorEmail,
	}
}

// scanReport scans a row into a Report struct.
func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	err := row.Scan(reportDest(&r)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// scanReports scans multiple rows into a slice of Reports.
func scanReports(rows pgx.Rows) ([]models.Report, error) {
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(reportDest(&r)...); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultReportLimit
	}
	if limit > MaxReportLimit {
		return MaxReportLimit
	}
	return limit
}

// CreateReport inserts a new report in the pending moderation state.
func (d *DB) CreateReport(ctx context.Context, in models.NewReport) (*models.Report, error) {
	query := `
		WITH inserted AS (
			INSERT INTO reports (user_id, problem, description, lat, lng, image_url, image_storage_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT ` + reportColumns + `
		FROM inserted r LEFT JOIN users u ON u.id = r.user_id
	`

	return scanReport(d.Pool.QueryRow(ctx, query,
		in.UserID,
		in.Problem,
		in.Description,
		in.Lat,
		in.Lng,
		in.ImageURL,
		in.ImageStorageKey,
	))
}

// GetReportByID retrieves a report regardless of its moderation status.
func (d *DB) GetReportByID(ctx context.Context, id int64) (*models.Report, error) {
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE r.id = $1`
	return scanReport(d.Pool.QueryRow(ctx, query, id))
}

// ListApprovedReports returns publicly visible reports, newest first.
func (d *DB) ListApprovedReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	conditions := []string{"r.moderation_status = 'approved'"}
	var args []any

	if filter.Problem != "" {
		args = append(args, filter.Problem)
		conditions = append(conditions, "r.problem = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "r.status = $"+strconv.Itoa(len(args)))
	}
	args = append(args, clampLimit(filter.Limit))

	query := `SELECT ` + reportColumns + reportFrom +
		` WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY r.created_at DESC, r.id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanReports(rows)
}

// ListReportsByModerationStatus returns reports in the given moderation state,
// oldest first so the moderation queue is worked in arrival order.
func (d *DB) ListReportsByModerationStatus(ctx context.Context, status string, limit int) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + reportFrom + `
		WHERE r.moderation_status = $1
		ORDER BY r.created_at ASC, r.id ASC
		LIMIT $2`

	rows, err := d.Pool.Query(ctx, query, status, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanReports(rows)
}

// ModerateReport records a moderation decision. The previous decision may be
// any of the moderation statuses.
func (d *DB) ModerateReport(ctx context.Context, id int64, status, reason string, moderatorID uuid.UUID) (*models.Report, error) {
	query := `
		WITH updated AS (
			UPDATE reports
			SET moderation_status = $2, moderation_reason = $3, moderated_by = $4,
				moderated_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + reportColumns + `
		FROM updated r LEFT JOIN users u ON u.id = r.user_id
	`
	return scanReport(d.Pool.QueryRow(ctx, query, id, status, reason, moderatorID))
}

// UpdateReportStatus sets the operational status of a report.
func (d *DB) UpdateReportStatus(ctx context.Context, id int64, status string) (*models.Report, error) {
	query := `
		WITH updated AS (
			UPDATE reports SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + reportColumns + `
		FROM updated r LEFT JOIN users u ON u.id = r.user_id
	`
	return scanReport(d.Pool.QueryRow(ctx, query, id, status))
}

// CountReportsByStatus returns report counts grouped by both status axes.
func (d *DB) CountReportsByStatus(ctx context.Context) ([]models.ReportStatusCount, error) {
	query := `
		SELECT status, moderation_status, COUNT(*)
		FROM reports
		GROUP BY status, moderation_status
	`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.ReportStatusCount
	for rows.Next() {
		var c models.ReportStatusCount
		if err := rows.Scan(&c.Status, &c.ModerationStatus, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountPendingReports returns the number of reports awaiting moderation.
func (d *DB) CountPendingReports(ctx context.Context) (int, error) {
	var count int
	err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE moderation_status = 'pending'`).Scan(&count)
	return count, err
}
