package email

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"civicwatch/internal/config"
	"civicwatch/internal/models"
)

// UserLookup is the read side the notifier needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAdminEmails(ctx context.Context) ([]string, error)
}

// Sender delivers a rendered email.
type Sender interface {
	IsEnabled() bool
	SendAsync(to []string, subject, htmlBody, textBody string)
}

// Notifier sends email notifications for report events. Every method is
// best-effort: failures are logged and never returned.
type Notifier struct {
	sender    Sender
	templates *Templates
	cfg       *config.Config
	db        UserLookup
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, db UserLookup) *Notifier {
	return &Notifier{
		sender:    NewService(cfg),
		templates: NewTemplates(cfg),
		cfg:       cfg,
		db:        db,
	}
}

// reporterEmail returns the reporter's address, or "" when it cannot be found.
func (n *Notifier) reporterEmail(ctx context.Context, r *models.Report) string {
	if r.AuthorEmail != "" {
		return r.AuthorEmail
	}
	if n.db == nil || r.UserID == uuid.Nil {
		return ""
	}
	user, err := n.db.GetUserByID(ctx, r.UserID)
	if err != nil {
		slog.WarnContext(ctx, "failed to get reporter", "report_id", r.ID, "error", err)
		return ""
	}
	return user.Email
}

// NotifyReportModerated tells the reporter about a moderation decision.
func (n *Notifier) NotifyReportModerated(ctx context.Context, r *models.Report, reason string) {
	if !n.sender.IsEnabled() || !n.cfg.EmailNotifyUserOnModeration {
		return
	}

	to := n.reporterEmail(ctx, r)
	if to == "" {
		return
	}

	subject, htmlBody, textBody := n.templates.ReportModerated(r, reason)
	n.sender.SendAsync([]string{to}, subject, htmlBody, textBody)
}

// NotifyReportStatusChanged tells the reporter about a new operational status.
func (n *Notifier) NotifyReportStatusChanged(ctx context.Context, r *models.Report) {
	if !n.sender.IsEnabled() || !n.cfg.EmailNotifyUserOnStatusChange {
		return
	}

	to := n.reporterEmail(ctx, r)
	if to == "" {
		return
	}

	subject, htmlBody, textBody := n.templates.ReportStatusChanged(r)
	n.sender.SendAsync([]string{to}, subject, htmlBody, textBody)
}

// NotifyPendingDigest reminds administrators that reports await moderation.
func (n *Notifier) NotifyPendingDigest(ctx context.Context, pending int) {
	if !n.sender.IsEnabled() || !n.cfg.EmailNotifyAdminsDigest || pending <= 0 || n.db == nil {
		return
	}

	emails, err := n.db.GetAdminEmails(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get admin emails for digest", "error", err)
		return
	}
	if len(emails) == 0 {
		slog.InfoContext(ctx, "no admin emails found for moderation digest")
		return
	}

	subject, htmlBody, textBody := n.templates.PendingDigest(pending)
	n.sender.SendAsync(emails, subject, htmlBody, textBody)
}
