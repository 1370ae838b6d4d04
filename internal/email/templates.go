package email

import (
	"fmt"
	"html"

	"civicwatch/internal/category"
	"civicwatch/internal/config"
	"civicwatch/internal/models"
	"civicwatch/internal/moderation"
)

// Templates provides email template generation.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

var statusLabels = map[string]string{
	moderation.StatusNew:        "Novo",
	moderation.StatusInProgress: "Em andamento",
	moderation.StatusResolved:   "Resolvido",
}

func statusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #047857; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 22px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .button { display: inline-block; background: #047857; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 10px 0; }
        .info-box { background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #374151; }
        .success { color: #059669; }
        .error { color: #dc2626; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>Mensagem enviada por %s</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(t.cfg.SiteTitle), content, html.EscapeString(t.cfg.SiteTitle), t.cfg.BaseURL, t.cfg.BaseURL)
}

func (t *Templates) reportURL(r *models.Report) string {
	return fmt.Sprintf("%s/reports/%d", t.cfg.BaseURL, r.ID)
}

// ReportModerated generates email for the reporter after a moderation decision.
func (t *Templates) ReportModerated(r *models.Report, reason string) (subject, htmlBody, textBody string) {
	problem := category.LabelFor(r.Problem)
	approved := r.ModerationStatus == moderation.StatusApproved

	verdict, verdictClass, intro := "Rejeitada", "error", "Sua denúncia não foi aprovada pela moderação."
	if approved {
		verdict, verdictClass, intro = "Aprovada", "success", "Sua denúncia foi aprovada e já está visível para a comunidade."
	}
	subject = fmt.Sprintf("[%s] Denúncia #%d: %s", t.cfg.SiteTitle, r.ID, verdict)

	content := fmt.Sprintf(`
        <p>%s</p>

        <div class="info-box">
            <p><span class="label">Problema:</span> %s</p>
            <p><span class="label">Descrição:</span> %s</p>
            <p><span class="label">Moderação:</span> <span class="%s">%s</span></p>
            <p><span class="label">Motivo:</span> %s</p>
        </div>

        <p style="text-align: center;">
            <a href="%s" class="button">Ver denúncia</a>
        </p>
    `,
		intro,
		html.EscapeString(problem),
		html.EscapeString(r.Description),
		verdictClass,
		verdict,
		html.EscapeString(reason),
		t.reportURL(r),
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`%s

Problema: %s
Descrição: %s
Moderação: %s
Motivo: %s

Ver denúncia: %s

--
%s
%s`,
		intro,
		problem,
		r.Description,
		verdict,
		reason,
		t.reportURL(r),
		t.cfg.SiteTitle,
		t.cfg.BaseURL,
	)

	return
}

// ReportStatusChanged generates email for the reporter when the operational
// status of their report changes.
func (t *Templates) ReportStatusChanged(r *models.Report) (subject, htmlBody, textBody string) {
	problem := category.LabelFor(r.Problem)
	status := statusLabel(r.Status)
	subject = fmt.Sprintf("[%s] Denúncia #%d: %s", t.cfg.SiteTitle, r.ID, status)

	content := fmt.Sprintf(`
        <p>O andamento da sua denúncia foi atualizado.</p>

        <div class="info-box">
            <p><span class="label">Problema:</span> %s</p>
            <p><span class="label">Situação:</span> %s</p>
        </div>

        <p style="text-align: center;">
            <a href="%s" class="button">Ver denúncia</a>
        </p>
    `,
		html.EscapeString(problem),
		html.EscapeString(status),
		t.reportURL(r),
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`O andamento da sua denúncia foi atualizado.

Problema: %s
Situação: %s

Ver denúncia: %s

--
%s
%s`,
		problem,
		status,
		t.reportURL(r),
		t.cfg.SiteTitle,
		t.cfg.BaseURL,
	)

	return
}

// PendingDigest generates the periodic reminder for administrators.
func (t *Templates) PendingDigest(pending int) (subject, htmlBody, textBody string) {
	noun := "denúncias aguardam"
	if pending == 1 {
		noun = "denúncia aguarda"
	}
	subject = fmt.Sprintf("[%s] %d %s moderação", t.cfg.SiteTitle, pending, noun)

	content := fmt.Sprintf(`
        <p><strong>%d</strong> %s moderação.</p>

        <p style="text-align: center;">
            <a href="%s/admin/reports" class="button">Abrir fila de moderação</a>
        </p>
    `, pending, noun, t.cfg.BaseURL)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`%d %s moderação.

Fila de moderação: %s/admin/reports

--
%s
%s`,
		pending,
		noun,
		t.cfg.BaseURL,
		t.cfg.SiteTitle,
		t.cfg.BaseURL,
	)

	return
}
