package email

import (
	"strings"
	"testing"

	"civicwatch/internal/category"
	"civicwatch/internal/config"
	"civicwatch/internal/models"
	"civicwatch/internal/moderation"
)

func testTemplates() *Templates {
	return NewTemplates(&config.Config{SiteTitle: "CivicWatch", BaseURL: "https://civic.example.com"})
}

func TestTemplates_ReportModerated(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		wantSubject string
		wantClass   string
	}{
		{"approved", moderation.StatusApproved, "[CivicWatch] Denúncia #42: Aprovada", `class="success"`},
		{"rejected", moderation.StatusRejected, "[CivicWatch] Denúncia #42: Rejeitada", `class="error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &models.Report{ID: 42, Problem: category.Lixo, Description: "Lixo <na> calçada", ModerationStatus: tt.status}
			subject, htmlBody, textBody := testTemplates().ReportModerated(r, "Foto nítida")

			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if !strings.Contains(htmlBody, tt.wantClass) {
				t.Errorf("html body missing %s", tt.wantClass)
			}
			if !strings.Contains(htmlBody, "Lixo &lt;na&gt; calçada") {
				t.Error("html body should escape the description")
			}
			if !strings.Contains(htmlBody, "https://civic.example.com/reports/42") {
				t.Error("html body missing report link")
			}
			if !strings.Contains(textBody, "Problema: Lixo acumulado") {
				t.Errorf("text body missing category label:\n%s", textBody)
			}
			if !strings.Contains(textBody, "Motivo: Foto nítida") {
				t.Errorf("text body missing reason:\n%s", textBody)
			}
		})
	}
}

func TestTemplates_ReportStatusChanged(t *testing.T) {
	r := &models.Report{ID: 7, Problem: category.Buraco, Status: moderation.StatusInProgress}
	subject, htmlBody, textBody := testTemplates().ReportStatusChanged(r)

	if subject != "[CivicWatch] Denúncia #7: Em andamento" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(htmlBody, "Buraco na via") {
		t.Error("html body missing category label")
	}
	if !strings.Contains(textBody, "Situação: Em andamento") {
		t.Errorf("text body missing status:\n%s", textBody)
	}
}

func TestTemplates_PendingDigest(t *testing.T) {
	tests := []struct {
		pending     int
		wantSubject string
	}{
		{1, "[CivicWatch] 1 denúncia aguarda moderação"},
		{5, "[CivicWatch] 5 denúncias aguardam moderação"},
	}

	for _, tt := range tests {
		subject, htmlBody, textBody := testTemplates().PendingDigest(tt.pending)
		if subject != tt.wantSubject {
			t.Errorf("PendingDigest(%d) subject = %q, want %q", tt.pending, subject, tt.wantSubject)
		}
		if !strings.Contains(htmlBody, "https://civic.example.com/admin/reports") {
			t.Error("html body missing queue link")
		}
		if !strings.Contains(textBody, "https://civic.example.com/admin/reports") {
			t.Error("text body missing queue link")
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel(moderation.StatusResolved); got != "Resolvido" {
		t.Errorf("statusLabel() = %q, want %q", got, "Resolvido")
	}
	if got := statusLabel("archived"); got != "archived" {
		t.Errorf("statusLabel() = %q, want %q", got, "archived")
	}
}
