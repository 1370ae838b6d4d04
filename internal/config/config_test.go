package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"civicwatch/internal/category"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerAddr != ":3000" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, ":3000")
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Errorf("MaxImageBytes = %d, want %d", cfg.MaxImageBytes, 10<<20)
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Errorf("RateLimitPerMinute = %d, want 100", cfg.RateLimitPerMinute)
	}
	if cfg.ModerationDigestInterval != 24*time.Hour {
		t.Errorf("ModerationDigestInterval = %v, want 24h", cfg.ModerationDigestInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "20")
	t.Setenv("CLASSIFICATION_BYPASS", "true")
	t.Setenv("MODERATION_DIGEST_INTERVAL", "0s")
	t.Setenv("INFERENCE_API_KEY", "hf_test")
	t.Setenv("S3_BUCKET", "photos")

	cfg := Load()

	if cfg.RateLimitPerMinute != 20 {
		t.Errorf("RateLimitPerMinute = %d, want 20", cfg.RateLimitPerMinute)
	}
	if !cfg.ClassificationBypass {
		t.Error("ClassificationBypass = false, want true")
	}
	if cfg.ModerationDigestInterval != 0 {
		t.Errorf("ModerationDigestInterval = %v, want 0", cfg.ModerationDigestInterval)
	}
	if !cfg.IsClassificationEnabled() {
		t.Error("IsClassificationEnabled() = false, want true")
	}
	if !cfg.IsStorageEnabled() {
		t.Error("IsStorageEnabled() = false, want true")
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	t.Setenv("CLASSIFICATION_BYPASS", "maybe")

	cfg := Load()

	if cfg.RateLimitPerMinute != 100 {
		t.Errorf("RateLimitPerMinute = %d, want 100", cfg.RateLimitPerMinute)
	}
	if cfg.ClassificationBypass {
		t.Error("ClassificationBypass = true, want false")
	}
}

func TestLoad_Thresholds(t *testing.T) {
	t.Setenv("CLASSIFICATION_THRESHOLD", "0.3")
	t.Setenv("CLASSIFICATION_THRESHOLD_LIXO", "0.6")
	t.Setenv("CLASSIFICATION_THRESHOLD_BURACO", "-1")
	t.Setenv("CLASSIFICATION_THRESHOLD_ARVORE_CAIDA", "abc")

	th := Load().ClassificationThreshold

	tests := []struct {
		id   string
		want float64
	}{
		{category.Lixo, 0.6},
		{category.Buraco, 0.3},
		{category.ArvoreCaida, 0.3},
		{category.Alagamento, 0.3},
	}
	for _, tt := range tests {
		if got := th.Resolve(tt.id); got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestThresholdEnvKey(t *testing.T) {
	if got := ThresholdEnvKey(category.BueiroEntupido); got != "CLASSIFICATION_THRESHOLD_BUEIRO_ENTUPIDO" {
		t.Errorf("ThresholdEnvKey() = %q", got)
	}
}

func TestIsEmailEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"complete", Config{SMTPEnabled: true, SMTPHost: "smtp", SMTPFrom: "a@b"}, true},
		{"switched off", Config{SMTPEnabled: false, SMTPHost: "smtp", SMTPFrom: "a@b"}, false},
		{"no host", Config{SMTPEnabled: true, SMTPFrom: "a@b"}, false},
		{"no from", Config{SMTPEnabled: true, SMTPHost: "smtp"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsEmailEnabled(); got != tt.want {
				t.Errorf("IsEmailEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadYAMLConfig_Missing(t *testing.T) {
	cfg, err := loadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadYAMLConfig() error = %v", err)
	}
	if cfg != nil {
		t.Errorf("loadYAMLConfig() = %+v, want nil", cfg)
	}
}

func TestLoadYAMLConfig_RoleMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
role_mapping:
  claim: roles
  mappings:
    prefeitura-admins: admin
    cidadaos: user
  admin_emails:
    - chefe@example.com
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadYAMLConfig()
	if err != nil {
		t.Fatalf("LoadYAMLConfig() error = %v", err)
	}
	if cfg.RoleClaim() != "roles" {
		t.Errorf("RoleClaim() = %q, want %q", cfg.RoleClaim(), "roles")
	}

	tests := []struct {
		name   string
		email  string
		values []string
		want   string
	}{
		{"admin email", "Chefe@Example.com", nil, "admin"},
		{"admin claim", "x@example.com", []string{"cidadaos", "prefeitura-admins"}, "admin"},
		{"user claim", "x@example.com", []string{"cidadaos"}, "user"},
		{"unmapped", "x@example.com", []string{"outros"}, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ResolveRole(tt.email, tt.values); got != tt.want {
				t.Errorf("ResolveRole() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestYAMLConfig_NilResolvesNothing(t *testing.T) {
	var cfg *YAMLConfig
	if got := cfg.ResolveRole("a@b", []string{"admins"}); got != "" {
		t.Errorf("ResolveRole() = %q, want empty", got)
	}
	if cfg.RoleClaim() != "" {
		t.Error("RoleClaim() on nil config should be empty")
	}
}
