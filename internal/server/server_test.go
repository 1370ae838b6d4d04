package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/encryptcookie"
	"github.com/gofiber/fiber/v3/middleware/session"

	"civicwatch/internal/config"
	"civicwatch/internal/middleware"
)

// TestSessionSubjectSurvivesEncryptedCookies replays the encrypted session
// cookie across requests, the way a signed-in browser does.
func TestSessionSubjectSurvivesEncryptedCookies(t *testing.T) {
	app := fiber.New()
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: deriveEncryptionKey("test-secret-that-is-long-enough-for-production"),
	}))
	sessionMiddleware, _ := session.NewWithStore(session.Config{
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	app.Use(sessionMiddleware)

	app.Post("/signin", func(c fiber.Ctx) error {
		sess := session.FromContext(c)
		if sess == nil {
			return c.Status(fiber.StatusInternalServerError).SendString("no session")
		}
		sess.Set(middleware.SessionUserKey, "oidc|ana")
		return c.SendString("ok")
	})
	app.Get("/whoami", func(c fiber.Ctx) error {
		sub, _ := session.FromContext(c).Get(middleware.SessionUserKey).(string)
		return c.SendString(sub)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/signin", nil))
	if err != nil {
		t.Fatalf("signin request failed: %v", err)
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		t.Fatal("signin returned no cookies")
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("whoami request %d failed: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || string(body) != "oidc|ana" {
			t.Fatalf("whoami request %d = %d %q, want 200 %q", i, resp.StatusCode, body, "oidc|ana")
		}
		if next := resp.Cookies(); len(next) > 0 {
			cookies = next
		}
	}
}

func TestDeriveEncryptionKey(t *testing.T) {
	key := deriveEncryptionKey("secret")
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("key is not base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("key length = %d, want 32", len(raw))
	}
	if deriveEncryptionKey("secret") != key {
		t.Error("deriveEncryptionKey is not deterministic")
	}
	if deriveEncryptionKey("other") == key {
		t.Error("different secrets produced the same key")
	}
}

func TestErrorHandlerAPI(t *testing.T) {
	cfg := &config.Config{SiteTitle: "CivicWatch"}
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(cfg)})
	app.Get("/api/fiber-error", func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	})
	app.Get("/api/plain-error", func(c fiber.Ctx) error {
		return errors.New("pq: connection refused on 10.0.0.5")
	})

	tests := []struct {
		path        string
		wantStatus  int
		wantMessage string
	}{
		{"/api/fiber-error", http.StatusBadRequest, "invalid state"},
		{"/api/plain-error", http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if body.Status != "error" || body.Error != tt.wantMessage {
				t.Errorf("body = %+v, want error %q", body, tt.wantMessage)
			}
		})
	}
}

func TestNewStorageWithoutRedis(t *testing.T) {
	if s := newStorage(&config.Config{}); s != nil {
		t.Errorf("newStorage() = %v, want nil for in-memory fallback", s)
	}
}

func TestBuildTLSConfig(t *testing.T) {
	tc, err := buildTLSConfig(&config.Config{TLSEnabled: true})
	if err != nil {
		t.Fatalf("buildTLSConfig() error = %v", err)
	}
	if tc.ClientCAs != nil {
		t.Error("client CAs set without a CA file")
	}

	if _, err := buildTLSConfig(&config.Config{TLSCAFile: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Error("expected error for missing CA file")
	}

	bad := filepath.Join(t.TempDir(), "bad.pem")
	if err := os.WriteFile(bad, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := buildTLSConfig(&config.Config{TLSCAFile: bad}); err == nil {
		t.Error("expected error for unparsable CA file")
	}
}
