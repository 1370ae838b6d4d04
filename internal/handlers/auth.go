package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"golang.org/x/oauth2"

	"civicwatch/internal/config"
	"civicwatch/internal/middleware"
	"civicwatch/internal/models"
)

// UserStore persists users on login.
type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) error
}

// RoleResolver maps identity claims onto a local role.
type RoleResolver interface {
	RoleClaim() string
	ResolveRole(email string, claimValues []string) string
}

// AuthHandler handles OIDC authentication flows.
type AuthHandler struct {
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	users        UserStore
	roles        RoleResolver
	cfg          *config.Config
}

// NewAuthHandler creates a new auth handler with OIDC configuration.
// roles may be nil when no role mapping file is present.
func NewAuthHandler(ctx context.Context, cfg *config.Config, users UserStore, roles *config.YAMLConfig) (*AuthHandler, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, err
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	h := &AuthHandler{
		provider:     provider,
		oauth2Config: oauth2Config,
		verifier:     provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
		users:        users,
		cfg:          cfg,
	}
	if roles != nil {
		h.roles = roles
	}
	return h, nil
}

// Login initiates the OIDC login flow.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	state, err := generateState()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to start login")
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sess.Set("oauth_state", state)

	return c.Redirect().To(h.oauth2Config.AuthCodeURL(state))
}

// Callback handles the OIDC callback after authentication.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	savedState, _ := sess.Get("oauth_state").(string)
	if savedState == "" || savedState != c.Query("state") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	}
	sess.Delete("oauth_state")

	oauth2Token, err := h.oauth2Config.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		slog.WarnContext(c.Context(), "oidc code exchange failed", "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "failed to exchange code")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing id_token")
	}

	idToken, err := h.verifier.Verify(c.Context(), rawIDToken)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id_token")
	}

	claims := make(map[string]any)
	if err := idToken.Claims(&claims); err != nil {
		return err
	}

	// Some providers only put minimal claims in the ID token.
	userInfo, err := h.provider.UserInfo(c.Context(), oauth2.StaticTokenSource(oauth2Token))
	if err == nil {
		var userInfoClaims map[string]any
		if err := userInfo.Claims(&userInfoClaims); err == nil {
			for k, v := range userInfoClaims {
				claims[k] = v
			}
		}
	} else {
		slog.WarnContext(c.Context(), "failed to fetch userinfo", "error", err)
	}

	if h.cfg.IsDev() {
		slog.DebugContext(c.Context(), "oidc claims received", "claims", claims)
	}

	user := userFromClaims(claims, h.roles)
	if user.Sub == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing subject claim")
	}
	if err := h.users.UpsertUser(c.Context(), user); err != nil {
		slog.ErrorContext(c.Context(), "failed to upsert user", "sub", user.Sub, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to sign in")
	}

	sess.Set(middleware.SessionUserKey, user.Sub)

	redirectURL := "/"
	if saved, ok := sess.Get("redirect_after_login").(string); ok && isLocalPath(saved) {
		redirectURL = saved
	}
	sess.Delete("redirect_after_login")

	return c.Redirect().To(redirectURL)
}

// Logout clears the user session.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if sess := session.FromContext(c); sess != nil {
		_ = sess.Destroy()
	}
	return c.Redirect().To("/")
}

// userFromClaims builds the user to upsert. Role stays empty unless the role
// mapping resolves one, which keeps the stored role.
func userFromClaims(claims map[string]any, roles RoleResolver) *models.User {
	user := &models.User{}
	user.Sub, _ = claims["sub"].(string)
	user.Email, _ = claims["email"].(string)
	user.Name, _ = claims["name"].(string)
	user.Picture, _ = claims["picture"].(string)

	if roles != nil {
		user.Role = roles.ResolveRole(user.Email, claimStrings(claims[roles.RoleClaim()]))
	}
	return user
}

// claimStrings flattens a string or array claim into its string values.
func claimStrings(v any) []string {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

// isLocalPath accepts only same-site absolute paths as post-login targets.
func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
