package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"riverway/internal/config"
	"riverway/internal/db"
	"riverway/internal/handlers/api"
	"riverway/internal/middleware"
	"riverway/internal/models"
)

const sessionOAuthState = "oauth_state"

// AuthHandler handles OIDC sign-in for customers and staff.
type AuthHandler struct {
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	db           *db.DB
	cfg          *config.Config
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler with OIDC configuration.
func NewAuthHandler(ctx context.Context, cfg *config.Config, database *db.DB, logger *zap.Logger) (*AuthHandler, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, err
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", "phone"},
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})

	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		provider:     provider,
		oauth2Config: oauth2Config,
		verifier:     verifier,
		db:           database,
		cfg:          cfg,
		logger:       logger.Named("auth"),
	}, nil
}

// Login initiates the OIDC login flow.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	state := generateState()

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sess.Set(sessionOAuthState, state)

	if next := c.Query("next"); isLocalPath(next) {
		sess.Set(middleware.SessionRedirectAfter, next)
	}

	return c.Redirect().To(h.oauth2Config.AuthCodeURL(state))
}

// Callback handles the OIDC callback after authentication.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	savedState, _ := sess.Get(sessionOAuthState).(string)
	if savedState == "" || savedState != c.Query("state") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	}
	sess.Delete(sessionOAuthState)

	oauth2Token, err := h.oauth2Config.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		h.logger.Warn("failed to exchange code", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "failed to exchange code")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing id_token")
	}

	idToken, err := h.verifier.Verify(c.Context(), rawIDToken)
	if err != nil {
		h.logger.Warn("invalid id_token", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "invalid id_token")
	}

	claims := make(map[string]any)
	if err := idToken.Claims(&claims); err != nil {
		return err
	}

	// Some providers keep email and profile claims out of the ID token.
	userInfo, err := h.provider.UserInfo(c.Context(), oauth2.StaticTokenSource(oauth2Token))
	if err == nil {
		var userInfoClaims map[string]any
		if err := userInfo.Claims(&userInfoClaims); err == nil {
			for k, v := range userInfoClaims {
				claims[k] = v
			}
		}
	} else {
		h.logger.Warn("failed to fetch userinfo", zap.Error(err))
	}

	if h.cfg.IsDev() {
		h.logger.Debug("OIDC claims received", zap.Any("claims", claims))
	}

	user := userFromClaims(claims)
	if user.Sub == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing subject claim")
	}
	if err := h.db.UpsertUser(c.Context(), user); err != nil {
		return err
	}

	// Lines added before sign-in follow the customer into their account cart.
	if cartKey, _ := sess.Get(api.SessionCartKey).(string); cartKey != "" {
		if err := h.db.MergeSessionCart(c.Context(), cartKey, user.ID); err != nil {
			h.logger.Error("failed to merge session cart", zap.Error(err), zap.String("user_id", user.ID.String()))
		} else {
			sess.Delete(api.SessionCartKey)
		}
	}

	sess.Set(middleware.SessionUserSub, user.Sub)
	h.logger.Info("user signed in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))

	redirectURL := "/"
	if saved, ok := sess.Get(middleware.SessionRedirectAfter).(string); ok && isLocalPath(saved) {
		redirectURL = saved
	}
	sess.Delete(middleware.SessionRedirectAfter)

	return c.Redirect().To(redirectURL)
}

// Logout clears the user session.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if sess := session.FromContext(c); sess != nil {
		if err := sess.Destroy(); err != nil {
			h.logger.Warn("failed to destroy session", zap.Error(err))
		}
	}
	return c.Redirect().To("/")
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "error": "authentication required"})
	}
	return c.JSON(fiber.Map{"status": "ok", "data": user})
}

// userFromClaims maps standard OIDC claims onto a user. The role is left
// empty so sign-in never changes an existing role.
func userFromClaims(claims map[string]any) *models.User {
	str := func(key string) string {
		v, _ := claims[key].(string)
		return strings.TrimSpace(v)
	}
	return &models.User{
		Sub:       str("sub"),
		Username:  str("preferred_username"),
		Email:     str("email"),
		Name:      str("name"),
		FirstName: str("given_name"),
		Phone:     str("phone_number"),
		Picture:   str("picture"),
	}
}

// isLocalPath rejects absolute and protocol-relative URLs.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
