package handler

import (
	"context"      // provides context with cancellation for DB and provider calls
	"database/sql" // sentinel sql.ErrNoRows
	"errors"
	"net/http" // HTTP status codes and cookie primitives
	"strings"  // string trimming
	"time"     // timeouts for DB and provider calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/audio-vault/internal/config"
	"github.com/iliyamo/audio-vault/internal/middleware"
	"github.com/iliyamo/audio-vault/internal/oauth"
	"github.com/iliyamo/audio-vault/internal/repository"
	"github.com/iliyamo/audio-vault/internal/utils"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh token.
// The access token never travels in a cookie and the refresh token never
// travels in a response body.
const RefreshCookieName = "refresh_token"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
	OAuth *oauth.Client
}

func NewAuthHandler(cfg config.Config, users UserStore, oc *oauth.Client) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, OAuth: oc}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accessTokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// YandexAuth redirects the browser to the provider's authorization page.
func (h *AuthHandler) YandexAuth(c echo.Context) error {
	return c.Redirect(http.StatusTemporaryRedirect, h.OAuth.AuthorizeURL())
}

// YandexCallback finishes the OAuth flow: exchanges the code for a
// provider token, fetches the profile, finds or creates the local account
// and issues the session token pair.  Any upstream failure aborts the flow
// before the account is touched, so a failed login never creates a user.
func (h *AuthHandler) YandexCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code query parameter required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	tok, err := h.OAuth.ExchangeCode(ctx, code)
	if err != nil {
		return upstreamError(c, err)
	}
	if tok.AccessToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provider response contains no access_token"})
	}

	profile, err := h.OAuth.FetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return upstreamError(c, err)
	}
	if profile.YandexID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provider profile contains no user id"})
	}

	u, err := h.Users.GetByYandexID(ctx, profile.YandexID)
	switch {
	case err == nil:
		// returning user, nothing to create
	case errors.Is(err, sql.ErrNoRows):
		if _, err := h.Users.Create(ctx, profile.YandexID, profile.Email,
			profile.FirstName, profile.LastName, profile.Sex); err != nil && !errors.Is(err, repository.ErrUserExists) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		// Re-read so a concurrent callback for the same yandex_id resolves
		// to the single row the unique key allowed through.
		if u, err = h.Users.GetByYandexID(ctx, profile.YandexID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
		}
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	access, err := h.issueSession(c, u.YandexID, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, accessTokenResp{AccessToken: access, TokenType: "bearer"})
}

// SetCredentials stores a local username and password for the current
// user, enabling password login alongside OAuth.  Protected by the
// refresh-cookie guard.
func (h *AuthHandler) SetCredentials(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := middleware.CurrentUser(c)
	if err := h.Users.SetCredentials(ctx, u.ID, req.Username, hash); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save credentials failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "credentials set"})
}

// Token performs local password login.  Credentials arrive as form values;
// a valid pair yields a fresh access token in the body and a refresh token
// cookie, same as the OAuth callback.
func (h *AuthHandler) Token(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.PasswordHash.Valid || !utils.VerifyPassword(u.PasswordHash.String, password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := h.issueSession(c, u.YandexID, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, accessTokenResp{AccessToken: access, TokenType: "bearer"})
}

// RefreshAccess mints a new access token from a valid refresh cookie.  The
// refresh-cookie guard already resolved the user, so the new token carries
// the same subject and user id as the refresh token that authorized it.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	u := middleware.CurrentUser(c)
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.YandexID, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, accessTokenResp{AccessToken: access, TokenType: "bearer"})
}

// issueSession signs the access/refresh pair for a user and attaches the
// refresh token as an HTTP-only cookie scoped to the auth routes.
func (h *AuthHandler) issueSession(c echo.Context, yandexID string, userID uint64) (string, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, yandexID, userID, h.Cfg.AccessTTLMin)
	if err != nil {
		return "", err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, yandexID, userID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return "", err
	}
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    refresh,
		Path:     "/auth",
		MaxAge:   h.Cfg.RefreshTTLDays * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return access, nil
}

// upstreamError maps provider failures to responses: a non-200 from the
// provider keeps its status code in the message, anything else (network,
// malformed body) is reported as a bad gateway.
func upstreamError(c echo.Context, err error) error {
	var ue *oauth.UpstreamError
	if errors.As(err, &ue) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ue.Error()})
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "provider request failed"})
}
