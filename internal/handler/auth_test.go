package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/audio-vault/internal/config"
	"github.com/iliyamo/audio-vault/internal/handler"
	"github.com/iliyamo/audio-vault/internal/model"
	"github.com/iliyamo/audio-vault/internal/oauth"
	"github.com/iliyamo/audio-vault/internal/router"
	"github.com/iliyamo/audio-vault/internal/utils"
)

const testSecret = "handler-test-secret"

func testCfg(yandex config.YandexConfig) config.Config {
	return config.Config{
		JWTSecret:      testSecret,
		AccessTTLMin:   20,
		RefreshTTLDays: 14,
		BcryptCost:     bcrypt.MinCost,
		Yandex:         yandex,
	}
}

// newProvider runs a fake Yandex: POST /token exchanges any code, GET /info
// returns the given profile document.
func newProvider(t *testing.T, profileJSON string) (*httptest.Server, config.YandexConfig) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token_type":    "bearer",
			"access_token":  "provider-token",
			"expires_in":    3600,
			"refresh_token": "provider-refresh",
		})
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(profileJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, config.YandexConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURI:  "http://localhost/auth/yandex/callback",
		AuthorizeURL: "https://oauth.example/authorize",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/info",
	}
}

func newAuthApp(cfg config.Config, users *fakeUserStore) *echo.Echo {
	e := echo.New()
	a := handler.NewAuthHandler(cfg, users, oauth.NewClient(cfg.Yandex))
	router.RegisterAuth(e, a, cfg.JWTSecret, users)
	return e
}

func decodeAccessToken(t *testing.T, body []byte) *utils.Claims {
	t.Helper()
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Equal(t, "bearer", resp.TokenType)
	claims, err := utils.DecodeToken(testSecret, resp.AccessToken)
	require.NoError(t, err)
	return claims
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == handler.RefreshCookieName {
			return c
		}
	}
	t.Fatal("refresh cookie not set")
	return nil
}

func TestYandexAuth_Redirect(t *testing.T) {
	t.Parallel()

	_, yandex := newProvider(t, `{}`)
	e := newAuthApp(testCfg(yandex), newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/yandex", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "https://oauth.example/authorize?")
	assert.Contains(t, loc, "client_id=cid")
}

func TestYandexCallback_CreatesUserOnce(t *testing.T) {
	t.Parallel()

	_, yandex := newProvider(t, `{"id":"y-100","default_email":"new@example.ru","first_name":"Ada","last_name":"L","sex":"female"}`)
	users := newFakeUserStore()
	e := newAuthApp(testCfg(yandex), users)

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/yandex/callback?code=abc", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := call()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	claims := decodeAccessToken(t, rec.Body.Bytes())
	assert.Equal(t, "y-100", claims.Subject)

	cookie := refreshCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	refreshClaims, err := utils.DecodeToken(testSecret, cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "y-100", refreshClaims.Subject)

	u, err := users.GetByYandexID(context.Background(), "y-100")
	require.NoError(t, err)
	assert.Equal(t, "new@example.ru", u.Email)
	assert.Equal(t, "Ada", u.FirstName)

	// A second callback for the same external id reuses the account.
	rec = call()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, users.users, 1)
}

func TestYandexCallback_MissingCode(t *testing.T) {
	t.Parallel()

	_, yandex := newProvider(t, `{}`)
	e := newAuthApp(testCfg(yandex), newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/yandex/callback", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestYandexCallback_UpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	users := newFakeUserStore()
	cfg := testCfg(config.YandexConfig{
		ClientID: "cid", ClientSecret: "cs", RedirectURI: "http://x",
		AuthorizeURL: srv.URL, TokenURL: srv.URL, UserInfoURL: srv.URL,
	})
	e := newAuthApp(cfg, users)

	req := httptest.NewRequest(http.MethodGet, "/auth/yandex/callback?code=abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "503")
	// No partial user creation on upstream failure.
	assert.Empty(t, users.users)
}

func TestToken_LocalLogin(t *testing.T) {
	t.Parallel()

	_, yandex := newProvider(t, `{}`)
	users := newFakeUserStore()
	hash, err := utils.HashPassword("pass123", bcrypt.MinCost)
	require.NoError(t, err)
	users.add(model.User{
		YandexID:     "y-local",
		Email:        "local@example.ru",
		Username:     sql.NullString{String: "ada", Valid: true},
		PasswordHash: sql.NullString{String: hash, Valid: true},
	})
	e := newAuthApp(testCfg(yandex), users)

	login := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := login("ada", "pass123")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	claims := decodeAccessToken(t, rec.Body.Bytes())
	assert.Equal(t, "y-local", claims.Subject)
	refreshCookie(t, rec)

	assert.Equal(t, http.StatusUnauthorized, login("ada", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, login("nobody", "pass123").Code)
}

func TestSetCredentials(t *testing.T) {
	t.Parallel()

	_, yandex := newProvider(t, `{}`)
	users := newFakeUserStore()
	u := users.add(model.User{YandexID: "y-1", Email: "a@example.ru"})
	users.add(model.User{
		YandexID: "y-2", Email: "b@example.ru",
		Username: sql.NullString{String: "taken", Valid: true},
	})
	e := newAuthApp(testCfg(yandex), users)

	refresh, err := utils.NewRefreshToken(testSecret, "y-1", u.ID, 14)
	require.NoError(t, err)

	post := func(body string, withCookie bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/set_credentials", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if withCookie {
			req.AddCookie(&http.Cookie{Name: handler.RefreshCookieName, Value: refresh})
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	// No refresh cookie: the guard rejects before the handler runs.
	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"ada","password":"pw"}`, false).Code)

	rec := post(`{"username":"ada","password":"pw"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := users.GetByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "y-1", stored.YandexID)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash.String, "pw"))

	// A username another account holds is a duplicate.
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"taken","password":"pw"}`, true).Code)

	assert.Equal(t, http.StatusBadRequest, post(`{"username":"","password":""}`, true).Code)
}

func TestRefreshAccess_KeepsIdentity(t *testing.T) {
	t.Parallel()

	_, yandex := newProvider(t, `{}`)
	users := newFakeUserStore()
	u := users.add(model.User{YandexID: "y-9", Email: "r@example.ru"})
	e := newAuthApp(testCfg(yandex), users)

	refresh, err := utils.NewRefreshToken(testSecret, "y-9", u.ID, 14)
	require.NoError(t, err)
	refreshClaims, err := utils.DecodeToken(testSecret, refresh)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/token/refresh", nil)
	req.AddCookie(&http.Cookie{Name: handler.RefreshCookieName, Value: refresh})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The new access token carries the same identity as the refresh token.
	accessClaims := decodeAccessToken(t, rec.Body.Bytes())
	assert.Equal(t, refreshClaims.Subject, accessClaims.Subject)
	assert.Equal(t, refreshClaims.UserID, accessClaims.UserID)
}
