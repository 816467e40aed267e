package middleware_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/audio-vault/internal/middleware"
	"github.com/iliyamo/audio-vault/internal/model"
	"github.com/iliyamo/audio-vault/internal/utils"
)

const secret = "guard-test-secret"

// resolver is an in-memory UserResolver keyed by yandex id.
type resolver map[string]model.User

func (r resolver) GetByYandexID(_ context.Context, yandexID string) (model.User, error) {
	if u, ok := r[yandexID]; ok {
		return u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func newGuardedApp(users resolver) *echo.Echo {
	e := echo.New()
	echoUser := func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.CurrentUser(c).YandexID)
	}
	e.GET("/bearer", echoUser, middleware.AccessAuth(secret, users))
	e.GET("/cookie", echoUser, middleware.RefreshAuth(secret, "refresh_token", users))
	e.GET("/admin", echoUser, middleware.AccessAuth(secret, users), middleware.RequireAdmin())
	return e
}

func TestAccessAuth(t *testing.T) {
	t.Parallel()

	users := resolver{"y-1": {ID: 1, YandexID: "y-1"}}
	e := newGuardedApp(users)

	valid, err := utils.NewAccessToken(secret, "y-1", 1, 20)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, "y-1", 1, -1)
	require.NoError(t, err)
	noSubject, err := utils.NewAccessToken(secret, "", 1, 20)
	require.NoError(t, err)
	unknown, err := utils.NewAccessToken(secret, "y-nobody", 9, 20)
	require.NoError(t, err)
	foreign, err := utils.NewAccessToken("other-secret", "y-1", 1, 20)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"expired", "Bearer " + expired, http.StatusForbidden},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
		{"unknown user", "Bearer " + unknown, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bearer", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAccessAuth_ResolvesUser(t *testing.T) {
	t.Parallel()

	users := resolver{"y-7": {ID: 7, YandexID: "y-7"}}
	e := newGuardedApp(users)

	tok, err := utils.NewAccessToken(secret, "y-7", 7, 20)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/bearer", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "y-7", rec.Body.String())
}

func TestRefreshAuth_Cookie(t *testing.T) {
	t.Parallel()

	users := resolver{"y-1": {ID: 1, YandexID: "y-1"}}
	e := newGuardedApp(users)

	tok, err := utils.NewRefreshToken(secret, "y-1", 1, 14)
	require.NoError(t, err)

	// Valid cookie passes.
	req := httptest.NewRequest(http.MethodGet, "/cookie", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: tok})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Missing cookie is rejected.
	req = httptest.NewRequest(http.MethodGet, "/cookie", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expired cookie is 403, same as the bearer flow.
	expired, err := utils.NewRefreshToken(secret, "y-1", 1, -1)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/cookie", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: expired})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	users := resolver{
		"y-admin": {ID: 1, YandexID: "y-admin", IsAdmin: true},
		"y-plain": {ID: 2, YandexID: "y-plain"},
	}
	e := newGuardedApp(users)

	adminTok, err := utils.NewAccessToken(secret, "y-admin", 1, 20)
	require.NoError(t, err)
	plainTok, err := utils.NewAccessToken(secret, "y-plain", 2, 20)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+plainTok)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
