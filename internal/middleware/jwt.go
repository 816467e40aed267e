package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/audio-vault/internal/model"
	"github.com/iliyamo/audio-vault/internal/utils"
)

// userContextKey is the echo context key the guards store the resolved
// account under.  Handlers read it back through CurrentUser.
const userContextKey = "current_user"

// UserResolver looks up the account a token's subject claim refers to.
// It is satisfied by *repository.UserRepo and by in-memory fakes in tests.
type UserResolver interface {
	GetByYandexID(ctx context.Context, yandexID string) (model.User, error)
}

// CurrentUser returns the account resolved by AccessAuth or RefreshAuth.
// It must only be called from handlers behind one of those guards.
func CurrentUser(c echo.Context) model.User {
	u, _ := c.Get(userContextKey).(model.User)
	return u
}

// AccessAuth returns a guard that authenticates requests by the Bearer
// access token in the Authorization header.  On success the resolved user
// is stored in the context for CurrentUser.
func AccessAuth(secret string, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			return resolveToken(c, secret, users, strings.TrimPrefix(auth, "Bearer "), next)
		}
	}
}

// RefreshAuth returns a guard that authenticates requests by the refresh
// token cookie.  Apart from where the token comes from it behaves exactly
// like AccessAuth: both share the same decode-and-lookup step.
func RefreshAuth(secret, cookieName string, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
			}
			return resolveToken(c, secret, users, cookie.Value, next)
		}
	}
}

// resolveToken is the shared second half of both guards: decode the token,
// require a subject claim, load the matching user and hand off to the next
// handler.  An expired token is the only failure that yields 403; every
// other problem is a plain 401.
func resolveToken(c echo.Context, secret string, users UserResolver, raw string, next echo.HandlerFunc) error {
	claims, err := utils.DecodeToken(secret, raw)
	if err != nil {
		if err == utils.ErrTokenExpired {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "token expired"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	if claims.Subject == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing subject claim"})
	}

	u, err := users.GetByYandexID(c.Request().Context(), claims.Subject)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	c.Set(userContextKey, u)
	return next(c)
}

// RequireAdmin rejects authenticated users whose account does not carry
// the admin flag.  It must run after AccessAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CurrentUser(c).IsAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin required"})
			}
			return next(c)
		}
	}
}
