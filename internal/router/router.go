package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/audio-vault/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/audio-vault/internal/middleware" // import middleware for JWT authentication and admin enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  The OAuth redirect,
// callback and password login are open; set_credentials and the access
// token refresh require the refresh cookie, which carries a different
// token source but runs the same decode-and-lookup guard as the bearer
// flow.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, users middleware.UserResolver) {
	refresh := middleware.RefreshAuth(jwtSecret, handler.RefreshCookieName, users)

	g := e.Group("/auth")
	g.GET("/yandex", a.YandexAuth)
	g.GET("/yandex/callback", a.YandexCallback)
	g.POST("/token", a.Token)
	g.POST("/set_credentials", a.SetCredentials, refresh)
	g.POST("/token/refresh", a.RefreshAccess, refresh)
}

// RegisterUsers registers the profile endpoints behind the bearer guard.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string, users middleware.UserResolver) {
	g := e.Group("/users", middleware.AccessAuth(jwtSecret, users))
	g.GET("/me", u.Me)
	g.PATCH("/me", u.UpdateMe)
}

// RegisterAudio registers the audio endpoints behind the bearer guard.
func RegisterAudio(e *echo.Echo, a *handler.AudioHandler, jwtSecret string, users middleware.UserResolver) {
	g := e.Group("/audio", middleware.AccessAuth(jwtSecret, users))
	g.GET("/", a.List)
	g.POST("/", a.Upload)
	g.GET("/:id", a.Download)
}

// RegisterAdmin registers the admin endpoints.  create_table is left
// unauthenticated and make_admin requires only a valid access token; both
// are intentional, documented setup conveniences.  delete_user is the only
// route that enforces the admin flag.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, users middleware.UserResolver) {
	access := middleware.AccessAuth(jwtSecret, users)

	g := e.Group("/admin")
	g.GET("/create_table", a.CreateTable)
	g.POST("/make_admin", a.MakeAdmin, access)
	g.DELETE("/delete_user/:id", a.DeleteUser, access, middleware.RequireAdmin())
}
