package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/audio-vault/internal/middleware"
	"github.com/iliyamo/audio-vault/internal/queue"
	"github.com/iliyamo/audio-vault/internal/storage"
	queue_publisher "github.com/iliyamo/audio-vault/internal/service"
)

// AdminHandler serves schema bootstrap, self-promotion and user deletion.
//
// Two of these endpoints are deliberately underprotected to mirror the
// service's intended quick-setup behavior and are unsafe for production:
// CreateTable requires no authentication at all and MakeAdmin lets any
// authenticated user promote themselves.
type AdminHandler struct {
	Users UserStore
	Files AudioStore
	Store *storage.Store

	// Bootstrap drops and recreates the schema.  Injected so tests can run
	// the handler without a live database.
	Bootstrap func(ctx context.Context) error

	// PublishDeleted emits the user.deleted event; nil disables publishing.
	PublishDeleted func(ctx context.Context, ev queue.UserDeletedEvent) error
}

func NewAdminHandler(users UserStore, files AudioStore, store *storage.Store, bootstrap func(ctx context.Context) error) *AdminHandler {
	return &AdminHandler{
		Users:          users,
		Files:          files,
		Store:          store,
		Bootstrap:      bootstrap,
		PublishDeleted: queue_publisher.PublishUserDeleted,
	}
}

// CreateTable drops and recreates every table.  Unauthenticated and
// destructive; exists for initial environment setup only.
func (h *AdminHandler) CreateTable(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Bootstrap(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bootstrap failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "tables recreated"})
}

// MakeAdmin sets the admin flag on the calling user.  Any valid access
// token suffices; there is no admin check on purpose.
func (h *AdminHandler) MakeAdmin(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := middleware.CurrentUser(c)
	if err := h.Users.Promote(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "promote failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user promoted to admin"})
}

// DeleteUser removes a user and everything they own: files on disk are
// deleted best-effort first, then the user row; the cascading foreign key
// takes the audio metadata rows with it.  Admin only.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	files, err := h.Files.ListByUser(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	removed := 0
	for _, f := range files {
		if err := h.Store.Remove(f.Path); err != nil {
			log.Printf("admin: remove file %q for user %d: %v", f.Path, id, err)
			continue
		}
		removed++
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	if h.PublishDeleted != nil {
		ev := queue.UserDeletedEvent{
			UserID:       id,
			YandexID:     target.YandexID,
			Email:        target.Email,
			FilesRemoved: removed,
			DeletedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		go func() { _ = h.PublishDeleted(context.Background(), ev) }()
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}
