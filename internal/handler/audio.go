package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/audio-vault/internal/middleware"
	"github.com/iliyamo/audio-vault/internal/queue"
	"github.com/iliyamo/audio-vault/internal/repository"
	"github.com/iliyamo/audio-vault/internal/storage"
	queue_publisher "github.com/iliyamo/audio-vault/internal/service"
)

// AudioHandler serves the authenticated audio endpoints: list, upload and
// download.  Every operation is scoped to the requesting user; there is no
// way to reach another user's files through these handlers.
type AudioHandler struct {
	Files AudioStore
	Store *storage.Store

	// PublishUpload emits the audio.uploaded event after a successful
	// upload.  Nil disables publishing (tests); failures are logged and
	// never fail the request.
	PublishUpload func(ctx context.Context, ev queue.AudioUploadedEvent) error
}

func NewAudioHandler(files AudioStore, store *storage.Store) *AudioHandler {
	return &AudioHandler{
		Files:         files,
		Store:         store,
		PublishUpload: queue_publisher.PublishAudioUploaded,
	}
}

type audioResp struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// List returns all audio rows owned by the current user, without
// pagination.
func (h *AudioHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	files, err := h.Files.ListByUser(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]audioResp, 0, len(files))
	for _, f := range files {
		out = append(out, audioResp{ID: f.ID, Name: f.Name, Path: f.Path})
	}
	return c.JSON(http.StatusOK, out)
}

// Upload accepts a multipart audio file plus a file_name query parameter.
// The stored name is file_name plus the upload's original extension.  The
// metadata row is inserted first — the unique key on audio.name is the
// arbiter for duplicate names, including between concurrent uploads — and
// the body is then streamed to disk in fixed-size chunks.  If the disk
// write fails the committed row is removed again so no row outlives a file
// that was never written.
func (h *AudioHandler) Upload(c echo.Context) error {
	fileName := strings.TrimSpace(c.QueryParam("file_name"))
	if fileName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_name query parameter required"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file form field required"})
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "audio/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only audio files can be uploaded"})
	}

	storedName := fileName + filepath.Ext(fh.Filename)
	storedPath := h.Store.PathFor(storedName)
	user := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	id, err := h.Files.Insert(ctx, storedName, storedPath, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "file name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save metadata failed"})
	}

	src, err := fh.Open()
	if err != nil {
		h.discardRow(ctx, id)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store file"})
	}
	defer func() { _ = src.Close() }()

	_, size, err := h.Store.SaveStream(storedName, src)
	if err != nil {
		h.discardRow(ctx, id)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store file"})
	}

	if h.PublishUpload != nil {
		ev := queue.AudioUploadedEvent{
			FileID:     id,
			UserID:     user.ID,
			Name:       storedName,
			Path:       storedPath,
			SizeBytes:  size,
			UploadedAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() { _ = h.PublishUpload(context.Background(), ev) }()
	}

	return c.JSON(http.StatusCreated, audioResp{ID: id, Name: storedName, Path: storedPath})
}

// discardRow is the compensating cleanup for a failed disk write: the
// already-committed metadata row is deleted best-effort.
func (h *AudioHandler) discardRow(ctx context.Context, id uint64) {
	if err := h.Files.Delete(ctx, id); err != nil {
		log.Printf("audio: cleanup of row %d after failed write: %v", id, err)
	}
}

// Download streams a stored file back to its owner.  A missing id and an
// id owned by someone else produce the same answer so the endpoint leaks
// nothing about other users' files.
func (h *AudioHandler) Download(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	f, err := h.Files.GetByIDForUser(ctx, id, middleware.CurrentUser(c).ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.File(f.Path)
}
