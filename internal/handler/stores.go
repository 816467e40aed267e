package handler

import (
	"context"

	"github.com/iliyamo/audio-vault/internal/model"
)

// The handler package talks to storage through these narrow interfaces
// rather than the concrete repositories so that endpoint behavior can be
// tested against in-memory fakes.  *repository.UserRepo and
// *repository.AudioRepo satisfy them.

// UserStore is the slice of the user repository the handlers need.
type UserStore interface {
	Create(ctx context.Context, yandexID, email, firstName, lastName, sex string) (uint64, error)
	GetByYandexID(ctx context.Context, yandexID string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, firstName, lastName, sex *string) error
	SetCredentials(ctx context.Context, id uint64, username, passwordHash string) error
	Promote(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// AudioStore is the slice of the audio repository the handlers need.
type AudioStore interface {
	Insert(ctx context.Context, name, path string, userID uint64) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.AudioFile, error)
	GetByIDForUser(ctx context.Context, id, userID uint64) (model.AudioFile, error)
}
