package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/audio-vault/internal/model"
)

// ErrDuplicateName is returned when an upload reuses an existing stored
// file name.  The unique key on audio.name, not the filesystem, decides
// name collisions.
var ErrDuplicateName = errors.New("file name already exists")

// AudioRepo persists uploaded file metadata in the 'audio' table.
type AudioRepo struct{ DB *sql.DB }

func NewAudioRepo(db *sql.DB) *AudioRepo { return &AudioRepo{DB: db} }

// Insert stores a metadata row for a new upload and returns its ID.
func (r *AudioRepo) Insert(ctx context.Context, name, path string, userID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO audio (name, path, user_id) VALUES (?,?,?)",
		name, path, userID)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicateName
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Delete removes a metadata row.  Used as compensating cleanup when the
// disk write after a committed insert fails.
func (r *AudioRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM audio WHERE id=?", id)
	return err
}

// ListByUser returns every audio row owned by a user, oldest first.
func (r *AudioRepo) ListByUser(ctx context.Context, userID uint64) ([]model.AudioFile, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,path,user_id,created_at FROM audio WHERE user_id=? ORDER BY id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make([]model.AudioFile, 0)
	for rows.Next() {
		var f model.AudioFile
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.UserID, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetByIDForUser fetches one audio row only if it belongs to the given
// user.  A row owned by someone else yields sql.ErrNoRows exactly like a
// missing row, so callers cannot distinguish the two cases.
func (r *AudioRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (model.AudioFile, error) {
	var f model.AudioFile
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,path,user_id,created_at FROM audio WHERE id=? AND user_id=? LIMIT 1",
		id, userID).Scan(&f.ID, &f.Name, &f.Path, &f.UserID, &f.CreatedAt)
	return f, err
}
