package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/audio-vault/internal/model"
)

// ErrUserExists is returned when an insert collides with an existing
// yandex_id or email.
var ErrUserExists = errors.New("user already exists")

// ErrUsernameExists is returned when the requested local username is
// already taken by another account.
var ErrUsernameExists = errors.New("username already exists")

const userColumns = "id,yandex_id,email,username,password_hash,first_name,last_name,sex,is_admin,created_at,updated_at"

// UserRepo persists user accounts in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user built from a provider profile and returns its ID.
// Local username and password stay NULL until the user sets credentials.
func (r *UserRepo) Create(ctx context.Context, yandexID, email, firstName, lastName, sex string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (yandex_id, email, first_name, last_name, sex) VALUES (?,?,?,?,?)",
		yandexID, email, firstName, lastName, sex)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByYandexID fetches a user by the provider identity id.
func (r *UserRepo) GetByYandexID(ctx context.Context, yandexID string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE yandex_id=? LIMIT 1", yandexID)
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByUsername fetches a user by their local login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.YandexID, &u.Email, &u.Username, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Sex, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpdateProfile changes the mutable profile fields of a user.  Nil pointers
// leave the corresponding column untouched, matching PATCH semantics.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, firstName, lastName, sex *string) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if firstName != nil {
		sets = append(sets, "first_name=?")
		args = append(args, *firstName)
	}
	if lastName != nil {
		sets = append(sets, "last_name=?")
		args = append(args, *lastName)
	}
	if sex != nil {
		sets = append(sets, "sex=?")
		args = append(args, *sex)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	return err
}

// SetCredentials stores a local username and password hash for a user that
// so far only logged in through the provider.
func (r *UserRepo) SetCredentials(ctx context.Context, id uint64, username, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, password_hash=? WHERE id=?",
		username, passwordHash, id)
	if err != nil && isDuplicate(err) {
		return ErrUsernameExists
	}
	return err
}

// Promote sets the admin flag on a user.
func (r *UserRepo) Promote(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_admin=TRUE WHERE id=?", id)
	return err
}

// Delete removes a user row.  The audio table's ON DELETE CASCADE foreign
// key removes the user's file metadata in the same statement.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
