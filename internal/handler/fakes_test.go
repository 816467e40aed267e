package handler_test

// In-memory implementations of the handler store interfaces.  They mimic
// the repository semantics the handlers rely on: sql.ErrNoRows for missing
// rows, sentinel errors for unique-key collisions, and an optional cascade
// hook standing in for the audio table's ON DELETE CASCADE foreign key.

import (
	"context"
	"database/sql"
	"sync"

	"github.com/iliyamo/audio-vault/internal/model"
	"github.com/iliyamo/audio-vault/internal/repository"
)

type fakeUserStore struct {
	mu          sync.Mutex
	nextID      uint64
	users       map[uint64]model.User
	createCalls int
	onDelete    func(userID uint64)
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]model.User{}}
}

func (s *fakeUserStore) add(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	return u
}

func (s *fakeUserStore) Create(_ context.Context, yandexID, email, firstName, lastName, sex string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	for _, u := range s.users {
		if u.YandexID == yandexID || u.Email == email {
			return 0, repository.ErrUserExists
		}
	}
	s.nextID++
	s.users[s.nextID] = model.User{
		ID: s.nextID, YandexID: yandexID, Email: email,
		FirstName: firstName, LastName: lastName, Sex: sex,
	}
	return s.nextID, nil
}

func (s *fakeUserStore) GetByYandexID(_ context.Context, yandexID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.YandexID == yandexID {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username.Valid && u.Username.String == username {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id uint64, firstName, lastName, sex *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if sex != nil {
		u.Sex = *sex
	}
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) SetCredentials(_ context.Context, id uint64, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, u := range s.users {
		if uid != id && u.Username.Valid && u.Username.String == username {
			return repository.ErrUsernameExists
		}
	}
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Username = sql.NullString{String: username, Valid: true}
	u.PasswordHash = sql.NullString{String: passwordHash, Valid: true}
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) Promote(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsAdmin = true
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	if _, ok := s.users[id]; !ok {
		s.mu.Unlock()
		return sql.ErrNoRows
	}
	delete(s.users, id)
	cascade := s.onDelete
	s.mu.Unlock()
	if cascade != nil {
		cascade(id)
	}
	return nil
}

type fakeAudioStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.AudioFile
}

func newFakeAudioStore() *fakeAudioStore {
	return &fakeAudioStore{rows: map[uint64]model.AudioFile{}}
}

func (s *fakeAudioStore) Insert(_ context.Context, name, path string, userID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.rows {
		if f.Name == name {
			return 0, repository.ErrDuplicateName
		}
	}
	s.nextID++
	s.rows[s.nextID] = model.AudioFile{ID: s.nextID, Name: name, Path: path, UserID: userID}
	return s.nextID, nil
}

func (s *fakeAudioStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *fakeAudioStore) ListByUser(_ context.Context, userID uint64) ([]model.AudioFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AudioFile, 0)
	for _, f := range s.rows {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeAudioStore) GetByIDForUser(_ context.Context, id, userID uint64) (model.AudioFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.rows[id]
	if !ok || f.UserID != userID {
		return model.AudioFile{}, sql.ErrNoRows
	}
	return f, nil
}

// deleteAllForUser emulates the database's cascade delete in tests.
func (s *fakeAudioStore) deleteAllForUser(userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.rows {
		if f.UserID == userID {
			delete(s.rows, id)
		}
	}
}
