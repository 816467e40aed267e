// Package storage writes uploaded audio files to a local directory.  It
// only handles bytes on disk; name uniqueness is enforced by the database,
// never by checking the filesystem.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// chunkSize is the fixed buffer used when streaming request bodies to
// disk, keeping memory use flat regardless of upload size.
const chunkSize = 1024

// Store saves and removes files under a single base directory.
type Store struct {
	dir string
}

// New creates the base directory if needed and returns a Store for it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// PathFor returns the on-disk path a stored name maps to.
func (s *Store) PathFor(name string) string {
	return filepath.Join(s.dir, name)
}

// SaveStream streams src into a new file in fixed-size chunks and returns
// the file's path and size.  On any failure the partial file is removed so
// a failed upload leaves nothing behind on disk.
func (s *Store) SaveStream(name string, src io.Reader) (string, int64, error) {
	path := s.PathFor(name)
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}

	written, err := io.CopyBuffer(dst, src, make([]byte, chunkSize))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, written, nil
}

// Remove deletes a stored file by path.
func (s *Store) Remove(path string) error {
	return os.Remove(path)
}
