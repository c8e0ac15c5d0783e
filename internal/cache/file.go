package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per key under a directory.
// The entry's write time is the file's modification time.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the cache directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// sanitizeKey maps a key to a safe file name
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.' || r == '=':
			return r
		default:
			return '_'
		}
	}, key)
}

// Get implements Store
func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	p := s.path(key)

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{Payload: data, WrittenAt: info.ModTime()}, true, nil
}

// Put implements Store.
// The payload is written to a temp file and renamed so a concurrent read
// never sees a partial entry.
func (s *FileStore) Put(_ context.Context, key string, entry Entry) error {
	p := s.path(key)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(entry.Payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if !entry.WrittenAt.IsZero() {
		if err := os.Chtimes(tmpName, entry.WrittenAt, entry.WrittenAt); err != nil {
			return err
		}
	}

	return os.Rename(tmpName, p)
}
