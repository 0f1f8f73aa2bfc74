package cache

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/kilnbuild/kilnd/internal/paths"
)

// A content-addressed store of exported stage archives.
//
// Entries live at <root>/<algorithm>/<hex>.tar. Writes go to a temp file in
// the same directory and are renamed into place, so a concurrent reader never
// observes a partial archive. Entries are immutable once committed.
type Store struct {
	root string
}

// Opens a store rooted at the given directory, creating it if needed.
//
// An empty root uses the default stage cache path.
func Open(root string) (*Store, error) {
	if root == "" {
		root = paths.StageCache()
	}
	if err := os.MkdirAll(root, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return &Store{root: root}, nil
}

// Returns the archive path for a key and whether an entry exists.
func (s *Store) Get(key digest.Digest) (string, bool) {
	path := s.entryPath(key)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Copies the archive at src into the store under the given key.
//
// Committing an existing key is a no-op: entries are content-addressed, so
// an existing entry is already the right bytes.
func (s *Store) Commit(key digest.Digest, src string) (string, error) {
	dest := s.entryPath(key)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".commit-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer os.Remove(tmp.Name())

	if err := copyFile(tmp, src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Debug("stage cached", "key", key.String(), "path", dest)
	return dest, nil
}

// Removes every entry, returning the number of entries and bytes freed.
func (s *Store) Prune() (int, int64, error) {
	var entries int
	var bytes int64

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		entries++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return entries, bytes, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return entries, bytes, nil
}

// Returns the on-disk path for a key's archive.
func (s *Store) entryPath(key digest.Digest) string {
	return filepath.Join(s.root, string(key.Algorithm()), key.Encoded()+".tar")
}

// Streams the file at src into w.
func copyFile(w io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
