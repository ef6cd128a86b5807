// Package storage persists the catalog as a single JSON document that is
// rewritten in full on every save.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"bookhub/pkg/models"
)

const DefaultPath = "data/library_books.json"

type FileStore struct {
	Path string
}

// DefaultFileStore honours BOOKHUB_CATALOG_PATH.
func DefaultFileStore() *FileStore {
	if p := os.Getenv("BOOKHUB_CATALOG_PATH"); p != "" {
		return &FileStore{Path: p}
	}
	return &FileStore{Path: DefaultPath}
}

// Load reads every book. A missing file is an empty catalog. Any record whose
// ISBN fails validation fails the whole load.
func (s *FileStore) Load(ctx context.Context) ([]models.Book, error) {
	raw, err := s.readRecords(ctx)
	if err != nil || raw == nil {
		return []models.Book{}, err
	}

	books := make([]models.Book, 0, len(raw))
	for i, rec := range raw {
		var b models.Book
		if err := json.Unmarshal(rec, &b); err != nil {
			return nil, fmt.Errorf("load %s record %d: %w", s.Path, i, err)
		}
		books = append(books, b)
	}
	return books, nil
}

// LoadLenient is Load that skips malformed records and reports them.
func (s *FileStore) LoadLenient(ctx context.Context) ([]models.Book, []error, error) {
	raw, err := s.readRecords(ctx)
	if err != nil || raw == nil {
		return []models.Book{}, nil, err
	}

	books := make([]models.Book, 0, len(raw))
	var skipped []error
	for i, rec := range raw {
		var b models.Book
		if err := json.Unmarshal(rec, &b); err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		books = append(books, b)
	}
	return books, skipped, nil
}

func (s *FileStore) readRecords(ctx context.Context) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", s.Path, err)
	}
	return raw, nil
}

// Save replaces the file with books. The new content is written to a
// temporary file in the same directory and renamed into place.
func (s *FileStore) Save(ctx context.Context, books []models.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if books == nil {
		books = []models.Book{}
	}

	data, err := json.MarshalIndent(books, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		cleanup()
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
