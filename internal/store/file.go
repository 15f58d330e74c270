package store

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore writes the document as gzipped JSON to <dir>/<key>.json.gz.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir, key string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, key+".json.gz")}, nil
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	data, err := io.ReadAll(gzipReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Decode(data)
}

// Save writes to a temporary file and renames it over the previous document.
func (s *FileStore) Save(_ context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create document file: %w", err)
	}
	defer os.Remove(tmp.Name())

	gzipWriter := gzip.NewWriter(tmp)
	if _, err := gzipWriter.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close document file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
