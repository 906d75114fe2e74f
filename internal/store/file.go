package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorruptState is returned by Get when the state file is not valid JSON.
var ErrCorruptState = errors.New("corrupt state file")

// FileStore keeps all documents in one JSON object on disk, each value
// stored as a string. Writes go to a temp file renamed over the target.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file-backed repository at path.
func NewFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) readAll() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	docs := map[string]string{}
	if len(data) == 0 {
		return docs, nil
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return docs, nil
}

func (s *FileStore) writeAll(docs map[string]string) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Get returns the document stored under key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	v, ok := docs[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// readForWrite loads the documents for a write. A corrupt file is moved
// aside to <path>.corrupt and writing starts from an empty document.
func (s *FileStore) readForWrite() (map[string]string, error) {
	docs, err := s.readAll()
	if !errors.Is(err, ErrCorruptState) {
		return docs, err
	}
	aside := s.path + ".corrupt"
	if renameErr := os.Rename(s.path, aside); renameErr != nil {
		return nil, fmt.Errorf("move corrupt state file aside: %w", renameErr)
	}
	slog.Warn("state file was corrupt, starting over", "path", s.path, "moved_to", aside, "error", err)
	return map[string]string{}, nil
}

// Put replaces the document under key.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readForWrite()
	if err != nil {
		return err
	}
	docs[key] = string(value)
	return s.writeAll(docs)
}

// Delete removes key.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := docs[key]; !ok {
		return nil
	}
	delete(docs, key)
	return s.writeAll(docs)
}

// Ping checks that the state directory is reachable.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("stat state directory: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
