// Package uploads persists moderation requests in a JSON file. The store
// owns its lock: callers get atomic snapshot, append and update operations
// and never touch the file or the mutex directly.
package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kailas-cloud/docrag/internal/domain"
)

const storeFileName = "upload_requests.json"

// ErrNotFound is returned by Update when no request has the given id.
var ErrNotFound = errors.New("uploads: request not found")

type fileDoc struct {
	Items []domain.UploadRequest `json:"items"`
}

// Store is a file-backed upload-request store safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store under dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, storeFileName)}, nil
}

// ReadAll returns a snapshot of all requests. A missing file is an empty
// store, not an error.
func (s *Store) ReadAll() ([]domain.UploadRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds a new request under the lock.
func (s *Store) Append(req domain.UploadRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	items = append(items, req)
	return s.save(items)
}

// Update applies fn to the request with the given id and persists the
// result. The whole read-modify-write runs under the lock; an error from
// fn aborts without writing.
func (s *Store) Update(id string, fn func(*domain.UploadRequest) error) (domain.UploadRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return domain.UploadRequest{}, err
	}

	for i := range items {
		if items[i].ID != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return domain.UploadRequest{}, err
		}
		if err := s.save(items); err != nil {
			return domain.UploadRequest{}, err
		}
		return items[i], nil
	}

	return domain.UploadRequest{}, ErrNotFound
}

func (s *Store) load() ([]domain.UploadRequest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse store: %w", err)
	}
	return doc.Items, nil
}

func (s *Store) save(items []domain.UploadRequest) error {
	if items == nil {
		items = []domain.UploadRequest{}
	}
	data, err := json.MarshalIndent(fileDoc{Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
