package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/models"
)

// FileStore keeps the catalog as one JSON array file. The file is replaced
// atomically, so a failed write leaves the previous catalog readable.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("catalog file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("catalog dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) ([]models.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) MergeAndPersist(ctx context.Context, records []models.EventRecord) (MergeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return MergeStats{}, err
	}
	fresh, skipped := newOnly(records, SourceURLs(existing))
	stats := MergeStats{Added: len(fresh), Skipped: skipped, Total: len(existing) + len(fresh)}
	if len(fresh) == 0 {
		if _, statErr := os.Stat(s.path); statErr == nil {
			return stats, nil
		}
	}

	all := append(existing, fresh...)
	if all == nil {
		all = []models.EventRecord{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return MergeStats{}, fmt.Errorf("encode catalog: %w", err)
	}
	if err := helpers.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return MergeStats{}, fmt.Errorf("persist catalog: %w", err)
	}
	return stats, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() ([]models.EventRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var out []models.EventRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range out {
		out[i] = out[i].Normalize()
	}
	return out, nil
}
