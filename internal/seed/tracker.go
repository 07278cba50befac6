package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStateStore keeps the seeding watermark and the set of processed
// book IDs in a local JSON file so that repeated runs stay idempotent.
type FileStateStore struct {
	filepath string
	mu       sync.RWMutex
	state    stateData
}

type stateData struct {
	Watermark    int64           `json:"watermark"`
	ProcessedIDs map[string]bool `json:"processed_ids"`
}

// NewFileStateStore initializes a state store from a file path.
func NewFileStateStore(path string) (*FileStateStore, error) {
	store := &FileStateStore{
		filepath: path,
		state: stateData{
			ProcessedIDs: make(map[string]bool),
		},
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load state file: %w", err)
	}

	return store, nil
}

func (s *FileStateStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filepath), 0755); err != nil {
		return err
	}

	f, err := os.Open(s.filepath)
	if os.IsNotExist(err) {
		// First run, start fresh.
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s.state); err != nil {
		if err == io.EOF {
			return nil // Empty file is fine
		}
		return err
	}

	if s.state.ProcessedIDs == nil {
		s.state.ProcessedIDs = make(map[string]bool)
	}

	return nil
}

// Watermark returns the timestamp of the last successfully processed batch.
func (s *FileStateStore) Watermark() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Watermark
}

// IsProcessed reports whether a book ID has already been ingested.
func (s *FileStateStore) IsProcessed(bookID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ProcessedIDs[bookID]
}

// MarkProcessed records a book ID as processed in memory.
func (s *FileStateStore) MarkProcessed(bookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ProcessedIDs[bookID] = true
}

// UpdateWatermark advances the high-water mark. It never moves backwards.
func (s *FileStateStore) UpdateWatermark(timestamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timestamp > s.state.Watermark {
		s.state.Watermark = timestamp
	}
}

// Save persists the current state to disk via a temp file rename.
func (s *FileStateStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpFile := s.filepath + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.state); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return os.Rename(tmpFile, s.filepath)
}
