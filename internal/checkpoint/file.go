package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileManager keeps checkpoint state in a flat JSON file. Writes rewrite
// the whole file; the mutex serializes concurrent pipeline workers.
type FileManager struct {
	path string

	mu    sync.Mutex
	state State
	read  bool
}

// NewFileManager creates a file-backed checkpoint at path.
func NewFileManager(path string) *FileManager {
	return &FileManager{path: path}
}

// Load reads the checkpoint file. A missing file is an empty state.
func (m *FileManager) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(); err != nil {
		return State{}, err
	}
	// copy so callers can't mutate shared state
	out := State{
		Processed: append([]string(nil), m.state.Processed...),
		Failed:    append([]string(nil), m.state.Failed...),
	}
	return out, nil
}

// MarkProcessed appends a company to the processed list and rewrites
// the file. A company previously marked failed is removed from the
// failed list.
func (m *FileManager) MarkProcessed(ctx context.Context, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(); err != nil {
		return err
	}
	if !contains(m.state.Processed, companyID) {
		m.state.Processed = append(m.state.Processed, companyID)
	}
	m.state.Failed = remove(m.state.Failed, companyID)
	return m.saveLocked()
}

// MarkFailed appends a company to the failed list and rewrites the file.
func (m *FileManager) MarkFailed(ctx context.Context, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(); err != nil {
		return err
	}
	if !contains(m.state.Failed, companyID) {
		m.state.Failed = append(m.state.Failed, companyID)
	}
	return m.saveLocked()
}

func (m *FileManager) loadLocked() error {
	if m.read {
		return nil
	}
	b, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.read = true
			return nil
		}
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	if err := json.Unmarshal(b, &m.state); err != nil {
		return fmt.Errorf("parsing checkpoint %s: %w", m.path, err)
	}
	m.read = true
	return nil
}

func (m *FileManager) saveLocked() error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating checkpoint dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, b, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
