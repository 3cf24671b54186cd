package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/zwiggato/internal/order"
)

// ErrCorrupt is returned by Storage.Load when a snapshot exists but cannot
// be parsed.
var ErrCorrupt = errors.New("corrupt cart snapshot")

// Storage persists cart snapshots.
type Storage interface {
	// Load returns the saved lines. A missing snapshot is (nil, nil).
	Load() ([]order.Line, error)
	Save(lines []order.Line) error
}

// snapshot is the on-disk format.
type snapshot struct {
	Lines []order.Line `json:"lines"`
}

// FileStorage keeps the snapshot in a JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage returns storage backed by path. The parent directory is
// created on first save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the snapshot file path.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads the snapshot file.
func (f *FileStorage) Load() ([]order.Line, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return decodeSnapshot(data)
}

// Save writes the snapshot atomically: a temp file in the same directory is
// written, synced and renamed over the old snapshot.
func (f *FileStorage) Save(lines []order.Line) error {
	data, err := encodeSnapshot(lines)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cart directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// MemoryStorage keeps the snapshot in memory. Used by tests and by carts
// that should not outlive the process.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStorage returns empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load decodes the last saved snapshot.
func (m *MemoryStorage) Load() ([]order.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return decodeSnapshot(m.data)
}

// Save encodes and keeps lines.
func (m *MemoryStorage) Save(lines []order.Line) error {
	data, err := encodeSnapshot(lines)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

// Raw returns the encoded snapshot.
func (m *MemoryStorage) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// SetRaw replaces the encoded snapshot, for simulating corruption.
func (m *MemoryStorage) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
}

func encodeSnapshot(lines []order.Line) ([]byte, error) {
	if lines == nil {
		lines = []order.Line{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot{Lines: lines}); err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) ([]order.Line, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Lines == nil {
		return nil, fmt.Errorf("%w: missing lines", ErrCorrupt)
	}
	return s.Lines, nil
}
