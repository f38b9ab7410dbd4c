package jsonfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docrag/internal/domain"
)

// snapshot is the on-disk layout. It is compatible with stores that only
// carry "documents" and "embeddings".
type snapshot struct {
	Documents  []string                  `json:"documents"`
	Embeddings [][]float32               `json:"embeddings"`
	Source     *domain.SourceFingerprint `json:"source,omitempty"`
}

// Storage is a vector store persisted as a single JSON snapshot. It is not
// safe for concurrent mutation.
type Storage struct {
	path       string
	documents  []string
	embeddings [][]float32
	source     *domain.SourceFingerprint
}

// New returns an empty store that will be saved to path.
func New(path string) *Storage {
	return &Storage{path: path}
}

// Load reads the snapshot at path. A missing file yields an empty store.
func Load(path string) (*Storage, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}
	snap, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStoreCorrupt, path, err)
	}
	if err := validate(snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreCorrupt, path, err)
	}
	s.documents = snap.Documents
	s.embeddings = snap.Embeddings
	s.source = snap.Source
	return s, nil
}

// strictSnapshot tells a missing key apart from an empty list.
type strictSnapshot struct {
	Documents  *[]string                 `json:"documents"`
	Embeddings *[][]float32              `json:"embeddings"`
	Source     *domain.SourceFingerprint `json:"source"`
}

func decode(data []byte) (*snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw strictSnapshot
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after snapshot")
	}
	if raw.Documents == nil || raw.Embeddings == nil {
		return nil, errors.New(`snapshot needs both "documents" and "embeddings"`)
	}
	return &snapshot{
		Documents:  *raw.Documents,
		Embeddings: *raw.Embeddings,
		Source:     raw.Source,
	}, nil
}

func validate(snap *snapshot) error {
	if len(snap.Documents) != len(snap.Embeddings) {
		return fmt.Errorf("%d documents but %d embeddings", len(snap.Documents), len(snap.Embeddings))
	}
	if len(snap.Embeddings) == 0 {
		return nil
	}
	dim := len(snap.Embeddings[0])
	if dim == 0 {
		return errors.New("embedding 0 is empty")
	}
	for i, v := range snap.Embeddings {
		if len(v) != dim {
			return fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return nil
}

func (s *Storage) Path() string { return s.path }

func (s *Storage) Size() int { return len(s.embeddings) }

func (s *Storage) Dimension() int {
	if len(s.embeddings) == 0 {
		return 0
	}
	return len(s.embeddings[0])
}

// Append adds one pair at the end. The store is left untouched on error.
func (s *Storage) Append(text string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	if dim := s.Dimension(); dim != 0 && len(vector) != dim {
		return fmt.Errorf("%w: got %d, store has %d", domain.ErrDimensionMismatch, len(vector), dim)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	s.documents = append(s.documents, text)
	s.embeddings = append(s.embeddings, v)
	return nil
}

// Documents returns the stored texts in insertion order. The slice must not be modified.
func (s *Storage) Documents() []string { return s.documents }

// Embeddings returns the stored vectors in insertion order. The slices must not be modified.
func (s *Storage) Embeddings() [][]float32 { return s.embeddings }

func (s *Storage) Source() *domain.SourceFingerprint { return s.source }

func (s *Storage) SetSource(fp *domain.SourceFingerprint) { s.source = fp }

func (s *Storage) Reset() {
	s.documents = nil
	s.embeddings = nil
	s.source = nil
}

// Save writes the snapshot to a temporary file in the target directory and
// renames it over the previous one, so readers see either the old or the new
// snapshot in full.
func (s *Storage) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if err := s.writeSnapshot(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	syncDir(dir)
	return nil
}

func (s *Storage) writeSnapshot(f *os.File) error {
	snap := snapshot{
		Documents:  s.documents,
		Embeddings: s.embeddings,
		Source:     s.source,
	}
	if snap.Documents == nil {
		snap.Documents = []string{}
	}
	if snap.Embeddings == nil {
		snap.Embeddings = [][]float32{}
	}
	w := bufio.NewWriter(f)
	if err := json.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	return nil
}

// syncDir persists the rename. Some platforms cannot fsync directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
