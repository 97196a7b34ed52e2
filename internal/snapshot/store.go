// Package snapshot owns the on-disk lifecycle of the raw data file:
// a two-element JSON array of the collected vacancies and the fetch
// parameters that produced them.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hhsync/internal/model"
	"hhsync/pkg/logging"
)

const fileName = "all_vacancies.json"

// ErrCorruptSnapshot marks a data file that cannot be parsed as the
// two-element envelope. The file is the sole input to the load stage,
// so callers treat this as fatal.
var ErrCorruptSnapshot = errors.New("snapshot file is corrupt")

// dataHalf is the first envelope element.
type dataHalf struct {
	Data []model.Vacancy `json:"data"`
}

// metaHalf is the second envelope element.
type metaHalf struct {
	Metadata model.FetchParams `json:"_metadata"`
}

// Store reads and writes the snapshot file under a fixed data directory.
type Store struct {
	dir string
	log *logging.Logger
}

// New returns a Store rooted at dir. The directory is created on the
// first write.
func New(dir string, log *logging.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Path returns the absolute location of the snapshot file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Write serialises the snapshot, fully overwriting any prior content.
// Last successful write wins.
func (s *Store) Write(snap *model.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	envelope := []any{
		dataHalf{Data: snap.Vacancies},
		metaHalf{Metadata: snap.Meta},
	}

	buf, err := json.MarshalIndent(envelope, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(s.Path(), buf, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.log.Info("snapshot written", "path", s.Path(), "vacancies", len(snap.Vacancies))
	return nil
}

// Read parses the snapshot file. Any shape or syntax problem is
// reported as ErrCorruptSnapshot.
func (s *Store) Read() (*model.Snapshot, error) {
	buf, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.Path(), err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: expected 2 envelope elements, got %d", ErrCorruptSnapshot, len(raw))
	}

	var data dataHalf
	if err := json.Unmarshal(raw[0], &data); err != nil {
		return nil, fmt.Errorf("%w: data half: %v", ErrCorruptSnapshot, err)
	}
	var meta metaHalf
	if err := json.Unmarshal(raw[1], &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata half: %v", ErrCorruptSnapshot, err)
	}

	s.log.Info("snapshot loaded", "path", s.Path(), "vacancies", len(data.Data))
	return &model.Snapshot{Vacancies: data.Data, Meta: meta.Metadata}, nil
}
