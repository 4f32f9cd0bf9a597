// Package fs persists gateway state to the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/duewell/syncgate/internal/domain"
)

const gatewayStateFile = "gateway.json"

// StateFile stores domain.GatewayState as indented JSON in a directory.
// Writes go through a sibling temp file and a rename, so a crash cannot
// leave a torn state file behind.
type StateFile struct {
	dir string
}

// NewStateFile returns a StateFile rooted at dir. The directory is
// created on first Save.
func NewStateFile(dir string) *StateFile {
	return &StateFile{dir: dir}
}

// Load reads the persisted state. A missing file is not an error and
// yields the zero state.
func (s *StateFile) Load(ctx context.Context) (domain.GatewayState, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return domain.GatewayState{}, nil
	}
	if err != nil {
		return domain.GatewayState{}, err
	}

	var st domain.GatewayState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.GatewayState{}, err
	}
	return st, nil
}

// Save replaces the state file atomically.
func (s *StateFile) Save(ctx context.Context, st domain.GatewayState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	target := s.Path()
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// Path returns the location of the state file.
func (s *StateFile) Path() string {
	return filepath.Join(s.dir, gatewayStateFile)
}
