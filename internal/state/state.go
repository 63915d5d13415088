// Package state persists small pieces of per-user CLI state between runs,
// such as the project most recently opened.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the state file written under the state directory.
const FileName = "state.yaml"

// State is the persisted CLI state.
type State struct {
	CurrentProjectID string `yaml:"current_project_id,omitempty"`
}

// File reads and writes State at a fixed path.
type File struct {
	path string
}

// New returns a File stored in dir.
func New(dir string) *File {
	return &File{path: filepath.Join(dir, FileName)}
}

// Path returns the state file location.
func (f *File) Path() string { return f.path }

// Load reads the state file. A missing file yields an empty State.
func (f *File) Load() (State, error) {
	var s State
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read state: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse state %s: %w", f.path, err)
	}
	return s, nil
}

// Save writes s, creating the state directory if needed. The file is
// replaced atomically.
func (f *File) Save(s State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// CurrentProject returns the remembered project ID, or "" if none.
func (f *File) CurrentProject() (string, error) {
	s, err := f.Load()
	if err != nil {
		return "", err
	}
	return s.CurrentProjectID, nil
}

// SetCurrentProject remembers id as the current project. An empty id
// clears it.
func (f *File) SetCurrentProject(id string) error {
	s, err := f.Load()
	if err != nil {
		return err
	}
	s.CurrentProjectID = id
	return f.Save(s)
}
