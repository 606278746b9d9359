// Package filestore reads and writes small JSON or YAML documents.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Store loads and saves documents by path.
type Store interface {
	// Load decodes path into v. A missing or empty file leaves v untouched.
	Load(path string, v any) error
	// Save encodes v into path atomically.
	Save(path string, v any) error
}

// FileStore is the on-disk Store. The format is picked from the extension:
// .yaml/.yml is YAML, anything else JSON.
type FileStore struct{}

// New creates a FileStore.
func New() *FileStore { return &FileStore{} }

// Load implements Store.
func (s *FileStore) Load(path string, v any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "read %s", path)
	}
	if len(payload) == 0 {
		return nil
	}

	if isYAML(path) {
		err = yaml.Unmarshal(payload, v)
	} else {
		err = json.Unmarshal(payload, v)
	}
	return errors.Wrapf(err, "decode %s", path)
}

// Save implements Store via temp file and rename.
func (s *FileStore) Save(path string, v any) error {
	var (
		payload []byte
		err     error
	)
	if isYAML(path) {
		payload, err = yaml.Marshal(v)
	} else {
		payload, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrapf(err, "write temp file for %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "persist %s", path)
	}
	return nil
}

// Exists reports whether path is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
