package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// FileSecretStore persists persona bearer-token overrides on disk so
// operators can rotate credentials without editing the persona file. The
// JSON maps persona id to token.
type FileSecretStore struct {
	path string
}

func NewFileSecretStore(path string) *FileSecretStore {
	return &FileSecretStore{path: path}
}

// Read returns the stored overrides, or nil when the file does not exist.
func (f *FileSecretStore) Read() (map[int]string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid persona id %q in %s", k, f.path)
		}
		if v != "" {
			out[id] = v
		}
	}
	return out, nil
}

func (f *FileSecretStore) Write(tokens map[int]string) error {
	if len(tokens) == 0 {
		return fmt.Errorf("no tokens to write")
	}
	raw := make(map[string]string, len(tokens))
	for id, tok := range tokens {
		if id <= 0 || tok == "" {
			return fmt.Errorf("invalid token entry for persona %d", id)
		}
		raw[strconv.Itoa(id)] = tok
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	// Restrictive permissions for the token file
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileSecretStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
