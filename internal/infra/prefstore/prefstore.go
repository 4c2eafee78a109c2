// Package prefstore persists the user alert preferences as a JSON file,
// surviving restarts the way browser localStorage survives page reloads.
package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a preference store backed by the JSON file at path.
func NewFileStore(path string) service.PreferenceStore {
	return &fileStore{path: path}
}

// Load reads the persisted preferences. A missing file is not an error: the
// defaults apply on first run.
func (s *fileStore) Load() (entity.AlertPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entity.DefaultAlertPreferences(), nil
		}

		return entity.AlertPreferences{}, errors.Wrap(err, "read preference file")
	}

	var prefs entity.AlertPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return entity.AlertPreferences{}, errors.Wrap(err, "parse preference file")
	}

	if !prefs.DesktopPermission.IsValid() {
		prefs.DesktopPermission = entity.PermissionDefault
	}

	return prefs, nil
}

// Save writes the preferences atomically: a temp file in the same directory
// is renamed over the target so readers never observe a partial write.
func (s *fileStore) Save(prefs entity.AlertPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".pulse-prefs-*")
	if err != nil {
		return errors.Wrap(err, "create temp preference file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errors.Wrap(err, "write temp preference file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(err, "close temp preference file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(err, "replace preference file")
	}

	return nil
}
