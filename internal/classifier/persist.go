package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ErrModelNotFound reports a missing model artifact; callers match with
// eris.Is and trigger a retrain.
var ErrModelNotFound = eris.New("model not found")

// Save persists the trained model artifact, replacing any previous one
// atomically (write-to-temp + rename).
func Save(m *Model, path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "classifier: marshal model")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "classifier: mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "classifier: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "classifier: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "classifier: close %s", tmpName)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "classifier: rename to %s", path)
	}
	return nil
}

// Load restores a persisted model artifact.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrModelNotFound, "classifier: %s", path)
		}
		return nil, eris.Wrapf(err, "classifier: read %s", path)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "classifier: unmarshal %s", path)
	}
	return &m, nil
}
