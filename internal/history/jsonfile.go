package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trustgate/internal/model"
)

// JSONFileStore persists history as an ordered JSON array in a single flat
// file, oldest entry first. Appends use write-to-temp-then-rename so
// concurrent CI jobs sharing the file never observe an interleaved write.
type JSONFileStore struct {
	path string
}

// NewJSONFile creates a file-backed store at path. The parent directory is
// created on first append.
func NewJSONFile(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the backing file path.
func (s *JSONFileStore) Path() string { return s.path }

// Load reads all entries matching the fingerprint, oldest first. A missing
// file is empty history; a corrupt file fails soft (warn and return empty)
// because a run must never be blocked by history infrastructure.
func (s *JSONFileStore) Load(_ context.Context, fingerprint string) ([]model.TrustHistoryEntry, error) {
	all, err := s.readAll()
	if err != nil {
		zap.L().Warn("history: unreadable history file, treating as empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return nil, nil
	}
	var out []model.TrustHistoryEntry
	for _, e := range all {
		if e.Fingerprint == fingerprint {
			out = append(out, e)
		}
	}
	return out, nil
}

// Append adds one entry. Existing entries are carried over untouched; a
// corrupt existing file is preserved aside as audit evidence before a fresh
// history is started.
func (s *JSONFileStore) Append(_ context.Context, entry model.TrustHistoryEntry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "history: create directory %s", dir)
	}

	all, err := s.readAll()
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UTC().Unix())
		if renameErr := os.Rename(s.path, backup); renameErr == nil {
			zap.L().Warn("history: corrupt history file preserved",
				zap.String("path", s.path),
				zap.String("backup", backup),
			)
		}
		all = nil
	}
	all = append(all, entry)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return eris.Wrap(err, "history: marshal entries")
	}

	// Atomic replace: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "history: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "history: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "history: close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "history: replace %s", s.path)
	}
	return nil
}

// Close is a no-op for the file-backed store.
func (s *JSONFileStore) Close() error { return nil }

func (s *JSONFileStore) readAll() ([]model.TrustHistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "history: read %s", s.path)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []model.TrustHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "history: parse %s", s.path)
	}
	return entries, nil
}
