package evidence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trustgate/internal/model"
)

// FileProducer reads a pre-recorded evidence batch from a JSON file. This is
// how externally-run tiers (proof checkers, test harnesses, chaos runners)
// hand their results to the gate.
type FileProducer struct {
	Path           string
	FallbackSource model.EvidenceSource
}

// NewFileProducer creates a producer for one evidence batch file.
func NewFileProducer(path string, fallback model.EvidenceSource) *FileProducer {
	return &FileProducer{Path: path, FallbackSource: fallback}
}

// Name returns the batch file's base name.
func (f *FileProducer) Name() string {
	return filepath.Base(f.Path)
}

// Source returns the evidence source assumed for records that omit one.
func (f *FileProducer) Source() model.EvidenceSource {
	if f.FallbackSource.Valid() {
		return f.FallbackSource
	}
	return model.SourceHeuristic
}

// Produce reads and decodes the batch file. An unreadable or unparsable
// file is an explicit producer failure, not an empty result.
func (f *FileProducer) Produce(_ context.Context) ([]RawResult, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, eris.Wrapf(ErrProducerUnavailable, "read %s: %v", f.Path, err)
	}

	// Accept either a full Batch envelope or a bare result array.
	var batch Batch
	if err := json.Unmarshal(data, &batch); err == nil && len(batch.Results) > 0 {
		return batch.Results, nil
	}

	var results []RawResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, eris.Wrapf(err, "evidence: parse batch %s", f.Path)
	}
	return results, nil
}

// ReadBatch decodes a batch file eagerly, returning the envelope metadata
// alongside the raw results. The gate command uses this to surface run
// metadata without waiting for collection.
func ReadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "evidence: read batch %s", path)
	}

	var batch Batch
	if err := json.Unmarshal(data, &batch); err == nil && len(batch.Results) > 0 {
		return &batch, nil
	}

	var results []RawResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, eris.Wrapf(err, "evidence: parse batch %s", path)
	}
	return &Batch{Producer: filepath.Base(path), Results: results}, nil
}
