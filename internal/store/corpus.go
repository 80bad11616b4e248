package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// CorpusFile is the name of the persisted hymn corpus in a generation.
const CorpusFile = "hymns.json"

// WriteCorpus writes records as a JSON array. A record's position in the
// array is its hymn id. Records without a number or title omit them.
func WriteCorpus(path string, records []hymn.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if records == nil {
		records = []hymn.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename corpus: %w", err)
	}
	return nil
}

// ReadCorpus reads a corpus written by WriteCorpus and restores IDs and
// language.
func ReadCorpus(path string, lang hymn.Language) ([]hymn.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to read corpus", err).WithDetail("path", path)
	}

	var records []hymn.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to parse corpus", err).WithDetail("path", path)
	}
	for i := range records {
		records[i].ID = i
		records[i].Language = lang
	}
	return records, nil
}
