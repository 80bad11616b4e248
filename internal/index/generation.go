// Package index builds, publishes and opens per-language hymn indexes.
//
// Each build writes a complete generation under <data>/<lang>/gen-<id>/
// and then replaces the <data>/<lang>/CURRENT pointer with a rename, so
// readers only ever see a whole generation.
package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// File names inside a language directory and a generation.
const (
	CurrentFile   = "CURRENT"
	ManifestFile  = "manifest.json"
	VectorFile    = "index.hnsw"
	CatalogFile   = "catalog.db"
	GenerationPfx = "gen-"
)

// Manifest describes one published generation.
type Manifest struct {
	Language   hymn.Language `json:"language"`
	Generation string        `json:"generation"`
	Backend    string        `json:"backend"`
	Model      string        `json:"model"`
	Dimensions int           `json:"dimensions"`
	Hymns      int           `json:"hymns"`
	Chunks     int           `json:"chunks"`
	ChunkSize  int           `json:"chunk_size"`
	Overlap    int           `json:"chunk_overlap"`
	BuiltAt    time.Time     `json:"built_at"`
}

// writeManifest writes m into genDir.
func writeManifest(genDir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(genDir, ManifestFile), data, 0o644)
}

// ReadManifest reads the manifest of a generation directory.
func ReadManifest(genDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(genDir, ManifestFile))
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to read manifest", err).WithDetail("dir", genDir)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to parse manifest", err).WithDetail("dir", genDir)
	}
	return &m, nil
}

// ResolveCurrent returns the directory of the published generation for
// langDir, or ErrCodeIndexNotFound when nothing has been published.
func ResolveCurrent(langDir string, lang hymn.Language) (string, error) {
	data, err := os.ReadFile(filepath.Join(langDir, CurrentFile))
	if os.IsNotExist(err) {
		return "", errors.IndexNotFound(lang.String())
	}
	if err != nil {
		return "", errors.New(errors.ErrCodeFilePermission, "failed to read index pointer", err).
			WithDetail("dir", langDir)
	}

	name := strings.TrimSpace(string(data))
	if !strings.HasPrefix(name, GenerationPfx) || strings.ContainsAny(name, `/\`) {
		return "", errors.New(errors.ErrCodeCorruptIndex, fmt.Sprintf("invalid index pointer %q", name), nil).
			WithDetail("dir", langDir)
	}

	genDir := filepath.Join(langDir, name)
	if _, err := os.Stat(genDir); err != nil {
		return "", errors.New(errors.ErrCodeCorruptIndex, fmt.Sprintf("published generation %s is missing", name), err).
			WithDetail("dir", langDir)
	}
	return genDir, nil
}

// CurrentManifest returns the manifest of the published generation.
func CurrentManifest(langDir string, lang hymn.Language) (*Manifest, error) {
	genDir, err := ResolveCurrent(langDir, lang)
	if err != nil {
		return nil, err
	}
	return ReadManifest(genDir)
}

// publish points CURRENT at generation via temp file + rename.
func publish(langDir, generation string) error {
	tmp := filepath.Join(langDir, CurrentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(generation+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write index pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(langDir, CurrentFile)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish index pointer: %w", err)
	}
	return nil
}

// pruneGenerations removes every generation directory except keep.
// Failures are logged; a stale directory never affects readers.
func pruneGenerations(langDir, keep string) {
	entries, err := os.ReadDir(langDir)
	if err != nil {
		slog.Warn("generation_prune_failed", slog.String("dir", langDir), slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), GenerationPfx) || e.Name() == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(langDir, e.Name())); err != nil {
			slog.Warn("generation_prune_failed",
				slog.String("generation", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		slog.Debug("generation_pruned", slog.String("generation", e.Name()))
	}
}
