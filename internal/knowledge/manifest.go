package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nfe/internal/domain"
)

// ManifestFile marks a complete index; it is the last file a build writes.
const ManifestFile = "manifest.json"

// Manifest describes how an index was built.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	Backend   string    `json:"backend"`
	Embedder  string    `json:"embedder"`
	Dimension int       `json:"dimension"`
	Documents int       `json:"documents"`
	BuiltAt   time.Time `json:"built_at"`
}

// ReadManifest loads the manifest of the index in dir. A directory without
// one holds no index.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNoIndex
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ManifestFile, err)
	}
	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}
