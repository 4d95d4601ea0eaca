package batch

import (
	"encoding/json"
	"fmt"
	"os"

	"impostor-baker/internal/export"
)

// Manifest describes one batch run's output directory.
type Manifest struct {
	Tiles      int             `json:"tiles"`
	Resolution int             `json:"resolution"`
	Format     string          `json:"format"`
	Items      []ManifestEntry `json:"items"`
}

// ManifestEntry represents one baked mesh in the output manifest.
type ManifestEntry struct {
	Name     string         `json:"name"`
	Source   string         `json:"source"`
	Radius   float64        `json:"radius"`
	Atlases  export.Atlases `json:"atlases"`
	Previews []string       `json:"previews,omitempty"`
}

// WriteManifest writes manifest.json listing every successful result.
func WriteManifest(path string, cfg Config, results []Result) error {
	m := Manifest{
		Tiles:      cfg.Impostor.TileCount,
		Resolution: cfg.Impostor.AtlasResolution,
		Format:     cfg.Format.String(),
		Items:      make([]ManifestEntry, 0, len(results)),
	}
	for _, r := range results {
		if !r.Success {
			continue
		}
		m.Items = append(m.Items, ManifestEntry{
			Name:     r.Name,
			Source:   r.Source,
			Radius:   r.Radius,
			Atlases:  r.Atlases,
			Previews: r.Previews,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
