package taxonomy

import (
	_ "embed"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

//go:embed platforms.yaml
var platformsYAML []byte

// Catalog holds the default platform grouping plus per-center identifiers.
// It is loaded once and shared read-only.
type Catalog struct {
	defaults Taxonomy
	centers  map[string]Taxonomy
}

type catalogFile struct {
	Default Taxonomy            `yaml:"default"`
	Centers map[string]Taxonomy `yaml:"centers"`
}

// Load decodes a catalog from YAML.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &Catalog{centers: map[string]Taxonomy{}}, nil
		}
		return nil, fmt.Errorf("decode platform taxonomy: %w", err)
	}
	if f.Centers == nil {
		f.Centers = map[string]Taxonomy{}
	}
	return &Catalog{defaults: f.Default, centers: f.Centers}, nil
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open platform taxonomy: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Embedded returns the catalog shipped with the binary.
func Embedded() (*Catalog, error) {
	return Load(bytes.NewReader(platformsYAML))
}

// Default returns the grouping shared by all centers.
func (c *Catalog) Default() Taxonomy { return c.defaults }

// Centers lists the known centers, sorted.
func (c *Catalog) Centers() []string {
	out := make([]string, 0, len(c.centers))
	for name := range c.centers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Center returns the center-specific taxonomy.
func (c *Catalog) Center(name string) (Taxonomy, bool) {
	t, ok := c.centers[name]
	return t, ok
}

// Platforms returns the center's identifiers. An unknown center is not an
// error: it logs a warning and yields an empty taxonomy.
func (c *Catalog) Platforms(name string, logger *slog.Logger) Taxonomy {
	t, ok := c.centers[name]
	if !ok {
		logger.Warn("unknown center requested", "center", name)
		return Taxonomy{}
	}
	return t
}

// ForCenter merges the default grouping with the center's identifiers, the
// table used to group bulk statistics for that center.
func (c *Catalog) ForCenter(name string, logger *slog.Logger) Taxonomy {
	return Merge(c.defaults, c.Platforms(name, logger))
}

// Platform lists for the reference plots.
var (
	conventional = []string{
		"Radiosonde", "Ship", "Buoy", "Land Surface", "Aircraft",
		"PIBAL", "GPSRO", "Geo Wind", "MODIS Wind", "AVHRR Wind",
	}
	radiance = []string{
		"AIRS", "AMSUA", "MHS", "ATMS", "CrIS", "HIRS", "IASI", "Seviri", "GOES",
	}
)

// RefPlatforms returns the canonical platforms shown on comparison plots:
// "conv" for conventional observations, "rad" for radiances, or "full".
func RefPlatforms(kind string) ([]string, error) {
	switch kind {
	case "conv":
		return slices.Clone(conventional), nil
	case "rad":
		return slices.Clone(radiance), nil
	case "full":
		return slices.Concat(conventional, radiance), nil
	default:
		return nil, &domain.UsageError{
			Op:  "reference platforms",
			Msg: fmt.Sprintf(`kind must be "full", "conv" or "rad", got %q`, kind),
		}
	}
}
