package alternatives

import (
	"context"
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iacscan/iacscan/internal/errors"
)

//go:embed data/alternatives.yml
var curatedData []byte

type curatedEntry struct {
	Distribution    string `yaml:"distribution"`
	Region          string `yaml:"region"`
	Architecture    string `yaml:"architecture"`
	ImageID         string `yaml:"image_id"`
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	VerifiedCVEFree bool   `yaml:"verified_cve_free"`
	LastUpdated     string `yaml:"last_updated"`
}

type curatedFile struct {
	Version string         `yaml:"version"`
	Entries []curatedEntry `yaml:"entries"`
}

// CuratedSource serves the embedded offline dataset. Always available; the
// last tier in the chain.
type CuratedSource struct {
	version string
	entries map[Key][]Candidate
}

// NewCuratedSource parses the embedded dataset
func NewCuratedSource() (*CuratedSource, error) {
	var file curatedFile
	if err := yaml.Unmarshal(curatedData, &file); err != nil {
		return nil, errors.NewPermanentf("parsing curated dataset: %w", err)
	}

	entries := make(map[Key][]Candidate)
	for _, e := range file.Entries {
		lastVerified, err := time.Parse("2006-01-02", e.LastUpdated)
		if err != nil {
			return nil, errors.NewPermanentf("curated entry %s: bad last_updated %q: %w", e.ImageID, e.LastUpdated, err)
		}
		key := Key{Distribution: e.Distribution, Region: e.Region, Architecture: e.Architecture}
		entries[key] = append(entries[key], Candidate{
			ImageID:         e.ImageID,
			Name:            e.Name,
			Distribution:    e.Distribution,
			Version:         e.Version,
			Region:          e.Region,
			Architecture:    e.Architecture,
			SourceTier:      TierCurated,
			LastVerified:    lastVerified,
			VerifiedCVEFree: e.VerifiedCVEFree,
		})
	}

	return &CuratedSource{version: file.Version, entries: entries}, nil
}

// Version returns the dataset revision string
func (c *CuratedSource) Version() string {
	return c.version
}

// Name identifies this tier
func (c *CuratedSource) Name() string {
	return TierCurated
}

// Lookup returns the curated candidates for key. Absence of a key is a
// normal empty result.
func (c *CuratedSource) Lookup(_ context.Context, key Key) ([]Candidate, error) {
	entries := c.entries[key]
	out := make([]Candidate, len(entries))
	copy(out, entries)
	return out, nil
}
