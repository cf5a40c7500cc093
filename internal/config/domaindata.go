package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GeoPattern is one weighted keyword regex for a region.
type GeoPattern struct {
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
}

// GeoRegionData is one region's subreddit whitelist and keyword patterns.
type GeoRegionData struct {
	Region     string       `yaml:"region"`
	Subreddits []string     `yaml:"subreddits"`
	Patterns   []GeoPattern `yaml:"patterns"`
}

type geoDataFile struct {
	Regions []GeoRegionData `yaml:"regions"`
}

// LoadGeoData reads the region whitelist/pattern table used by the geo tagger.
func LoadGeoData(path string) ([]GeoRegionData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geo data %s: %w", path, err)
	}
	var f geoDataFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse geo data %s: %w", path, err)
	}
	return f.Regions, nil
}

// CompetitorVertical is one named vertical's competitor products and search subreddits.
type CompetitorVertical struct {
	Name       string
	Products   []string `yaml:"products"`
	Subreddits []string `yaml:"subreddits"`
}

type competitorDataFile struct {
	Verticals map[string]struct {
		Products   []string `yaml:"products"`
		Subreddits []string `yaml:"subreddits"`
	} `yaml:"verticals"`
}

// LoadCompetitorData reads the vertical -> {products, subreddits} map used by the competitor miner.
// Verticals are returned in a stable, sorted order so the rotating index in
// processing_state.vertical_index is reproducible across runs.
func LoadCompetitorData(path string) ([]CompetitorVertical, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read competitor data %s: %w", path, err)
	}
	var f competitorDataFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse competitor data %s: %w", path, err)
	}

	names := make([]string, 0, len(f.Verticals))
	for name := range f.Verticals {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CompetitorVertical, 0, len(names))
	for _, name := range names {
		v := f.Verticals[name]
		out = append(out, CompetitorVertical{Name: name, Products: v.Products, Subreddits: v.Subreddits})
	}
	return out, nil
}
