package relevance

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed relevance.yaml
var embeddedSettings []byte

// document is the on-disk shape of the relevance configuration.
type document struct {
	Version    int             `yaml:"version"`
	Region     string          `yaml:"region"`
	Weights    Weights         `yaml:"weights"`
	Selection  SelectionRules  `yaml:"selection"`
	Gazetteer  []string        `yaml:"gazetteer"`
	Unsafe     []string        `yaml:"unsafe_terms"`
	HighImpact impactDocument  `yaml:"high_impact"`
	Categories []categoryEntry `yaml:"categories"`
}

type impactDocument struct {
	Terms            []string `yaml:"terms"`
	QuantityPatterns []string `yaml:"quantity_patterns"`
}

type categoryEntry struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	Keywords           []string `yaml:"keywords"`
	PositiveIndicators []string `yaml:"positive_indicators"`
	NegativeIndicators []string `yaml:"negative_indicators"`
}

// Settings is the compiled, read-only relevance configuration.
type Settings struct {
	Version   int
	Region    string
	Weights   Weights
	Rules     SelectionRules
	Catalog   *Catalog
	Gazetteer *Gazetteer
	Safety    *Safety
	Impact    *ImpactSignal
}

// DefaultSettings compiles the embedded configuration.
func DefaultSettings() (*Settings, error) {
	return ParseSettings(embeddedSettings)
}

// LoadSettings reads a configuration file. An empty path means the embedded
// default.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return DefaultSettings()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read relevance config: %w", err)
	}
	s, err := ParseSettings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSettings compiles a YAML document. Weights and selection rules left
// out of the document keep their defaults.
func ParseSettings(data []byte) (*Settings, error) {
	doc := document{
		Weights:   DefaultWeights(),
		Selection: DefaultSelectionRules(),
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse relevance config: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, errors.New("relevance config has no categories")
	}
	if len(doc.Gazetteer) == 0 {
		return nil, errors.New("relevance config has an empty gazetteer")
	}
	if doc.Selection.DefaultK <= 0 {
		return nil, fmt.Errorf("selection.default_k must be positive, got %d", doc.Selection.DefaultK)
	}

	profiles := make([]CategoryProfile, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", c.ID)
		}
		profiles = append(profiles, CategoryProfile(c))
	}
	catalog, err := NewCatalog(profiles)
	if err != nil {
		return nil, err
	}
	impact, err := NewImpactSignal(doc.HighImpact.Terms, doc.HighImpact.QuantityPatterns)
	if err != nil {
		return nil, err
	}

	return &Settings{
		Version:   doc.Version,
		Region:    doc.Region,
		Weights:   doc.Weights,
		Rules:     doc.Selection,
		Catalog:   catalog,
		Gazetteer: NewGazetteer(doc.Gazetteer),
		Safety:    NewSafety(doc.Unsafe),
		Impact:    impact,
	}, nil
}

// NewScorer builds a scorer from the settings.
func (s *Settings) NewScorer(log *slog.Logger) *Scorer {
	return NewScorer(s.Catalog, s.Safety, s.Weights, log)
}

// NewSelector builds a full pipeline from the settings.
func (s *Settings) NewSelector(log *slog.Logger) *Selector {
	return NewSelector(s.NewScorer(log), s.Gazetteer, s.Impact, s.Rules, log)
}
