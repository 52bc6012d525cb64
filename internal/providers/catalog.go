package providers

import (
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry describes one provider in the model catalog shown to clients.
type CatalogEntry struct {
	Label        string   `yaml:"label" json:"label"`
	DefaultModel string   `yaml:"default_model" json:"default_model"`
	PremiumModel string   `yaml:"premium_model,omitempty" json:"premium_model,omitempty"`
	Models       []string `yaml:"models" json:"models"`
}

type Catalog struct {
	Providers map[string]CatalogEntry `yaml:"providers" json:"providers"`
}

// DefaultCatalog is used when no config/models.yml is present.
func DefaultCatalog() Catalog {
	return Catalog{Providers: map[string]CatalogEntry{
		"openai": {
			Label:        "Codex",
			DefaultModel: "gpt-5.2-codex",
			PremiumModel: "o3",
			Models:       []string{"gpt-5.2-codex", "o3", "gpt-4.1"},
		},
		"anthropic": {
			Label:        "Claude",
			DefaultModel: "claude-opus-4-1-20250805",
			Models:       []string{"claude-opus-4-1-20250805", "claude-3-7-sonnet-20250219"},
		},
		"xai": {
			Label:        "Grok",
			DefaultModel: "grok-4",
			Models:       []string{"grok-4", "grok-3-mini"},
		},
		"local": {
			Label:        "Local",
			DefaultModel: "gpt-oss-120b",
			Models:       []string{"gpt-oss-120b", "llama3.3:70b"},
		},
	}}
}

// LoadCatalog reads the catalog file, falling back to the built-in defaults
// when the file is absent. A present but malformed file is an error.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return Catalog{}, err
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, err
	}
	if len(c.Providers) == 0 {
		return DefaultCatalog(), nil
	}
	return c, nil
}

func (c Catalog) Entry(name string) (CatalogEntry, bool) {
	e, ok := c.Providers[name]
	return e, ok
}
