package signature

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Demo is a worked example shown to the model ahead of the real inputs.
type Demo struct {
	Inputs  Values `yaml:"inputs" json:"inputs"`
	Outputs Values `yaml:"outputs" json:"outputs"`
}

// Config is a saved, previously tuned prompt variant. Any non-empty field
// replaces the signature's default.
type Config struct {
	Instruction string `yaml:"instruction" json:"instruction"`
	Template    string `yaml:"template" json:"template"`
	Demos       []Demo `yaml:"demos" json:"demos"`

	tmpl *template.Template
}

// LoadConfig reads an optimised configuration from YAML or JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read signature config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse signature config %s: %w", path, err)
	}

	if cfg.Template != "" {
		cfg.tmpl, err = template.New(filepath.Base(path)).Funcs(templateFuncs).Parse(cfg.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template in %s: %w", path, err)
		}
	}
	return &cfg, nil
}
