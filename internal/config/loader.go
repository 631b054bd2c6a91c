package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a pipeline config from a YAML file. Environment variable
// references are expanded before parsing, so ${VAR} and ${VAR:-default}
// work anywhere in the document.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	data = ExpandEnvVarsBytes(data)

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	if p.RunDir == "" {
		p.RunDir = "runs"
	}
	if p.WorkDir == "" {
		p.WorkDir = "."
	}
	return &p, nil
}

// LoadAndValidate loads a pipeline config and rejects it if validation
// finds problems.
func LoadAndValidate(path string) (*Pipeline, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	if errs := Validate(p); errs.HasErrors() {
		return nil, fmt.Errorf("config validation failed for %s:\n%w", path, errs)
	}
	return p, nil
}
