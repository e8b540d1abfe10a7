package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ModuleConfig describes an external program run as a module.
type ModuleConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Env         map[string]string `yaml:"env" json:"env"`
	Dir         string            `yaml:"dir" json:"dir"`
	Description string            `yaml:"description" json:"description"`

	// Grace is how long an interrupted process may take before it is killed.
	// Zero uses DefaultGrace.
	Grace time.Duration `yaml:"grace" json:"grace"`
}

// ConfigFile is the layout of modules.yaml.
type ConfigFile struct {
	Modules []ModuleConfig `yaml:"modules" json:"modules"`
}

// LoadModules reads a YAML or JSON config file and indexes the modules by name.
// A missing file means no process modules are configured.
func LoadModules(path string) (map[string]ModuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]ModuleConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read modules config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	modules := make(map[string]ModuleConfig, len(cfg.Modules))
	for _, m := range cfg.Modules {
		if m.Name == "" {
			continue
		}
		if m.Command == "" {
			return nil, fmt.Errorf("module %q has no command", m.Name)
		}
		if _, dup := modules[m.Name]; dup {
			return nil, fmt.Errorf("module %q is defined twice", m.Name)
		}
		modules[m.Name] = m
	}
	return modules, nil
}
