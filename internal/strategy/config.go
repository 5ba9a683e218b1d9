package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the static configuration attached to a strategy instance at
// registration time. Fields a backend does not use are ignored by it.
type Config struct {
	Backend        string `yaml:"backend"`
	Host           string `yaml:"host"`
	Model          string `yaml:"model"`
	Prompt         string `yaml:"prompt"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type configFile struct {
	Strategies map[string]Config `yaml:"strategies"`
}

// LoadConfigFile parses the declarative strategies file. Errors are wrapped
// in ErrConfig except for a missing file, which is reported via os.IsNotExist
// semantics so callers can decide whether absence is fatal.
func LoadConfigFile(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if file.Strategies == nil {
		return nil, fmt.Errorf("%w: missing 'strategies' section in %s", ErrConfig, path)
	}

	for name, cfg := range file.Strategies {
		if cfg.Backend == "" {
			return nil, fmt.Errorf("%w: missing 'backend' for strategy %q", ErrConfig, name)
		}
	}

	return file.Strategies, nil
}
