package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dnovikov/ironio-oauth/environment"
	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
	"github.com/dnovikov/ironio-oauth/internal/utils"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadEnvironmentFile reads the worker configuration file. Top-level scalars are
// global keys and top-level tables are environment sections, mirroring an ini
// file with [sections]. The format is picked from the extension.
func LoadEnvironmentFile(path string) (*environment.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ierrors.Wrapf(err, "read config file")
	}

	ext := strings.ToLower(filepath.Ext(path))
	raw := make(map[string]any)
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json":
		// JSON is a subset of YAML.
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, ierrors.Wrapf(ierrors.ErrUnsupported, "config file extension %q", ext)
	}
	if err != nil {
		return nil, ierrors.Wrapf(err, "decode config file %s", path)
	}

	return EnvironmentConfigFromMap(raw)
}

// EnvironmentConfigFromMap splits a decoded document into global and
// environment-scoped values.
func EnvironmentConfigFromMap(raw map[string]any) (*environment.Config, error) {
	cfg := environment.New()
	for key, value := range raw {
		section, ok := value.(map[string]any)
		if !ok {
			s, ok := utils.ToString(value)
			if !ok {
				return nil, fmt.Errorf("config key %q: unsupported value of type %T", key, value)
			}
			cfg.Global[key] = s
			continue
		}

		values := make(map[string]string, len(section))
		for k, v := range section {
			s, ok := utils.ToString(v)
			if !ok {
				return nil, fmt.Errorf("config key %s.%s: unsupported value of type %T", key, k, v)
			}
			values[k] = s
		}
		cfg.Environments[key] = values
	}
	return cfg, nil
}
