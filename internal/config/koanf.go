package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mediacatalog/config.yaml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CATALOG_CONFIG_PATH"

// envPrefix is stripped from environment variable names before they are
// translated into koanf dotted paths, e.g. CATALOG_DATABASE_PATH -> database.path.
const envPrefix = "CATALOG_"

// sliceConfigPaths are config keys that must be split on commas when they
// arrive from the environment as a single string rather than a YAML list.
var sliceConfigPaths = []string{
	"scan.photo_extensions",
	"scan.video_extensions",
}

// Load builds a Config from defaults, an optional config file, and
// environment variables, in that precedence order.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform converts CATALOG_DATABASE_PATH into database.path.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "_", ".")
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if s, ok := val.(string); ok {
			parts := strings.Split(s, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			if err := k.Set(path, parts); err != nil {
				return fmt.Errorf("split %s: %w", path, err)
			}
		}
	}
	return nil
}
