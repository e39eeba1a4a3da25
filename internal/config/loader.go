package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds deployment parameters read from an optional config file.
// Zero values mean "unspecified" and are replaced by defaults in the CLI,
// so a missing file and an empty file behave the same.
type Config struct {
	ModelRepo  string `json:"model_repo" yaml:"model_repo" toml:"model_repo"`
	EngineRoot string `json:"engine_root" yaml:"engine_root" toml:"engine_root"`
	TritonBin  string `json:"triton_bin" yaml:"triton_bin" toml:"triton_bin"`

	// Template filler subprocess.
	FillerPython string `json:"filler_python" yaml:"filler_python" toml:"filler_python"`
	FillerScript string `json:"filler_script" yaml:"filler_script" toml:"filler_script"`

	// Asset mirrors for air-gapped hosts.
	TokenizerURL  string `json:"tokenizer_url" yaml:"tokenizer_url" toml:"tokenizer_url"`
	MelFiltersURL string `json:"mel_filters_url" yaml:"mel_filters_url" toml:"mel_filters_url"`

	// Readiness probe polled by launch --await-ready.
	HealthURL string `json:"health_url" yaml:"health_url" toml:"health_url"`

	// Sidecar status API. Empty disables it unless --status-addr is given.
	StatusAddr  string   `json:"status_addr" yaml:"status_addr" toml:"status_addr"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
