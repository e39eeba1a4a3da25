// Package engine reads TensorRT-LLM engine metadata from an engine
// directory produced by trtllm-build.
package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Components of a Whisper engine directory.
const (
	ComponentEncoder = "encoder"
	ComponentDecoder = "decoder"
)

// Config is the flattened engine configuration for one component:
// pretrained_config keys overlaid with build_config keys, build winning
// on collision.
type Config map[string]any

// ReadConfig loads {engineDir}/{component}/config.json and flattens it.
func ReadConfig(engineDir, component string) (Config, error) {
	path := filepath.Join(engineDir, component, "config.json")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Pretrained map[string]any `json:"pretrained_config"`
		Build      map[string]any `json:"build_config"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg := make(Config, len(raw.Pretrained)+len(raw.Build))
	for k, v := range raw.Pretrained {
		cfg[k] = v
	}
	for k, v := range raw.Build {
		cfg[k] = v
	}
	return cfg, nil
}

// Int returns the key's value when it is a JSON number.
func (c Config) Int(key string) (int, bool) {
	f, ok := c[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String returns the key's value when it is a JSON string.
func (c Config) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// NMels reads the encoder component and returns its mel channel count,
// when the engine records one.
func NMels(engineDir string) (int, bool) {
	cfg, err := ReadConfig(engineDir, ComponentEncoder)
	if err != nil {
		return 0, false
	}
	return cfg.Int("n_mels")
}

// MaxBatchSize reads the component's build-time batch limit.
func MaxBatchSize(engineDir, component string) (int, bool) {
	cfg, err := ReadConfig(engineDir, component)
	if err != nil {
		return 0, false
	}
	return cfg.Int("max_batch_size")
}
