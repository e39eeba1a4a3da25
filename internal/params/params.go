// Package params resolves model-size identifiers into the parameter set a
// deployment run needs: mel channel count, engine path, and the fixed
// Triton batching constants.
package params

import (
	"fmt"

	"whisperctl/pkg/types"
)

// Model sizes whose acoustic front end consumes 128 mel channels. Every
// other size, including unrecognized input, uses 80.
const (
	SizeLargeV3      = "large-v3"
	SizeLargeV3Turbo = "large-v3-turbo"
	SizeTurbo        = "turbo"
)

// Defaults baked into the deployment. The config file may override the
// paths; the batching constants are part of the served model contract.
const (
	DefaultModelRepo  = "/triton_models"
	DefaultEngineRoot = "/workspace/assets"

	DefaultMaxBatchSize              = 8
	DefaultMaxQueueDelayMicroseconds = 100

	melChannelsLarge   = 128
	melChannelsDefault = 80

	// engineLeaf is the fixed directory name of the pre-built engine
	// below <engine root>/<model size>.
	engineLeaf = "tllm"
)

// knownSizes is the set of upstream model names. Deliberately not used to
// reject input: an unknown size still resolves (80 mel channels), it only
// downgrades to a warning at the CLI layer.
var knownSizes = map[string]struct{}{
	"tiny": {}, "tiny.en": {},
	"base": {}, "base.en": {},
	"small": {}, "small.en": {},
	"medium": {}, "medium.en": {},
	"large": {}, "large-v1": {}, "large-v2": {},
	SizeLargeV3: {}, SizeLargeV3Turbo: {}, SizeTurbo: {},
}

// MelChannels maps a model size to its mel filter-bank channel count.
// Unrecognized sizes fall through to 80; no error is ever returned.
func MelChannels(modelSize string) int {
	switch modelSize {
	case SizeLargeV3, SizeLargeV3Turbo, SizeTurbo:
		return melChannelsLarge
	default:
		return melChannelsDefault
	}
}

// IsLargeVariant reports whether the size is one of the 128-channel variants.
func IsLargeVariant(modelSize string) bool {
	return MelChannels(modelSize) == melChannelsLarge
}

// IsKnown reports whether the size matches an upstream model name.
func IsKnown(modelSize string) bool {
	_, ok := knownSizes[modelSize]
	return ok
}

// EngineDir interpolates the model size into the engine path template
// verbatim. No cleaning or validation: the caller gets exactly
// <root>/<size>/tllm, matching the path the engine build produced.
func EngineDir(engineRoot, modelSize string) string {
	if engineRoot == "" {
		engineRoot = DefaultEngineRoot
	}
	return fmt.Sprintf("%s/%s/%s", engineRoot, modelSize, engineLeaf)
}

// Overrides carries optional replacements for the fixed defaults. Zero
// values mean "use the default".
type Overrides struct {
	ModelRepo                 string
	EngineRoot                string
	MaxBatchSize              int
	MaxQueueDelayMicroseconds int
}

// Resolve builds the parameter set for a model size using the fixed defaults.
func Resolve(modelSize string) types.DeploymentParams {
	return ResolveWith(modelSize, Overrides{})
}

// ResolveWith builds the parameter set honoring any non-zero overrides.
func ResolveWith(modelSize string, o Overrides) types.DeploymentParams {
	repo := o.ModelRepo
	if repo == "" {
		repo = DefaultModelRepo
	}
	batch := o.MaxBatchSize
	if batch <= 0 {
		batch = DefaultMaxBatchSize
	}
	delay := o.MaxQueueDelayMicroseconds
	if delay <= 0 {
		delay = DefaultMaxQueueDelayMicroseconds
	}
	return types.DeploymentParams{
		ModelSize:                 modelSize,
		NMels:                     MelChannels(modelSize),
		ZeroPad:                   false,
		EngineDir:                 EngineDir(o.EngineRoot, modelSize),
		ModelRepo:                 repo,
		MaxBatchSize:              batch,
		MaxQueueDelayMicroseconds: delay,
	}
}
