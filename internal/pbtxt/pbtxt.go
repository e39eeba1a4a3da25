// Package pbtxt computes the config.pbtxt substitutions for a Whisper
// deployment and applies them through the external template filler.
package pbtxt

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"whisperctl/internal/common/executil"
	"whisperctl/internal/common/fsutil"
	"whisperctl/pkg/types"
)

// Defaults for the filler subprocess.
const (
	DefaultPython = "python3"
	DefaultScript = "/workspace/scripts/fill_template.py"
)

// Pair is one key:value substitution.
type Pair struct {
	Key   string
	Value string
}

// WhisperPairs returns the substitution set for whisper_medium/config.pbtxt.
func WhisperPairs(p types.DeploymentParams) []Pair {
	return []Pair{
		{"engine_dir", p.EngineDir},
		{"n_mels", strconv.Itoa(p.NMels)},
		{"zero_pad", strconv.FormatBool(p.ZeroPad)},
		{"triton_max_batch_size", strconv.Itoa(p.MaxBatchSize)},
		{"max_queue_delay_microseconds", strconv.Itoa(p.MaxQueueDelayMicroseconds)},
	}
}

// BLSPairs returns the substitution set for infer_bls/config.pbtxt. The
// BLS config is mel-agnostic: no n_mels, no zero_pad.
func BLSPairs(p types.DeploymentParams) []Pair {
	return []Pair{
		{"engine_dir", p.EngineDir},
		{"triton_max_batch_size", strconv.Itoa(p.MaxBatchSize)},
		{"max_queue_delay_microseconds", strconv.Itoa(p.MaxQueueDelayMicroseconds)},
	}
}

// Render joins pairs into the k:v,k:v argument form the filler expects.
func Render(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Key + ":" + p.Value
	}
	return strings.Join(parts, ",")
}

// WhisperTemplate returns the whisper_medium template path under modelRepo.
func WhisperTemplate(modelRepo string) string {
	return filepath.Join(modelRepo, "whisper_medium", "config.pbtxt")
}

// BLSTemplate returns the infer_bls template path under modelRepo.
func BLSTemplate(modelRepo string) string {
	return filepath.Join(modelRepo, "infer_bls", "config.pbtxt")
}

// Filler rewrites config templates in place by invoking the external
// fill_template.py script.
type Filler struct {
	python string
	script string
	log    zerolog.Logger
}

// NewFiller builds a Filler. Empty python or script fall back to the
// defaults.
func NewFiller(python, script string, log zerolog.Logger) *Filler {
	if python == "" {
		python = DefaultPython
	}
	if script == "" {
		script = DefaultScript
	}
	return &Filler{python: python, script: script, log: log}
}

// Command returns the argv Fill would execute for the template.
func (f *Filler) Command(templatePath string, pairs []Pair) []string {
	return []string{f.python, f.script, "-i", templatePath, Render(pairs)}
}

// Fill applies the substitutions to the template at templatePath. Any
// filler failure is fatal to the deployment; the subprocess output rides
// along in the error.
func (f *Filler) Fill(ctx context.Context, templatePath string, pairs []Pair) error {
	if !fsutil.IsRegularFile(templatePath) {
		return ErrFill(templatePath, fmt.Errorf("template not found"))
	}
	argv := f.Command(templatePath, pairs)
	f.log.Info().Str("template", templatePath).Str("pairs", Render(pairs)).Msg("filling config template")
	if _, err := executil.CaptureCmd(ctx, executil.Cmd{Path: argv[0], Args: argv[1:]}); err != nil {
		return ErrFill(templatePath, err)
	}
	return nil
}

// FillAll applies both deployment substitution sets, whisper_medium
// first, then infer_bls.
func (f *Filler) FillAll(ctx context.Context, modelRepo string, p types.DeploymentParams) error {
	if err := f.Fill(ctx, WhisperTemplate(modelRepo), WhisperPairs(p)); err != nil {
		return err
	}
	return f.Fill(ctx, BLSTemplate(modelRepo), BLSPairs(p))
}

// fillError carries the template whose substitution failed.
type fillError struct {
	template string
	err      error
}

func (e fillError) Error() string { return fmt.Sprintf("fill %s: %v", e.template, e.err) }

func (e fillError) Unwrap() error { return e.err }

// ErrFill constructs a fillError.
func ErrFill(template string, err error) error { return fillError{template: template, err: err} }

// IsFillError reports whether err came from a template fill.
func IsFillError(err error) bool {
	var fe fillError
	return errors.As(err, &fe)
}
