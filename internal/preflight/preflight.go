// Package preflight validates the host before a deployment run. Checks
// never mutate state and are safe to run at any time.
package preflight

import (
	"fmt"
	"os"
	"os/exec"

	"whisperctl/internal/assets"
	"whisperctl/internal/common/fsutil"
	"whisperctl/internal/engine"
	"whisperctl/internal/launcher"
	"whisperctl/internal/pbtxt"
	"whisperctl/pkg/types"
)

// Check is one validated precondition.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Warn   bool   `json:"warn,omitempty"` // failure is advisory and does not gate the run
}

// Report aggregates the checks for one deployment.
type Report struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

func (r *Report) add(c Check) {
	if !c.OK && !c.Warn {
		r.OK = false
	}
	r.Checks = append(r.Checks, c)
}

// Warnings returns the advisory failures in the report.
func (r Report) Warnings() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.OK && c.Warn {
			out = append(out, c)
		}
	}
	return out
}

// Input names the collaborators a deployment run will touch. Empty
// fields fall back to the package defaults of the respective step.
type Input struct {
	Params       types.DeploymentParams
	TritonBin    string
	FillerPython string
	FillerScript string
	Assets       []assets.Asset // derived from Params.ModelRepo when nil
}

// Run evaluates every precondition for a launch. Missing assets are
// advisory since the fetch step creates them; a bad engine directory or
// missing template is a hard failure because the downstream steps
// cannot recover from either.
func Run(in Input) Report {
	r := Report{OK: true}

	bin := in.TritonBin
	if bin == "" {
		bin = launcher.DefaultTritonBin
	}
	if p, err := exec.LookPath(bin); err == nil {
		r.add(Check{Name: "tritonserver", OK: true, Detail: p})
	} else {
		r.add(Check{Name: "tritonserver", OK: false, Detail: err.Error()})
	}

	python := in.FillerPython
	if python == "" {
		python = pbtxt.DefaultPython
	}
	if p, err := exec.LookPath(python); err == nil {
		r.add(Check{Name: "filler interpreter", OK: true, Detail: p})
	} else {
		r.add(Check{Name: "filler interpreter", OK: false, Detail: err.Error()})
	}

	script := in.FillerScript
	if script == "" {
		script = pbtxt.DefaultScript
	}
	r.add(fileCheck("filler script", script))

	r.add(dirCheck("model repository", in.Params.ModelRepo))
	r.add(fileCheck("whisper_medium template", pbtxt.WhisperTemplate(in.Params.ModelRepo)))
	r.add(fileCheck("infer_bls template", pbtxt.BLSTemplate(in.Params.ModelRepo)))
	r.add(dirCheck("engine dir", in.Params.EngineDir))

	for _, comp := range []string{engine.ComponentEncoder, engine.ComponentDecoder} {
		name := "engine " + comp
		cfg, err := engine.ReadConfig(in.Params.EngineDir, comp)
		if err != nil {
			r.add(Check{Name: name, OK: false, Detail: err.Error()})
			continue
		}
		r.add(Check{Name: name, OK: true})
		if comp == engine.ComponentEncoder {
			if n, ok := cfg.Int("n_mels"); ok && n != in.Params.NMels {
				r.add(Check{
					Name:   "engine mel channels",
					OK:     false,
					Warn:   true,
					Detail: fmt.Sprintf("engine reports n_mels=%d, resolved %d for %q", n, in.Params.NMels, in.Params.ModelSize),
				})
			}
		}
		if b, ok := cfg.Int("max_batch_size"); ok && b < in.Params.MaxBatchSize {
			r.add(Check{
				Name:   "engine batch size",
				OK:     false,
				Warn:   true,
				Detail: fmt.Sprintf("%s built with max_batch_size=%d, deployment uses %d", comp, b, in.Params.MaxBatchSize),
			})
		}
	}

	as := in.Assets
	if as == nil {
		as = assets.Defaults(in.Params.ModelRepo)
	}
	for _, a := range as {
		r.add(assetCheck(a, in.Params.NMels))
	}
	return r
}

// assetCheck verifies a present asset structurally. A corrupt file is a
// hard failure: the fetcher never overwrites existing files, so a rerun
// cannot repair it and the operator has to delete it first.
func assetCheck(a assets.Asset, nMels int) Check {
	name := "asset " + a.Name
	if !fsutil.IsRegularFile(a.Path()) {
		return Check{Name: name, OK: false, Warn: true, Detail: "missing, will be fetched"}
	}
	switch a.Name {
	case assets.TokenizerName:
		n, err := assets.VerifyVocab(a.Path())
		if err != nil {
			return Check{Name: name, OK: false, Detail: err.Error() + "; delete the file to refetch"}
		}
		return Check{Name: name, OK: true, Detail: fmt.Sprintf("%s (%d ranks)", a.Path(), n)}
	case assets.MelFiltersName:
		if err := assets.VerifyMelFilters(a.Path(), nMels); err != nil {
			return Check{Name: name, OK: false, Detail: err.Error() + "; delete the file to refetch"}
		}
	}
	return Check{Name: name, OK: true, Detail: a.Path()}
}

func fileCheck(name, path string) Check {
	if fsutil.IsRegularFile(path) {
		return Check{Name: name, OK: true, Detail: path}
	}
	return Check{Name: name, OK: false, Detail: path + ": not found"}
}

func dirCheck(name, path string) Check {
	fi, err := os.Stat(path)
	if err == nil && fi.IsDir() {
		return Check{Name: name, OK: true, Detail: path}
	}
	return Check{Name: name, OK: false, Detail: path + ": not a directory"}
}
