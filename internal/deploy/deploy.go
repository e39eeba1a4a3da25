// Package deploy runs the prepare-and-launch pipeline for one Whisper
// deployment: preflight advisories, asset fetch, config template fill,
// then the blocking server launch. It also tracks the observable state
// served by the status API.
package deploy

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperctl/internal/assets"
	"whisperctl/internal/common/fsutil"
	"whisperctl/internal/launcher"
	"whisperctl/internal/pbtxt"
	"whisperctl/internal/preflight"
	"whisperctl/pkg/types"
)

// Deployment lifecycle states surfaced in ServerStatus.State. Aliased
// from pkg/types so callers can match on either import.
const (
	StatePending  = types.StatePending
	StateFetching = types.StateFetching
	StateFilling  = types.StateFilling
	StateStarting = types.StateStarting
	StateRunning  = types.StateRunning
	StateReady    = types.StateReady
	StateExited   = types.StateExited
	StateFailed   = types.StateFailed
)

const defaultReadyTimeout = 10 * time.Minute

// Options configure a Deployment beyond the resolved parameters.
type Options struct {
	TritonBin    string
	LogVerbose   int
	ExtraArgs    []string // passed to the server verbatim
	FillerPython string
	FillerScript string
	Assets       []assets.Asset // derived from Params.ModelRepo when nil
	AwaitReady   bool
	HealthURL    string
	ReadyTimeout time.Duration // default 10m; engines take a while to load
	Client       *http.Client  // asset fetch and readiness probes

	// SkipFillOnMissing skips a config template that is absent instead of
	// failing the run, for repositories shipped with pre-filled configs.
	SkipFillOnMissing bool

	// OnAssets is invoked with the asset statuses once the fetch step
	// succeeds, before the server starts. Used to bridge metrics.
	OnAssets func([]types.AssetStatus)
}

// Deployment is one pipeline run and its observable state.
type Deployment struct {
	id     string
	params types.DeploymentParams
	opts   Options

	fetcher *assets.Fetcher
	filler  *pbtxt.Filler
	launch  *launcher.Launcher
	log     zerolog.Logger

	mu        sync.Mutex
	state     string
	pid       int
	startedAt int64
	exitCode  int
	assets    []types.AssetStatus
	lastErr   error
}

// New builds a Deployment for already-resolved parameters.
func New(p types.DeploymentParams, o Options, log zerolog.Logger) *Deployment {
	if len(o.Assets) == 0 {
		o.Assets = assets.Defaults(p.ModelRepo)
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}
	d := &Deployment{
		id:     uuid.NewString(),
		params: p,
		opts:   o,
		state:  StatePending,
	}
	d.log = log.With().Str("deployment_id", d.id).Logger()
	d.fetcher = assets.NewFetcher(o.Client, d.log)
	d.filler = pbtxt.NewFiller(o.FillerPython, o.FillerScript, d.log)
	d.launch = launcher.New(d.log)
	return d
}

// ID returns the id minted for this run.
func (d *Deployment) ID() string { return d.id }

// Run executes the pipeline and blocks until the server exits or ctx is
// cancelled. The first failing step aborts the rest; its error comes
// back unwrapped so the caller can map it onto an exit status.
func (d *Deployment) Run(ctx context.Context) error {
	d.log.Info().
		Str("model_size", d.params.ModelSize).
		Int("n_mels", d.params.NMels).
		Str("engine_dir", d.params.EngineDir).
		Str("model_repo", d.params.ModelRepo).
		Msg("deployment starting")

	pf := preflight.Run(preflight.Input{
		Params:       d.params,
		TritonBin:    d.opts.TritonBin,
		FillerPython: d.opts.FillerPython,
		FillerScript: d.opts.FillerScript,
		Assets:       d.opts.Assets,
	})
	for _, c := range pf.Checks {
		if !c.OK {
			d.log.Warn().Str("check", c.Name).Str("detail", c.Detail).Msg("preflight")
		}
	}

	d.setState(StateFetching)
	sts, err := d.fetcher.EnsureAll(ctx, d.opts.Assets)
	d.setAssets(sts)
	if err != nil {
		return d.fail(err)
	}
	if d.opts.OnAssets != nil {
		d.opts.OnAssets(sts)
	}

	d.setState(StateFilling)
	if err := d.fillConfigs(ctx); err != nil {
		return d.fail(err)
	}

	d.setState(StateStarting)
	proc, err := d.launch.Start(ctx, launcher.Options{
		Bin:        d.opts.TritonBin,
		ModelRepo:  d.params.ModelRepo,
		LogVerbose: d.opts.LogVerbose,
		ExtraArgs:  d.opts.ExtraArgs,
	})
	if err != nil {
		return d.fail(err)
	}
	d.setRunning(proc.PID())

	if d.opts.AwaitReady {
		rctx, rcancel := context.WithTimeout(ctx, d.opts.ReadyTimeout)
		defer rcancel()
		go d.awaitReady(rctx)
	}

	err = proc.Wait()
	if err != nil && ctx.Err() != nil {
		// operator-requested shutdown; how the child died is immaterial
		err = ctx.Err()
	}
	d.setExited(err)
	return err
}

// fillConfigs substitutes the deployment parameters into the two Triton
// config templates, honoring SkipFillOnMissing.
func (d *Deployment) fillConfigs(ctx context.Context) error {
	steps := []struct {
		template string
		pairs    []pbtxt.Pair
	}{
		{pbtxt.WhisperTemplate(d.params.ModelRepo), pbtxt.WhisperPairs(d.params)},
		{pbtxt.BLSTemplate(d.params.ModelRepo), pbtxt.BLSPairs(d.params)},
	}
	for _, s := range steps {
		if d.opts.SkipFillOnMissing && !fsutil.IsRegularFile(s.template) {
			d.log.Warn().Str("template", s.template).Msg("config template missing, skipping fill")
			continue
		}
		if err := d.filler.Fill(ctx, s.template, s.pairs); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deployment) awaitReady(ctx context.Context) {
	url := d.opts.HealthURL
	if url == "" {
		url = launcher.DefaultHealthURL
	}
	if err := launcher.WaitReady(ctx, d.opts.Client, url); err != nil {
		d.log.Warn().Err(err).Msg("readiness probe gave up")
		return
	}
	d.setReady()
	d.log.Info().Str("url", url).Msg("server ready")
}

// Status reports the deployment's current observable state.
func (d *Deployment) Status() types.StatusResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp := types.StatusResponse{
		DeploymentID: d.id,
		Params:       d.params,
		Assets:       append([]types.AssetStatus(nil), d.assets...),
		Server: types.ServerStatus{
			State:     d.state,
			PID:       d.pid,
			StartedAt: d.startedAt,
			ExitCode:  d.exitCode,
		},
	}
	if d.lastErr != nil {
		resp.Error = d.lastErr.Error()
	}
	return resp
}

func (d *Deployment) setState(s string) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Deployment) setAssets(sts []types.AssetStatus) {
	d.mu.Lock()
	d.assets = sts
	d.mu.Unlock()
}

func (d *Deployment) setRunning(pid int) {
	d.mu.Lock()
	d.state = StateRunning
	d.pid = pid
	d.startedAt = time.Now().Unix()
	d.mu.Unlock()
}

func (d *Deployment) setReady() {
	d.mu.Lock()
	// the server may already have exited; never go backwards
	if d.state == StateRunning {
		d.state = StateReady
	}
	d.mu.Unlock()
}

func (d *Deployment) setExited(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case err == nil:
		d.state = StateExited
		d.exitCode = 0
	case errors.Is(err, context.Canceled):
		// operator-requested shutdown
		d.state = StateExited
	default:
		d.state = StateFailed
		d.lastErr = err
		if code, ok := launcher.ExitCode(err); ok {
			d.exitCode = code
		}
	}
}

func (d *Deployment) fail(err error) error {
	d.mu.Lock()
	d.state = StateFailed
	d.lastErr = err
	d.mu.Unlock()
	d.log.Error().Err(err).Msg("deployment failed")
	return err
}
