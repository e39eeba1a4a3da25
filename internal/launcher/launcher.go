// Package launcher starts the Triton inference server over a prepared
// model repository and propagates its exit status.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultTritonBin  = "tritonserver"
	DefaultLogVerbose = 1

	// grace between SIGTERM and SIGKILL on cancellation; Triton needs a
	// moment to unload models
	shutdownGrace = 10 * time.Second
)

// Options configure a server launch.
type Options struct {
	Bin        string // tritonserver binary, default DefaultTritonBin
	ModelRepo  string
	LogVerbose int
	ExtraArgs  []string // passed through verbatim after the fixed flags
}

// Args returns the argv for the launch, binary excluded.
func (o Options) Args() []string {
	args := []string{
		"--model-repository=" + o.ModelRepo,
		"--log-verbose=" + strconv.Itoa(o.LogVerbose),
	}
	return append(args, o.ExtraArgs...)
}

// Launcher runs the inference server in the foreground. The child
// inherits stdout/stderr so its own diagnostics stay visible.
type Launcher struct {
	log zerolog.Logger
}

// New builds a Launcher.
func New(log zerolog.Logger) *Launcher { return &Launcher{log: log} }

// Proc is a started server process.
type Proc struct {
	cmd *exec.Cmd
}

// Start launches the server. Cancelling ctx sends SIGTERM and escalates
// to SIGKILL after the grace period.
func (l *Launcher) Start(ctx context.Context, o Options) (*Proc, error) {
	bin := o.Bin
	if bin == "" {
		bin = DefaultTritonBin
	}
	cmd := exec.CommandContext(ctx, bin, o.Args()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = shutdownGrace
	l.log.Info().Str("bin", bin).Strs("args", o.Args()).Msg("starting inference server")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	l.log.Info().Int("pid", cmd.Process.Pid).Msg("inference server started")
	return &Proc{cmd: cmd}, nil
}

// PID returns the child's process id.
func (p *Proc) PID() int { return p.cmd.Process.Pid }

// Wait blocks until the child exits. A non-zero exit surfaces as an
// exit-code error so callers can propagate the child's status.
func (p *Proc) Wait() error {
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ErrExit(ee.ExitCode(), err)
	}
	return err
}

// Run starts the server and blocks until it exits.
func (l *Launcher) Run(ctx context.Context, o Options) error {
	p, err := l.Start(ctx, o)
	if err != nil {
		return err
	}
	return p.Wait()
}

// exitError carries the server's exit code for propagation.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	return fmt.Sprintf("inference server exited with code %d", e.code)
}

func (e exitError) Unwrap() error { return e.err }

// ErrExit constructs an exitError.
func ErrExit(code int, err error) error { return exitError{code: code, err: err} }

// ExitCode extracts the child's exit code from err. ok is false when
// err carries none (the server never started, or exited on a signal).
func ExitCode(err error) (code int, ok bool) {
	var ee exitError
	if errors.As(err, &ee) && ee.code >= 0 {
		return ee.code, true
	}
	return 0, false
}
