// Package executil runs child processes with a small, uniform surface.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Cmd describes one child process invocation.
type Cmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars on top of the parent env
	Dir    string            // working directory
	Stream bool              // if true, wire the child to the parent stdout/stderr
}

func (c Cmd) build(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd
}

// RunCmd executes the command and waits for it. With Stream set the child
// shares the parent stdout/stderr; otherwise output is captured and only
// surfaces inside the error when the command fails.
func RunCmd(ctx context.Context, c Cmd) error {
	if c.Stream {
		cmd := c.build(ctx)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
	_, err := CaptureCmd(ctx, c)
	return err
}

// CaptureCmd executes the command and returns its combined stdout and
// stderr. On failure the output tail is folded into the returned error.
func CaptureCmd(ctx context.Context, c Cmd) (string, error) {
	cmd := c.build(ctx)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := buf.String()
	if err != nil {
		if t := tail(out, 512); t != "" {
			return out, fmt.Errorf("%s: %w: %s", c.Path, err, t)
		}
		return out, fmt.Errorf("%s: %w", c.Path, err)
	}
	return out, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
