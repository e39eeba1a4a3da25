package pbtxt

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"whisperctl/pkg/types"
)

func largeParams() types.DeploymentParams {
	return types.DeploymentParams{
		ModelSize:                 "large-v3",
		NMels:                     128,
		ZeroPad:                   false,
		EngineDir:                 "/workspace/assets/large-v3/tllm",
		ModelRepo:                 "/triton_models",
		MaxBatchSize:              8,
		MaxQueueDelayMicroseconds: 100,
	}
}

func TestWhisperPairs(t *testing.T) {
	got := Render(WhisperPairs(largeParams()))
	want := "engine_dir:/workspace/assets/large-v3/tllm,n_mels:128,zero_pad:false,triton_max_batch_size:8,max_queue_delay_microseconds:100"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestBLSPairsAreMelAgnostic(t *testing.T) {
	pairs := BLSPairs(largeParams())
	for _, p := range pairs {
		if p.Key == "n_mels" || p.Key == "zero_pad" {
			t.Fatalf("BLS pairs must not carry %s", p.Key)
		}
	}
	got := Render(pairs)
	want := "engine_dir:/workspace/assets/large-v3/tllm,triton_max_batch_size:8,max_queue_delay_microseconds:100"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestTemplatePaths(t *testing.T) {
	if p := WhisperTemplate("/triton_models"); p != "/triton_models/whisper_medium/config.pbtxt" {
		t.Fatalf("whisper template: %s", p)
	}
	if p := BLSTemplate("/triton_models"); p != "/triton_models/infer_bls/config.pbtxt" {
		t.Fatalf("bls template: %s", p)
	}
}

func TestCommandShape(t *testing.T) {
	f := NewFiller("", "", zerolog.Nop())
	argv := f.Command("/m/whisper_medium/config.pbtxt", []Pair{{"a", "1"}, {"b", "2"}})
	want := []string{DefaultPython, DefaultScript, "-i", "/m/whisper_medium/config.pbtxt", "a:1,b:2"}
	if len(argv) != len(want) {
		t.Fatalf("argv: %v", argv)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv[%d]=%q want %q", i, argv[i], want[i])
		}
	}
}

// fakeFiller writes a shell script that appends its argv to argv.txt in
// the script's directory, standing in for fill_template.py.
func fakeFiller(t *testing.T, body string) (script, argvFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	dir := t.TempDir()
	script = filepath.Join(dir, "fill.sh")
	argvFile = filepath.Join(dir, "argv.txt")
	if body == "" {
		body = `echo "$@" >> "$(dirname "$0")/argv.txt"`
	}
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return script, argvFile
}

func writeTemplate(t *testing.T, repo, model string) string {
	t.Helper()
	dir := filepath.Join(repo, model)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, "config.pbtxt")
	if err := os.WriteFile(p, []byte("parameters { key: \"engine_dir\" value: { string_value: \"${engine_dir}\" } }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFillInvokesScript(t *testing.T) {
	script, argvFile := fakeFiller(t, "")
	repo := t.TempDir()
	tmpl := writeTemplate(t, repo, "whisper_medium")

	f := NewFiller("sh", script, zerolog.Nop())
	if err := f.Fill(context.Background(), tmpl, []Pair{{"engine_dir", "/e"}, {"n_mels", "80"}}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	b, err := os.ReadFile(argvFile)
	if err != nil {
		t.Fatalf("argv not recorded: %v", err)
	}
	got := strings.TrimSpace(string(b))
	want := "-i " + tmpl + " engine_dir:/e,n_mels:80"
	if got != want {
		t.Fatalf("argv %q want %q", got, want)
	}
}

func TestFillMissingTemplate(t *testing.T) {
	script, _ := fakeFiller(t, "")
	f := NewFiller("sh", script, zerolog.Nop())
	err := f.Fill(context.Background(), "/definitely/missing/config.pbtxt", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsFillError(err) {
		t.Fatalf("not a fill error: %v", err)
	}
}

func TestFillScriptFailure(t *testing.T) {
	script, _ := fakeFiller(t, `echo "unknown placeholder" 1>&2; exit 2`)
	repo := t.TempDir()
	tmpl := writeTemplate(t, repo, "infer_bls")

	f := NewFiller("sh", script, zerolog.Nop())
	err := f.Fill(context.Background(), tmpl, []Pair{{"engine_dir", "/e"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsFillError(err) {
		t.Fatalf("not a fill error: %v", err)
	}
	if !strings.Contains(err.Error(), "unknown placeholder") {
		t.Fatalf("script stderr not surfaced: %v", err)
	}
}

func TestFillAllOrderAndPairs(t *testing.T) {
	script, argvFile := fakeFiller(t, "")
	repo := t.TempDir()
	writeTemplate(t, repo, "whisper_medium")
	writeTemplate(t, repo, "infer_bls")

	f := NewFiller("sh", script, zerolog.Nop())
	if err := f.FillAll(context.Background(), repo, largeParams()); err != nil {
		t.Fatalf("fill all: %v", err)
	}
	b, err := os.ReadFile(argvFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 invocations, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "whisper_medium") || !strings.Contains(lines[0], "n_mels:128") {
		t.Fatalf("first invocation: %q", lines[0])
	}
	if !strings.Contains(lines[1], "infer_bls") || strings.Contains(lines[1], "n_mels") {
		t.Fatalf("second invocation: %q", lines[1])
	}
}
