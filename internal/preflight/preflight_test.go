package preflight

import (
	"archive/zip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"whisperctl/pkg/types"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// mustNpz writes a zip archive with one numpy-magic member per bank.
func mustNpz(t *testing.T, path string, members ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(append([]byte("\x93NUMPY"), 0x01, 0x00)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// fakeHost lays out a complete deployment host in temp dirs.
func fakeHost(t *testing.T) Input {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix host layout")
	}
	root := t.TempDir()
	repo := filepath.Join(root, "triton_models")
	engineDir := filepath.Join(root, "assets", "large-v3", "tllm")

	mustWrite(t, filepath.Join(repo, "whisper_medium", "config.pbtxt"), "template")
	mustWrite(t, filepath.Join(repo, "infer_bls", "config.pbtxt"), "template")
	mustWrite(t, filepath.Join(repo, "infer_bls", "1", "multilingual.tiktoken"), "IQ== 0\n")
	mustNpz(t, filepath.Join(repo, "whisper_medium", "1", "mel_filters.npz"), "mel_80.npy", "mel_128.npy")
	mustWrite(t, filepath.Join(engineDir, "encoder", "config.json"),
		`{"pretrained_config":{"n_mels":128},"build_config":{"max_batch_size":8}}`)
	mustWrite(t, filepath.Join(engineDir, "decoder", "config.json"),
		`{"pretrained_config":{},"build_config":{"max_batch_size":8}}`)
	script := filepath.Join(root, "fill_template.py")
	mustWrite(t, script, "# filler")

	return Input{
		Params: types.DeploymentParams{
			ModelSize:                 "large-v3",
			NMels:                     128,
			EngineDir:                 engineDir,
			ModelRepo:                 repo,
			MaxBatchSize:              8,
			MaxQueueDelayMicroseconds: 100,
		},
		TritonBin:    "sh", // stand-in that always resolves on PATH
		FillerPython: "sh",
		FillerScript: script,
	}
}

func findCheck(t *testing.T, r Report, name string) Check {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report: %+v", name, r.Checks)
	return Check{}
}

func TestRunAllGreen(t *testing.T) {
	r := Run(fakeHost(t))
	if !r.OK {
		t.Fatalf("report not OK: %+v", r.Checks)
	}
	if w := r.Warnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %+v", w)
	}
}

func TestRunMissingTemplateFails(t *testing.T) {
	in := fakeHost(t)
	if err := os.Remove(filepath.Join(in.Params.ModelRepo, "whisper_medium", "config.pbtxt")); err != nil {
		t.Fatal(err)
	}
	r := Run(in)
	if r.OK {
		t.Fatal("report should fail without the whisper template")
	}
	c := findCheck(t, r, "whisper_medium template")
	if c.OK {
		t.Fatalf("template check passed: %+v", c)
	}
}

func TestRunMelMismatchIsAdvisory(t *testing.T) {
	in := fakeHost(t)
	in.Params.NMels = 80 // engine dir was built for 128
	r := Run(in)
	if !r.OK {
		t.Fatalf("mismatch must not gate the run: %+v", r.Checks)
	}
	c := findCheck(t, r, "engine mel channels")
	if c.OK || !c.Warn {
		t.Fatalf("expected advisory failure: %+v", c)
	}
}

func TestRunMissingAssetsAreAdvisory(t *testing.T) {
	in := fakeHost(t)
	if err := os.Remove(filepath.Join(in.Params.ModelRepo, "infer_bls", "1", "multilingual.tiktoken")); err != nil {
		t.Fatal(err)
	}
	r := Run(in)
	if !r.OK {
		t.Fatalf("missing asset must not gate the run: %+v", r.Checks)
	}
	c := findCheck(t, r, "asset multilingual.tiktoken")
	if c.OK || !c.Warn {
		t.Fatalf("expected advisory failure: %+v", c)
	}
}

func TestRunCorruptVocabFails(t *testing.T) {
	in := fakeHost(t)
	mustWrite(t, filepath.Join(in.Params.ModelRepo, "infer_bls", "1", "multilingual.tiktoken"), "!!! not a rank file\n")
	r := Run(in)
	if r.OK {
		t.Fatal("corrupt vocabulary must gate the run")
	}
	c := findCheck(t, r, "asset multilingual.tiktoken")
	if c.OK || c.Warn {
		t.Fatalf("expected hard failure: %+v", c)
	}
}

func TestRunFilterBankWithoutResolvedMelsFails(t *testing.T) {
	in := fakeHost(t)
	// only the 80-channel bank on disk, but the run resolved 128
	mustNpz(t, filepath.Join(in.Params.ModelRepo, "whisper_medium", "1", "mel_filters.npz"), "mel_80.npy")
	r := Run(in)
	if r.OK {
		t.Fatal("filter bank without the resolved channel count must gate the run")
	}
	c := findCheck(t, r, "asset mel_filters.npz")
	if c.OK || c.Warn {
		t.Fatalf("expected hard failure: %+v", c)
	}
}

func TestRunMissingBinaryFails(t *testing.T) {
	in := fakeHost(t)
	in.TritonBin = "/definitely/not/tritonserver"
	r := Run(in)
	if r.OK {
		t.Fatal("report should fail without the server binary")
	}
}

func TestRunSmallEngineBatchWarns(t *testing.T) {
	in := fakeHost(t)
	mustWrite(t, filepath.Join(in.Params.EngineDir, "decoder", "config.json"),
		`{"pretrained_config":{},"build_config":{"max_batch_size":4}}`)
	r := Run(in)
	if !r.OK {
		t.Fatalf("batch warn must not gate the run: %+v", r.Checks)
	}
	c := findCheck(t, r, "engine batch size")
	if c.OK || !c.Warn {
		t.Fatalf("expected advisory failure: %+v", c)
	}
}

func TestRunMissingEngineComponentFails(t *testing.T) {
	in := fakeHost(t)
	if err := os.RemoveAll(filepath.Join(in.Params.EngineDir, "decoder")); err != nil {
		t.Fatal(err)
	}
	r := Run(in)
	if r.OK {
		t.Fatal("report should fail without the decoder component")
	}
}
