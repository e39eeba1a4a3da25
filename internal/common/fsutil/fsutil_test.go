package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	sub := "test-sub"
	exp, err := ExpandHome("~/" + sub)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS == "windows" {
		if filepath.Base(exp) != sub {
			t.Fatalf("unexpected expanded path: %q", exp)
		}
	} else {
		expected := filepath.Join(home, sub)
		if exp != expected {
			t.Fatalf("expected %q, got %q", expected, exp)
		}
	}
}

func TestPathHelpers(t *testing.T) {
	d := t.TempDir()
	f := filepath.Join(d, "asset.bin")
	if PathExists(f) {
		t.Fatalf("file should not exist yet")
	}
	if IsRegularFile(d) {
		t.Fatalf("directory reported as regular file")
	}
	if err := os.WriteFile(f, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !PathExists(f) || !IsRegularFile(f) {
		t.Fatalf("file not detected")
	}
	if got := FileSize(f); got != 3 {
		t.Fatalf("size=%d, want 3", got)
	}
	if got := FileSize(filepath.Join(d, "missing")); got != 0 {
		t.Fatalf("missing file size=%d, want 0", got)
	}
}

func TestEnsureDir(t *testing.T) {
	d := t.TempDir()
	nested := filepath.Join(d, "a", "b", "c")
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !PathExists(nested) {
		t.Fatalf("nested dir missing")
	}
	// second call is a no-op
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if err := EnsureDir(""); err == nil {
		t.Fatalf("expected error on empty dir")
	}
}
