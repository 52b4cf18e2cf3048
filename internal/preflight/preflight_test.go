package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subgen/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if r := CheckDirectoryAccess("Output", dir); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if r := CheckDirectoryAccess("Output", filepath.Join(dir, "missing")); r.Passed || !strings.Contains(r.Detail, "does not exist") {
		t.Fatalf("unexpected result %+v", r)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if r := CheckDirectoryAccess("Output", file); r.Passed || !strings.Contains(r.Detail, "not a directory") {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestCheckWritableTargetMissingDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "output")
	r := CheckWritableTarget("Output", target)
	if !r.Passed || !strings.Contains(r.Detail, "will be created") {
		t.Fatalf("unexpected result %+v", r)
	}
	if r := CheckWritableTarget("Output", ""); r.Passed {
		t.Fatal("expected unconfigured path to fail")
	}
}

func TestCheckModelFile(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "ggml-base.bin")
	if err := os.WriteFile(model, []byte("ggml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if r := CheckModelFile("model", model); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	for _, bad := range []string{"", dir, filepath.Join(dir, "missing.bin")} {
		if r := CheckModelFile("model", bad); r.Passed {
			t.Fatalf("expected failure for %q", bad)
		}
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = base
	cfg.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfg.Resolver.SearchRoots = []string{filepath.Join(base, "missing-root")}
	cfg.Transcription.Engine = config.EngineWhisperCPP
	cfg.Transcription.WhisperCPPModel = filepath.Join(base, "missing.bin")

	results := RunAll(&cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected root and model failures, got %+v", failed)
	}
	if RunAll(nil) != nil {
		t.Fatal("expected nil for nil config")
	}
}
