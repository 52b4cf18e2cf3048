package deps

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subgen/internal/config"
	"subgen/internal/services"
	"subgen/internal/testsupport"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestLookup(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := Lookup(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Summary() != results[1].Detail || results[0].Summary() != present {
		t.Fatalf("unexpected summaries %q / %q", results[0].Summary(), results[1].Summary())
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestRequirementsFollowEngine(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if reqs[len(reqs)-1].Command != "uvx" {
		t.Fatalf("expected uvx for whisperx, got %+v", reqs)
	}

	cfg.Transcription.Engine = config.EngineWhisperCPP
	cfg.Transcription.WhisperCPPBinary = "/opt/whisper/main"
	reqs = Requirements(&cfg)
	if reqs[len(reqs)-1].Command != "/opt/whisper/main" {
		t.Fatalf("expected whisper.cpp binary, got %+v", reqs)
	}

	cfg.FFmpeg.ProbeBeforeExtract = false
	for _, req := range Requirements(&cfg) {
		if req.Name == "FFprobe" && !req.Optional {
			t.Fatal("ffprobe should be optional when the probe is disabled")
		}
	}
}

func TestEnsure(t *testing.T) {
	ok := []Status{
		{Requirement: Requirement{Name: "FFmpeg"}, Available: true},
		{Requirement: Requirement{Name: "FFprobe", Optional: true}, Detail: "missing"},
	}
	if err := Ensure(ok); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	bad := append(ok, Status{Requirement: Requirement{Name: "uvx"}, Detail: `binary "uvx" not found`})
	err := Ensure(bad)
	if !errors.Is(err, services.ErrMissingDependency) {
		t.Fatalf("expected missing dependency, got %v", err)
	}
	if !strings.Contains(err.Error(), "uvx") || strings.Contains(err.Error(), "FFprobe") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCheckWithStubs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWhisperCPP(), testsupport.WithStubbedBinaries())

	statuses, err := Check(cfg)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		if !status.Available || status.Path == "" {
			t.Fatalf("expected stubbed binary to resolve, got %+v", status)
		}
	}
}
