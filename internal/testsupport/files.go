package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// mp4Header is the smallest ftyp box http.DetectContentType recognizes as
// video/mp4.
var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

// WriteFile creates path, and any missing parents, holding size filler bytes.
// A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	writeBytes(t, path, bytes.Repeat([]byte{'B'}, int(max(size, 1))), 0o644)
}

// WriteVideo creates an MP4-looking file of at least size bytes: a valid ftyp
// box followed by padding. Nothing decodes it; it only needs to pass content
// sniffing and extension checks.
func WriteVideo(t testing.TB, path string, size int64) {
	t.Helper()
	data := append([]byte(nil), mp4Header...)
	if pad := int(size) - len(data); pad > 0 {
		data = append(data, make([]byte, pad)...)
	}
	writeBytes(t, path, data, 0o644)
}

// WriteScript writes an executable /bin/sh script with the given body and
// returns its path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	writeBytes(t, path, []byte("#!/bin/sh\n"+body), 0o755)
	return path
}

func writeBytes(t testing.TB, path string, data []byte, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
