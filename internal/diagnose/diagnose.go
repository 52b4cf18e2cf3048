// Package diagnose explains why a path cannot be used as input: whether it
// exists, whether the current user can read it, what the content looks like
// and whether ffprobe can parse it. Missing files get suggested corrections.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"subgen/internal/config"
	"subgen/internal/language"
	"subgen/internal/media"
	"subgen/internal/media/ffprobe"
)

// Check is one line of a report.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report holds everything learned about a path.
type Report struct {
	Path        string
	User        string
	WorkingDir  string
	Exists      bool
	IsDir       bool
	Readable    bool
	ReadDetail  string
	ContentType string
	Recognized  bool
	ProbeRan    bool
	ProbeOK     bool
	ProbeDetail string
	Probe       ffprobe.Result
	Suggestions []string
}

// OK reports whether the path looks usable as subgen input.
func (r Report) OK() bool {
	return r.Exists && !r.IsDir && r.Readable && (!r.ProbeRan || r.ProbeOK)
}

// Diagnoser runs the checks.
type Diagnoser struct {
	prober ffprobe.Prober
	roots  []string
}

// New returns a diagnoser. A nil prober skips the ffprobe step. roots are
// searched for a same-named file when the path does not exist.
func New(prober ffprobe.Prober, roots []string) *Diagnoser {
	return &Diagnoser{prober: prober, roots: roots}
}

// Diagnose inspects path.
func (d *Diagnoser) Diagnose(ctx context.Context, path string) Report {
	report := Report{Path: normalize(path), User: currentUser()}
	report.WorkingDir, _ = os.Getwd()
	report.Recognized = media.IsVideoFile(report.Path)

	info, err := os.Stat(report.Path)
	if err != nil {
		report.ReadDetail = err.Error()
		report.Suggestions = d.suggest(report.Path)
		return report
	}
	report.Exists = true
	if info.IsDir() {
		report.IsDir = true
		report.ReadDetail = "path is a directory"
		return report
	}

	head, err := readHead(report.Path)
	if err != nil {
		report.ReadDetail = err.Error()
		return report
	}
	report.Readable = true
	report.ReadDetail = "read ok"
	report.ContentType = http.DetectContentType(head)

	if d.prober != nil {
		report.ProbeRan = true
		result, err := d.prober.Inspect(ctx, report.Path)
		if err != nil {
			report.ProbeDetail = err.Error()
			return report
		}
		report.Probe = result
		report.ProbeOK = true
		report.ProbeDetail = fmt.Sprintf("%s, %d video / %d audio streams, %.1fs",
			result.Format.FormatName, result.VideoStreamCount(), result.AudioStreamCount(), result.DurationSeconds())
	}
	return report
}

// normalize applies the resolver's "~" and absolute-path rules so reports
// and corrections describe the file the resolver looked for.
func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if expanded, err := config.ExpandPath(path); err == nil {
		return expanded
	}
	return filepath.Clean(path)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("uid %d", os.Getuid())
}

// readHead checks permissions with access(2) and then reads the first bytes,
// which also catches files that are listed but unreadable (e.g. stale network
// mounts).
func readHead(path string) ([]byte, error) {
	if err := unix.Access(path, unix.R_OK); err != nil {
		return nil, fmt.Errorf("permission denied for current user: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf[:n], nil
}

// suggest lists existing files that the user may have meant: the path with a
// video extension appended, and the same base name in each search root.
func (d *Diagnoser) suggest(path string) []string {
	if path == "" {
		return nil
	}
	var candidates []string
	for _, ext := range media.VideoExtensions {
		candidates = append(candidates, path+ext)
	}
	base := filepath.Base(path)
	for _, root := range d.roots {
		if filepath.Clean(root) == filepath.Dir(path) {
			continue
		}
		candidates = append(candidates, filepath.Join(root, base))
		for _, ext := range media.VideoExtensions {
			candidates = append(candidates, filepath.Join(root, base+ext))
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	var found []string
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			found = append(found, candidate)
		}
	}
	return found
}

// Checks flattens the report for tabular display.
func (r Report) Checks() []Check {
	checks := []Check{
		{Name: "Exists", Passed: r.Exists, Detail: existsDetail(r)},
	}
	if !r.Exists || r.IsDir {
		return checks
	}
	checks = append(checks,
		Check{Name: "Readable", Passed: r.Readable, Detail: r.ReadDetail},
		Check{Name: "Video extension", Passed: r.Recognized, Detail: strings.ToLower(filepath.Ext(r.Path))},
	)
	if r.Readable {
		checks = append(checks, Check{Name: "Content type", Passed: true, Detail: r.ContentType})
	}
	if r.ProbeRan {
		checks = append(checks, Check{Name: "FFprobe", Passed: r.ProbeOK, Detail: r.ProbeDetail})
		if r.ProbeOK {
			audio := r.Probe.AudioStreamCount()
			detail := fmt.Sprintf("%d found", audio)
			if stream, ok := r.Probe.FirstAudioStream(); ok && stream.Language() != "" {
				detail += ", first is " + language.DisplayName(stream.Language())
			}
			checks = append(checks, Check{Name: "Audio stream", Passed: audio > 0, Detail: detail})
		}
	}
	return checks
}

func existsDetail(r Report) string {
	switch {
	case !r.Exists:
		return r.ReadDetail
	case r.IsDir:
		return "is a directory; subgen will list the videos inside it"
	default:
		return "regular file"
	}
}
