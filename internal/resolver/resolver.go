package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subgen/internal/config"
	"subgen/internal/logging"
	"subgen/internal/media"
	"subgen/internal/services"
	"subgen/internal/textutil"
)

const stageName = "resolving"

// Chooser picks one option from a list and returns its 0-based index.
// *prompt.Console satisfies it.
type Chooser interface {
	Choose(ctx context.Context, title string, options []string) (int, error)
}

// Strategy names the step that produced a resolution.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategyDirectory Strategy = "directory"
	StrategyFuzzy     Strategy = "fuzzy"
)

// Resolver implements the resolution strategies. A nil Chooser makes the
// resolver non-interactive: a lone fuzzy match is accepted and any real
// ambiguity fails with services.ErrSelectionAborted.
type Resolver struct {
	roots    []string
	maxDepth int
	chooser  Chooser
	logger   *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithMaxDepth bounds the fuzzy walk below each root; 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) { r.maxDepth = depth }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logging.NewComponentLogger(logger, "resolver") }
}

// New builds a resolver searching roots in the given order.
func New(roots []string, chooser Chooser, opts ...Option) *Resolver {
	r := &Resolver{
		roots:   append([]string(nil), roots...),
		chooser: chooser,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig builds a resolver over the configured search roots.
func NewFromConfig(cfg *config.Config, chooser Chooser, logger *slog.Logger) *Resolver {
	return New(cfg.SearchRoots(), chooser, WithMaxDepth(cfg.Resolver.MaxDepth), WithLogger(logger))
}

// Resolve returns the video the input refers to.
func (r *Resolver) Resolve(ctx context.Context, input string) (media.VideoReference, error) {
	ref, _, err := r.ResolveWithStrategy(ctx, input)
	return ref, err
}

// ResolveWithStrategy is Resolve plus the strategy that matched.
func (r *Resolver) ResolveWithStrategy(ctx context.Context, input string) (media.VideoReference, Strategy, error) {
	raw := cleanInput(input)
	if raw == "" {
		return media.VideoReference{}, "", services.Wrap(services.ErrNotFound, stageName, "", "empty input", nil)
	}
	logger := logging.WithContext(ctx, r.logger)

	expanded, err := config.ExpandPath(raw)
	if err != nil {
		return media.VideoReference{}, "", services.Wrap(services.ErrNotFound, stageName, "expand path", raw, err)
	}

	if info, statErr := os.Stat(expanded); statErr == nil {
		switch {
		case info.Mode().IsRegular():
			ref, err := media.NewVideoReference(expanded)
			if err != nil {
				return media.VideoReference{}, "", services.Wrap(services.ErrNotFound, stageName, "direct", raw, err)
			}
			logger.Debug("input is a file", logging.VideoFile(ref.Path))
			return ref, StrategyDirect, nil
		case info.IsDir():
			ref, ok, err := r.scanDirectory(ctx, expanded)
			if err != nil {
				return media.VideoReference{}, "", err
			}
			if ok {
				return ref, StrategyDirectory, nil
			}
			logger.Debug("directory has no video files; falling back to fuzzy search", logging.String("directory", expanded))
		}
	}

	ref, ok, err := r.fuzzySearch(ctx, raw)
	if err != nil {
		return media.VideoReference{}, "", err
	}
	if ok {
		return ref, StrategyFuzzy, nil
	}
	return media.VideoReference{}, "", services.Wrap(services.ErrNotFound, stageName, "", fmt.Sprintf("no video file matches %q", raw), nil)
}

// cleanInput trims whitespace and one pair of surrounding quotes, which
// terminals add when a path is dragged in.
func cleanInput(input string) string {
	s := strings.TrimSpace(input)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// DirectoryVideos lists recognized video files directly inside dir in name
// order. Symlinks are followed; anything that is not a regular file is
// skipped. Links to a file already listed are dropped, keeping the first
// name.
func DirectoryVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	seen := newPhysicalSet()
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() || !media.IsVideoFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if seen.add(path, info) {
			matches = append(matches, path)
		}
	}
	return matches, nil
}

func (r *Resolver) scanDirectory(ctx context.Context, dir string) (media.VideoReference, bool, error) {
	matches, err := DirectoryVideos(dir)
	if err != nil {
		return media.VideoReference{}, false, services.Wrap(services.ErrNotFound, stageName, "scan directory", dir, err)
	}
	switch len(matches) {
	case 0:
		return media.VideoReference{}, false, nil
	case 1:
		ref, err := media.NewVideoReference(matches[0])
		return ref, err == nil, err
	}

	labels := make([]string, len(matches))
	for i, match := range matches {
		labels[i] = filepath.Base(match)
	}
	ref, err := r.choose(ctx, "Multiple video files found:", matches, labels)
	return ref, err == nil, err
}

func (r *Resolver) fuzzySearch(ctx context.Context, needle string) (media.VideoReference, bool, error) {
	matches, err := r.FuzzyMatches(ctx, needle)
	if err != nil {
		return media.VideoReference{}, false, err
	}
	if len(matches) == 0 {
		return media.VideoReference{}, false, nil
	}
	if len(matches) == 1 && r.chooser == nil {
		ref, err := media.NewVideoReference(matches[0])
		return ref, err == nil, err
	}
	ref, err := r.choose(ctx, "Partial matches found:", matches, matches)
	return ref, err == nil, err
}

// FuzzyMatches walks every search root and returns recognized video files
// whose name contains needle, ignoring case. The walk honours ctx and skips
// unreadable directories.
func (r *Resolver) FuzzyMatches(ctx context.Context, needle string) ([]string, error) {
	logger := logging.WithContext(ctx, r.logger)
	seen := newPhysicalSet()
	var matches []string

	for _, root := range r.roots {
		if _, err := os.Stat(root); err != nil {
			logger.Debug("search root unavailable", logging.String("root", root), logging.Error(err))
			continue
		}
		baseDepth := depth(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				logger.Debug("skipping unreadable path", logging.String("path", path), logging.Error(walkErr))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if r.maxDepth > 0 && path != root && depth(path)-baseDepth >= r.maxDepth {
					return fs.SkipDir
				}
				return nil
			}
			if !media.IsVideoFile(d.Name()) || !textutil.ContainsFold(d.Name(), needle) {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			if seen.add(path, info) {
				matches = append(matches, path)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, services.Wrap(services.ErrSelectionAborted, stageName, "fuzzy search", "cancelled", err)
			}
			return nil, services.Wrap(services.ErrNotFound, stageName, "fuzzy search", root, err)
		}
	}
	logger.Debug("fuzzy search finished", logging.String("needle", needle), logging.Int("match_count", len(matches)))
	return matches, nil
}

func (r *Resolver) choose(ctx context.Context, title string, paths, labels []string) (media.VideoReference, error) {
	if r.chooser == nil {
		return media.VideoReference{}, services.Wrap(services.ErrSelectionAborted, stageName, "select",
			fmt.Sprintf("%d candidates and no interactive chooser", len(paths)), nil)
	}
	index, err := r.chooser.Choose(ctx, title, labels)
	if err != nil {
		if errors.Is(err, services.ErrSelectionAborted) {
			return media.VideoReference{}, err
		}
		return media.VideoReference{}, services.Wrap(services.ErrSelectionAborted, stageName, "select", "", err)
	}
	if index < 0 || index >= len(paths) {
		return media.VideoReference{}, services.Wrap(services.ErrSelectionAborted, stageName, "select", fmt.Sprintf("chooser returned index %d", index), nil)
	}
	ref, err := media.NewVideoReference(paths[index])
	if err != nil {
		return media.VideoReference{}, services.Wrap(services.ErrNotFound, stageName, "select", paths[index], err)
	}
	return ref, nil
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}

// physicalSet tracks files by resolved path and by identity so hard links and
// symlinks to one file are offered once.
type physicalSet struct {
	paths map[string]struct{}
	infos []os.FileInfo
}

func newPhysicalSet() *physicalSet {
	return &physicalSet{paths: make(map[string]struct{})}
}

func (s *physicalSet) add(path string, info os.FileInfo) bool {
	key := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		key = resolved
	}
	if _, ok := s.paths[key]; ok {
		return false
	}
	for _, other := range s.infos {
		if os.SameFile(other, info) {
			return false
		}
	}
	s.paths[key] = struct{}{}
	s.infos = append(s.infos, info)
	return true
}
