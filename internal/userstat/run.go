package userstat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charlievieth/fastwalk"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

var errNotDirectory = errors.New("not a directory")

// Aggregator holds the per-user usage table of one directory tree.
// It is built by Run and read-only afterwards.
type Aggregator struct {
	base  string
	table Table
	errs  []error
	stats Stats
}

// Base returns the cleaned base path the table is rooted at.
func (a *Aggregator) Base() string { return a.base }

// Table returns the usage table. Callers must not modify it.
func (a *Aggregator) Table() Table { return a.table }

// Total returns the bytes owned by user in the subtree of path.
func (a *Aggregator) Total(user, path string) int64 { return a.table.Total(user, path) }

// Users returns every user owning files in the tree, sorted.
func (a *Aggregator) Users() []string { return a.table.Users() }

// Paths returns every directory with a recorded total for user, sorted.
func (a *Aggregator) Paths(user string) []string { return a.table.Paths(user) }

// Errors returns the recovered errors in the order they occurred.
func (a *Aggregator) Errors() []error { return a.errs }

// Stats returns the walk summary.
func (a *Aggregator) Stats() Stats { return a.stats }

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath, err := filepath.Rel(root, path)
	if err != nil || relPath == "." {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// shouldExcludeByPattern checks if path matches any exclusion regex.
func shouldExcludeByPattern(path string, patterns []*regexp.Regexp) *regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}

	fPath := filepath.ToSlash(path)

	for _, re := range patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}

// startProgressReporter invokes hook(files, bytes) on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(int64, int64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.progress())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Run walks the tree rooted at opt.Path and returns its per-user usage.
//
// Every regular file is attributed to its owner in the directory containing
// it; symlinks to files are skipped, symlinks to directories are traversed.
// Once the walk completes, each directory's totals are rolled up from its
// children. Entries that cannot be read are logged and skipped, including the
// base path itself, in which case the returned Aggregator is empty.
//
// Run returns an error only for invalid options or when ctx is cancelled.
//
//nolint:gocognit,funlen,cyclop // Walk callback branches per entry type.
func Run(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Aggregator, error) {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if opt.Path == "" {
		opt.Path = "."
	}

	base := filepath.Clean(opt.Path)

	owner := opt.Owner
	if owner == nil {
		owner = newOwnerResolver().resolve
	}

	excludeRegexes := make([]*regexp.Regexp, 0, len(opt.Excludes))

	for _, p := range opt.Excludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		excludeRegexes = append(excludeRegexes, re)
	}

	for _, re := range excludeRegexes {
		log.Debug("exclude regex", "pattern", re.String())
	}

	start := time.Now()
	collector := newCollector(base, log)

	rootInfo, err := os.Stat(base)

	switch {
	case err != nil:
		collector.addError(&TraversalError{Path: base, Err: err})
	case !rootInfo.IsDir():
		collector.addError(&TraversalError{Path: base, Err: errNotDirectory})
	}

	if err != nil || !rootInfo.IsDir() {
		agg := collector.finalize()
		agg.stats.Elapsed = time.Since(start)

		return agg, nil
	}

	collector.addDir(base)

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, collector, progressHook, opt.ProgressInterval)

	// One worker keeps the walk sequential. Follow traverses symlinked
	// directories; fastwalk skips links resolving to an ancestor.
	conf := &fastwalk.Config{
		Follow:     true,
		NumWorkers: 1,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, base, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		path = filepath.Clean(path)

		if err != nil {
			if d == nil || d.IsDir() || d.Type()&fs.ModeSymlink != 0 || path == base {
				collector.addError(&TraversalError{Path: path, Err: err})
			} else {
				collector.addError(&StatError{Path: path, Err: err})
			}

			return nil
		}

		if path != base {
			if matchedPattern := shouldExcludeByPattern(path, excludeRegexes); matchedPattern != nil {
				if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
					log.Debug("excluding directory", "path", path, "pattern", matchedPattern.String())

					return filepath.SkipDir
				}

				log.Debug("excluding file", "path", path, "pattern", matchedPattern.String())

				return nil
			}
		}

		if d.IsDir() {
			collector.addDir(path)

			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := fastwalk.StatDirEntry(path, d)

			switch {
			case err != nil:
				log.Debug("skipping broken symlink", "path", path, "error", err)
			case target.IsDir():
				collector.addDir(path)
			default:
				log.Debug("skipping symlinked file", "path", path)
			}

			return nil
		}

		if !d.Type().IsRegular() {
			log.Debug("skipping non-regular file", "path", path, "type", d.Type().String())

			return nil
		}

		info, err := d.Info()
		if err != nil {
			collector.addError(&StatError{Path: path, Err: err})

			return nil
		}

		name, err := owner(path, info)
		if err != nil {
			var ownerErr *OwnerResolutionError
			if !errors.As(err, &ownerErr) {
				err = &OwnerResolutionError{Path: path, Err: err}
			}

			collector.addError(err)

			return nil
		}

		collector.addFile(name, filepath.Dir(path), info.Size())

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	collector.rollup()

	agg := collector.finalize()
	agg.stats.Elapsed = time.Since(start)

	log.Debug("walk complete",
		"base", base,
		"files", agg.stats.Files,
		"dirs", agg.stats.Dirs,
		"errors", agg.stats.Errors,
		"elapsed", agg.stats.Elapsed)

	return agg, nil
}
