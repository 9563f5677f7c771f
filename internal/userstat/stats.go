package userstat

import (
	"cmp"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Stats summarizes a finished walk.
type Stats struct {
	// Files is the number of regular files attributed to an owner.
	Files int64 `json:"files"`
	// Bytes is the cumulative size of the counted files.
	Bytes int64 `json:"bytes"`
	// Dirs is the number of directories visited, including the base path.
	Dirs int64 `json:"dirs"`
	// Errors is the number of entries skipped because of an error.
	Errors int64 `json:"errors"`
	// Elapsed is the total time taken by the walk and the rollup.
	Elapsed time.Duration `json:"elapsed"`
}

// Options configures a usage walk.
type Options struct {
	// Path is the base directory to scan.
	Path string
	// Excludes contains regex patterns of paths to skip.
	Excludes []string
	// Owner resolves file owners. Nil uses the system user database.
	Owner OwnerFunc
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// dirNode records the immediate subdirectories of a visited directory.
type dirNode struct {
	visited  bool
	children []string
}

// collector gathers the direct ownership of every directory during the walk.
// The mutex guards against the progress reporter reading counters while
// fastwalk runs the callback on its worker goroutine.
type collector struct {
	mu    sync.Mutex
	base  string
	log   *slog.Logger
	table Table
	dirs  map[string]*dirNode
	errs  []error

	fileCount int64
	byteCount int64
}

func newCollector(base string, log *slog.Logger) *collector {
	return &collector{
		base:  base,
		log:   log,
		table: make(Table),
		dirs:  make(map[string]*dirNode),
	}
}

// node returns the node for path, creating an unvisited one if needed.
func (c *collector) node(path string) *dirNode {
	n, ok := c.dirs[path]
	if !ok {
		n = &dirNode{}
		c.dirs[path] = n
	}

	return n
}

// addDir registers a directory and links it to its parent.
// A directory reported twice is only linked once.
func (c *collector) addDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.node(path)
	if n.visited {
		return
	}

	n.visited = true

	if path == c.base {
		return
	}

	parent := c.node(filepath.Dir(path))
	parent.children = append(parent.children, path)
}

// addFile attributes size bytes to owner in dir.
func (c *collector) addFile(owner, dir string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileCount++
	c.byteCount += size
	c.table.Add(owner, dir, size)
}

// addError records and logs a recovered error.
func (c *collector) addError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errs = append(c.errs, err)
	c.log.Warn("skipping entry", "error", err)
}

// progress returns the files and bytes counted so far.
func (c *collector) progress() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fileCount, c.byteCount
}

// rollup folds every directory's child totals into it, deepest directories
// first, so that a child is final before its parent reads it.
//
// The fold iterates the global set of users, not only those owning files in
// the directory, because a user may own files only in a descendant.
// A child contributes only where it has an entry for the user.
func (c *collector) rollup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	type pending struct {
		path  string
		depth int
	}

	order := make([]pending, 0, len(c.dirs))

	for path, n := range c.dirs {
		if !n.visited {
			continue
		}

		order = append(order, pending{path: path, depth: calculateDepth(path, c.base)})
	}

	slices.SortFunc(order, func(a, b pending) int {
		if a.depth != b.depth {
			return cmp.Compare(b.depth, a.depth)
		}

		return strings.Compare(a.path, b.path)
	})

	// No user appears during the fold, so the global set is fixed here.
	users := c.table.Users()

	for _, dir := range order {
		children := c.dirs[dir.path].children
		slices.Sort(children)

		for _, user := range users {
			for _, child := range children {
				if !c.table.Has(user, child) {
					continue
				}

				c.table.Add(user, dir.path, c.table.Total(user, child))
			}
		}
	}
}

// finalize produces the aggregator from the collected data.
func (c *collector) finalize() *Aggregator {
	c.mu.Lock()
	defer c.mu.Unlock()

	var visited int64

	for _, n := range c.dirs {
		if n.visited {
			visited++
		}
	}

	return &Aggregator{
		base:  c.base,
		table: c.table,
		errs:  c.errs,
		stats: Stats{
			Files:  c.fileCount,
			Bytes:  c.byteCount,
			Dirs:   visited,
			Errors: int64(len(c.errs)),
		},
	}
}
