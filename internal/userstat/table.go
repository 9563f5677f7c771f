package userstat

import (
	"maps"
	"slices"
)

// Table maps a user name to the cumulative byte totals of every directory
// in which that user owns files, directly or in a descendant.
type Table map[string]map[string]int64

// Add adds amount bytes to the total of user in path, creating the entry if needed.
// Negative amounts are ignored.
func (t Table) Add(user, path string, amount int64) {
	if amount < 0 {
		return
	}

	paths, ok := t[user]
	if !ok {
		paths = make(map[string]int64)
		t[user] = paths
	}

	paths[path] += amount
}

// Total returns the total of user in path, or 0 if either is unknown.
func (t Table) Total(user, path string) int64 {
	return t[user][path]
}

// Has reports whether an entry for user in path exists.
func (t Table) Has(user, path string) bool {
	_, ok := t[user][path]

	return ok
}

// Users returns the users present in the table, sorted.
func (t Table) Users() []string {
	return slices.Sorted(maps.Keys(t))
}

// Paths returns every path with a recorded total for user, sorted.
func (t Table) Paths(user string) []string {
	return slices.Sorted(maps.Keys(t[user]))
}
