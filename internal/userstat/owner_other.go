//go:build !unix

package userstat

import "io/fs"

// fileUID always fails: the platform does not expose numeric file owners.
func fileUID(fs.FileInfo) (uint32, bool) {
	return 0, false
}
