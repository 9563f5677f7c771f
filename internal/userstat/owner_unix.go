//go:build unix

package userstat

import (
	"io/fs"
	"syscall"
)

// fileUID returns the numeric owner recorded in the file's stat data.
func fileUID(info fs.FileInfo) (uint32, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}

	return st.Uid, true
}
