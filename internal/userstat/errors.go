package userstat

import "fmt"

// TraversalError reports a directory that could not be listed.
// The directory contributes nothing beyond what was read before the failure.
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("listing directory %q: %v", e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// OwnerResolutionError reports a file whose numeric owner could not be mapped to a user name.
type OwnerResolutionError struct {
	Path string
	UID  string
	Err  error
}

func (e *OwnerResolutionError) Error() string {
	if e.UID == "" {
		return fmt.Sprintf("resolving owner of %q: %v", e.Path, e.Err)
	}

	return fmt.Sprintf("resolving owner %s of %q: %v", e.UID, e.Path, e.Err)
}

func (e *OwnerResolutionError) Unwrap() error { return e.Err }

// StatError reports an entry whose metadata could not be read.
type StatError struct {
	Path string
	Err  error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("reading metadata of %q: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error { return e.Err }
