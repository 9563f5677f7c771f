package userstat

import (
	"errors"
	"io/fs"
	"os/user"
	"strconv"

	"github.com/patrickmn/go-cache"
)

// OwnerFunc resolves the user name owning the file at path.
type OwnerFunc func(path string, info fs.FileInfo) (string, error)

var errNoOwnerInfo = errors.New("file metadata carries no numeric owner")

type lookupResult struct {
	name string
	err  error
}

// ownerResolver maps numeric owner ids to user names, remembering every
// answer (including failures) for the lifetime of one run.
type ownerResolver struct {
	names  *cache.Cache
	lookup func(uid string) (*user.User, error)
}

func newOwnerResolver() *ownerResolver {
	return &ownerResolver{
		names:  cache.New(cache.NoExpiration, 0),
		lookup: user.LookupId,
	}
}

// resolve implements OwnerFunc.
func (r *ownerResolver) resolve(path string, info fs.FileInfo) (string, error) {
	uid, ok := fileUID(info)
	if !ok {
		return "", &OwnerResolutionError{Path: path, Err: errNoOwnerInfo}
	}

	key := strconv.FormatUint(uint64(uid), 10)

	cached, found := r.names.Get(key)
	if !found {
		result := lookupResult{}

		u, err := r.lookup(key)
		if err != nil {
			result.err = err
		} else {
			result.name = u.Username
		}

		r.names.Set(key, result, cache.NoExpiration)
		cached = result
	}

	result := cached.(lookupResult) //nolint:forcetypeassert // Only lookupResult is stored

	if result.err != nil {
		return "", &OwnerResolutionError{Path: path, UID: key, Err: result.err}
	}

	return result.name, nil
}
