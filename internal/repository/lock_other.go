//go:build !unix

package repository

// lockFile is a no-op where flock is unavailable; only the in-process
// mutex serializes access there.
func lockFile(uintptr, bool) (func(), error) {
	return func() {}, nil
}
