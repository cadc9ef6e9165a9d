//go:build unix

package repository

import "syscall"

// lockFile takes an advisory flock on fd, exclusive for writers and shared
// for readers. The returned func releases it.
func lockFile(fd uintptr, exclusive bool) (func(), error) {
	how := syscall.LOCK_SH
	if exclusive {
		how = syscall.LOCK_EX
	}
	for {
		err := syscall.Flock(int(fd), how)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	return func() { _ = syscall.Flock(int(fd), syscall.LOCK_UN) }, nil
}
