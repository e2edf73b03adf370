//go:build unix

package db

import (
	"errors"

	"golang.org/x/sys/unix"
)

func (l *writeLocker) tryLock() error {
	return unix.Flock(int(l.lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func (l *writeLocker) unlock() {
	if l.lockFile != nil {
		unix.Flock(int(l.lockFile.Fd()), unix.LOCK_UN)
	}
}

// isProcessAlive sends signal 0 to pid. EPERM means the process exists
// but belongs to another user.
func isProcessAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
