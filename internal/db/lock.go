package db

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFileName   = "checkin.lock"
	defaultTimeout = 2 * time.Second
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// writeLocker serializes store transactions across processes and goroutines
// using OS file locks. Each locker opens its own descriptor, so two lockers
// in the same process exclude each other too. The OS drops the lock when
// the process exits.
type writeLocker struct {
	lockPath string
	lockFile *os.File
}

func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{lockPath: filepath.Join(baseDir, lockFileName)}
}

// holder is what a locker writes into the lock file while it holds it
type holder struct {
	pid     int
	since   string
	command string
}

func (h holder) String() string {
	if h.pid == 0 {
		return "unknown"
	}
	s := fmt.Sprintf("pid %d (%s) since %s", h.pid, h.command, h.since)
	if !isProcessAlive(h.pid) {
		s += ", process is gone"
	}
	return s
}

// acquire takes the exclusive lock, retrying with backoff until timeout.
// The timeout error names the current holder.
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.lockFile = f

	deadline := time.Now().Add(timeout)
	for backoff := initialBackoff; ; backoff = min(backoff*2, maxBackoff) {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}
		if time.Now().After(deadline) {
			h := l.readHolder()
			l.lockFile.Close()
			l.lockFile = nil
			return fmt.Errorf("database is busy: write lock not acquired after %v, held by %s", timeout, h)
		}
		time.Sleep(backoff)
	}
}

// release clears the holder record and drops the lock
func (l *writeLocker) release() error {
	if l.lockFile == nil {
		return nil
	}
	l.lockFile.Truncate(0)
	l.unlock()
	err := l.lockFile.Close()
	l.lockFile = nil
	return err
}

func (l *writeLocker) writeHolder() {
	l.lockFile.Truncate(0)
	l.lockFile.Seek(0, 0)
	command := filepath.Base(os.Args[0])
	if len(os.Args) > 1 {
		command += " " + os.Args[1]
	}
	fmt.Fprintf(l.lockFile, "pid=%d\nsince=%s\ncommand=%s\n", os.Getpid(), time.Now().Format(time.RFC3339), command)
}

func (l *writeLocker) readHolder() holder {
	var h holder
	f, err := os.Open(l.lockPath)
	if err != nil {
		return h
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.pid, _ = strconv.Atoi(value)
		case "since":
			h.since = value
		case "command":
			h.command = value
		}
	}
	return h
}
