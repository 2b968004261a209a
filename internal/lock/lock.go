package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
)

// Locker keeps a second gitwatcher from watching the same directory.
// The lock is an flock(2) on a file named after a hash of the watched path,
// so a crashed process never leaves a lock behind.
type Locker struct {
	lockFile string
	pid      int

	mu     sync.Mutex
	lockFd *os.File
}

// New creates a Locker for watchDir with its lock file in the system temp dir.
func New(watchDir string) (*Locker, error) {
	return NewInDir(watchDir, os.TempDir())
}

// NewInDir is New with an explicit directory for the lock file.
func NewInDir(watchDir, lockDir string) (*Locker, error) {
	if runtime.GOOS == "windows" {
		return nil, watchErrors.NewLockError("", 0,
			watchErrors.Wrap(watchErrors.ErrLockAcquisitionFailure,
				"gitwatcher only supports Unix-like operating systems"))
	}

	hash := sha256.Sum256([]byte(watchDir))
	return &Locker{
		lockFile: filepath.Join(lockDir, fmt.Sprintf("gitwatcher-%x.lock", hash[:8])),
		pid:      os.Getpid(),
	}, nil
}

// Path returns the lock file path.
func (l *Locker) Path() string {
	return l.lockFile
}

// Acquire takes the lock without blocking. It fails with ErrAlreadyRunning
// when a live process holds it.
func (l *Locker) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lockFd != nil {
		return nil
	}

	fd, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return watchErrors.NewLockError(l.lockFile, 0,
			watchErrors.Wrap(watchErrors.ErrLockAcquisitionFailure, err.Error()))
	}

	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = fd.Close()
		// EWOULDBLOCK and EAGAIN are the same value on Linux but not everywhere.
		if watchErrors.Is(err, unix.EWOULDBLOCK) || watchErrors.Is(err, unix.EAGAIN) {
			return watchErrors.NewLockError(l.lockFile, l.holderPID(), watchErrors.ErrAlreadyRunning)
		}
		return watchErrors.NewLockError(l.lockFile, 0,
			watchErrors.Wrap(watchErrors.ErrLockAcquisitionFailure, err.Error()))
	}

	l.lockFd = fd
	if err := l.writePid(); err != nil {
		_ = l.release()
		return err
	}
	return nil
}

// writePid replaces the file content with our PID.
func (l *Locker) writePid() error {
	if err := l.lockFd.Truncate(0); err != nil {
		return watchErrors.NewLockError(l.lockFile, l.pid,
			watchErrors.Wrap(err, "failed to truncate lock file"))
	}
	if _, err := l.lockFd.WriteAt([]byte(strconv.Itoa(l.pid)), 0); err != nil {
		return watchErrors.NewLockError(l.lockFile, l.pid,
			watchErrors.Wrap(err, "failed to write PID to lock file"))
	}
	return nil
}

// holderPID reads the PID recorded by the current holder, or 0.
func (l *Locker) holderPID() int {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// Release drops the lock and removes the file. Safe to call when not held,
// and from several goroutines at once.
func (l *Locker) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.release()
}

func (l *Locker) release() error {
	if l.lockFd == nil {
		return nil
	}

	// Remove while still locked so nobody can lock a file we then delete.
	var err error
	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) {
		err = watchErrors.NewLockError(l.lockFile, l.pid,
			watchErrors.Wrap(removeErr, "failed to remove lock file"))
	}

	if flockErr := unix.Flock(int(l.lockFd.Fd()), unix.LOCK_UN); flockErr != nil && err == nil {
		err = watchErrors.NewLockError(l.lockFile, l.pid,
			watchErrors.Wrap(flockErr, "failed to release lock"))
	}

	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = watchErrors.NewLockError(l.lockFile, l.pid,
			watchErrors.Wrap(closeErr, "failed to close lock file"))
	}
	l.lockFd = nil

	return err
}
