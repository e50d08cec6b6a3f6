package store

import (
	"fmt"
	"os"

	"github.com/clawvcs/claw/clawerr"
	"github.com/google/uuid"
)

// LockFile is an exclusive, caller-held lock on a single path within
// the repository, used to serialize ref updates. It is created with
// O_CREATE|O_EXCL so a second, concurrent holder fails instead of
// silently sharing the lock, and its contents record a random token
// purely for diagnostics (which process/run holds it).
type LockFile struct {
	path string
	f    *os.File
}

// AcquireLock takes an exclusive lock at path+".lock".
func AcquireLock(path string) (*LockFile, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, clawerr.ErrLockContention
		}
		return nil, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	token := uuid.New().String()
	if _, err := f.WriteString(token); err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	return &LockFile{path: lockPath, f: f}, nil
}

// Release closes and removes the lock file.
func (l *LockFile) Release() error {
	if err := l.f.Close(); err != nil {
		return err
	}
	return os.Remove(l.path)
}
