package platform

import (
	"errors"
	"strings"
)

// ErrInstanceAlreadyRunning is returned when another process holds the lock.
var ErrInstanceAlreadyRunning = errors.New("instance already running")

// ErrInstanceLockUnsupported is returned on platforms without a lock backend.
var ErrInstanceLockUnsupported = errors.New("instance lock unsupported")

const defaultLockName = "soarlink"

// InstanceLock is a held single-instance lock.
type InstanceLock interface {
	Release() error
}

// AcquireInstanceLock takes the per-user lock for name. A second caller gets
// an error matching ErrInstanceAlreadyRunning until the first releases it or
// exits.
func AcquireInstanceLock(name string) (InstanceLock, error) {
	return acquireInstanceLock(lockName(name))
}

// lockName reduces raw to a lowercase token safe for file and mutex names.
func lockName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(raw))
	lastDash := false
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	name := strings.Trim(b.String(), "-._")
	if name == "" {
		return defaultLockName
	}

	return name
}
