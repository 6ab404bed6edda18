package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/amishk599/upfeed/internal/config"
)

// ErrStoreInUse is returned when another process owns the store.
var ErrStoreInUse = errors.New("store is in use by another upfeed process")

// Owner is an exclusive lock held for as long as a process works with the
// seen set. The daemon keeps its own copy of the set in memory and writes it
// back every cycle, so nothing else may write the store while it runs.
type Owner struct {
	lock *flock.Flock
}

// AcquireOwner takes the owner lock at path without waiting.
func AcquireOwner(path string) (*Owner, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrStoreInUse)
	}
	return &Owner{lock: lock}, nil
}

// Release drops the lock.
func (o *Owner) Release() error {
	return o.lock.Unlock()
}

// OwnerLockPath is the lock file guarding the store described by cfg. File
// backends lock next to their data; redis locks in the temp dir, which only
// covers processes on the same host.
func OwnerLockPath(cfg config.StoreConfig) string {
	if cfg.Type == "redis" {
		name := fmt.Sprintf("upfeed-redis-%s-%d-%s.owner.lock", cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
		name = strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(name)
		return filepath.Join(os.TempDir(), name)
	}
	return cfg.Path + ".owner.lock"
}
