package workflows

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

// acquire waits for sem up to timeout. Running out of the lock budget is
// ErrBusy; running out of the caller's budget is ErrTimeout.
func acquire(ctx context.Context, sem *semaphore.Weighted, timeout time.Duration) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sem.Acquire(lockCtx, 1); err != nil {
		if ctx.Err() != nil {
			return kerrors.FromContext(ctx.Err())
		}
		return kerrors.ErrBusy
	}
	return nil
}

// keyedLocks serializes work per account name. Entries are dropped once no
// caller holds or waits for them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

func (k *keyedLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	key = strings.ToLower(key)

	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{sem: semaphore.NewWeighted(1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	if err := acquire(ctx, l.sem, timeout); err != nil {
		k.unref(key, l)
		return nil, err
	}

	return func() {
		l.sem.Release(1)
		k.unref(key, l)
	}, nil
}

func (k *keyedLocks) unref(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedLocks) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
