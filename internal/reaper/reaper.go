package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
)

// Scheduler schedules best-effort deletion of a stored artifact after a
// delay. The call never blocks and no caller waits on the outcome.
type Scheduler interface {
	Schedule(key string, delay time.Duration)
}

// Reaper deletes artifacts from the store once their retention window has
// elapsed, whether or not they were ever downloaded. Its timers are
// independent of the token registry's; the two are configured with the
// same window but may fire in either order.
type Reaper struct {
	store storage.Storage
	log   *zap.Logger
	after func(time.Duration, func()) *time.Timer
}

// New creates a reaper deleting from store.
func New(store storage.Storage, log *zap.Logger) *Reaper {
	return &Reaper{store: store, log: log, after: time.AfterFunc}
}

// Schedule arranges for the artifact at key to be deleted after delay.
// Deletion failures are logged as warnings and swallowed; a process exit
// with timers pending simply leaves stray files behind.
func (r *Reaper) Schedule(key string, delay time.Duration) {
	r.after(delay, func() {
		if err := r.store.Delete(context.Background(), key); err != nil {
			r.log.Warn("artifact deletion failed",
				zap.String("key", key),
				zap.Error(err),
			)
			return
		}
		r.log.Info("artifact reaped", zap.String("key", key))
	})
}
