package clientcache

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// Task is a handle to a running periodic cleanup sweeper.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// CreateCleanupTask starts a background sweeper that calls CleanupExpired
// every interval. The task runs independently of any caller's lifetime
// until cancelled.
func (c *Cache[C]) CreateCleanupTask(interval time.Duration) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupExpired(); removed > 0 {
					logs.Infof("cleaned up %d expired cache entries", removed)
				}
			}
		}
	}()

	return t
}

// Cancel stops future sweeps. An in-flight sweep completes normally; each
// of its removals is independently atomic, so the cache stays consistent.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the sweeper goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
