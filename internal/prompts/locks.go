package prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/promptvault/internal/metrics"
	"github.com/JaimeStill/promptvault/pkg/lock"
)

// errLeaseLost is the cancellation cause of work bound to a lease that could
// not be renewed in time.
var errLeaseLost = errors.New("lease lost before work completed")

// LockCoordinator serializes mutations of one prompt name across processes.
type LockCoordinator struct {
	locks  lock.Manager
	policy lock.Policy
	logger *slog.Logger
}

// NewLockCoordinator wraps a lease manager with the acquisition policy.
func NewLockCoordinator(locks lock.Manager, policy lock.Policy, logger *slog.Logger) *LockCoordinator {
	return &LockCoordinator{
		locks:  locks,
		policy: policy,
		logger: logger,
	}
}

// LockKey is the lease key guarding mutations of name within a project.
func LockKey(projectID, name string) string {
	return nameKey(projectID, name)
}

// Acquire obtains the lease for (projectID, name) under the configured policy.
// Every failure, including context cancellation, is reported as ErrLockUnavailable.
func (c *LockCoordinator) Acquire(ctx context.Context, projectID, name string) (*lock.Lease, error) {
	start := time.Now()
	lease, err := lock.Wait(ctx, c.locks, LockKey(projectID, name), c.policy)
	metrics.ObserveLockWait(time.Since(start))

	if err != nil {
		c.logger.Warn("prompt lock unavailable",
			"project_id", projectID,
			"name", name,
			"waited", time.Since(start),
			"error", err,
		)
		return nil, lockUnavailable(name, err)
	}

	return lease, nil
}

// Hold renews lease in the background until stop is called. The returned
// context is cancelled with a cause wrapping errLeaseLost when a renewal fails
// or cannot complete before the renewal deadline, which falls a fifth of the
// TTL ahead of expiry. Work bound to it therefore ends before another holder
// can acquire the key.
func (c *LockCoordinator) Hold(ctx context.Context, lease *lock.Lease) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.keepAlive(ctx, cancel, lease)
	}()

	return ctx, func() {
		cancel(nil)
		<-done
	}
}

func (c *LockCoordinator) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, lease *lock.Lease) {
	ttl := c.policy.TTL
	if ttl <= 0 {
		ttl = lock.DefaultTTL
	}
	interval := ttl / 3
	margin := ttl / 5

	for {
		deadline := lease.ExpiresAt.Add(-margin)

		timer := time.NewTimer(min(interval, time.Until(deadline)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		renewCtx, cancelRenew := context.WithDeadline(ctx, deadline)
		next, err := c.locks.Renew(renewCtx, lease, ttl)
		cancelRenew()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("prompt lock renewal failed", "key", lease.Key, "error", err)
			cancel(fmt.Errorf("%w: %w", errLeaseLost, err))
			return
		}
		lease = next
	}
}

// leaseLost returns the cancellation cause of a context from Hold when its
// lease lapsed, and nil otherwise.
func leaseLost(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, errLeaseLost) {
		return cause
	}
	return nil
}

// Release frees the lease. It runs detached from any request context so a
// cancelled caller still releases, and failures are logged since the TTL
// reclaims the key regardless.
func (c *LockCoordinator) Release(lease *lock.Lease) {
	if err := c.locks.Release(context.Background(), lease); err != nil {
		c.logger.Error("prompt lock release failed", "key", lease.Key, "error", err)
	}
}

// Held reports whether a mutation of (projectID, name) is in progress.
func (c *LockCoordinator) Held(ctx context.Context, projectID, name string) (bool, error) {
	return c.locks.Held(ctx, LockKey(projectID, name))
}
