// Package lock provides keyed exclusive leases for coordinating writers
// across processes. Leases carry a TTL so a crashed holder cannot block
// a key forever, and an ownership token so one holder can never release
// another holder's lease.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL bounds how long a lease survives without an explicit release.
const DefaultTTL = 30 * time.Second

// ErrConflict indicates the key is already leased by another holder.
var ErrConflict = errors.New("lease held by another owner")

// Lease is a held exclusive claim on a key.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

// Manager acquires and releases leases.
//
// Acquire returns ErrConflict when the key is held. Renew extends a lease the
// token still owns and returns ErrConflict once it expired or was taken over.
// Release is idempotent and token-checked: releasing a lease that expired or
// was taken over is a no-op. Held reports whether any holder currently owns the key.
type Manager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
	Renew(ctx context.Context, lease *Lease, ttl time.Duration) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
	Held(ctx context.Context, key string) (bool, error)
}

// Policy controls how long Wait keeps retrying a conflicting key.
// A zero Wait fails fast on the first conflict.
type Policy struct {
	TTL           time.Duration
	Wait          time.Duration
	RetryInterval time.Duration
}

// Wait acquires key, retrying on ErrConflict until the policy's wait budget
// or the context is exhausted. The final conflict is returned wrapped so
// callers can test it with errors.Is(err, ErrConflict).
func Wait(ctx context.Context, m Manager, key string, p Policy) (*Lease, error) {
	interval := p.RetryInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	deadline := time.Now().Add(p.Wait)

	for {
		lease, err := m.Acquire(ctx, key, p.TTL)
		if err == nil {
			return lease, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
