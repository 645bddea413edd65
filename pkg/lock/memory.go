package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type memoryRecord struct {
	token     string
	expiresAt time.Time
}

// Memory is an in-process Manager for single-instance deployments and tests.
type Memory struct {
	mu     sync.Mutex
	leases map[string]memoryRecord
	seq    atomic.Uint64
}

// NewMemory creates an empty in-process lease manager.
func NewMemory() *Memory {
	return &Memory{leases: make(map[string]memoryRecord)}
}

func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("lease key cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.leases[key]; ok && now.Before(rec.expiresAt) {
		return nil, ErrConflict
	}

	token := fmt.Sprintf("%s-%d-%d", key, now.UnixNano(), m.seq.Add(1))
	expiresAt := now.Add(ttl)
	m.leases[key] = memoryRecord{token: token, expiresAt: expiresAt}

	return &Lease{Key: key, Token: token, ExpiresAt: expiresAt}, nil
}

func (m *Memory) Renew(ctx context.Context, lease *Lease, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lease == nil || lease.Key == "" || lease.Token == "" {
		return nil, fmt.Errorf("valid lease is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.leases[lease.Key]
	if !ok || rec.token != lease.Token || !now.Before(rec.expiresAt) {
		return nil, ErrConflict
	}

	expiresAt := now.Add(ttl)
	m.leases[lease.Key] = memoryRecord{token: lease.Token, expiresAt: expiresAt}

	return &Lease{Key: lease.Key, Token: lease.Token, ExpiresAt: expiresAt}, nil
}

func (m *Memory) Release(_ context.Context, lease *Lease) error {
	if lease == nil || lease.Key == "" || lease.Token == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.leases[lease.Key]; ok && rec.token == lease.Token {
		delete(m.leases, lease.Key)
	}
	return nil
}

func (m *Memory) Held(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.leases[key]
	return ok && time.Now().UTC().Before(rec.expiresAt), nil
}
