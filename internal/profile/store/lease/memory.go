package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"beneficiary/internal/sentinel"
)

type entry struct {
	token   string
	expires time.Time
}

// MemoryLease is a single-process lease for deployments without Redis.
type MemoryLease struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewMemory returns an in-memory lease. A non-positive ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *MemoryLease {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLease{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (l *MemoryLease) Acquire(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expires) {
		return "", sentinel.ErrLeaseHeld
	}
	token := uuid.NewString()
	l.entries[key] = entry{token: token, expires: now.Add(l.ttl)}
	return token, nil
}

func (l *MemoryLease) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok && e.token == token {
		delete(l.entries, key)
	}
	return nil
}
