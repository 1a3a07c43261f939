package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of a single rate-limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter tracks request counts per agent key over a fixed window. Check
// counts the call it answers: a rejected request still consumed its slot.
type Limiter interface {
	Check(ctx context.Context, agentKey string) (Result, error)
}

// Config holds the shared window parameters.
type Config struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed-window counter scoped to the running instance.
// Check-and-increment happens under one lock, so concurrent bursts for the
// same key cannot overshoot the limit within a single process.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	size    time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   cfg.Limit,
		size:    cfg.Window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, agentKey string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[agentKey]
	if !ok || now.Sub(w.start) >= l.size {
		w = &window{start: now}
		l.windows[agentKey] = w
	}
	w.count++

	remaining := l.limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   w.count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   w.start.Add(l.size),
	}, nil
}
