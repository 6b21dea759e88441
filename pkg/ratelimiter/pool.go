package ratelimiter

import (
	"context"
	"sync"
)

// Pool hands out one shared limiter per RPC endpoint so that regular and
// backfill workers hitting the same provider share a budget.
type Pool struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
	rps      int
	burst    int
}

func NewPool(rps, burst int) *Pool {
	return &Pool{
		limiters: make(map[string]*RateLimiter),
		rps:      rps,
		burst:    burst,
	}
}

func (p *Pool) get(endpoint string) *RateLimiter {
	p.mu.RLock()
	rl, ok := p.limiters[endpoint]
	p.mu.RUnlock()
	if ok {
		return rl
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if rl, ok = p.limiters[endpoint]; ok {
		return rl
	}
	rl = New(p.rps, p.burst)
	p.limiters[endpoint] = rl
	return rl
}

// Wait blocks until the limiter for the endpoint yields a token.
func (p *Pool) Wait(ctx context.Context, endpoint string) error {
	return p.get(endpoint).Wait(ctx)
}

// Stats reports per-endpoint limiter state.
func (p *Pool) Stats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make(map[string]any, len(p.limiters))
	for endpoint, rl := range p.limiters {
		available, rps, burst := rl.Stats()
		stats[endpoint] = map[string]any{
			"available_tokens": available,
			"rps":              rps,
			"burst":            burst,
		}
	}
	return stats
}
