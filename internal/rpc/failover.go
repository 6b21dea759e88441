package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arcscan/bridge-indexer/pkg/common/logger"
	"github.com/arcscan/bridge-indexer/pkg/retry"
)

// Provider health states.
const (
	StateHealthy     = "healthy"
	StateUnhealthy   = "unhealthy"
	StateBlacklisted = "blacklisted"
)

var ErrNoProviders = errors.New("no providers available")

// FailoverConfig defines runtime behavior of the failover system.
type FailoverConfig struct {
	ErrorThreshold    int
	BlacklistCooldown time.Duration
	RetryInterval     time.Duration
	MaxElapsedTime    time.Duration
}

func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		ErrorThreshold:    5,
		BlacklistCooldown: 2 * time.Minute,
		RetryInterval:     time.Second,
		MaxElapsedTime:    30 * time.Second,
	}
}

type provider struct {
	client        *EVMClient
	state         string
	errorCount    int
	blacklistedAt time.Time
}

// Failover executes calls against an ordered set of endpoints, rotating away
// from endpoints that keep failing.
type Failover struct {
	mu        sync.Mutex
	providers []*provider
	current   int
	cfg       FailoverConfig
}

func NewFailover(clients []*EVMClient, cfg FailoverConfig) (*Failover, error) {
	if len(clients) == 0 {
		return nil, ErrNoProviders
	}
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = DefaultFailoverConfig().ErrorThreshold
	}
	if cfg.BlacklistCooldown <= 0 {
		cfg.BlacklistCooldown = DefaultFailoverConfig().BlacklistCooldown
	}

	providers := make([]*provider, 0, len(clients))
	for _, c := range clients {
		providers = append(providers, &provider{client: c, state: StateHealthy})
	}
	return &Failover{providers: providers, cfg: cfg}, nil
}

// pick returns the preferred provider: the current one if usable, otherwise
// the next non-blacklisted one. Blacklisted providers recover after the
// cooldown; if everything is blacklisted the least recently failed one is
// pressed back into service.
func (f *Failover) pick() *provider {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for _, p := range f.providers {
		if p.state == StateBlacklisted && now.Sub(p.blacklistedAt) > f.cfg.BlacklistCooldown {
			p.state = StateHealthy
			p.errorCount = 0
			logger.Info("RPC provider recovered from blacklist", "url", p.client.URL())
		}
	}

	for i := 0; i < len(f.providers); i++ {
		idx := (f.current + i) % len(f.providers)
		if f.providers[idx].state != StateBlacklisted {
			f.current = idx
			return f.providers[idx]
		}
	}

	// all blacklisted; use the one closest to recovery
	oldest := f.providers[0]
	for _, p := range f.providers[1:] {
		if p.blacklistedAt.Before(oldest.blacklistedAt) {
			oldest = p
		}
	}
	return oldest
}

func (f *Failover) reportSuccess(p *provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.errorCount = 0
	p.state = StateHealthy
}

func (f *Failover) reportFailure(p *provider) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p.errorCount++
	p.state = StateUnhealthy
	if p.errorCount >= f.cfg.ErrorThreshold {
		p.state = StateBlacklisted
		p.blacklistedAt = time.Now()
		logger.Warn("RPC provider blacklisted",
			"url", p.client.URL(),
			"errors", p.errorCount,
		)
	}
	f.current = (f.current + 1) % len(f.providers)
}

// Execute runs fn against the preferred provider, failing over once per
// remaining provider on error.
func (f *Failover) Execute(ctx context.Context, fn func(c *EVMClient) error) error {
	var lastErr error
	for i := 0; i < len(f.providers); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := f.pick()
		if err := fn(p.client); err != nil {
			lastErr = err
			f.reportFailure(p)
			continue
		}
		f.reportSuccess(p)
		return nil
	}
	return fmt.Errorf("all providers failed: %w", lastErr)
}

// ExecuteWithRetry wraps Execute with exponential backoff for transient
// whole-set failures.
func (f *Failover) ExecuteWithRetry(ctx context.Context, fn func(c *EVMClient) error) error {
	interval := f.cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	return retry.Exponential(func() error {
		if err := ctx.Err(); err != nil {
			return retry.Permanent(err)
		}
		return f.Execute(ctx, fn)
	}, retry.ExponentialConfig{
		InitialInterval: interval,
		MaxElapsedTime:  f.cfg.MaxElapsedTime,
	})
}

// States reports the current provider states keyed by endpoint URL.
func (f *Failover) States() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]string, len(f.providers))
	for _, p := range f.providers {
		out[p.client.URL()] = p.state
	}
	return out
}
