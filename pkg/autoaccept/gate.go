package autoaccept

import (
	"context"
	"fmt"

	"github.com/kadirpekel/ccswarmd/pkg/ratelimit"
)

// Config configures a Gate: the FS/command policies (directly, or via a
// Profile preset) and the per-host rate limit.
type Config struct {
	FS                FSPolicy
	Command           CommandPolicy
	HostRateLimitPerM int64 // requests/minute per host; 0 disables the check
}

// Gate evaluates proposed Actions against the configured policies. It
// holds no session state of its own beyond the rate limiter's usage
// counters, so a single Gate may be shared across sessions.
type Gate struct {
	cfg     Config
	limiter ratelimit.RateLimiter
}

// NewGate constructs a Gate. store is the rate-limit backing store
// (typically ratelimit.NewMemoryStore()); pass nil to disable host rate
// limiting even if cfg.HostRateLimitPerM is set.
func NewGate(cfg Config, store ratelimit.Store) (*Gate, error) {
	g := &Gate{cfg: cfg}
	if store == nil || cfg.HostRateLimitPerM <= 0 {
		return g, nil
	}

	limiter, err := ratelimit.NewRateLimiter(&ratelimit.Config{
		Enabled: true,
		Limits: []ratelimit.LimitRule{
			{Type: ratelimit.LimitTypeCount, Window: ratelimit.WindowMinute, Limit: cfg.HostRateLimitPerM},
		},
	}, store)
	if err != nil {
		return nil, fmt.Errorf("construct host rate limiter: %w", err)
	}
	g.limiter = limiter
	return g, nil
}

// Evaluate decides whether action may proceed.
func (g *Gate) Evaluate(ctx context.Context, action Action) (Decision, error) {
	switch action.Kind {
	case ActionFileAccess, ActionWriteEdit:
		return g.cfg.FS.Evaluate(action.Path, action.Mode), nil
	case ActionBash:
		return g.cfg.Command.Evaluate(action.Command), nil
	case ActionNetworkAccess:
		return g.evaluateNetwork(ctx, action)
	case ActionSystemCall, ActionAPICall:
		return Allow(), nil
	default:
		return Deny("unrecognized action kind"), nil
	}
}

func (g *Gate) evaluateNetwork(ctx context.Context, action Action) (Decision, error) {
	if g.limiter == nil {
		return Allow(), nil
	}
	result, err := g.limiter.CheckAndRecord(ctx, ratelimit.ScopeHost, action.Host, 0, 1)
	if err != nil {
		return Decision{}, fmt.Errorf("check host rate limit: %w", err)
	}
	if !result.Allowed {
		return Deny(result.Reason), nil
	}
	return Allow(), nil
}
