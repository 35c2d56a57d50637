package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/healthfirst/portal-api/internal/model"
)

var ErrSessionRequired = errors.New("portal session id is required")

type RegistryConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// Registry keeps one flow per portal session and role. A flow that sits idle
// past the TTL is evicted and closed.
type Registry struct {
	flows *cache.Cache
	deps  Deps
	mu    sync.Mutex
}

func NewRegistry(cfg RegistryConfig, deps Deps) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	c := cache.New(cfg.IdleTTL, cfg.CleanupInterval)
	c.OnEvicted(func(_ string, v interface{}) {
		if f, ok := v.(*Flow); ok {
			f.Close()
		}
	})
	return &Registry{flows: c, deps: deps}
}

func (r *Registry) key(sessionID string, role model.Role) string {
	return string(role) + ":" + sessionID
}

// Get returns the session's flow for role, opening it if needed.
func (r *Registry) Get(ctx context.Context, sessionID string, role model.Role) (*Flow, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(sessionID, role)
	if v, ok := r.flows.Get(key); ok {
		r.flows.SetDefault(key, v)
		return v.(*Flow), nil
	}

	f, err := New(ctx, role, sessionID, r.deps)
	if err != nil {
		return nil, err
	}
	r.flows.SetDefault(key, f)
	return f, nil
}

// Release closes and forgets a flow.
func (r *Registry) Release(sessionID string, role model.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Delete fires OnEvicted, which closes the flow.
	r.flows.Delete(r.key(sessionID, role))
}
