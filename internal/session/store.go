package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthfirst/portal-api/pkg/metrics"
)

var ErrNotFound = errors.New("session key not found")

// Store is the key-value backend behind portal sessions. A ttl of zero means
// the entry does not expire.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend  string        `mapstructure:"backend"`
	RedisURL string        `mapstructure:"redis_url"`
	DSN      string        `mapstructure:"dsn"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Open builds the configured backend wrapped with operation metrics.
func Open(ctx context.Context, cfg Config, m *metrics.Metrics) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case "", BackendMemory:
		cfg.Backend = BackendMemory
		store = NewMemoryStore()
	case BackendRedis:
		store, err = NewRedisStore(ctx, cfg.RedisURL)
	case BackendSQLite, BackendPostgres:
		store, err = NewSQLStore(ctx, cfg.Backend, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(store, cfg.Backend, m), nil
}

type instrumented struct {
	Store
	backend string
	metrics *metrics.Metrics
}

// Instrument counts every store operation by backend and outcome. A miss is
// not counted as an error.
func Instrument(s Store, backend string, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, backend: backend, metrics: m}
}

func (s *instrumented) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		s.metrics.SessionOp(s.backend, "get", nil)
	} else {
		s.metrics.SessionOp(s.backend, "get", err)
	}
	return v, err
}

func (s *instrumented) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := s.Store.Set(ctx, key, value, ttl)
	s.metrics.SessionOp(s.backend, "set", err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, keys ...string) error {
	err := s.Store.Delete(ctx, keys...)
	s.metrics.SessionOp(s.backend, "delete", err)
	return err
}

// Probe reports whether the store answers. A miss counts as healthy.
func Probe(s Store) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.Get(ctx, "readiness-probe")
		if err == nil || errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
}
