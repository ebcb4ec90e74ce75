package kvstore

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	opGet    = "get"
	opSet    = "set"
	opRemove = "remove"
)

// Store is a JSON key/value store over a Backend. Reads fall back to the
// caller's default and writes are best effort: failures are logged and
// counted, never returned.
type Store struct {
	backend   Backend
	namespace string
	log       *zap.Logger
	failures  *prometheus.CounterVec
}

type Option func(*Store)

// WithNamespace prefixes every key, so several profiles can share a backend.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithRegistry(reg prometheus.Registerer) Option {
	return func(s *Store) {
		if reg == nil {
			return
		}
		s.failures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_storage_failures_total",
				Help: "Storage operations that failed and were recovered",
			},
			[]string{"op"},
		)
		reg.MustRegister(s.failures)
	}
}

func New(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

// Decode reads key into dst and reports whether a value was decoded. A value
// that fails to decode may leave dst partially written; Get avoids that.
func (s *Store) Decode(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.backend.Read(ctx, s.key(key))
	if err != nil {
		s.fail(opGet, key, err)
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		s.fail(opGet, key, err)
		return false
	}
	return true
}

func (s *Store) Set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.fail(opSet, key, err)
		return
	}
	if err := s.backend.Write(ctx, s.key(key), raw); err != nil {
		s.fail(opSet, key, err)
	}
}

func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, s.key(key)); err != nil {
		s.fail(opRemove, key, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) fail(op, key string, err error) {
	s.log.Error("storage operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	if s.failures != nil {
		s.failures.WithLabelValues(op).Inc()
	}
}

// Get returns the value stored under key, or def when it cannot be read.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	var v T
	if !s.Decode(ctx, key, &v) {
		return def
	}
	return v
}
