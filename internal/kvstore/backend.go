package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend is the durable byte store under a Store. Read reports a missing key
// with ok=false and a nil error.
type Backend interface {
	Read(ctx context.Context, key string) (val []byte, ok bool, err error)
	Write(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverLevelDB  = "leveldb"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

type BackendConfig struct {
	Driver      string
	Path        string
	RedisURL    string
	PostgresDSN string
}

func Open(ctx context.Context, cfg BackendConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case DriverMemory:
		b = NewMemBackend()
	case DriverLevelDB, "":
		b, err = OpenLevelDB(cfg.Path)
	case DriverRedis:
		b, err = OpenRedis(ctx, cfg.RedisURL)
	case DriverPostgres:
		b, err = OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
