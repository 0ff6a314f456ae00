// Package store provides the keyed record store backing session
// persistence, with sqlite, memory, and redis drivers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository is a synchronous keyed record store. It is the durability
// boundary for session state: callers write after every mutation so a
// crash loses at most the single most recent change.
type Repository interface {
	// Get retrieves a record by key. A missing key returns ("", false, nil).
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a record under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// SetAll stores several records, atomically where the driver allows.
	SetAll(ctx context.Context, records map[string]string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Driver selects a Repository implementation.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// ErrInvalidDriver is returned for an unrecognized driver name.
var ErrInvalidDriver = errors.New("invalid store driver")

// Options carries driver-specific settings.
type Options struct {
	// DBPath is the sqlite database file path.
	DBPath string
	// RedisAddr is the redis host:port.
	RedisAddr string
	// RedisPrefix namespaces this application's keys in redis.
	RedisPrefix string
	// RedisDialTimeout bounds the startup reachability check.
	RedisDialTimeout time.Duration
}

// New creates a Repository for the given driver.
func New(driver Driver, opts Options) (Repository, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLite(opts.DBPath)
	case DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		dialTimeout := opts.RedisDialTimeout
		if dialTimeout <= 0 {
			dialTimeout = 5 * time.Second
		}
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis at %s: %w", opts.RedisAddr, err)
		}
		return NewRedis(client, opts.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, driver)
	}
}
