package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates the requested key was not found.
	ErrNotFound = errors.New("value not found")

	// ErrExists indicates a value was already written under the key.
	ErrExists = errors.New("value already stored")
)

// DefaultTTL is used when Options.TTL is zero.
const DefaultTTL = 24 * time.Hour

// Options configures a Manager.
type Options struct {
	// Prefix is the first key segment (default: DefaultPrefix).
	Prefix string

	// TTL bounds how long values live. Negative means no expiry.
	TTL time.Duration
}

// Manager stores transform results in Redis. It satisfies the client Sink
// interface.
type Manager struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewManager creates a new store manager with Redis backend.
func NewManager(redisClient *redis.Client, opts Options) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}

	ttl := opts.TTL
	switch {
	case ttl == 0:
		ttl = DefaultTTL
	case ttl < 0:
		ttl = 0
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Manager{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key returns the key for name in the batch carried by ctx.
func (m *Manager) Key(ctx context.Context, name string) Key {
	return Key{Prefix: m.prefix, Batch: BatchFrom(ctx), Name: name}
}

// Put stores value as JSON under the batch carried by ctx. It returns
// ErrExists if the key is already taken.
func (m *Manager) Put(ctx context.Context, name string, value any) error {
	key := m.Key(ctx, name).String()

	data, err := json.Marshal(value)
	if err != nil {
		StoreErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal value: %w", err)
	}

	ok, err := m.redis.SetNX(ctx, key, data, m.ttl).Result()
	if err != nil {
		StoreErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}

	StoreWrites.Inc()
	StoreBytes.Add(float64(len(data)))

	return nil
}

// Get decodes the value stored under key into dst.
// Returns ErrNotFound if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key Key, dst any) error {
	if key.Prefix == "" {
		key.Prefix = m.prefix
	}

	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		StoreErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("unmarshal value: %w", err)
	}

	return nil
}

// Names lists the request names stored for a batch.
func (m *Manager) Names(ctx context.Context, batch string) ([]string, error) {
	base := Key{Prefix: m.prefix, Batch: batch}
	skip := len(base.String())

	var names []string
	iter := m.redis.Scan(ctx, 0, base.pattern(), 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, iter.Val()[skip:])
	}
	if err := iter.Err(); err != nil {
		StoreErrors.WithLabelValues("keys").Inc()
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	return names, nil
}

// DeleteBatch removes every value stored for a batch.
func (m *Manager) DeleteBatch(ctx context.Context, batch string) error {
	names, err := m.Names(ctx, batch)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = Key{Prefix: m.prefix, Batch: batch, Name: name}.String()
	}

	if err := m.redis.Del(ctx, keys...).Err(); err != nil {
		StoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
