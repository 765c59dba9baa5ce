package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
)

// DefaultTTL is how long a processed transaction id is remembered.
// CloudPayments stops redelivering a notification well within a day.
const DefaultTTL = 72 * time.Hour

const keyPrefix = "cloudpayments:pay"

type redisDeduper struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func (d *redisDeduper) key(k string) string {
	return d.prefix + ":" + k
}

func (d *redisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisDeduper) Mark(ctx context.Context, key string) error {
	return d.client.SetNX(ctx, d.key(key), "1", d.ttl).Err()
}

type memoryDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
	now    func() time.Time
}

// NewMemoryDeduper returns a process-local deduper
func NewMemoryDeduper(ttl time.Duration) ports.CallbackDeduper {
	return newMemoryDeduper(ttl)
}

func newMemoryDeduper(ttl time.Duration) *memoryDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
		now:    time.Now,
	}
}

func (d *memoryDeduper) Seen(_ context.Context, key string) (bool, error) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.seen[key]
	return ok && exp.After(now), nil
}

func (d *memoryDeduper) Mark(_ context.Context, key string) error {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[key] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for k, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, k)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}
	return nil
}

// fallbackDeduper prefers Redis and degrades to memory when a Redis call fails,
// so a Redis outage never blocks acknowledgement.
type fallbackDeduper struct {
	primary  ports.CallbackDeduper
	fallback *memoryDeduper
	logger   *zap.Logger
}

func (d *fallbackDeduper) Seen(ctx context.Context, key string) (bool, error) {
	seen, err := d.primary.Seen(ctx, key)
	if err != nil {
		d.logger.Warn("Redis deduper unavailable, using memory", zap.Error(err))
		return d.fallback.Seen(ctx, key)
	}
	if seen {
		return true, nil
	}
	// a key marked during an outage only exists in memory
	return d.fallback.Seen(ctx, key)
}

func (d *fallbackDeduper) Mark(ctx context.Context, key string) error {
	if err := d.primary.Mark(ctx, key); err != nil {
		d.logger.Warn("Redis deduper unavailable, marking in memory", zap.Error(err))
		return d.fallback.Mark(ctx, key)
	}
	return nil
}

// Config configures the callback deduper
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New builds a Redis deduper with an in-memory fallback.
// An empty Addr or a failed ping gives a memory-only deduper; the returned
// client is nil then. The ping error is returned for logging only.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.CallbackDeduper, *redis.Client, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cfg.Addr == "" {
		return newMemoryDeduper(ttl), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return newMemoryDeduper(ttl), nil, err
	}

	return NewRedisDeduper(client, ttl, logger), client, nil
}

// NewRedisDeduper wraps an existing client
func NewRedisDeduper(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) ports.CallbackDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &fallbackDeduper{
		primary:  &redisDeduper{client: client, prefix: keyPrefix, ttl: ttl},
		fallback: newMemoryDeduper(ttl),
		logger:   logger,
	}
}
