// Package refstore keeps run state in Redis: reference sets that are too
// large to hold in process memory, and the cache of finished reports.
package refstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)

// Config holds the connection settings.
type Config struct {
	URL            string        // redis://:password@host:6379/0
	RetryAttempts  int           // Connection attempts before giving up
	RetryInterval  time.Duration // Delay between attempts
	ConnectTimeout time.Duration // Upper bound for the whole connect loop
	KeyTTL         time.Duration // Expiry applied to every reference set
}

// Connect dials Redis and pings it, retrying up to cfg.RetryAttempts times.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// Healthcheck returns a probe suitable for the HTTP health endpoint.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Redis stores each reference as a Redis set under
// "datacheck:<run>:ref:<name>". Keys are namespaced per run, so concurrent
// runs never see each other's values.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration

	mu   sync.Mutex
	keys map[string]struct{}
}

// New returns a store scoped to runID. A zero ttl leaves keys without expiry.
func New(client redis.UniversalClient, runID string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: "datacheck:" + runID + ":ref:",
		ttl:    ttl,
		keys:   make(map[string]struct{}),
	}
}

func (s *Redis) key(name string) string { return s.prefix + name }

// Add records key in the named set. The TTL is set the first time a set is
// written.
func (s *Redis) Add(ctx context.Context, name, key string) error {
	k := s.key(name)

	s.mu.Lock()
	_, seen := s.keys[k]
	s.keys[k] = struct{}{}
	s.mu.Unlock()

	if seen || s.ttl <= 0 {
		if err := s.client.SAdd(ctx, k, key).Err(); err != nil {
			return fmt.Errorf("sadd %s: %w", k, err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, k, key)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sadd %s: %w", k, err)
	}
	return nil
}

func (s *Redis) Has(ctx context.Context, name, key string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(name), key).Result()
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", s.key(name), err)
	}
	return ok, nil
}

func (s *Redis) Len(ctx context.Context, name string) (int64, error) {
	n, err := s.client.SCard(ctx, s.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", s.key(name), err)
	}
	return n, nil
}

// Names returns the reference names written through this store, sorted.
func (s *Redis) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.keys))
	for k := range s.keys {
		names = append(names, k[len(s.prefix):])
	}
	sort.Strings(names)
	return names
}

// Cleanup deletes every set written through this store.
func (s *Redis) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.keys = make(map[string]struct{})
	s.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete reference sets: %w", err)
	}
	return nil
}
