// Package redis stores each key as a plain Redis string and provides a
// SET NX based lock for cross-process writers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fekuna/omnipos-inventory-service/internal/kv"
)

var (
	_ kv.Store  = (*Store)(nil)
	_ kv.Locker = (*Store)(nil)
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client     goredis.UniversalClient
	prefix     string
	retryDelay time.Duration
}

// Open connects and pings the server before returning.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return New(client, cfg.Prefix), nil
}

func New(client goredis.UniversalClient, prefix string) *Store {
	return &Store{
		client:     client,
		prefix:     prefix,
		retryDelay: 50 * time.Millisecond,
	}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

// SetMulti wraps the writes in MULTI/EXEC.
func (s *Store) SetMulti(ctx context.Context, entries map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	return err
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

// Lock polls SET NX until it wins, ctx is done, or ttl has elapsed, in which
// case it returns kv.ErrLockTimeout. A holder that dies releases the lock
// when the key expires after ttl.
func (s *Store) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	lockKey := s.key("lock:" + name)
	token := uuid.New().String()
	deadline := time.Now().Add(ttl)

	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			return func() {
				// The lock may outlive a cancelled request context.
				_ = releaseScript.Run(context.Background(), s.client, []string{lockKey}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, kv.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
