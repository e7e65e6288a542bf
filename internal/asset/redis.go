package asset

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the set holding asset names.
const DefaultRedisKey = "decksmith:assets"

// RedisOptions configures [NewRedisClient].
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("asset: redis connect %s: %w", o.Addr, err)
	}
	return client, nil
}

// RedisSource is a [Source] backed by a Redis set of upper-cased names.
type RedisSource struct {
	client redis.UniversalClient
	key    string
}

var (
	_ Source = (*RedisSource)(nil)
	_ Lister = (*RedisSource)(nil)
)

// NewRedisSource returns a source reading the set at key. An empty key
// selects [DefaultRedisKey].
func NewRedisSource(client redis.UniversalClient, key string) *RedisSource {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{client: client, key: key}
}

// Exists implements [Source].
func (s *RedisSource) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, Normalize(name)).Result()
	if err != nil {
		return false, fmt.Errorf("asset: redis exists %q: %w: %w", name, ErrUnavailable, err)
	}
	return ok, nil
}

// Names implements [Lister]. Names are sorted.
func (s *RedisSource) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("asset: redis names: %w: %w", ErrUnavailable, err)
	}
	slices.Sort(names)
	return names, nil
}

// Add stores names in the set.
func (s *RedisSource) Add(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	members := make([]any, len(names))
	for i, n := range names {
		members[i] = Normalize(n)
	}
	if err := s.client.SAdd(ctx, s.key, members...).Err(); err != nil {
		return fmt.Errorf("asset: redis add: %w", err)
	}
	return nil
}

// Ping implements [Pinger].
func (s *RedisSource) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("asset: redis ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}
