package asset

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisSource(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSource(client, ""), mr
}

func TestRedisSource(t *testing.T) {
	t.Parallel()

	s, mr := newRedisSource(t)
	ctx := context.Background()
	if err := s.Add(ctx, "prod-01", "INJ-01"); err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}
	if ok, _ := mr.SIsMember(DefaultRedisKey, "PROD-01"); !ok {
		t.Error("PROD-01 not stored upper-cased")
	}

	ok, err := s.Exists(ctx, "Prod-01")
	if err != nil || !ok {
		t.Errorf("Exists(Prod-01) = %v, %v", ok, err)
	}
	ok, err = s.Exists(ctx, "PROD-02")
	if err != nil || ok {
		t.Errorf("Exists(PROD-02) = %v, %v", ok, err)
	}

	names, err := s.Names(ctx)
	if err != nil {
		t.Fatalf("Names: unexpected error: %v", err)
	}
	if !slices.Equal(names, []string{"INJ-01", "PROD-01"}) {
		t.Errorf("Names = %v", names)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: unexpected error: %v", err)
	}
}

func TestRedisSource_Unavailable(t *testing.T) {
	t.Parallel()

	s, mr := newRedisSource(t)
	mr.SetError("LOADING redis is loading the dataset")

	if _, err := s.Exists(context.Background(), "PROD-01"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Exists: expected ErrUnavailable, got %v", err)
	}
	if _, err := s.Names(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Names: expected ErrUnavailable, got %v", err)
	}

	r := NewValidator(s).Validate(context.Background(), wellEntities("PROD-01"), wellIntent(t))
	if r.Success() {
		t.Error("Validate succeeded with an unavailable source")
	}
}

func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), RedisOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisClient: unexpected error: %v", err)
	}
	_ = client.Close()
}
