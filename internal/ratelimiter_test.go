package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisCounter struct {
	counts      map[string]int64
	incrErr     error
	expireErr   error
	expireCalls int
}

func newMockRedisCounter() *mockRedisCounter {
	return &mockRedisCounter{counts: make(map[string]int64)}
}

func (m *mockRedisCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if m.incrErr != nil {
		return redis.NewIntResult(0, m.incrErr)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *mockRedisCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls++
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	return redis.NewBoolResult(true, nil)
}

func testRateLimiter(client redisCounterClient) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: "lol:ratelimit",
		logger: createTestLogger(),
	}
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	client := newMockRedisCounter()
	rl := testRateLimiter(client)

	for i := 0; i < 20; i++ {
		allowed, err := rl.Allow(context.Background(), "sync")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiterBlocksOverPerSecondLimit(t *testing.T) {
	client := newMockRedisCounter()
	rl := testRateLimiter(client)

	for i := 0; i < 20; i++ {
		rl.Allow(context.Background(), "sync")
	}

	allowed, err := rl.Allow(context.Background(), "sync")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if allowed {
		t.Error("Request 21 within the same second should be blocked")
	}
}

func TestRateLimiterSetsExpiryOnFirstRequest(t *testing.T) {
	client := newMockRedisCounter()
	rl := testRateLimiter(client)

	rl.Allow(context.Background(), "sync")

	// One expiry per window on the first increment.
	if client.expireCalls != len(inboundRateLimits) {
		t.Errorf("Expected %d expire calls, got %d", len(inboundRateLimits), client.expireCalls)
	}

	rl.Allow(context.Background(), "sync")
	if client.expireCalls != len(inboundRateLimits) {
		t.Errorf("Expire should not be reissued, got %d calls", client.expireCalls)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	client := newMockRedisCounter()
	rl := testRateLimiter(client)

	for i := 0; i < 20; i++ {
		rl.Allow(context.Background(), "sync")
	}

	allowed, err := rl.Allow(context.Background(), "rank")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("A different key must have its own window")
	}
}

func TestRateLimiterPropagatesRedisError(t *testing.T) {
	client := newMockRedisCounter()
	client.incrErr = errors.New("connection refused")
	rl := testRateLimiter(client)

	allowed, err := rl.Allow(context.Background(), "sync")
	if err == nil {
		t.Fatal("Expected error when redis is down")
	}
	if allowed {
		t.Error("Errored check must not report allowed")
	}
}
