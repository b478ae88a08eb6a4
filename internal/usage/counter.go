package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DemoCounter tracks demo messages used per (business, session). Counts never decrease
// except through Reset.
type DemoCounter interface {
	Get(ctx context.Context, business, sessionID string) (int, error)
	// Advance raises the count to at least to and returns the stored value.
	Advance(ctx context.Context, business, sessionID string, to int) (int, error)
	// Reset clears one session's count, or every session of business when sessionID is empty.
	Reset(ctx context.Context, business, sessionID string) error
}

// MemoryDemoCounter is the single-process counter.
type MemoryDemoCounter struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func NewMemoryDemoCounter() *MemoryDemoCounter {
	return &MemoryDemoCounter{counts: make(map[string]map[string]int)}
}

func (c *MemoryDemoCounter) Get(_ context.Context, business, sessionID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[business][sessionID], nil
}

func (c *MemoryDemoCounter) Advance(_ context.Context, business, sessionID string, to int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessions, ok := c.counts[business]
	if !ok {
		sessions = make(map[string]int)
		c.counts[business] = sessions
	}
	if to > sessions[sessionID] {
		sessions[sessionID] = to
	}
	return sessions[sessionID], nil
}

func (c *MemoryDemoCounter) Reset(_ context.Context, business, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID == "" {
		delete(c.counts, business)
		return nil
	}
	delete(c.counts[business], sessionID)
	return nil
}

const demoCounterKeyPrefix = "chappy:demo:"

// advanceScript stores max(current, ARGV[2]) in the session's hash field.
var advanceScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local target = tonumber(ARGV[2])
if target > current then
	redis.call('HSET', KEYS[1], ARGV[1], target)
	current = target
end
return current
`)

// RedisDemoCounter keeps one hash per business, one field per session, so counts
// survive restarts and are shared between instances.
type RedisDemoCounter struct {
	client *redis.Client
}

func NewRedisDemoCounter(client *redis.Client) *RedisDemoCounter {
	if client == nil {
		panic("usage: redis client cannot be nil")
	}
	return &RedisDemoCounter{client: client}
}

func demoCounterKey(business string) string {
	return demoCounterKeyPrefix + business
}

func (c *RedisDemoCounter) Get(ctx context.Context, business, sessionID string) (int, error) {
	n, err := c.client.HGet(ctx, demoCounterKey(business), sessionID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage: read demo count: %w", err)
	}
	return n, nil
}

func (c *RedisDemoCounter) Advance(ctx context.Context, business, sessionID string, to int) (int, error) {
	n, err := advanceScript.Run(ctx, c.client, []string{demoCounterKey(business)}, sessionID, to).Int()
	if err != nil {
		return 0, fmt.Errorf("usage: advance demo count: %w", err)
	}
	return n, nil
}

func (c *RedisDemoCounter) Reset(ctx context.Context, business, sessionID string) error {
	var err error
	if sessionID == "" {
		err = c.client.Del(ctx, demoCounterKey(business)).Err()
	} else {
		err = c.client.HDel(ctx, demoCounterKey(business), sessionID).Err()
	}
	if err != nil {
		return fmt.Errorf("usage: reset demo count: %w", err)
	}
	return nil
}

// ResetHook clears every demo count for a business, for use when it subscribes.
func ResetHook(counter DemoCounter) func(ctx context.Context, business string) error {
	return func(ctx context.Context, business string) error {
		return counter.Reset(ctx, business, "")
	}
}
