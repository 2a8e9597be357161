package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 6, 20, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := newWithClock(2, 1, clock.Now)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "burst exhausted")
	assert.Equal(t, time.Second, l.RetryAfter())

	clock.Advance(500 * time.Millisecond)
	assert.False(t, l.Allow())
	assert.Equal(t, 500*time.Millisecond, l.RetryAfter())

	clock.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestLimiter_RefillCapped(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := newWithClock(3, 10, clock.Now)

	assert.True(t, l.Allow())
	assert.False(t, l.IsFull())

	clock.Advance(time.Hour)
	assert.True(t, l.IsFull())
	assert.InDelta(t, 3.0, l.Available(), 1e-9)
	assert.Zero(t, l.RetryAfter())
}

type recorder struct {
	mu      sync.Mutex
	drops   int
	clients int
}

func (r *recorder) RecordRateLimitDrop(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drops++
}

func (r *recorder) SetRateLimitClients(_ string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = n
}

func TestKeyedLimiter_PerKey(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	kl := NewKeyedLimiter(KeyedConfig{Name: "client", Burst: 1, RefillRate: 0.001, Metrics: rec})
	defer kl.Stop()

	assert.True(t, kl.Allow("10.0.0.1"))
	assert.False(t, kl.Allow("10.0.0.1"))
	assert.True(t, kl.Allow("10.0.0.2"), "keys have separate buckets")
	assert.True(t, kl.Allow(""), "empty key is not limited")

	assert.Equal(t, 1, rec.drops)
	assert.Equal(t, 2, kl.ActiveCount())
	assert.Positive(t, kl.RetryAfter("10.0.0.1"))
	assert.Zero(t, kl.RetryAfter("unknown"))
}

func TestKeyedLimiter_Cleanup(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	rec := &recorder{}
	kl := NewKeyedLimiter(KeyedConfig{Name: "client", Burst: 5, RefillRate: 1, Metrics: rec})
	kl.now = clock.Now
	defer kl.Stop()

	kl.Allow("a")
	kl.Allow("b")
	clock.Advance(500 * time.Millisecond)
	kl.Allow("b")

	// a refills first: it spent one token a second and a half ago
	clock.Advance(time.Second)
	assert.Equal(t, 1, kl.Cleanup())
	assert.Equal(t, 1, rec.clients)

	clock.Advance(time.Minute)
	assert.Equal(t, 0, kl.Cleanup())
	assert.Equal(t, 0, kl.ActiveCount())
}

func TestKeyedLimiter_StopTwice(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Burst: 1, RefillRate: 1, CleanupPeriod: time.Millisecond})
	kl.Stop()
	kl.Stop()
}
