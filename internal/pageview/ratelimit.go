package pageview

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/LearnShelfLab/analytics_svc/internal/task"
)

const (
	DefaultRateLimitMaxRequests = 30
	DefaultRateLimitWindow      = time.Minute

	rateLimiterShardCount = 16
	sweepInterval         = 5 * time.Minute
	sweepIdleThreshold    = 5 * time.Minute
)

// Clock supplies the current time; injected so tests can drive the window.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type rateLimitCounter struct {
	count       int
	windowStart time.Time
}

type rateLimiterShard struct {
	mutex    sync.Mutex
	counters map[string]*rateLimitCounter
}

// RateLimiter admits at most a fixed number of requests per client key within
// a reset-style window: the counter restarts from 1 whenever a full window
// has elapsed since it was last reset. State is process-local and lost on
// restart by design. Keys are sharded so the sweep never stalls admission
// across the whole map.
type RateLimiter struct {
	limit   int
	window  time.Duration
	clock   Clock
	shards  [rateLimiterShardCount]*rateLimiterShard
	sweeper *task.Scheduler
}

// NewRateLimiter builds a RateLimiter. Non-positive limit or window and a nil
// clock fall back to defaults.
func NewRateLimiter(limit int, window time.Duration, clock Clock) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimitMaxRequests
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if clock == nil {
		clock = systemClock{}
	}
	limiter := &RateLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
	}
	for shardIndex := range limiter.shards {
		limiter.shards[shardIndex] = &rateLimiterShard{counters: make(map[string]*rateLimitCounter)}
	}
	return limiter
}

// StartSweeping launches the periodic eviction of idle counters.
func (limiter *RateLimiter) StartSweeping(ctx context.Context) {
	if limiter.sweeper != nil {
		return
	}
	limiter.sweeper = task.NewScheduler(sweepInterval, limiter.Sweep)
	limiter.sweeper.Start(ctx)
}

// Shutdown cancels the sweep task and waits for it to exit.
func (limiter *RateLimiter) Shutdown() {
	if limiter.sweeper == nil {
		return
	}
	limiter.sweeper.Stop()
	limiter.sweeper = nil
}

// Admit reports whether a request from clientKey is allowed right now. An
// empty key cannot be rate limited and is always admitted (fail-open).
func (limiter *RateLimiter) Admit(clientKey string) bool {
	if clientKey == "" {
		return true
	}
	now := limiter.clock.Now()
	shard := limiter.shardFor(clientKey)
	shard.mutex.Lock()
	defer shard.mutex.Unlock()

	counter, exists := shard.counters[clientKey]
	if !exists {
		shard.counters[clientKey] = &rateLimitCounter{count: 1, windowStart: now}
		return true
	}
	if now.Sub(counter.windowStart) > limiter.window {
		counter.count = 1
		counter.windowStart = now
		return true
	}
	counter.count++
	return counter.count <= limiter.limit
}

// Sweep evicts counters idle for longer than the sweep threshold. Each shard
// is locked independently, so admission on other shards proceeds unblocked.
func (limiter *RateLimiter) Sweep(context.Context) {
	now := limiter.clock.Now()
	for _, shard := range limiter.shards {
		shard.mutex.Lock()
		for clientKey, counter := range shard.counters {
			if now.Sub(counter.windowStart) > sweepIdleThreshold {
				delete(shard.counters, clientKey)
			}
		}
		shard.mutex.Unlock()
	}
}

// TrackedClients returns the number of live counters across all shards.
func (limiter *RateLimiter) TrackedClients() int {
	total := 0
	for _, shard := range limiter.shards {
		shard.mutex.Lock()
		total += len(shard.counters)
		shard.mutex.Unlock()
	}
	return total
}

func (limiter *RateLimiter) shardFor(clientKey string) *rateLimiterShard {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(clientKey))
	return limiter.shards[hasher.Sum32()%rateLimiterShardCount]
}
