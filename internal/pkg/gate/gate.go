/*
Package gate provides per-identity fixed-window rate limiting for chat operations.

Every mutating operation is checked against the gate before it reaches the
lifecycle engine. Each operation class carries its own limit/window pair, and
each (identity, class) pair advances through independent counting windows.
Expired windows are reclaimed lazily on the next access rather than by a
background sweeper, so the map stays bounded without extra goroutines.
*/
package gate

import (
	"hash/fnv"
	"sync"
	"time"
)

// Class identifies an independently rate-limited operation class.
type Class string

const (
	ClassSendMessage   Class = "send-message"
	ClassAIChat        Class = "ai-chat"
	ClassTranslate     Class = "translate"
	ClassUpload        Class = "upload"
	ClassFriendRequest Class = "friend-request"
	ClassProfileUpdate Class = "profile-update"
	ClassTyping        Class = "typing"
)

// Limit pairs a window allowance with the window duration.
type Limit struct {
	Count  int
	Window time.Duration
}

// DefaultLimits holds the per-class allowances applied when no override is configured.
var DefaultLimits = map[Class]Limit{
	ClassSendMessage:   {Count: 50, Window: time.Minute},
	ClassAIChat:        {Count: 20, Window: time.Minute},
	ClassTranslate:     {Count: 30, Window: time.Minute},
	ClassUpload:        {Count: 10, Window: time.Minute},
	ClassFriendRequest: {Count: 10, Window: time.Minute},
	ClassProfileUpdate: {Count: 10, Window: time.Minute},
	ClassTyping:        {Count: 120, Window: time.Minute},
}

// Decision is the result of an admission check. A negative decision never
// carries an error; translating it into a rejected operation is the caller's job.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// bucket is one fixed counting window for an (identity, class) pair.
type bucket struct {
	count   int
	resetAt time.Time
}

const shardCount = 32

// shard holds a slice of the bucket keyspace behind its own lock.
type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// Gate admits or rejects operation attempts per identity using fixed-window counting.
// The keyspace is sharded by identity+class hash to keep contention between
// unrelated connections low.
type Gate struct {
	shards [shardCount]*shard
	limits map[Class]Limit
	now    func() time.Time
}

// Option customizes Gate construction.
type Option func(*Gate)

// WithLimits overrides the per-class allowances. Classes absent from the map
// fall back to DefaultLimits.
func WithLimits(limits map[Class]Limit) Option {
	return func(g *Gate) {
		for class, limit := range limits {
			g.limits[class] = limit
		}
	}
}

// WithClock substitutes the time source. Used by tests to step through windows.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New constructs a Gate with the default per-class limits.
func New(opts ...Option) *Gate {
	g := &Gate{
		limits: make(map[Class]Limit, len(DefaultLimits)),
		now:    time.Now,
	}

	for class, limit := range DefaultLimits {
		g.limits[class] = limit
	}

	for i := range g.shards {
		g.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Admit checks whether identity may perform one more operation of the given
// class within the current window. It mutates bucket state and performs no I/O;
// it cannot fail, only return a negative decision.
func (g *Gate) Admit(identity string, class Class) Decision {
	limit, ok := g.limits[class]
	if !ok {
		limit = Limit{Count: 10, Window: time.Minute}
	}

	return g.AdmitLimit(identity, class, limit.Count, limit.Window)
}

// AdmitLimit is Admit with an explicit limit/window pair.
func (g *Gate) AdmitLimit(identity string, class Class, limit int, window time.Duration) Decision {
	key := identity + "\x00" + string(class)
	s := g.shards[shardFor(key)]
	now := g.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.buckets[key]
	if !exists || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}

	if b.count >= limit {
		// Saturate rather than keep counting rejected attempts.
		return Decision{Allowed: false, Remaining: 0, ResetAt: b.resetAt}
	}

	b.count++

	return Decision{
		Allowed:   true,
		Remaining: limit - b.count,
		ResetAt:   b.resetAt,
	}
}

// shardFor maps a bucket key onto its shard index.
func shardFor(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}
