// Package history keeps a short rolling conversation buffer per user.
//
// Each user owns a fixed-capacity ring of turns. The cache map is locked
// only to find or create a ring; appends lock the ring itself, so turns
// from one user stay ordered and different users never contend.
package history

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the number of turns kept per user.
const DefaultCapacity = 5

// Role identifies who produced a turn.
type Role string

// Turn roles.
const (
	RoleUser Role = "User"
	RoleBot  Role = "Bot"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role
	Message string
}

// Config configures a Cache. The zero value keeps DefaultCapacity turns
// for every user for the life of the process.
type Config struct {
	Capacity int // turns per user, DefaultCapacity when <= 0

	// MaxUsers bounds the number of buffers. Creating a buffer beyond the
	// cap evicts the least recently seen user. 0 disables the bound.
	MaxUsers int

	// IdleTTL drops buffers not touched for this long. 0 disables the sweep.
	IdleTTL       time.Duration
	SweepInterval time.Duration // defaults to IdleTTL

	// OnUsersChange is called with the buffer count after evictions and sweeps.
	OnUsersChange func(users int)

	Now func() time.Time
}

// Cache maps user ids to their recent turns.
type Cache struct {
	mu      sync.RWMutex
	buffers map[string]*buffer
	cfg     Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type buffer struct {
	mu      sync.Mutex
	turns   []Turn
	head    int  // index of the oldest turn
	size    int
	removed bool // dropped from the cache; appends must go to a new buffer

	lastSeen atomic.Int64 // unix nanoseconds
}

// New creates a cache. When cfg.IdleTTL is set a sweeper runs until Stop.
func New(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.IdleTTL
	}

	c := &Cache{
		buffers: make(map[string]*buffer),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	if cfg.IdleTTL > 0 {
		c.wg.Go(c.sweepLoop)
	}
	return c
}

// Capacity returns the number of turns kept per user.
func (c *Cache) Capacity() int { return c.cfg.Capacity }

// Append adds a turn to the user's buffer, evicting the oldest turn when
// the buffer is full.
func (c *Cache) Append(userID string, t Turn) {
	// The buffer can be evicted, swept or forgotten between lookup and
	// lock; retry on the replacement.
	for !c.getOrCreate(userID).push(t, c.cfg.Now()) {
	}
}

// push adds t and reports false if the buffer was already removed.
func (b *buffer) push(t Turn, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removed {
		return false
	}

	if b.size < len(b.turns) {
		b.turns[(b.head+b.size)%len(b.turns)] = t
		b.size++
	} else {
		b.turns[b.head] = t
		b.head = (b.head + 1) % len(b.turns)
	}
	b.lastSeen.Store(now.UnixNano())
	return true
}

// Snapshot returns a copy of the user's turns, oldest first.
// It returns nil for a user with no history.
func (c *Cache) Snapshot(userID string) []Turn {
	c.mu.RLock()
	b, ok := c.buffers[userID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Turn, b.size)
	for i := range b.size {
		out[i] = b.turns[(b.head+i)%len(b.turns)]
	}
	b.lastSeen.Store(c.cfg.Now().UnixNano())
	return out
}

// Forget drops the user's buffer.
func (c *Cache) Forget(userID string) {
	c.mu.Lock()
	c.removeLocked(userID)
	n := len(c.buffers)
	c.mu.Unlock()
	c.notify(n)
}

// Users returns the number of users with a buffer.
func (c *Cache) Users() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buffers)
}

func (c *Cache) getOrCreate(userID string) *buffer {
	c.mu.RLock()
	b, ok := c.buffers[userID]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	b, ok = c.buffers[userID]
	if ok {
		c.mu.Unlock()
		return b
	}
	if c.cfg.MaxUsers > 0 && len(c.buffers) >= c.cfg.MaxUsers {
		c.evictOldestLocked()
	}
	b = &buffer{turns: make([]Turn, c.cfg.Capacity)}
	b.lastSeen.Store(c.cfg.Now().UnixNano())
	c.buffers[userID] = b
	n := len(c.buffers)
	c.mu.Unlock()

	c.notify(n)
	return b
}

// evictOldestLocked removes the least recently seen buffer. Must be called
// with mu held for writing.
func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    int64
		found     bool
	)
	for key, b := range c.buffers {
		seen := b.lastSeen.Load()
		if !found || seen < oldest {
			oldestKey, oldest, found = key, seen, true
		}
	}
	if found {
		c.removeLocked(oldestKey)
	}
}

// removeLocked drops key and marks its buffer removed. Must be called with
// mu held for writing; buffer locks are always taken after mu.
func (c *Cache) removeLocked(key string) {
	b, ok := c.buffers[key]
	if !ok {
		return
	}
	delete(c.buffers, key)
	b.mu.Lock()
	b.removed = true
	b.mu.Unlock()
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep drops buffers idle for longer than IdleTTL and returns how many
// were removed.
func (c *Cache) sweep() int {
	cutoff := c.cfg.Now().Add(-c.cfg.IdleTTL).UnixNano()

	c.mu.Lock()
	removed := 0
	for key, b := range c.buffers {
		if b.lastSeen.Load() < cutoff {
			c.removeLocked(key)
			removed++
		}
	}
	n := len(c.buffers)
	c.mu.Unlock()

	c.notify(n)
	return removed
}

func (c *Cache) notify(users int) {
	if c.cfg.OnUsersChange != nil {
		c.cfg.OnUsersChange(users)
	}
}

// Stop ends the idle sweeper and waits for it to exit.
// Safe to call multiple times.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}
