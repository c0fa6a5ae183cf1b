package history

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct{ now atomic.Int64 }

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.now.Store(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func userTurn(i int) Turn { return Turn{Role: RoleUser, Message: fmt.Sprintf("msg-%d", i)} }

func TestAppend_EvictsOldest(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	defer c.Stop()

	for i := 1; i <= 6; i++ {
		c.Append("u1", userTurn(i))
	}

	got := c.Snapshot("u1")
	want := []Turn{userTurn(2), userTurn(3), userTurn(4), userTurn(5), userTurn(6)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_WrapsManyTimes(t *testing.T) {
	t.Parallel()
	c := New(Config{Capacity: 3})
	defer c.Stop()

	for i := range 20 {
		c.Append("u1", userTurn(i))
		got := c.Snapshot("u1")
		wantLen := min(i+1, 3)
		if len(got) != wantLen {
			t.Fatalf("after %d appends len = %d, want %d", i+1, len(got), wantLen)
		}
		if got[len(got)-1] != userTurn(i) {
			t.Fatalf("newest turn = %v, want %v", got[len(got)-1], userTurn(i))
		}
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	defer c.Stop()

	if got := c.Snapshot("nobody"); got != nil {
		t.Errorf("unknown user snapshot = %v, want nil", got)
	}
	if c.Users() != 0 {
		t.Errorf("Snapshot must not create buffers, Users() = %d", c.Users())
	}

	c.Append("u1", Turn{Role: RoleUser, Message: "hi"})
	c.Append("u1", Turn{Role: RoleBot, Message: "hello"})

	snap := c.Snapshot("u1")
	snap[0].Message = "changed"
	if got := c.Snapshot("u1")[0].Message; got != "hi" {
		t.Errorf("snapshot aliases buffer: got %q", got)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	defer c.Stop()

	c.Append("u1", userTurn(1))
	c.Append("u2", userTurn(2))
	c.Forget("u2")

	if diff := cmp.Diff([]Turn{userTurn(1)}, c.Snapshot("u1")); diff != "" {
		t.Errorf("u1 mismatch (-want +got):\n%s", diff)
	}
	if got := c.Snapshot("u2"); got != nil {
		t.Errorf("forgotten user still has %v", got)
	}
}

func TestAppend_RemovedBufferIsReplaced(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	defer c.Stop()

	stale := c.getOrCreate("u1")
	c.Forget("u1")
	if stale.push(userTurn(0), time.Now()) {
		t.Fatal("push into a forgotten buffer should fail")
	}

	c.Append("u1", userTurn(1))
	if diff := cmp.Diff([]Turn{userTurn(1)}, c.Snapshot("u1")); diff != "" {
		t.Errorf("u1 mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_SurvivesEvictionChurn(t *testing.T) {
	t.Parallel()
	c := New(Config{MaxUsers: 1})
	defer c.Stop()

	// Each user evicts the other on every append; no append may be lost to
	// a buffer that was evicted under it.
	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2"} {
		wg.Go(func() {
			for i := range 200 {
				c.Append(user, userTurn(i))
			}
		})
	}
	wg.Wait()

	if got := c.Users(); got != 1 {
		t.Fatalf("users = %d, want 1", got)
	}
	total := len(c.Snapshot("u1")) + len(c.Snapshot("u2"))
	if total == 0 {
		t.Error("the surviving user has no turns")
	}
}

func TestAppend_ConcurrentSameUser(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	defer c.Stop()

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Go(func() { c.Append("u1", userTurn(i)) })
	}
	wg.Wait()

	got := c.Snapshot("u1")
	if len(got) != DefaultCapacity {
		t.Fatalf("len = %d, want %d", len(got), DefaultCapacity)
	}
	seen := map[string]bool{}
	for _, turn := range got {
		if seen[turn.Message] {
			t.Errorf("duplicate turn %q", turn.Message)
		}
		seen[turn.Message] = true
	}
}

func TestAppend_ConcurrentUsers(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	defer c.Stop()

	var wg sync.WaitGroup
	for u := range 50 {
		wg.Go(func() {
			user := fmt.Sprintf("u%d", u)
			for i := range 7 {
				c.Append(user, userTurn(i))
			}
		})
	}
	wg.Wait()

	if c.Users() != 50 {
		t.Fatalf("Users() = %d, want 50", c.Users())
	}
	want := []Turn{userTurn(2), userTurn(3), userTurn(4), userTurn(5), userTurn(6)}
	for u := range 50 {
		if diff := cmp.Diff(want, c.Snapshot(fmt.Sprintf("u%d", u))); diff != "" {
			t.Errorf("u%d mismatch (-want +got):\n%s", u, diff)
		}
	}
}

func TestMaxUsers_EvictsLeastRecentlySeen(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	var users atomic.Int64
	c := New(Config{
		MaxUsers:      2,
		Now:           clock.Now,
		OnUsersChange: func(n int) { users.Store(int64(n)) },
	})
	defer c.Stop()

	c.Append("a", userTurn(1))
	clock.Advance(time.Second)
	c.Append("b", userTurn(2))
	clock.Advance(time.Second)
	c.Snapshot("a") // a is now more recent than b
	clock.Advance(time.Second)
	c.Append("c", userTurn(3))

	if c.Users() != 2 {
		t.Fatalf("Users() = %d, want 2", c.Users())
	}
	if c.Snapshot("b") != nil {
		t.Error("b should have been evicted")
	}
	if c.Snapshot("a") == nil || c.Snapshot("c") == nil {
		t.Error("a and c should be kept")
	}
	if users.Load() != 2 {
		t.Errorf("OnUsersChange last value = %d, want 2", users.Load())
	}
}

func TestSweep_DropsIdleUsers(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{IdleTTL: time.Hour, SweepInterval: time.Hour, Now: clock.Now})
	defer c.Stop()

	c.Append("idle", userTurn(1))
	clock.Advance(50 * time.Minute)
	c.Append("active", userTurn(2))
	clock.Advance(20 * time.Minute)

	if removed := c.sweep(); removed != 1 {
		t.Fatalf("sweep removed %d, want 1", removed)
	}
	if c.Snapshot("idle") != nil {
		t.Error("idle user should be swept")
	}
	if c.Snapshot("active") == nil {
		t.Error("active user should be kept")
	}
}

func TestStop_Idempotent(t *testing.T) {
	t.Parallel()
	c := New(Config{IdleTTL: time.Millisecond})
	c.Stop()
	c.Stop()
}
