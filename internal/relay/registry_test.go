package relay

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAddIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("a")

	assert.True(t, r.Add(c))
	assert.False(t, r.Add(c))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryIgnoresNil(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Add(nil))
	assert.False(t, r.Remove(nil))
	assert.Zero(t, r.Len())
}

func TestRegistryRemoveAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Add(newFakeConn("a"))

	assert.False(t, r.Remove(newFakeConn("missing")))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemoveStaleHandle(t *testing.T) {
	r := NewRegistry()
	current := newFakeConn("a")
	stale := newFakeConn("a")
	r.Add(current)

	assert.False(t, r.Remove(stale), "a different conn sharing the id must not evict the member")
	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Same(t, current, got)

	assert.True(t, r.Remove(current))
	assert.Zero(t, r.Len())
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Add(newFakeConn("a"))
	r.Add(newFakeConn("b"))

	snap := r.Snapshot()
	r.Add(newFakeConn("c"))
	r.Remove(snap[0])

	assert.Len(t, snap, 2)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newFakeConn(fmt.Sprintf("conn-%d", i))
			r.Add(c)
			r.Add(c)
			_ = r.Snapshot()
			if i%2 == 0 {
				r.Remove(c)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, r.Len())
	seen := make(map[string]bool)
	for _, c := range r.Snapshot() {
		assert.False(t, seen[c.ID()], "duplicate entry %s", c.ID())
		seen[c.ID()] = true
	}
}

// funcConn is a value-type Conn. Its func field makes it uncomparable.
type funcConn struct {
	id   string
	send func([]byte) error
}

func (c funcConn) ID() string            { return c.id }
func (c funcConn) IsOpen() bool          { return true }
func (c funcConn) Send(msg []byte) error { return c.send(msg) }

func TestRegistryRemoveUncomparableConn(t *testing.T) {
	r := NewRegistry()
	c := funcConn{id: "v", send: func([]byte) error { return nil }}
	r.Add(c)
	r.Add(newFakeConn("p"))

	assert.NotPanics(t, func() {
		assert.False(t, r.Remove(newFakeConn("v")), "a conn of another type sharing the id must not evict the member")
		assert.True(t, r.Remove(c))
	})
	assert.Equal(t, 1, r.Len())
}

func TestRelayWithUncomparableConns(t *testing.T) {
	var received []string
	ok := funcConn{id: "ok", send: func(msg []byte) error {
		received = append(received, string(msg))
		return nil
	}}
	broken := funcConn{id: "broken", send: func([]byte) error { return errors.New("gone") }}
	sender := newFakeConn("sender")

	rl := New(NewRegistry(), nil)
	assert.NotPanics(t, func() {
		rl.OnConnect(ok)
		rl.OnConnect(broken)
		rl.OnConnect(sender)

		rl.OnMessage(sender, []byte("offer"))
		rl.OnDisconnect(ok)
	})

	assert.Equal(t, []string{"offer"}, received)
	assert.Equal(t, 1, rl.Registry().Len(), "the failed recipient is evicted and the departed one removed")
	_, stillThere := rl.Registry().Get("sender")
	assert.True(t, stillThere)
}
