package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rosgraph/entity"
)

func TestNotifierDeliversChanges(t *testing.T) {
	cache := NewCache()
	ch, cancel := cache.Notifier().Subscribe()
	defer cancel()

	key := nodeKey(t, "s1", 1, "talker")
	cache.ApplyPut(key)

	select {
	case change := <-ch:
		assert.Equal(t, ChangePut, change.Kind)
		assert.Equal(t, key, change.Key)
		require.NotNil(t, change.Entity)
		assert.Equal(t, entity.KindNode, change.Entity.Kind())
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	cache.ApplyDelete(key)
	select {
	case change := <-ch:
		assert.Equal(t, ChangeDelete, change.Kind)
	case <-time.After(time.Second):
		t.Fatal("no delete delivered")
	}
}

func TestNotifierDropsWhenSubscriberStalls(t *testing.T) {
	cache := NewCache()
	ch, cancel := cache.Notifier().Subscribe()
	defer cancel()

	// Overflow the buffer without draining; ApplyPut must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			cache.ApplyPut(nodeKey(t, "s1", uint64(i+1), "talker"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ApplyPut blocked on a stalled subscriber")
	}

	assert.LessOrEqual(t, len(ch), subscriberBuffer)
}

func TestNotifierCancelAndClose(t *testing.T) {
	n := newNotifier()

	ch, cancel := n.Subscribe()
	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	assert.False(t, open, "cancel must close the channel")

	n.Close()
	ch2, _ := n.Subscribe()
	_, open = <-ch2
	assert.False(t, open, "Subscribe after Close returns a closed channel")
}
