package subscription

import (
	"testing"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
	"github.com/stretchr/testify/assert"
)

func testWatchKey(b byte) objkey.Key {
	var k objkey.Key
	k[0] = b
	return k
}

// S6: subscribing the same client to the same watch group twice leaves
// the set at size 1.
func TestSubscribeWatchIdempotent(t *testing.T) {
	r := NewRegistry()
	wk := testWatchKey(1)
	c := NewClient("client-a", "tok-1")
	calls := 0
	cb := func(_ []types.GPUWatchGPUSnapshot) types.Status {
		calls++
		return types.OK
	}

	r.SubscribeWatch(wk, c, cb)
	r.SubscribeWatch(wk, c, cb)

	w := r.watchFor(wk)
	assert.Len(t, w.subs, 1)

	r.FanoutWatch(wk, nil)
	assert.Equal(t, 1, calls)
}

// S4: two subscribers to the same event kind, one fails, is reaped and
// its condition variable is signaled exactly once while the healthy
// subscriber keeps receiving events.
func TestEventReapRemovesOnlyFailingSubscriber(t *testing.T) {
	r := NewRegistry()
	handle := types.Handle(1)

	good := NewClient("good", "tok-good")
	bad := NewClient("bad", "tok-bad")

	var goodCount, badCount int
	r.SubscribeEvent(handle, types.EventThermalThrottle, good, func(types.EventRecord) types.Status {
		goodCount++
		return types.OK
	})
	r.SubscribeEvent(handle, types.EventThermalThrottle, bad, func(types.EventRecord) types.Status {
		badCount++
		return types.ERR
	})

	rec := types.EventRecord{Event: types.Event{Kind: types.EventThermalThrottle, Data: "throttle"}}
	r.NotifyEvent(handle, rec)

	assert.Equal(t, 1, goodCount)
	assert.Equal(t, 1, badCount)
	assert.True(t, bad.Inactive())
	assert.False(t, good.Inactive())

	r.ReapInactive()

	ge := r.eventsFor(handle)
	ge.mu.Lock()
	slot := ge.kinds[types.EventThermalThrottle]
	assert.Len(t, slot.subs, 1)
	assert.Equal(t, good, slot.subs[0].client)
	ge.mu.Unlock()

	// A second notification only reaches the surviving subscriber.
	r.NotifyEvent(handle, rec)
	assert.Equal(t, 2, goodCount)
	assert.Equal(t, 1, badCount)
}

func TestReapRemovesInactiveClientFromWatchTable(t *testing.T) {
	r := NewRegistry()
	wk := testWatchKey(2)
	c := NewClient("client-b", "tok-2")
	r.SubscribeWatch(wk, c, func(_ []types.GPUWatchGPUSnapshot) types.Status {
		return types.ERR
	})

	r.FanoutWatch(wk, nil)
	assert.True(t, c.Inactive())

	r.ReapInactive()
	w := r.watchFor(wk)
	w.mu.Lock()
	assert.Len(t, w.subs, 0)
	w.mu.Unlock()
}
