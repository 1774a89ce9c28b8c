package subscription

import (
	"sync"

	"github.com/aga-project/aga/pkg/metrics"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// EventCallback delivers one normalized event record to a subscriber. A
// non-OK return marks the subscriber inactive.
type EventCallback func(rec types.EventRecord) types.Status

// WatchCallback delivers one watch-group snapshot to a subscriber. A
// non-OK return marks the subscriber inactive.
type WatchCallback func(snapshot []types.GPUWatchGPUSnapshot) types.Status

type eventSub struct {
	client *Client
	cb     EventCallback
}

type kindSlot struct {
	timestampUnixNano int64
	message           string
	subs              []eventSub
}

type gpuEvents struct {
	mu    sync.Mutex
	kinds map[types.EventKind]*kindSlot
}

type watchSub struct {
	client *Client
	cb     WatchCallback
}

type watchEntry struct {
	mu   sync.Mutex
	subs []watchSub
}

// Registry is the two-table subscriber store (spec §4.7).
type Registry struct {
	eventMu sync.RWMutex
	eventDB map[types.Handle]*gpuEvents

	watchMu sync.RWMutex
	watchDB map[objkey.Key]*watchEntry
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		eventDB: make(map[types.Handle]*gpuEvents),
		watchDB: make(map[objkey.Key]*watchEntry),
	}
}

func (r *Registry) eventsFor(handle types.Handle) *gpuEvents {
	r.eventMu.RLock()
	ge, ok := r.eventDB[handle]
	r.eventMu.RUnlock()
	if ok {
		return ge
	}
	r.eventMu.Lock()
	defer r.eventMu.Unlock()
	if ge, ok := r.eventDB[handle]; ok {
		return ge
	}
	ge = &gpuEvents{kinds: make(map[types.EventKind]*kindSlot)}
	r.eventDB[handle] = ge
	return ge
}

func (r *Registry) watchFor(key objkey.Key) *watchEntry {
	r.watchMu.RLock()
	w, ok := r.watchDB[key]
	r.watchMu.RUnlock()
	if ok {
		return w
	}
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if w, ok := r.watchDB[key]; ok {
		return w
	}
	w = &watchEntry{}
	r.watchDB[key] = w
	return w
}

// SubscribeEvent registers client for (handle, kind). Duplicate
// subscribes for the same client are idempotent.
func (r *Registry) SubscribeEvent(handle types.Handle, kind types.EventKind, client *Client, cb EventCallback) {
	ge := r.eventsFor(handle)
	ge.mu.Lock()
	defer ge.mu.Unlock()
	slot, ok := ge.kinds[kind]
	if !ok {
		slot = &kindSlot{}
		ge.kinds[kind] = slot
	}
	for _, s := range slot.subs {
		if s.client == client {
			return
		}
	}
	slot.subs = append(slot.subs, eventSub{client: client, cb: cb})
}

// SubscribeWatch registers client against watchKey and reports whether
// this added a new entry. Subscribing the same client twice leaves the
// set unchanged (spec §4.5 "duplicate subscribes are idempotent") and
// reports added == false.
func (r *Registry) SubscribeWatch(watchKey objkey.Key, client *Client, cb WatchCallback) (added bool) {
	w := r.watchFor(watchKey)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.subs {
		if s.client == client {
			return false
		}
	}
	w.subs = append(w.subs, watchSub{client: client, cb: cb})
	metrics.WatchSubscribersTotal.Inc()
	return true
}

// NotifyEvent updates event_db[handle].kinds[kind] with rec and invokes
// every subscriber's callback under the GPU's lock. Failing
// subscribers are marked inactive but not yet removed from the set;
// Reap performs the cross-table cleanup outside this lock.
func (r *Registry) NotifyEvent(handle types.Handle, rec types.EventRecord) {
	ge := r.eventsFor(handle)
	ge.mu.Lock()
	defer ge.mu.Unlock()
	slot, ok := ge.kinds[rec.Event.Kind]
	if !ok {
		slot = &kindSlot{}
		ge.kinds[rec.Event.Kind] = slot
	}
	slot.timestampUnixNano = rec.TimestampUnixNano
	slot.message = rec.Event.Data

	for _, s := range slot.subs {
		if s.client.Inactive() {
			continue
		}
		if status := s.cb(rec); status != types.OK {
			s.client.MarkInactive()
		}
	}
	metrics.EventsTotal.WithLabelValues(rec.Event.Kind.String()).Inc()
}

// FanoutWatch invokes every subscriber of watchKey with snapshot.
// Failing subscribers are marked inactive but not yet removed.
func (r *Registry) FanoutWatch(watchKey objkey.Key, snapshot []types.GPUWatchGPUSnapshot) {
	w := r.watchFor(watchKey)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.subs {
		if s.client.Inactive() {
			continue
		}
		if status := s.cb(snapshot); status != types.OK {
			s.client.MarkInactive()
		}
	}
}

// ReadEvents performs the snapshot traversal event_read describes: for
// every GPU, under its lock, invoke cb once per (handle, kind, slot).
func (r *Registry) ReadEvents(cb func(handle types.Handle, kind types.EventKind, timestampUnixNano int64, message string)) {
	r.eventMu.RLock()
	handles := make([]types.Handle, 0, len(r.eventDB))
	for h := range r.eventDB {
		handles = append(handles, h)
	}
	r.eventMu.RUnlock()

	for _, h := range handles {
		ge := r.eventsFor(h)
		ge.mu.Lock()
		for kind, slot := range ge.kinds {
			cb(h, kind, slot.timestampUnixNano, slot.message)
		}
		ge.mu.Unlock()
	}
}

// ReapInactive removes every inactive client from every set across
// both tables and signals its condition variable. Safe to call
// periodically; a client that was never marked inactive is untouched.
func (r *Registry) ReapInactive() {
	inactive := make(map[*Client]bool)

	r.eventMu.RLock()
	eventEntries := make([]*gpuEvents, 0, len(r.eventDB))
	for _, ge := range r.eventDB {
		eventEntries = append(eventEntries, ge)
	}
	r.eventMu.RUnlock()

	for _, ge := range eventEntries {
		ge.mu.Lock()
		for _, slot := range ge.kinds {
			kept := slot.subs[:0]
			for _, s := range slot.subs {
				if s.client.Inactive() {
					inactive[s.client] = true
					continue
				}
				kept = append(kept, s)
			}
			slot.subs = kept
		}
		ge.mu.Unlock()
	}

	r.watchMu.RLock()
	watchEntries := make([]*watchEntry, 0, len(r.watchDB))
	for _, w := range r.watchDB {
		watchEntries = append(watchEntries, w)
	}
	r.watchMu.RUnlock()

	for _, w := range watchEntries {
		w.mu.Lock()
		kept := w.subs[:0]
		for _, s := range w.subs {
			if s.client.Inactive() {
				inactive[s.client] = true
				continue
			}
			kept = append(kept, s)
		}
		w.subs = kept
		w.mu.Unlock()
	}

	for c := range inactive {
		c.MarkInactive()
		metrics.SubscribersReapedTotal.Inc()
	}
}

// RemovedWatchSub names one (watch-id, subscriber) pair a watch-table
// reap removed, so the caller can post the matching
// watch-subscriber-del task (spec §4.5).
type RemovedWatchSub struct {
	WatchKey objkey.Key
	Client   *Client
}

// ReapInactiveWatchGroups removes every inactive client from watch_db
// only, signals each removed client's condition variable, and reports
// every (watch-id, client) pair it removed.
func (r *Registry) ReapInactiveWatchGroups() []RemovedWatchSub {
	r.watchMu.RLock()
	entries := make(map[objkey.Key]*watchEntry, len(r.watchDB))
	for k, w := range r.watchDB {
		entries[k] = w
	}
	r.watchMu.RUnlock()

	var removed []RemovedWatchSub
	for key, w := range entries {
		w.mu.Lock()
		kept := w.subs[:0]
		for _, s := range w.subs {
			if s.client.Inactive() {
				removed = append(removed, RemovedWatchSub{WatchKey: key, Client: s.client})
				continue
			}
			kept = append(kept, s)
		}
		w.subs = kept
		w.mu.Unlock()
	}

	for _, rm := range removed {
		rm.Client.MarkInactive()
		metrics.SubscribersReapedTotal.Inc()
		metrics.WatchSubscribersTotal.Dec()
	}
	return removed
}
