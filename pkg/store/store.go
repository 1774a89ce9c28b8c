package store

import (
	"sync"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// GPUStore holds every discovered/created GPU, indexed by key and by
// adapter handle (spec §4.1). The map structures are guarded by a
// RWMutex for concurrent-access safety; the "lock-free handle-db walk"
// named in spec §4.1 refers to the per-GPU contract (Walk callbacks may
// read only immutable fields of the *types.GPU they're handed, never
// mutate them) — the map lookup itself is always synchronized.
type GPUStore struct {
	mu       sync.RWMutex
	byKey    map[objkey.Key]*types.GPU
	byHandle map[types.Handle]*types.GPU

	Counters Counters
}

// NewGPUStore returns an empty GPU store.
func NewGPUStore() *GPUStore {
	return &GPUStore{
		byKey:    make(map[objkey.Key]*types.GPU),
		byHandle: make(map[types.Handle]*types.GPU),
	}
}

// Insert adds g, failing ENTRY_EXISTS if its key is already present.
func (s *GPUStore) Insert(g *types.GPU) *types.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[g.Key]; ok {
		s.Counters.insertErr()
		return types.NewError(types.EntryExists, "gpu key already present")
	}
	s.byKey[g.Key] = g
	if g.Handle != types.InvalidHandle {
		s.byHandle[g.Handle] = g
	}
	s.Counters.insertOK()
	return nil
}

// IndexHandle adds g to the by-handle index after its handle is
// assigned post-insert (discovery assigns handle after CREATE returns).
func (s *GPUStore) IndexHandle(g *types.GPU) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHandle[g.Handle] = g
}

// Remove deletes the GPU with the given key and returns it, or nil if
// absent.
func (s *GPUStore) Remove(key objkey.Key) *types.GPU {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byKey[key]
	if !ok {
		s.Counters.removeErr()
		return nil
	}
	delete(s.byKey, key)
	delete(s.byHandle, g.Handle)
	s.Counters.removeOK()
	return g
}

// FindByKey returns the GPU with the given key, or nil.
func (s *GPUStore) FindByKey(key objkey.Key) *types.GPU {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[key]
}

// FindByHandle returns the GPU with the given handle, or nil.
func (s *GPUStore) FindByHandle(h types.Handle) *types.GPU {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byHandle[h]
}

// Walk invokes cb once per GPU in an unspecified order, stopping early
// if cb returns true. Callbacks must treat the *types.GPU as read-only
// over everything but its immutable identity fields.
func (s *GPUStore) Walk(cb func(*types.GPU) bool) {
	s.mu.RLock()
	gpus := make([]*types.GPU, 0, len(s.byKey))
	for _, g := range s.byKey {
		gpus = append(gpus, g)
	}
	s.mu.RUnlock()
	for _, g := range gpus {
		if cb(g) {
			return
		}
	}
}

// Len returns the number of GPUs currently stored.
func (s *GPUStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// GPUWatchStore holds every watch group, keyed by ObjectKey. Per spec
// §4.1 it is accessed by both the engine and the watcher's fan-out
// goroutine, so every operation takes the mutex.
type GPUWatchStore struct {
	mu    sync.RWMutex
	byKey map[objkey.Key]*types.GPUWatch

	Counters Counters
}

// NewGPUWatchStore returns an empty GPU-watch store.
func NewGPUWatchStore() *GPUWatchStore {
	return &GPUWatchStore{byKey: make(map[objkey.Key]*types.GPUWatch)}
}

// Insert adds w, failing ENTRY_EXISTS if its key is already present.
func (s *GPUWatchStore) Insert(w *types.GPUWatch) *types.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[w.Key]; ok {
		s.Counters.insertErr()
		return types.NewError(types.EntryExists, "gpu-watch key already present")
	}
	s.byKey[w.Key] = w
	s.Counters.insertOK()
	return nil
}

// Remove deletes the GPU-watch with the given key and returns it, or
// nil if absent.
func (s *GPUWatchStore) Remove(key objkey.Key) *types.GPUWatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byKey[key]
	if !ok {
		s.Counters.removeErr()
		return nil
	}
	delete(s.byKey, key)
	s.Counters.removeOK()
	return w
}

// FindByKey returns the GPU-watch with the given key, or nil.
func (s *GPUWatchStore) FindByKey(key objkey.Key) *types.GPUWatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[key]
}

// Walk invokes cb once per GPU-watch, stopping early if cb returns
// true.
func (s *GPUWatchStore) Walk(cb func(*types.GPUWatch) bool) {
	s.mu.RLock()
	watches := make([]*types.GPUWatch, 0, len(s.byKey))
	for _, w := range s.byKey {
		watches = append(watches, w)
	}
	s.mu.RUnlock()
	for _, w := range watches {
		if cb(w) {
			return
		}
	}
}

// Len returns the number of GPU-watches currently stored.
func (s *GPUWatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}
