package types

import (
	"sync"

	"github.com/aga-project/aga/pkg/objkey"
)

// GPUWatchSpec describes what a watch group wants sampled: 1..N GPUs
// and 1..M attribute ids to project out of each (spec §3).
type GPUWatchSpec struct {
	GPUKeys []objkey.Key
	AttrIDs []WatchAttrID
}

// Clone returns a deep copy of the spec.
func (s GPUWatchSpec) Clone() GPUWatchSpec {
	return GPUWatchSpec{
		GPUKeys: append([]objkey.Key(nil), s.GPUKeys...),
		AttrIDs: append([]WatchAttrID(nil), s.AttrIDs...),
	}
}

// GPUWatchGPUSnapshot is one GPU's attribute projection as of the last
// watcher fan-out tick.
type GPUWatchGPUSnapshot struct {
	GPUKey objkey.Key
	Attrs  []WatchAttr
}

// GPUWatch is the runtime object held by the store for one named watch
// group (spec §3, §4.5). SubscriberCount is the authoritative refcount
// the engine maintains; it must be positive for the watch to be
// un-deletable.
type GPUWatch struct {
	mu sync.Mutex

	Key             objkey.Key
	Spec            GPUWatchSpec
	SubscriberCount int

	// Last fan-out snapshot, one entry per Spec.GPUKeys, in order.
	LastSnapshot []GPUWatchGPUSnapshot
}

func (w *GPUWatch) Lock()   { w.mu.Lock() }
func (w *GPUWatch) Unlock() { w.mu.Unlock() }
