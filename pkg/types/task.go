package types

import (
	"github.com/aga-project/aga/pkg/objkey"
)

// TaskKind identifies which stateless background job a Task carries.
// Tasks are never stored; the engine runs the handler inline and frees
// the Task as soon as CREATE returns (spec §4.7).
type TaskKind int

const (
	TaskGPUReset TaskKind = iota
	TaskWatchDBUpdate
	TaskWatchSubscriberAdd
	TaskWatchSubscriberDel
)

func (k TaskKind) String() string {
	switch k {
	case TaskGPUReset:
		return "GPU_RESET"
	case TaskWatchDBUpdate:
		return "WATCH_DB_UPDATE"
	case TaskWatchSubscriberAdd:
		return "WATCH_SUBSCRIBER_ADD"
	case TaskWatchSubscriberDel:
		return "WATCH_SUBSCRIBER_DEL"
	default:
		return "UNKNOWN"
	}
}

// GPUResetParams carries the target GPU for a TaskGPUReset.
type GPUResetParams struct {
	GPUKey objkey.Key
}

// GPUWatchSample pairs one GPU's key with its freshly sampled
// WatchFields vector.
type GPUWatchSample struct {
	GPUKey objkey.Key
	Fields WatchFields
}

// WatchDBUpdateParams carries the whole tick's sampled vectors, handed
// from the watcher to the engine in one task so every GPU's
// update_stats lands on the single-writer goroutine together (spec
// §4.5 step 4).
type WatchDBUpdateParams struct {
	Samples []GPUWatchSample
}

// WatchSubscriberParams names the watch group whose subscriber refcount
// a watch-subscriber-add/del task raises or lowers by one. The task
// handlers do not read ClientID and do not touch the subscription
// registry.
type WatchSubscriberParams struct {
	WatchKey objkey.Key
	ClientID string
}

// Task is the uniform envelope the engine dispatches for stateless
// background work. Exactly one of the Params fields is populated,
// selected by Kind.
type Task struct {
	Kind TaskKind

	GPUReset          *GPUResetParams
	WatchDBUpdate     *WatchDBUpdateParams
	WatchSubscriberAdd *WatchSubscriberParams
	WatchSubscriberDel *WatchSubscriberParams
}
