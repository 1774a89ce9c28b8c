package types

import "github.com/aga-project/aga/pkg/objkey"

// GPUCreateParams is the engine.Request.Params payload for
// Kind=GPU/Op=CREATE, issued by the discovery reconciler or a Create
// RPC.
type GPUCreateParams struct {
	ParentKey objkey.Key
}

// GPUUpdateParams is the engine.Request.Params payload for
// Kind=GPU/Op=UPDATE: the caller's desired spec, compared field-by-field
// against the cached spec to compute the change mask (spec §4.4).
type GPUUpdateParams struct {
	Spec GPUSpec
}

// GPUWatchCreateParams is the engine.Request.Params payload for
// Kind=GPUWatch/Op=CREATE.
type GPUWatchCreateParams struct {
	GPUKeys []objkey.Key
	AttrIDs []WatchAttrID
}

// GPUWatchSubscriberDelta is the engine.Request.Params payload for
// Kind=GPUWatch/Op=UPDATE, adjusting the authoritative subscriber
// refcount under engine serialization (spec §4.5 watch-subscriber
// fan-out reaping, and Subscribe/Unsubscribe RPCs).
type GPUWatchSubscriberDelta struct {
	Delta int
}
