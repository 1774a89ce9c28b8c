package engine

import (
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// Handlers is the per-kind dispatch entry the engine looks up by
// types.Kind. It replaces the source's virtual-dispatch object
// hierarchy with a tagged-variant-plus-function-table shape (spec §9).
type Handlers struct {
	// Stateless marks kinds (currently only Task) that are never
	// inserted into a store: CREATE runs Factory+Create and returns
	// the transient result without calling Insert.
	Stateless bool

	// Factory constructs the new object for key from params. It must
	// not register the object anywhere; CREATE calls Insert separately
	// on success.
	Factory func(key objkey.Key, params interface{}) (obj interface{}, err *types.Error)

	// Create is the kind's create-handler, invoked against the freshly
	// factory-built object.
	Create func(obj interface{}, params interface{}) *types.Error

	// Update is the kind's update-handler, invoked against the object
	// found by key.
	Update func(obj interface{}, params interface{}) *types.Error

	// Delete is the kind's delete-handler. Returning a non-nil error
	// vetoes the deletion (e.g. IN_USE); the object is left in place.
	Delete func(obj interface{}) *types.Error

	// Insert registers obj in the kind's store, failing ENTRY_EXISTS on
	// a duplicate key.
	Insert func(obj interface{}) *types.Error

	// Remove deletes the object with the given key from the kind's
	// store and returns it, or nil if absent.
	Remove func(key objkey.Key) interface{}

	// Find looks the object with the given key up in the kind's store,
	// or returns nil.
	Find func(key objkey.Key) interface{}

	// Destroy runs on the reaper goroutine after the delayed-destroy
	// window elapses. May be nil if the kind needs no teardown.
	Destroy func(obj interface{})
}
