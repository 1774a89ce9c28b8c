package gpuwatch

import (
	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/types"
)

// Deps are the collaborators GPU-watch entity logic needs: its own
// store plus the GPU store, to validate referenced keys and maintain
// each GPU's num_watch back-reference count.
type Deps struct {
	WatchStore *store.GPUWatchStore
	GPUStore   *store.GPUStore
}

// NewHandlers builds the engine.Handlers dispatch entry for
// types.KindGPUWatch.
func NewHandlers(d Deps) *engine.Handlers {
	return &engine.Handlers{
		Factory: func(key objkey.Key, params interface{}) (interface{}, *types.Error) {
			p, ok := params.(types.GPUWatchCreateParams)
			if !ok {
				return nil, types.NewError(types.InvalidArg, "create requires GPUWatchCreateParams")
			}
			return &types.GPUWatch{
				Key:  key,
				Spec: types.GPUWatchSpec{GPUKeys: p.GPUKeys, AttrIDs: p.AttrIDs},
			}, nil
		},
		Create: func(obj interface{}, params interface{}) *types.Error {
			w := obj.(*types.GPUWatch)
			if len(w.Spec.GPUKeys) == 0 {
				return types.NewError(types.InvalidArg, "watch group must reference at least one gpu")
			}
			gpus := make([]*types.GPU, 0, len(w.Spec.GPUKeys))
			for _, gk := range w.Spec.GPUKeys {
				g := d.GPUStore.FindByKey(gk)
				if g == nil {
					return types.NewError(types.EntryNotFound, "referenced gpu does not exist")
				}
				gpus = append(gpus, g)
			}
			for _, g := range gpus {
				g.Lock()
				g.NumWatch++
				g.Unlock()
			}
			return nil
		},
		Update: func(obj interface{}, params interface{}) *types.Error {
			w := obj.(*types.GPUWatch)
			delta, ok := params.(types.GPUWatchSubscriberDelta)
			if !ok {
				return types.NewError(types.InvalidArg, "update requires GPUWatchSubscriberDelta")
			}
			w.Lock()
			defer w.Unlock()
			if w.SubscriberCount+delta.Delta < 0 {
				return types.NewError(types.ERR, "subscriber refcount underflow")
			}
			w.SubscriberCount += delta.Delta
			return nil
		},
		Delete: func(obj interface{}) *types.Error {
			w := obj.(*types.GPUWatch)
			w.Lock()
			count := w.SubscriberCount
			w.Unlock()
			if count > 0 {
				return types.NewError(types.InUse, "watch group has active subscribers")
			}
			for _, gk := range w.Spec.GPUKeys {
				if g := d.GPUStore.FindByKey(gk); g != nil {
					g.Lock()
					if g.NumWatch > 0 {
						g.NumWatch--
					}
					g.Unlock()
				}
			}
			return nil
		},
		Insert: func(obj interface{}) *types.Error {
			return d.WatchStore.Insert(obj.(*types.GPUWatch))
		},
		Remove: func(key objkey.Key) interface{} {
			w := d.WatchStore.Remove(key)
			if w == nil {
				return nil
			}
			return w
		},
		Find: func(key objkey.Key) interface{} {
			w := d.WatchStore.FindByKey(key)
			if w == nil {
				return nil
			}
			return w
		},
	}
}
