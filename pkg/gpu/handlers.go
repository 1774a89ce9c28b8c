package gpu

import (
	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/types"
)

// Deps are the collaborators the GPU entity logic needs: the object
// store it reads/writes and the SMI adapter it forwards hardware calls
// to.
type Deps struct {
	Store   *store.GPUStore
	Adapter smi.Adapter
}

// NewHandlers builds the engine.Handlers dispatch entry for
// types.KindGPU.
func NewHandlers(d Deps) *engine.Handlers {
	return &engine.Handlers{
		Factory: func(key objkey.Key, params interface{}) (interface{}, *types.Error) {
			p, _ := params.(types.GPUCreateParams)
			return &types.GPU{
				Key:         key,
				ParentKey:   p.ParentKey,
				PartitionID: types.InvalidPartitionID,
			}, nil
		},
		Create: func(obj interface{}, params interface{}) *types.Error {
			// create_handler(spec): record key and parent-key; both
			// are already set by Factory, so there is nothing further
			// to validate (spec §4.4).
			return nil
		},
		Update: func(obj interface{}, params interface{}) *types.Error {
			g := obj.(*types.GPU)
			p, ok := params.(types.GPUUpdateParams)
			if !ok {
				return types.NewError(types.InvalidArg, "update requires GPUUpdateParams")
			}
			g.Lock()
			defer g.Unlock()
			return applyUpdate(d, g, p.Spec)
		},
		Delete: func(obj interface{}) *types.Error {
			g := obj.(*types.GPU)
			g.Lock()
			defer g.Unlock()
			if g.NumWatch > 0 {
				return types.NewError(types.InUse, "gpu has outstanding watch groups")
			}
			return nil
		},
		Insert: func(obj interface{}) *types.Error {
			return d.Store.Insert(obj.(*types.GPU))
		},
		Remove: func(key objkey.Key) interface{} {
			g := d.Store.Remove(key)
			if g == nil {
				return nil
			}
			return g
		},
		Find: func(key objkey.Key) interface{} {
			g := d.Store.FindByKey(key)
			if g == nil {
				return nil
			}
			return g
		},
	}
}
