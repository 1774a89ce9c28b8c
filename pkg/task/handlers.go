package task

import (
	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/types"
)

// Deps are the collaborators task handlers need. Note there is no
// engine reference here: task handlers run ON the engine goroutine, so
// they mutate the GPU/GPU-watch stores directly rather than recursively
// calling Engine.Submit (which would deadlock the single-writer loop).
type Deps struct {
	GPUStore   *store.GPUStore
	WatchStore *store.GPUWatchStore
	Adapter    smi.Adapter
}

// NewHandlers builds the engine.Handlers dispatch entry for
// types.KindTask. Stateless is always true.
func NewHandlers(d Deps) *engine.Handlers {
	return &engine.Handlers{
		Stateless: true,
		Factory: func(_ objkey.Key, params interface{}) (interface{}, *types.Error) {
			t, ok := params.(*types.Task)
			if !ok {
				return nil, types.NewError(types.InvalidArg, "create requires *types.Task params")
			}
			return t, nil
		},
		Create: func(obj interface{}, _ interface{}) *types.Error {
			t := obj.(*types.Task)
			switch t.Kind {
			case types.TaskGPUReset:
				return d.runGPUReset(t)
			case types.TaskWatchDBUpdate:
				return d.runWatchDBUpdate(t)
			case types.TaskWatchSubscriberAdd:
				return d.runSubscriberDelta(t.WatchSubscriberAdd.WatchKey, 1)
			case types.TaskWatchSubscriberDel:
				return d.runSubscriberDelta(t.WatchSubscriberDel.WatchKey, -1)
			default:
				return types.NewError(types.InvalidOp, "unrecognized task kind")
			}
		},
	}
}

func (d Deps) runGPUReset(t *types.Task) *types.Error {
	if t.GPUReset == nil {
		return types.NewError(types.InvalidArg, "missing gpu-reset params")
	}
	g := d.GPUStore.FindByKey(t.GPUReset.GPUKey)
	if g == nil {
		return types.NewError(types.EntryNotFound, "gpu not found")
	}
	g.Lock()
	handle := g.Handle
	g.Unlock()
	return d.Adapter.Reset(handle)
}

func (d Deps) runWatchDBUpdate(t *types.Task) *types.Error {
	if t.WatchDBUpdate == nil {
		return types.NewError(types.InvalidArg, "missing watch-db-update params")
	}
	for _, sample := range t.WatchDBUpdate.Samples {
		g := d.GPUStore.FindByKey(sample.GPUKey)
		if g == nil {
			log.Logger.Warn().Str("gpu_key", sample.GPUKey.String()).Msg("watch-db-update: unknown gpu key")
			continue
		}
		gpu.UpdateStats(g, sample.Fields)
	}
	return nil
}

func (d Deps) runSubscriberDelta(watchKey objkey.Key, delta int) *types.Error {
	w := d.WatchStore.FindByKey(watchKey)
	if w == nil {
		return types.NewError(types.EntryNotFound, "watch group not found")
	}
	w.Lock()
	defer w.Unlock()
	if w.SubscriberCount+delta < 0 {
		w.SubscriberCount = 0
		return nil
	}
	w.SubscriberCount += delta
	return nil
}
