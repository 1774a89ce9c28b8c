package gpuwatch

import (
	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// Snapshot reads w's spec and projects the requested attributes out of
// every referenced GPU's cached watch-vector — the payload the watcher
// fans out to subscribers every N ticks (spec §4.5).
func Snapshot(gpuDeps gpu.Deps, w *types.GPUWatch) []types.GPUWatchGPUSnapshot {
	w.Lock()
	gpuKeys := append([]objkey.Key(nil), w.Spec.GPUKeys...)
	attrIDs := append([]types.WatchAttrID(nil), w.Spec.AttrIDs...)
	w.Unlock()

	out := make([]types.GPUWatchGPUSnapshot, 0, len(gpuKeys))
	for _, gk := range gpuKeys {
		g := gpuDeps.Store.FindByKey(gk)
		if g == nil {
			continue
		}
		attrs, err := gpu.FillGPUWatchStats(g, attrIDs)
		if err != nil {
			continue
		}
		out = append(out, types.GPUWatchGPUSnapshot{GPUKey: gk, Attrs: attrs})
	}
	return out
}
