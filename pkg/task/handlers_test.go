package task

import (
	"testing"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/gpuwatch"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) objkey.Key {
	var k objkey.Key
	k[0] = b
	return k
}

func newTestEngine(t *testing.T) (*engine.Engine, *store.GPUStore, *store.GPUWatchStore) {
	t.Helper()
	gpuStore := store.NewGPUStore()
	watchStore := store.NewGPUWatchStore()
	sim := smi.NewSimulator([]smi.DeviceConfig{{Key: testKey(1), Partitions: 1}})

	e := engine.New()
	e.Register(types.KindGPU, gpu.NewHandlers(gpu.Deps{Store: gpuStore, Adapter: sim}))
	e.Register(types.KindGPUWatch, gpuwatch.NewHandlers(gpuwatch.Deps{WatchStore: watchStore, GPUStore: gpuStore}))
	e.Register(types.KindTask, NewHandlers(Deps{GPUStore: gpuStore, WatchStore: watchStore, Adapter: sim}))
	e.Start()
	t.Cleanup(e.Stop)
	return e, gpuStore, watchStore
}

// S3: watcher updates stats for every GPU each tick.
func TestWatchDBUpdateAppliesAllSamples(t *testing.T) {
	e, gpuStore, _ := newTestEngine(t)
	k0, k1 := testKey(1), testKey(2)
	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k0}).Err)
	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k1}).Err)

	task := &types.Task{
		Kind: types.TaskWatchDBUpdate,
		WatchDBUpdate: &types.WatchDBUpdateParams{
			Samples: []types.GPUWatchSample{
				{GPUKey: k0, Fields: types.WatchFields{GPUClock: 1111}},
				{GPUKey: k1, Fields: types.WatchFields{GPUClock: 2222}},
			},
		},
	}
	resp := e.Submit(engine.Request{Kind: types.KindTask, Op: types.OpCreate, Params: task})
	require.Nil(t, resp.Err)

	assert.Equal(t, uint32(1111), gpuStore.FindByKey(k0).Stats.GPUClock)
	assert.Equal(t, uint32(2222), gpuStore.FindByKey(k1).Stats.GPUClock)
}

func TestWatchSubscriberDelTaskDecrementsRefcount(t *testing.T) {
	e, gpuStore, watchStore := newTestEngine(t)
	_ = gpuStore
	gk := testKey(1)
	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: gk}).Err)
	wk := testKey(2)
	require.Nil(t, e.Submit(engine.Request{
		Kind: types.KindGPUWatch, Op: types.OpCreate, Key: wk,
		Params: types.GPUWatchCreateParams{GPUKeys: []objkey.Key{gk}, AttrIDs: []types.WatchAttrID{types.WatchAttrGPUClock}},
	}).Err)
	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPUWatch, Op: types.OpUpdate, Key: wk, Params: types.GPUWatchSubscriberDelta{Delta: 1}}).Err)

	task := &types.Task{Kind: types.TaskWatchSubscriberDel, WatchSubscriberDel: &types.WatchSubscriberParams{WatchKey: wk}}
	resp := e.Submit(engine.Request{Kind: types.KindTask, Op: types.OpCreate, Params: task})
	require.Nil(t, resp.Err)

	w := watchStore.FindByKey(wk)
	w.Lock()
	defer w.Unlock()
	assert.Equal(t, 0, w.SubscriberCount)
}

func TestGPUResetTask(t *testing.T) {
	e, gpuStore, _ := newTestEngine(t)
	gk := testKey(1)
	resp := e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: gk})
	require.Nil(t, resp.Err)
	g := resp.Obj.(*types.GPU)
	g.Handle = 1
	_ = gpuStore

	task := &types.Task{Kind: types.TaskGPUReset, GPUReset: &types.GPUResetParams{GPUKey: gk}}
	resp = e.Submit(engine.Request{Kind: types.KindTask, Op: types.OpCreate, Params: task})
	assert.Nil(t, resp.Err)
}
