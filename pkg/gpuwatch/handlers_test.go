package gpuwatch

import (
	"testing"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/gpu"
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
	sim := smi.NewSimulator(nil)

	e := engine.New()
	e.Register(types.KindGPU, gpu.NewHandlers(gpu.Deps{Store: gpuStore, Adapter: sim}))
	e.Register(types.KindGPUWatch, NewHandlers(Deps{WatchStore: watchStore, GPUStore: gpuStore}))
	e.Start()
	t.Cleanup(e.Stop)
	return e, gpuStore, watchStore
}

// S2: create GPU, create watch referencing it, delete GPU fails IN_USE,
// delete watch, then delete GPU succeeds.
func TestDeleteGPUWithOutstandingWatch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	gk := testKey(1)
	wk := testKey(2)

	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: gk}).Err)
	require.Nil(t, e.Submit(engine.Request{
		Kind: types.KindGPUWatch, Op: types.OpCreate, Key: wk,
		Params: types.GPUWatchCreateParams{GPUKeys: []objkey.Key{gk}, AttrIDs: []types.WatchAttrID{types.WatchAttrGPUClock}},
	}).Err)

	resp := e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpDelete, Key: gk})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.InUse, resp.Err.Status)

	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPUWatch, Op: types.OpDelete, Key: wk}).Err)

	resp = e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpDelete, Key: gk})
	assert.Nil(t, resp.Err)
}

func TestCreateWatchUnknownGPUFails(t *testing.T) {
	e, _, _ := newTestEngine(t)
	resp := e.Submit(engine.Request{
		Kind: types.KindGPUWatch, Op: types.OpCreate, Key: testKey(1),
		Params: types.GPUWatchCreateParams{GPUKeys: []objkey.Key{testKey(99)}, AttrIDs: []types.WatchAttrID{types.WatchAttrGPUClock}},
	})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.EntryNotFound, resp.Err.Status)
}

// A watch group whose subscriber refcount is positive after one
// Update(+1) refuses Delete with IN_USE (idempotent *subscribe* is a
// subscription registry concern, covered in pkg/subscription).
func TestSubscriberRefcountVetoesDelete(t *testing.T) {
	e, _, _ := newTestEngine(t)
	gk := testKey(2)
	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: gk}).Err)
	wk2 := testKey(3)
	require.Nil(t, e.Submit(engine.Request{
		Kind: types.KindGPUWatch, Op: types.OpCreate, Key: wk2,
		Params: types.GPUWatchCreateParams{GPUKeys: []objkey.Key{gk}, AttrIDs: []types.WatchAttrID{types.WatchAttrGPUClock}},
	}).Err)

	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPUWatch, Op: types.OpUpdate, Key: wk2, Params: types.GPUWatchSubscriberDelta{Delta: 1}}).Err)

	resp := e.Submit(engine.Request{Kind: types.KindGPUWatch, Op: types.OpDelete, Key: wk2})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.InUse, resp.Err.Status)
}
