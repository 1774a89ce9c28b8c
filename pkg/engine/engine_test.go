package engine

import (
	"testing"
	"time"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore is a minimal in-memory keyed store used to exercise the
// engine's generic CREATE/UPDATE/DELETE algorithm without depending on
// pkg/store or pkg/gpu.
type stubStore struct {
	byKey map[objkey.Key]interface{}
}

func newStubStore() *stubStore { return &stubStore{byKey: make(map[objkey.Key]interface{})} }

func newKey(b byte) objkey.Key {
	var k objkey.Key
	k[0] = b
	return k
}

type stubObj struct {
	Key      objkey.Key
	NumWatch int
}

func stubHandlers(store *stubStore) *Handlers {
	return &Handlers{
		Factory: func(key objkey.Key, params interface{}) (interface{}, *types.Error) {
			return &stubObj{Key: key}, nil
		},
		Create: func(obj interface{}, params interface{}) *types.Error { return nil },
		Update: func(obj interface{}, params interface{}) *types.Error {
			o := obj.(*stubObj)
			if delta, ok := params.(int); ok {
				o.NumWatch += delta
			}
			return nil
		},
		Delete: func(obj interface{}) *types.Error {
			o := obj.(*stubObj)
			if o.NumWatch > 0 {
				return types.NewError(types.InUse, "has watchers")
			}
			return nil
		},
		Insert: func(obj interface{}) *types.Error {
			o := obj.(*stubObj)
			if _, ok := store.byKey[o.Key]; ok {
				return types.NewError(types.EntryExists, "dup")
			}
			store.byKey[o.Key] = o
			return nil
		},
		Remove: func(key objkey.Key) interface{} {
			o, ok := store.byKey[key]
			if !ok {
				return nil
			}
			delete(store.byKey, key)
			return o
		},
		Find: func(key objkey.Key) interface{} {
			o, ok := store.byKey[key]
			if !ok {
				return nil
			}
			return o
		},
	}
}

func newTestEngine() (*Engine, *stubStore) {
	store := newStubStore()
	e := New()
	e.Register(types.KindGPU, stubHandlers(store))
	e.Start()
	return e, store
}

func TestCreateDuplicateFailsEntryExists(t *testing.T) {
	e, _ := newTestEngine()
	defer e.Stop()
	k := newKey(1)

	resp := e.Submit(Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k})
	require.Nil(t, resp.Err)

	resp = e.Submit(Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.EntryExists, resp.Err.Status)
}

func TestDeleteWithOutstandingRefsIsVetoed(t *testing.T) {
	// S2: create GPU, "attach" a watcher (NumWatch=1), delete fails
	// IN_USE, detach, delete succeeds.
	e, _ := newTestEngine()
	defer e.Stop()
	k := newKey(2)

	require.Nil(t, e.Submit(Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k}).Err)
	require.Nil(t, e.Submit(Request{Kind: types.KindGPU, Op: types.OpUpdate, Key: k, Params: 1}).Err)

	resp := e.Submit(Request{Kind: types.KindGPU, Op: types.OpDelete, Key: k})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.InUse, resp.Err.Status)

	require.Nil(t, e.Submit(Request{Kind: types.KindGPU, Op: types.OpUpdate, Key: k, Params: -1}).Err)

	resp = e.Submit(Request{Kind: types.KindGPU, Op: types.OpDelete, Key: k})
	assert.Nil(t, resp.Err)
}

func TestDeleteUnknownKeyFails(t *testing.T) {
	e, _ := newTestEngine()
	defer e.Stop()

	resp := e.Submit(Request{Kind: types.KindGPU, Op: types.OpDelete, Key: newKey(9)})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.EntryNotFound, resp.Err.Status)
}

func TestUnknownKindReturnsErr(t *testing.T) {
	e := New()
	e.Start()
	defer e.Stop()

	resp := e.Submit(Request{Kind: types.KindGPUWatch, Op: types.OpCreate, Key: newKey(1)})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.ERR, resp.Err.Status)
}

func TestDelayedDestroyRunsAfterWindow(t *testing.T) {
	store := newStubStore()
	destroyed := make(chan objkey.Key, 1)
	h := stubHandlers(store)
	h.Destroy = func(obj interface{}) { destroyed <- obj.(*stubObj).Key }

	e := New()
	e.reaper = newReaper(30*time.Millisecond, nil)
	e.Register(types.KindGPU, h)
	e.Start()
	defer e.Stop()

	k := newKey(5)
	require.Nil(t, e.Submit(Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k}).Err)
	require.Nil(t, e.Submit(Request{Kind: types.KindGPU, Op: types.OpDelete, Key: k}).Err)

	resp := e.Submit(Request{Kind: types.KindGPU, Op: types.OpDelete, Key: k})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.EntryNotFound, resp.Err.Status)

	select {
	case got := <-destroyed:
		assert.Equal(t, k, got)
	case <-time.After(2 * time.Second):
		t.Fatal("destroy did not run within timeout")
	}
}
