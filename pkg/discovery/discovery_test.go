package discovery

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

func newTestEngine(t *testing.T, sim *smi.Simulator) (*engine.Engine, *store.GPUStore) {
	t.Helper()
	gpuStore := store.NewGPUStore()
	watchStore := store.NewGPUWatchStore()
	e := engine.New()
	e.Register(types.KindGPU, gpu.NewHandlers(gpu.Deps{Store: gpuStore, Adapter: sim}))
	e.Register(types.KindGPUWatch, gpuwatch.NewHandlers(gpuwatch.Deps{WatchStore: watchStore, GPUStore: gpuStore}))
	e.Start()
	t.Cleanup(e.Stop)
	return e, gpuStore
}

// S1: one unpartitioned physical GPU plus one physical GPU split into
// three partitions yields one physical object and one parent object
// with three children keyed by parent-key-with-partition-bytes.
func TestDiscoveryCreatesParentsAndChildren(t *testing.T) {
	k0 := testKey(0x10)
	k1 := testKey(0x20)
	sim := smi.NewSimulator([]smi.DeviceConfig{
		{Key: k0, Partitions: 1},
		{Key: k1, Partitions: 3},
	})
	e, gpuStore := newTestEngine(t, sim)

	err := Run(Deps{Adapter: sim, Store: gpuStore, Engine: e})
	require.NoError(t, err)

	// 1 physical + 1 parent + 3 children == 5 objects.
	assert.Equal(t, 5, gpuStore.Len())

	phys := gpuStore.FindByKey(k0)
	require.NotNil(t, phys)
	assert.False(t, phys.IsParent())
	assert.False(t, phys.IsChild())
	assert.Equal(t, types.InvalidPartitionID, int(phys.PartitionID))

	parent := gpuStore.FindByKey(k1)
	require.NotNil(t, parent)
	assert.True(t, parent.IsParent())
	assert.Len(t, parent.ChildKeys, 3)

	for i, childKey := range parent.ChildKeys {
		child := gpuStore.FindByKey(childKey)
		require.NotNil(t, child)
		assert.True(t, child.IsChild())
		assert.Equal(t, k1, child.ParentKey)
		assert.Equal(t, uint32(i), child.PartitionID)
		assert.Equal(t, uint32(i), childKey.PartitionID())
		assert.Equal(t, k1, childKey.ParentOf())
	}
}

func TestDiscoverySkipsPerGPUFailureAndContinues(t *testing.T) {
	k0 := testKey(0x30)
	sim := smi.NewSimulator([]smi.DeviceConfig{{Key: k0, Partitions: 1}})
	e, gpuStore := newTestEngine(t, sim)

	// Pre-create the physical key so discovery's CREATE collides and is
	// logged+skipped rather than aborting the whole run.
	require.Nil(t, e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: k0}).Err)

	err := Run(Deps{Adapter: sim, Store: gpuStore, Engine: e})
	require.NoError(t, err)
	assert.Equal(t, 1, gpuStore.Len())
}
