package store

import (
	"testing"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) objkey.Key {
	var k objkey.Key
	k[0] = b
	return k
}

func TestGPUStoreInsertDuplicateFails(t *testing.T) {
	s := NewGPUStore()
	g := &types.GPU{Key: key(1)}
	require.Nil(t, s.Insert(g))

	err := s.Insert(&types.GPU{Key: key(1)})
	require.NotNil(t, err)
	assert.Equal(t, types.EntryExists, err.Status)
}

func TestGPUStoreFindAndRemove(t *testing.T) {
	s := NewGPUStore()
	g := &types.GPU{Key: key(2), Handle: types.Handle(42)}
	require.Nil(t, s.Insert(g))

	assert.Same(t, g, s.FindByKey(key(2)))
	assert.Same(t, g, s.FindByHandle(types.Handle(42)))

	removed := s.Remove(key(2))
	assert.Same(t, g, removed)
	assert.Nil(t, s.FindByKey(key(2)))
	assert.Nil(t, s.FindByHandle(types.Handle(42)))
	assert.Nil(t, s.Remove(key(2)))
}

func TestGPUStoreWalk(t *testing.T) {
	s := NewGPUStore()
	require.Nil(t, s.Insert(&types.GPU{Key: key(1)}))
	require.Nil(t, s.Insert(&types.GPU{Key: key(2)}))
	require.Nil(t, s.Insert(&types.GPU{Key: key(3)}))

	seen := 0
	s.Walk(func(g *types.GPU) bool {
		seen++
		return seen == 2
	})
	assert.Equal(t, 2, seen)
	assert.Equal(t, 3, s.Len())
}

func TestGPUWatchStoreInsertAndRemove(t *testing.T) {
	s := NewGPUWatchStore()
	w := &types.GPUWatch{Key: key(1)}
	require.Nil(t, s.Insert(w))

	err := s.Insert(&types.GPUWatch{Key: key(1)})
	require.NotNil(t, err)
	assert.Equal(t, types.EntryExists, err.Status)

	assert.Same(t, w, s.FindByKey(key(1)))
	assert.Same(t, w, s.Remove(key(1)))
	assert.Nil(t, s.FindByKey(key(1)))
}

func TestCountersSnapshot(t *testing.T) {
	s := NewGPUStore()
	require.Nil(t, s.Insert(&types.GPU{Key: key(1)}))
	require.NotNil(t, s.Insert(&types.GPU{Key: key(1)}))
	s.Remove(key(1))

	snap := s.Counters.Snapshot()
	assert.Equal(t, uint64(1), snap.InsertOK)
	assert.Equal(t, uint64(1), snap.InsertErr)
	assert.Equal(t, uint64(1), snap.RemoveOK)
	assert.Equal(t, int64(0), snap.NumElems)
}
