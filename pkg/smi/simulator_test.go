package smi

import (
	"testing"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) objkey.Key {
	var k objkey.Key
	k[0] = b
	return k
}

func TestSimulatorDiscoverPartitioning(t *testing.T) {
	k0, k1 := testKey(0), testKey(1)
	sim := NewSimulator([]DeviceConfig{
		{Key: k0, Partitions: 1},
		{Key: k1, Partitions: 3},
	})

	devs, err := sim.Discover()
	require.NoError(t, err)
	require.Len(t, devs, 4)
	assert.Equal(t, k0, devs[0].Key)
	assert.Equal(t, k1, devs[1].Key)
	assert.Equal(t, k1, devs[2].Key)
	assert.Equal(t, k1, devs[3].Key)

	pid0, err := sim.GetPartitionID(devs[1].Handle)
	require.NoError(t, err)
	pid1, err := sim.GetPartitionID(devs[2].Handle)
	require.NoError(t, err)
	pid2, err := sim.GetPartitionID(devs[3].Handle)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{0, 1, 2}, []uint32{pid0, pid1, pid2})
}

func TestSimulatorUpdatePowerCapOutOfRange(t *testing.T) {
	sim := NewSimulator([]DeviceConfig{{Key: testKey(0), Partitions: 1}})
	devs, _ := sim.Discover()
	h := devs[0].Handle

	err := sim.Update(h, types.GPUSpec{PowerCap: 1000}, types.UpdPowerCap)
	require.NotNil(t, err)
	assert.Equal(t, types.InvalidArg, err.Status)
	assert.Equal(t, types.CodePowerCapOutOfRange, err.Code)

	spec, ferr := sim.FillSpec(h)
	require.NoError(t, ferr)
	assert.Equal(t, uint32(250000), spec.PowerCap)
}

func TestSimulatorOverdriveForcesManualPerfLevel(t *testing.T) {
	sim := NewSimulator([]DeviceConfig{{Key: testKey(0), Partitions: 1}})
	devs, _ := sim.Discover()
	h := devs[0].Handle

	err := sim.Update(h, types.GPUSpec{OverdriveLevel: 10}, types.UpdOverdriveLevel)
	require.Nil(t, err)

	spec, ferr := sim.FillSpec(h)
	require.NoError(t, ferr)
	assert.Equal(t, uint32(10), spec.OverdriveLevel)
	assert.Equal(t, types.PerfLevelManual, spec.PerfLevel)
}

func TestSimulatorGenerateAndPollEvents(t *testing.T) {
	sim := NewSimulator([]DeviceConfig{{Key: testKey(0), Partitions: 1}})
	devs, _ := sim.Discover()
	h := devs[0].Handle
	require.NoError(t, sim.InitEvents(h, DefaultEventMask))

	require.NoError(t, sim.GenerateEvents([]EventTarget{{GPUKeyHandle: h, Kind: types.EventThermalThrottle}}))

	events, err := sim.PollEvents(16)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventThermalThrottle, events[0].Kind)
	assert.Equal(t, devs[0].Key, events[0].GPUKey)

	events, err = sim.PollEvents(16)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSimulatorBadPagesEmptyUntilSeeded(t *testing.T) {
	sim := NewSimulator([]DeviceConfig{{Key: testKey(0), Partitions: 1}})
	devs, _ := sim.Discover()
	h := devs[0].Handle

	pages, err := sim.BadPages(h)
	require.NoError(t, err)
	assert.Empty(t, pages)

	seeded := []BadPageRecord{
		{Address: 0x1000, Size: 4096, RetiredReason: "multiple_uncorrectable"},
		{Address: 0x2000, Size: 4096, RetiredReason: "multiple_uncorrectable"},
	}
	sim.SeedBadPages(h, seeded)

	pages, err = sim.BadPages(h)
	require.NoError(t, err)
	assert.Equal(t, seeded, pages)

	_, err = sim.BadPages(types.Handle(9999))
	assert.Error(t, err)
}
