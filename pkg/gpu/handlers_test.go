package gpu

import (
	"testing"

	"github.com/aga-project/aga/pkg/engine"
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

func newTestEngine(t *testing.T) (*engine.Engine, *store.GPUStore, *smi.Simulator) {
	t.Helper()
	gpuStore := store.NewGPUStore()
	sim := smi.NewSimulator([]smi.DeviceConfig{{Key: testKey(1), Partitions: 1}})
	e := engine.New()
	e.Register(types.KindGPU, NewHandlers(Deps{Store: gpuStore, Adapter: sim}))
	e.Start()
	t.Cleanup(e.Stop)
	return e, gpuStore, sim
}

func createGPU(t *testing.T, e *engine.Engine, key objkey.Key, handle types.Handle) *types.GPU {
	t.Helper()
	resp := e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: key})
	require.Nil(t, resp.Err)
	g := resp.Obj.(*types.GPU)
	g.Handle = handle
	return g
}

func TestCreateReadRoundTrip(t *testing.T) {
	e, _, sim := newTestEngine(t)
	k := testKey(1)
	g := createGPU(t, e, k, 1)

	spec, err := sim.FillSpec(g.Handle)
	require.NoError(t, err)
	g.Spec = spec

	info, rerr := Read(Deps{Store: store.NewGPUStore(), Adapter: sim}, g)
	require.Nil(t, rerr)
	assert.Equal(t, spec.PowerCap, info.Spec.PowerCap)
	assert.Equal(t, spec.AdminState, info.Spec.AdminState)
}

func TestUpdatePowerCapAtomic(t *testing.T) {
	// S5: power-cap update rejected by adapter leaves cached spec
	// unchanged.
	e, _, _ := newTestEngine(t)
	k := testKey(1)
	g := createGPU(t, e, k, 1)
	g.Spec.PowerCap = 300000

	resp := e.Submit(engine.Request{
		Kind: types.KindGPU, Op: types.OpUpdate, Key: k,
		Params: types.GPUUpdateParams{Spec: types.GPUSpec{PowerCap: 1000}},
	})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.InvalidArg, resp.Err.Status)
	assert.Equal(t, types.CodePowerCapOutOfRange, resp.Err.Code)
	assert.Equal(t, uint32(300000), g.Spec.PowerCap)
}

func TestUpdateOverdriveOutOfRange(t *testing.T) {
	e, _, _ := newTestEngine(t)
	k := testKey(1)
	createGPU(t, e, k, 1)

	resp := e.Submit(engine.Request{
		Kind: types.KindGPU, Op: types.OpUpdate, Key: k,
		Params: types.GPUUpdateParams{Spec: types.GPUSpec{OverdriveLevel: 21}},
	})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.CodeOverdriveOutOfRange, resp.Err.Code)
}

func TestUpdateClockFreqRangeValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	k := testKey(1)
	createGPU(t, e, k, 1)

	tooMany := make([]types.ClockFreqRange, 5)
	resp := e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpUpdate, Key: k,
		Params: types.GPUUpdateParams{Spec: types.GPUSpec{ClockFreqRanges: tooMany}}})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.CodeNumClockFreqRangeExceeded, resp.Err.Code)

	dup := []types.ClockFreqRange{
		{Type: types.ClockTypeSystem, Lo: 100, Hi: 200},
		{Type: types.ClockTypeSystem, Lo: 100, Hi: 200},
	}
	resp = e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpUpdate, Key: k,
		Params: types.GPUUpdateParams{Spec: types.GPUSpec{ClockFreqRanges: dup}}})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.CodeDuplicateClockFreqRange, resp.Err.Code)

	invalid := []types.ClockFreqRange{{Type: types.ClockTypeSystem, Lo: 300, Hi: 200}}
	resp = e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpUpdate, Key: k,
		Params: types.GPUUpdateParams{Spec: types.GPUSpec{ClockFreqRanges: invalid}}})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.CodeClockFreqRangeInvalid, resp.Err.Code)
}

func TestDeleteVetoedByOutstandingWatch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	k := testKey(1)
	g := createGPU(t, e, k, 1)
	g.NumWatch = 1

	resp := e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpDelete, Key: k})
	require.NotNil(t, resp.Err)
	assert.Equal(t, types.InUse, resp.Err.Status)

	g.NumWatch = 0
	resp = e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpDelete, Key: k})
	assert.Nil(t, resp.Err)
}

func TestFillGPUWatchStatsProjectsFields(t *testing.T) {
	g := &types.GPU{Stats: types.WatchFields{GPUClock: 1500, Temperature: 60}}
	attrs, err := FillGPUWatchStats(g, []types.WatchAttrID{types.WatchAttrGPUClock, types.WatchAttrTemperature})
	require.Nil(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, int64(1500), attrs[0].Value)
	assert.Equal(t, int64(60), attrs[1].Value)
}

func TestFillGPUWatchStatsProjectsECCAndXGMIFields(t *testing.T) {
	stats := types.WatchFields{}
	stats.ECC.GFXCorrectable = 3
	stats.ECC.UMCUncorrectable = 7
	stats.XGMI[0].TxRequests = 11
	stats.XGMI[5].TxThroughput = 42
	g := &types.GPU{Stats: stats}

	attrs, err := FillGPUWatchStats(g, []types.WatchAttrID{
		types.WatchAttrECCGFXCorrectable,
		types.WatchAttrECCUMCUncorrectable,
		types.WatchAttrXGMI0ReqTx,
		types.WatchAttrXGMI5Throughput,
	})
	require.Nil(t, err)
	require.Len(t, attrs, 4)
	assert.Equal(t, int64(3), attrs[0].Value)
	assert.Equal(t, int64(7), attrs[1].Value)
	assert.Equal(t, int64(11), attrs[2].Value)
	assert.Equal(t, int64(42), attrs[3].Value)
}

func TestFillGPUWatchStatsFailsWholeCallOnUnknownID(t *testing.T) {
	g := &types.GPU{Stats: types.WatchFields{GPUClock: 1500}}
	attrs, err := FillGPUWatchStats(g, []types.WatchAttrID{types.WatchAttrGPUClock, types.WatchAttrID(9999)})
	require.NotNil(t, err)
	assert.Equal(t, types.ERR, err.Status)
	assert.Nil(t, attrs)
}
