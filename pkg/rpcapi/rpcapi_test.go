package rpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/eventmon"
	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/gpuwatch"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/task"
	"github.com/aga-project/aga/pkg/types"
	"github.com/aga-project/aga/pkg/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func testKey(b byte) objkey.Key {
	var k objkey.Key
	k[0] = b
	return k
}

func newTestServer(t *testing.T) (*Server, *engine.Engine, *store.GPUStore, objkey.Key) {
	t.Helper()
	gk := testKey(1)
	sim := smi.NewSimulator([]smi.DeviceConfig{{Key: gk, Partitions: 1}})
	gpuStore := store.NewGPUStore()
	watchStore := store.NewGPUWatchStore()

	e := engine.New()
	e.Register(types.KindGPU, gpu.NewHandlers(gpu.Deps{Store: gpuStore, Adapter: sim}))
	e.Register(types.KindGPUWatch, gpuwatch.NewHandlers(gpuwatch.Deps{WatchStore: watchStore, GPUStore: gpuStore}))
	e.Register(types.KindTask, task.NewHandlers(task.Deps{GPUStore: gpuStore, WatchStore: watchStore, Adapter: sim}))
	e.Start()
	t.Cleanup(e.Stop)

	resp := e.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpCreate, Key: gk})
	require.Nil(t, resp.Err)
	g := resp.Obj.(*types.GPU)
	g.Handle = 1
	gpuStore.IndexHandle(g)

	reg := subscription.NewRegistry()
	w := watcher.New(sim, gpuStore, watchStore, e, reg)
	w.StartupDelay = 0
	w.TickInterval = time.Hour
	w.InitCounters()
	t.Cleanup(w.Stop)

	mon := eventmon.New(sim, gpuStore, reg)
	mon.StartupDelay = 0
	mon.TickInterval = time.Hour
	mon.Init()
	t.Cleanup(mon.Stop)

	srv := NewServer(Deps{
		GPUStore: gpuStore, WatchStore: watchStore, Engine: e, Adapter: sim,
		Watcher: w, EventMon: mon, Registry: reg,
	})
	return srv, e, gpuStore, gk
}

func TestGPUCreateReadRoundTrip(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ctx := context.Background()

	newKey := testKey(2)
	createResp, err := srv.GPUCreate(ctx, &GPUCreateRequest{Key: keyString(newKey)})
	require.NoError(t, err)
	assert.Equal(t, keyString(newKey), createResp.Info.Key)

	readResp, err := srv.GPURead(ctx, &GPUReadRequest{Key: keyString(newKey)})
	require.NoError(t, err)
	assert.Equal(t, keyString(newKey), readResp.Info.Key)
}

func TestGPUCreateDuplicateFailsEntryExists(t *testing.T) {
	srv, _, _, gk := newTestServer(t)
	ctx := context.Background()

	_, err := srv.GPUCreate(ctx, &GPUCreateRequest{Key: keyString(gk)})
	require.Error(t, err)
}

func TestGPUUpdateAppliesOverdriveLevel(t *testing.T) {
	srv, _, _, gk := newTestServer(t)
	ctx := context.Background()

	resp, err := srv.GPUUpdate(ctx, &GPUUpdateRequest{
		Key:  keyString(gk),
		Spec: GPUSpecDTO{OverdriveLevel: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), resp.Info.Spec.OverdriveLevel)
}

func TestGPUDeleteFailsInUseWithWatchGroup(t *testing.T) {
	srv, e, _, gk := newTestServer(t)
	ctx := context.Background()

	wk := testKey(9)
	resp := e.Submit(engine.Request{
		Kind: types.KindGPUWatch, Op: types.OpCreate, Key: wk,
		Params: types.GPUWatchCreateParams{GPUKeys: []objkey.Key{gk}, AttrIDs: []types.WatchAttrID{types.WatchAttrGPUClock}},
	})
	require.Nil(t, resp.Err)

	_, err := srv.GPUDelete(ctx, &GPUDeleteRequest{Key: keyString(gk)})
	assert.Error(t, err)
}

func TestGPUWatchCreateReadRoundTrip(t *testing.T) {
	srv, _, _, gk := newTestServer(t)
	ctx := context.Background()
	wk := testKey(5)

	createResp, err := srv.GPUWatchCreate(ctx, &GPUWatchCreateRequest{
		Key:     keyString(wk),
		GPUKeys: []string{keyString(gk)},
		AttrIDs: []int{int(types.WatchAttrGPUClock)},
	})
	require.NoError(t, err)
	assert.Equal(t, keyString(wk), createResp.Info.Key)

	readResp, err := srv.GPUWatchRead(ctx, &GPUWatchReadRequest{Key: keyString(wk)})
	require.NoError(t, err)
	assert.Equal(t, 0, readResp.Info.SubscriberCount)
}

func TestTaskCreateGPUReset(t *testing.T) {
	srv, _, _, gk := newTestServer(t)
	ctx := context.Background()

	_, err := srv.TaskCreate(ctx, &TaskCreateRequest{Kind: "gpu_reset", GPUKey: keyString(gk)})
	assert.NoError(t, err)
}

func TestBadPageReadStreamsTerminalMessage(t *testing.T) {
	srv, _, gpuStore, gk := newTestServer(t)
	g := gpuStore.FindByKey(gk)
	require.NotNil(t, g)

	sim, ok := srv.deps.Adapter.(*smi.Simulator)
	require.True(t, ok)
	sim.SeedBadPages(g.Handle, []smi.BadPageRecord{{Address: 1, Size: 4096, RetiredReason: "x"}})

	fs := &fakeServerStream{}
	err := srv.GPUBadPageRead(&GPUBadPageReadRequest{GPUKey: keyString(gk)}, fs)
	require.NoError(t, err)
	require.Len(t, fs.sent, 2)
	first := fs.sent[0].(*GPUBadPageMessage)
	assert.Len(t, first.Records, 1)
	assert.False(t, first.Final)
	last := fs.sent[1].(*GPUBadPageMessage)
	assert.True(t, last.Final)
}

// fakeServerStream is a minimal grpc.ServerStream double for exercising
// streaming handlers without a real network connection.
type fakeServerStream struct {
	grpc.ServerStream
	sent []interface{}
}

func (f *fakeServerStream) SendMsg(m interface{}) error {
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeServerStream) Context() context.Context { return context.Background() }

// TestGPUReadOverRealNetworkGRPCConnection proves the manually built
// ServiceDesc/codec wiring works over an actual grpc.Server +
// grpc.ClientConn, not just via direct method calls.
func TestGPUReadOverRealNetworkGRPCConnection(t *testing.T) {
	srv, _, _, gk := newTestServer(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := &GPUReadRequest{Key: keyString(gk)}
	resp := &GPUReadResponse{}
	require.NoError(t, conn.Invoke(ctx, "/aga.GPU/Read", req, resp))
	assert.Equal(t, keyString(gk), resp.Info.Key)
}
