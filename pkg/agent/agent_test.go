package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/aga-project/aga/pkg/config"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/rpcapi"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func testDevices() []smi.DeviceConfig {
	var k objkey.Key
	k[0] = 1
	return []smi.DeviceConfig{{Key: k, Partitions: 1}}
}

func TestAgentRunDiscoversAndServesRPC(t *testing.T) {
	sim := smi.NewSimulator(testDevices())
	a := New(config.Config{GRPCServerPort: 0, RDCServer: "127.0.0.1"}, sim)
	a.Watcher.StartupDelay = time.Hour
	a.EventMon.StartupDelay = time.Hour

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(lis) }()
	t.Cleanup(a.Stop)

	require.Eventually(t, func() bool { return a.GPUStore.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp := &rpcapi.GPUReadAllResponse{}
	require.NoError(t, conn.Invoke(ctx, "/aga.GPU/ReadAll", &rpcapi.GPUReadAllRequestEmpty{}, resp))
	assert.Len(t, resp.Infos, 1)
}
