package rpcapi

import (
	"context"

	gpupkg "github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

// DeviceTopologyGetAllRequestEmpty is the (empty) request message for
// DeviceTopology.GetAll.
type DeviceTopologyGetAllRequestEmpty struct{}

// DeviceTopologyGetAll implements DeviceTopology.GetAll.
func (s *Server) DeviceTopologyGetAll(ctx context.Context, req *DeviceTopologyGetAllRequestEmpty) (*DeviceTopologyGetAllResponse, error) {
	deps := s.gpuDeps()
	var devices []DeviceTopologyEntryDTO
	s.deps.GPUStore.Walk(func(g *types.GPU) bool {
		name, edges := gpupkg.ReadTopology(deps, g)
		devices = append(devices, DeviceTopologyEntryDTO{
			GPUKey: keyString(g.Key),
			Name:   name,
			Edges:  edgesToDTO(edges),
		})
		return false
	})
	return &DeviceTopologyGetAllResponse{Devices: devices}, nil
}

func edgesToDTO(edges []gpupkg.TopologyEdge) []TopologyEdgeDTO {
	out := make([]TopologyEdgeDTO, len(edges))
	for i, e := range edges {
		out[i] = TopologyEdgeDTO{
			PeerKey: keyString(e.PeerKey),
			Type:    int(e.Link.Type),
			Hops:    int(e.Link.Hops),
			Weight:  int(e.Link.Weight),
		}
	}
	return out
}

var topologyServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.DeviceTopology",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAll", Handler: unaryHandler[DeviceTopologyGetAllRequestEmpty, DeviceTopologyGetAllResponse]("/aga.DeviceTopology/GetAll", (*Server).DeviceTopologyGetAll)},
	},
	Metadata: "aga/topology.proto",
}
