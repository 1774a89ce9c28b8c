package rpcapi

import (
	"context"

	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

func computePartitionDTO(g *types.GPU) ComputePartitionDTO {
	g.Lock()
	defer g.Unlock()
	return ComputePartitionDTO{
		GPUKey:               keyString(g.Key),
		PartitionKeys:        keysString(g.ChildKeys),
		ComputePartitionType: int(g.Spec.ComputePartitionType),
	}
}

func memoryPartitionDTO(g *types.GPU) MemoryPartitionDTO {
	g.Lock()
	defer g.Unlock()
	return MemoryPartitionDTO{
		GPUKey:              keyString(g.Key),
		PartitionKeys:       keysString(g.ChildKeys),
		MemoryPartitionType: int(g.Spec.MemoryPartitionType),
	}
}

func (s *Server) findParentGPU(keyStr string) (*types.GPU, error) {
	key, err := parseKey(keyStr)
	if err != nil {
		return nil, badKeyErr(err)
	}
	g := s.deps.GPUStore.FindByKey(key)
	if g == nil {
		return nil, statusFromErr(types.NewError(types.EntryNotFound, "gpu not found"))
	}
	g.Lock()
	isParent := g.IsParent()
	g.Unlock()
	if !isParent {
		return nil, statusFromErr(types.NewError(types.InvalidArg, "gpu has no partitions"))
	}
	return g, nil
}

// GPUComputePartitionGet implements GPUComputePartition.Get.
func (s *Server) GPUComputePartitionGet(ctx context.Context, req *GPUComputePartitionGetRequest) (*GPUComputePartitionGetResponse, error) {
	g, err := s.findParentGPU(req.GPUKey)
	if err != nil {
		return nil, err
	}
	return &GPUComputePartitionGetResponse{Partition: computePartitionDTO(g)}, nil
}

// GPUComputePartitionGetAll implements GPUComputePartition.GetAll.
func (s *Server) GPUComputePartitionGetAll(ctx context.Context, req *GPUComputePartitionGetAllRequestEmpty) (*GPUComputePartitionGetAllResponse, error) {
	var partitions []ComputePartitionDTO
	s.deps.GPUStore.Walk(func(g *types.GPU) bool {
		g.Lock()
		isParent := g.IsParent()
		g.Unlock()
		if isParent {
			partitions = append(partitions, computePartitionDTO(g))
		}
		return false
	})
	return &GPUComputePartitionGetAllResponse{Partitions: partitions}, nil
}

// GPUMemoryPartitionGet implements GPUMemoryPartition.Get.
func (s *Server) GPUMemoryPartitionGet(ctx context.Context, req *GPUMemoryPartitionGetRequest) (*GPUMemoryPartitionGetResponse, error) {
	g, err := s.findParentGPU(req.GPUKey)
	if err != nil {
		return nil, err
	}
	return &GPUMemoryPartitionGetResponse{Partition: memoryPartitionDTO(g)}, nil
}

// GPUMemoryPartitionGetAll implements GPUMemoryPartition.GetAll.
func (s *Server) GPUMemoryPartitionGetAll(ctx context.Context, req *GPUMemoryPartitionGetAllRequestEmpty) (*GPUMemoryPartitionGetAllResponse, error) {
	var partitions []MemoryPartitionDTO
	s.deps.GPUStore.Walk(func(g *types.GPU) bool {
		g.Lock()
		isParent := g.IsParent()
		g.Unlock()
		if isParent {
			partitions = append(partitions, memoryPartitionDTO(g))
		}
		return false
	})
	return &GPUMemoryPartitionGetAllResponse{Partitions: partitions}, nil
}

// GPUComputePartitionGetAllRequestEmpty is the (empty) request message
// for GPUComputePartition.GetAll.
type GPUComputePartitionGetAllRequestEmpty struct{}

// GPUMemoryPartitionGetAllRequestEmpty is the (empty) request message
// for GPUMemoryPartition.GetAll.
type GPUMemoryPartitionGetAllRequestEmpty struct{}

var computePartitionServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.GPUComputePartition",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: unaryHandler[GPUComputePartitionGetRequest, GPUComputePartitionGetResponse]("/aga.GPUComputePartition/Get", (*Server).GPUComputePartitionGet)},
		{MethodName: "GetAll", Handler: unaryHandler[GPUComputePartitionGetAllRequestEmpty, GPUComputePartitionGetAllResponse]("/aga.GPUComputePartition/GetAll", (*Server).GPUComputePartitionGetAll)},
	},
	Metadata: "aga/partitions.proto",
}

var memoryPartitionServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.GPUMemoryPartition",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: unaryHandler[GPUMemoryPartitionGetRequest, GPUMemoryPartitionGetResponse]("/aga.GPUMemoryPartition/Get", (*Server).GPUMemoryPartitionGet)},
		{MethodName: "GetAll", Handler: unaryHandler[GPUMemoryPartitionGetAllRequestEmpty, GPUMemoryPartitionGetAllResponse]("/aga.GPUMemoryPartition/GetAll", (*Server).GPUMemoryPartitionGetAll)},
	},
	Metadata: "aga/partitions.proto",
}
