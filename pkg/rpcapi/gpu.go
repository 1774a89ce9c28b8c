package rpcapi

import (
	"context"

	"github.com/aga-project/aga/pkg/engine"
	gpupkg "github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

func (s *Server) gpuDeps() gpupkg.Deps {
	return gpupkg.Deps{Store: s.deps.GPUStore, Adapter: s.deps.Adapter}
}

// GPUCreate implements GPU.Create.
func (s *Server) GPUCreate(ctx context.Context, req *GPUCreateRequest) (*GPUCreateResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	parentKey, err := parseKey(req.ParentKey)
	if err != nil {
		return nil, badKeyErr(err)
	}
	resp := s.deps.Engine.Submit(engine.Request{
		Kind: types.KindGPU, Op: types.OpCreate, Key: key,
		Params: types.GPUCreateParams{ParentKey: parentKey},
	})
	if resp.Err != nil {
		return nil, statusFromErr(resp.Err)
	}
	g := resp.Obj.(*types.GPU)
	info, ierr := gpupkg.Read(s.gpuDeps(), g)
	if ierr != nil {
		return nil, statusFromErr(ierr)
	}
	return &GPUCreateResponse{Info: infoToDTO(info)}, nil
}

// GPURead implements GPU.Read.
func (s *Server) GPURead(ctx context.Context, req *GPUReadRequest) (*GPUReadResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	g := s.deps.GPUStore.FindByKey(key)
	if g == nil {
		return nil, statusFromErr(types.NewError(types.EntryNotFound, "gpu not found"))
	}
	info, ierr := gpupkg.Read(s.gpuDeps(), g)
	if ierr != nil {
		return nil, statusFromErr(ierr)
	}
	return &GPUReadResponse{Info: infoToDTO(info)}, nil
}

// GPUReadAll implements GPU.ReadAll.
func (s *Server) GPUReadAll(ctx context.Context, req *GPUReadAllRequestEmpty) (*GPUReadAllResponse, error) {
	var infos []GPUInfoDTO
	s.deps.GPUStore.Walk(func(g *types.GPU) bool {
		info, ierr := gpupkg.Read(s.gpuDeps(), g)
		if ierr == nil {
			infos = append(infos, infoToDTO(info))
		}
		return false
	})
	return &GPUReadAllResponse{Infos: infos}, nil
}

// GPUUpdate implements GPU.Update.
func (s *Server) GPUUpdate(ctx context.Context, req *GPUUpdateRequest) (*GPUUpdateResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	resp := s.deps.Engine.Submit(engine.Request{
		Kind: types.KindGPU, Op: types.OpUpdate, Key: key,
		Params: types.GPUUpdateParams{Spec: specFromDTO(req.Spec)},
	})
	if resp.Err != nil {
		return nil, statusFromErr(resp.Err)
	}
	g := resp.Obj.(*types.GPU)
	info, ierr := gpupkg.Read(s.gpuDeps(), g)
	if ierr != nil {
		return nil, statusFromErr(ierr)
	}
	return &GPUUpdateResponse{Info: infoToDTO(info)}, nil
}

// GPUDelete implements GPU.Delete.
func (s *Server) GPUDelete(ctx context.Context, req *GPUDeleteRequest) (*GPUDeleteResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	resp := s.deps.Engine.Submit(engine.Request{Kind: types.KindGPU, Op: types.OpDelete, Key: key})
	if resp.Err != nil {
		return nil, statusFromErr(resp.Err)
	}
	return &GPUDeleteResponse{}, nil
}

// GPUReadAllRequestEmpty is the (empty) request message for GPU.ReadAll.
type GPUReadAllRequestEmpty struct{}

var gpuServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.GPU",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unaryHandler[GPUCreateRequest, GPUCreateResponse]("/aga.GPU/Create", (*Server).GPUCreate)},
		{MethodName: "Read", Handler: unaryHandler[GPUReadRequest, GPUReadResponse]("/aga.GPU/Read", (*Server).GPURead)},
		{MethodName: "ReadAll", Handler: unaryHandler[GPUReadAllRequestEmpty, GPUReadAllResponse]("/aga.GPU/ReadAll", (*Server).GPUReadAll)},
		{MethodName: "Update", Handler: unaryHandler[GPUUpdateRequest, GPUUpdateResponse]("/aga.GPU/Update", (*Server).GPUUpdate)},
		{MethodName: "Delete", Handler: unaryHandler[GPUDeleteRequest, GPUDeleteResponse]("/aga.GPU/Delete", (*Server).GPUDelete)},
	},
	Metadata: "aga/gpu.proto",
}
