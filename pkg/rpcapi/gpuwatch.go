package rpcapi

import (
	"context"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

func watchToDTO(w *types.GPUWatch) GPUWatchInfoDTO {
	w.Lock()
	defer w.Unlock()
	attrIDs := make([]int, len(w.Spec.AttrIDs))
	for i, a := range w.Spec.AttrIDs {
		attrIDs[i] = int(a)
	}
	return GPUWatchInfoDTO{
		Key:             keyString(w.Key),
		GPUKeys:         keysString(w.Spec.GPUKeys),
		AttrIDs:         attrIDs,
		SubscriberCount: w.SubscriberCount,
		Snapshot:        snapshotToDTO(w.LastSnapshot),
	}
}

// GPUWatchCreate implements GPUWatch.Create.
func (s *Server) GPUWatchCreate(ctx context.Context, req *GPUWatchCreateRequest) (*GPUWatchCreateResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	gpuKeys, err := parseKeys(req.GPUKeys)
	if err != nil {
		return nil, badKeyErr(err)
	}
	attrIDs := make([]types.WatchAttrID, len(req.AttrIDs))
	for i, id := range req.AttrIDs {
		attrIDs[i] = types.WatchAttrID(id)
	}
	resp := s.deps.Engine.Submit(engine.Request{
		Kind: types.KindGPUWatch, Op: types.OpCreate, Key: key,
		Params: types.GPUWatchCreateParams{GPUKeys: gpuKeys, AttrIDs: attrIDs},
	})
	if resp.Err != nil {
		return nil, statusFromErr(resp.Err)
	}
	return &GPUWatchCreateResponse{Info: watchToDTO(resp.Obj.(*types.GPUWatch))}, nil
}

// GPUWatchRead implements GPUWatch.Read.
func (s *Server) GPUWatchRead(ctx context.Context, req *GPUWatchReadRequest) (*GPUWatchReadResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	w := s.deps.WatchStore.FindByKey(key)
	if w == nil {
		return nil, statusFromErr(types.NewError(types.EntryNotFound, "watch group not found"))
	}
	return &GPUWatchReadResponse{Info: watchToDTO(w)}, nil
}

// GPUWatchReadAll implements GPUWatch.ReadAll.
func (s *Server) GPUWatchReadAll(ctx context.Context, req *GPUWatchReadAllRequestEmpty) (*GPUWatchReadAllResponse, error) {
	var infos []GPUWatchInfoDTO
	s.deps.WatchStore.Walk(func(w *types.GPUWatch) bool {
		infos = append(infos, watchToDTO(w))
		return false
	})
	return &GPUWatchReadAllResponse{Infos: infos}, nil
}

// GPUWatchDelete implements GPUWatch.Delete.
func (s *Server) GPUWatchDelete(ctx context.Context, req *GPUWatchDeleteRequest) (*GPUWatchDeleteResponse, error) {
	key, err := parseKey(req.Key)
	if err != nil {
		return nil, badKeyErr(err)
	}
	resp := s.deps.Engine.Submit(engine.Request{Kind: types.KindGPUWatch, Op: types.OpDelete, Key: key})
	if resp.Err != nil {
		return nil, statusFromErr(resp.Err)
	}
	return &GPUWatchDeleteResponse{}, nil
}

// GPUWatchSubscribe implements the GPUWatch.Subscribe server-streaming
// RPC: the client sends one GPUWatchSubscribeRequest, then the server
// pushes GPUWatchSnapshotMessage values until the client disconnects
// or its callback is torn down.
func (s *Server) GPUWatchSubscribe(req *GPUWatchSubscribeRequest, stream grpc.ServerStream) error {
	watchKeys, err := parseKeys(req.WatchKeys)
	if err != nil {
		return badKeyErr(err)
	}

	client := subscription.NewClient(req.ClientName, "")
	// One callback per watch-id, each capturing its own key, so a
	// client subscribed to several watch groups at once can tell which
	// group a given streamed snapshot belongs to.
	for _, wk := range watchKeys {
		watchKey := wk
		cb := func(snapshot []types.GPUWatchGPUSnapshot) types.Status {
			msg := &GPUWatchSnapshotMessage{WatchKey: keyString(watchKey), Snapshot: snapshotToDTO(snapshot)}
			if err := stream.SendMsg(msg); err != nil {
				return types.ERR
			}
			return types.OK
		}
		s.deps.Watcher.Subscribe([]objkey.Key{watchKey}, client, cb)
	}
	client.Wait()
	return nil
}

// GPUWatchReadAllRequestEmpty is the (empty) request message for
// GPUWatch.ReadAll.
type GPUWatchReadAllRequestEmpty struct{}

var gpuWatchServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.GPUWatch",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unaryHandler[GPUWatchCreateRequest, GPUWatchCreateResponse]("/aga.GPUWatch/Create", (*Server).GPUWatchCreate)},
		{MethodName: "Read", Handler: unaryHandler[GPUWatchReadRequest, GPUWatchReadResponse]("/aga.GPUWatch/Read", (*Server).GPUWatchRead)},
		{MethodName: "ReadAll", Handler: unaryHandler[GPUWatchReadAllRequestEmpty, GPUWatchReadAllResponse]("/aga.GPUWatch/ReadAll", (*Server).GPUWatchReadAll)},
		{MethodName: "Delete", Handler: unaryHandler[GPUWatchDeleteRequest, GPUWatchDeleteResponse]("/aga.GPUWatch/Delete", (*Server).GPUWatchDelete)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: streamHandler[GPUWatchSubscribeRequest]((*Server).GPUWatchSubscribe), ServerStreams: true},
	},
	Metadata: "aga/gpuwatch.proto",
}
