package rpcapi

import (
	"context"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

// TaskCreate implements Task.Create (spec §6: one of {GPU reset,
// watch-db update, watch-subscriber add/del}). watch_db_update has no
// externally meaningful payload — only the watcher itself supplies
// sampled WatchFields — so an RPC-issued one is accepted but runs with
// an empty sample set, a documented no-op.
func (s *Server) TaskCreate(ctx context.Context, req *TaskCreateRequest) (*TaskCreateResponse, error) {
	task, err := taskFromRequest(req)
	if err != nil {
		return nil, err
	}
	resp := s.deps.Engine.Submit(engine.Request{
		Kind: types.KindTask, Op: types.OpCreate, Key: objkey.Invalid,
		Params: task,
	})
	if resp.Err != nil {
		return nil, statusFromErr(resp.Err)
	}
	return &TaskCreateResponse{}, nil
}

func taskFromRequest(req *TaskCreateRequest) (*types.Task, error) {
	switch req.Kind {
	case "gpu_reset":
		gpuKey, err := parseKey(req.GPUKey)
		if err != nil {
			return nil, badKeyErr(err)
		}
		return &types.Task{Kind: types.TaskGPUReset, GPUReset: &types.GPUResetParams{GPUKey: gpuKey}}, nil
	case "watch_db_update":
		return &types.Task{Kind: types.TaskWatchDBUpdate, WatchDBUpdate: &types.WatchDBUpdateParams{}}, nil
	case "watch_subscriber_add":
		watchKey, err := parseKey(req.WatchKey)
		if err != nil {
			return nil, badKeyErr(err)
		}
		return &types.Task{Kind: types.TaskWatchSubscriberAdd, WatchSubscriberAdd: &types.WatchSubscriberParams{WatchKey: watchKey}}, nil
	case "watch_subscriber_del":
		watchKey, err := parseKey(req.WatchKey)
		if err != nil {
			return nil, badKeyErr(err)
		}
		return &types.Task{Kind: types.TaskWatchSubscriberDel, WatchSubscriberDel: &types.WatchSubscriberParams{WatchKey: watchKey}}, nil
	default:
		return nil, statusFromErr(types.NewError(types.InvalidArg, "unrecognized task kind"))
	}
}

var taskServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.Task",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unaryHandler[TaskCreateRequest, TaskCreateResponse]("/aga.Task/Create", (*Server).TaskCreate)},
	},
	Metadata: "aga/task.proto",
}
