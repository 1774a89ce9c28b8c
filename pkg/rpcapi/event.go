package rpcapi

import (
	"context"

	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc"
)

// EventSubscribe implements the Event.Subscribe server-streaming RPC:
// the client sends one EventSubscribeRequest naming a (gpu, kind)
// filter, then the server pushes EventMessage values until the client
// disconnects or its callback is torn down.
func (s *Server) EventSubscribe(req *EventSubscribeRequest, stream grpc.ServerStream) error {
	gpuKeys, err := parseKeys(req.GPUKeys)
	if err != nil {
		return badKeyErr(err)
	}

	client := subscription.NewClient(req.ClientName, "")
	cb := func(rec types.EventRecord) types.Status {
		msg := &EventMessage{
			GPUKey:            keyString(rec.Event.GPUKey),
			Kind:              int(rec.Event.Kind),
			TimestampUnixNano: rec.TimestampUnixNano,
			Message:           rec.Event.Data,
			SeqNum:            rec.SeqNum,
		}
		if err := stream.SendMsg(msg); err != nil {
			return types.ERR
		}
		return types.OK
	}

	for _, gk := range gpuKeys {
		g := s.deps.GPUStore.FindByKey(gk)
		if g == nil {
			continue
		}
		g.Lock()
		handle := g.Handle
		g.Unlock()
		for _, kind := range req.Kinds {
			s.deps.Registry.SubscribeEvent(handle, types.EventKind(kind), client, cb)
		}
	}

	client.Wait()
	return nil
}

// EventGenerate implements Event.Generate.
func (s *Server) EventGenerate(ctx context.Context, req *EventGenerateRequest) (*EventGenerateResponse, error) {
	targets := make([]smi.EventTarget, 0, len(req.Targets))
	for _, t := range req.Targets {
		key, err := parseKey(t.GPUKey)
		if err != nil {
			return nil, badKeyErr(err)
		}
		g := s.deps.GPUStore.FindByKey(key)
		if g == nil {
			continue
		}
		g.Lock()
		handle := g.Handle
		g.Unlock()
		targets = append(targets, smi.EventTarget{GPUKeyHandle: handle, Kind: types.EventKind(t.Kind)})
	}
	if err := s.deps.EventMon.Generate(targets); err != nil {
		return nil, statusFromErr(types.NewError(types.ERR, err.Error()))
	}
	return &EventGenerateResponse{}, nil
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: "aga.Event",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: unaryHandler[EventGenerateRequest, EventGenerateResponse]("/aga.Event/Generate", (*Server).EventGenerate)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: streamHandler[EventSubscribeRequest]((*Server).EventSubscribe), ServerStreams: true},
	},
	Metadata: "aga/event.proto",
}
