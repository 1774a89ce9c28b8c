package rpcapi

import (
	"context"
	"net"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/eventmon"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/watcher"
	"google.golang.org/grpc"
)

// Deps are the collaborators the RPC boundary forwards to. Every
// mutating call goes through Engine; every read walks GPUStore/
// WatchStore directly; streaming subscribes are handed to Watcher/
// EventMon's process-local ingress.
type Deps struct {
	GPUStore   *store.GPUStore
	WatchStore *store.GPUWatchStore
	Engine     *engine.Engine
	Adapter    smi.Adapter
	Watcher    *watcher.Watcher
	EventMon   *eventmon.Monitor
	Registry   *subscription.Registry
}

// Server implements every service in the RPC surface (spec §6) as thin
// translation methods over Deps.
type Server struct {
	deps Deps
	grpc *grpc.Server
}

// NewServer builds a Server and registers every hand-built
// grpc.ServiceDesc against a fresh grpc.Server.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	s.grpc.RegisterService(&gpuServiceDesc, s)
	s.grpc.RegisterService(&gpuWatchServiceDesc, s)
	s.grpc.RegisterService(&computePartitionServiceDesc, s)
	s.grpc.RegisterService(&memoryPartitionServiceDesc, s)
	s.grpc.RegisterService(&badPageServiceDesc, s)
	s.grpc.RegisterService(&topologyServiceDesc, s)
	s.grpc.RegisterService(&taskServiceDesc, s)
	s.grpc.RegisterService(&eventServiceDesc, s)
	return s
}

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop halts the gRPC server immediately, dropping in-flight calls.
func (s *Server) Stop() {
	s.grpc.Stop()
}

// GracefulStop waits for in-flight calls to finish before returning.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		log.Logger.Error().Str("method", info.FullMethod).Err(err).Msg("rpcapi: call failed")
	}
	return resp, err
}

// unaryFunc matches a (*Server) method's shape via a method
// expression, so ServiceDesc tables can reference handlers directly
// (e.g. (*Server).GPUCreate) without per-method wrapper boilerplate.
type unaryFunc[Req any, Resp any] func(s *Server, ctx context.Context, req *Req) (*Resp, error)

// unaryHandler adapts fn to grpc's untyped MethodDesc.Handler shape:
// decode the request DTO, run interceptors, dispatch to fn.
func unaryHandler[Req any, Resp any](method string, fn unaryFunc[Req, Resp]) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(*Server)
		if interceptor == nil {
			return fn(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		wrapped := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, wrapped)
	}
}

// streamFunc matches a (*Server) server-streaming method's shape.
type streamFunc[Req any] func(s *Server, req *Req, stream grpc.ServerStream) error

// streamHandler adapts fn to grpc's untyped StreamDesc.Handler shape:
// the client sends exactly one request message, then the handler owns
// the stream until it returns.
func streamHandler[Req any](fn streamFunc[Req]) func(interface{}, grpc.ServerStream) error {
	return func(srv interface{}, stream grpc.ServerStream) error {
		in := new(Req)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return fn(srv.(*Server), in, stream)
	}
}
