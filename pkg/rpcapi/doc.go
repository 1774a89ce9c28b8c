/*
Package rpcapi is the thin RPC boundary (C9) between the network and
the core entity packages. The retrieval pack carries no generated
protobuf stubs for this domain, so this package stands up a real
google.golang.org/grpc server with manually built grpc.ServiceDesc
values (grounded on the grpc-go server wiring in
cuemby-warren/pkg/api/server.go, generalized from protoc-generated
stubs to hand-rolled ones) and moves plain JSON-able DTOs over the wire
via a small custom encoding.Codec (codec.go) instead of proto.Message.

Every handler here does no more than translate a DTO into an
engine.Request or a direct store read and translate the result back;
every invariant (ENTRY_EXISTS, IN_USE, refcount checks, change-mask
computation) lives in pkg/gpu, pkg/gpuwatch, pkg/task, pkg/engine.
*/
package rpcapi
