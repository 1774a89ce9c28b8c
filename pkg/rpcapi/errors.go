package rpcapi

import (
	"github.com/aga-project/aga/pkg/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFromErr maps the agent's internal *types.Error taxonomy onto
// gRPC status codes for the wire.
func statusFromErr(err *types.Error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch err.Status {
	case types.EntryNotFound:
		code = codes.NotFound
	case types.EntryExists:
		code = codes.AlreadyExists
	case types.InUse:
		code = codes.FailedPrecondition
	case types.InvalidArg:
		code = codes.InvalidArgument
	case types.InvalidOp, types.OpNotSupported:
		code = codes.Unimplemented
	case types.PermissionErr:
		code = codes.PermissionDenied
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// badKeyErr wraps a key-parsing failure as an INVALID_ARGUMENT status.
func badKeyErr(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}
