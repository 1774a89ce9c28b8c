package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this agent's wire format
// registers under ("application/grpc+json"). Callers select it with
// grpc.CallContentSubtype(codecName) since there is no generated
// client stub to bake the choice into.
const codecName = "json"

// jsonCodec marshals request/response DTOs as JSON instead of
// protobuf wire format, since the retrieval pack has no .proto files
// for this domain to generate a binary codec from.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
