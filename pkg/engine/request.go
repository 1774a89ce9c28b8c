package engine

import (
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// Request is the discriminated params union api_ctxt carries in spec
// §4.2: an object kind, an operation, the target key (for UPDATE and
// DELETE; CREATE callers choose the new key themselves, e.g. via
// uuid-derived ObjectKeys), and the per-kind params payload.
type Request struct {
	Kind   types.Kind
	Op     types.Op
	Key    objkey.Key
	Params interface{}
}

// Response carries the engine's result: the resulting object (for
// CREATE/UPDATE, or the transient result for a stateless Task create)
// and a status. Err is nil on success.
type Response struct {
	Obj interface{}
	Err *types.Error
}

type inflightRequest struct {
	req   Request
	reply chan Response
}
