package types

import (
	"github.com/aga-project/aga/pkg/objkey"
)

// EventKind identifies the class of asynchronous GPU event the event
// monitor polls for and fans out to subscribers (spec §4.8).
type EventKind int

const (
	EventXGMIError EventKind = iota
	EventECCError
	EventGPUReset
	EventThermalThrottle
	EventRASRecovery
)

func (k EventKind) String() string {
	switch k {
	case EventXGMIError:
		return "XGMI_ERROR"
	case EventECCError:
		return "ECC_ERROR"
	case EventGPUReset:
		return "GPU_RESET"
	case EventThermalThrottle:
		return "THERMAL_THROTTLE"
	case EventRASRecovery:
		return "RAS_RECOVERY"
	default:
		return "UNKNOWN"
	}
}

// Event is a single occurrence reported by the SMI adapter's event
// poll, keyed to the GPU it happened on.
type Event struct {
	GPUKey objkey.Key
	Kind   EventKind
	Data   string
}

// EventRecord is the de-duplicated, timestamped form an Event is kept
// in the per-GPU event map in, and the shape delivered to subscribers
// (spec §4.8, §4.9). TimestampUnixNano is stamped by the event monitor,
// never computed here, so this package stays time-source free.
type EventRecord struct {
	Event
	TimestampUnixNano int64
	SeqNum            uint64
}
