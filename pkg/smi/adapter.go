package smi

import "github.com/aga-project/aga/pkg/types"

// Adapter is the hardware adaptation boundary named C1 in the system
// overview. Every method is synchronous and expected to be safe to call
// concurrently for distinct handles; the core never holds a lock across
// an Adapter call.
type Adapter interface {
	// Discover enumerates every hardware handle the adapter currently
	// sees, in index order. A physical GPU with partitions is reported
	// once per partition, sharing one Key.
	Discover() ([]DiscoveredDevice, error)

	// GetPartitionID returns the partition index of a child handle.
	GetPartitionID(handle types.Handle) (uint32, error)

	// FillSpec reads the current mutable configuration of a device.
	FillSpec(handle types.Handle) (types.GPUSpec, error)

	// FillStatus reads the current dynamic status of a device.
	FillStatus(handle types.Handle) (GPUStatus, error)

	// FillImmutableStatus reads the status fields discovery caches once
	// and never refreshes (serial number, card model, driver version).
	FillImmutableStatus(handle types.Handle) (types.GPUImmutableStatus, error)

	// SampleBulk reads one combined snapshot covering clock, temperature,
	// activity and power, when the adapter supports a bulk path.
	SampleBulk(handle types.Handle) (BulkSample, error)

	// SamplePCIeThroughput reads instantaneous PCIe tx/rx throughput.
	SamplePCIeThroughput(handle types.Handle) (tx, rx uint64, err error)

	// SampleECC reads the correctable/uncorrectable count for one
	// hardware block.
	SampleECC(handle types.Handle, block ECCBlock) (ECCCount, error)

	// RegisterCounter pre-registers a hardware counter for later
	// sampling (spec §4.5: XGMI tx/data-out counters need
	// pre-registration). Returns InvalidCounterHandle with a non-nil
	// error if the device does not support this counter.
	RegisterCounter(handle types.Handle, counter CounterType) (CounterHandle, error)

	// ReadCounter samples a previously registered counter and reports
	// how many seconds it has been running, for throughput computation.
	ReadCounter(ch CounterHandle) (value uint64, secondsRunning uint64, err error)

	// Update applies spec to handle, restricted to the attributes set
	// in mask. Must be atomic: either every masked field lands or none
	// does.
	Update(handle types.Handle, spec types.GPUSpec, mask types.UpdateMask) *types.Error

	// Reset power-cycles or re-initializes a device.
	Reset(handle types.Handle) *types.Error

	// TopologyLink reports the interconnect between two handles.
	TopologyLink(from, to types.Handle) (LinkInfo, error)

	// InitEvents arms event notification for handle, covering the
	// event kinds in mask.
	InitEvents(handle types.Handle, mask EventMask) error

	// PollEvents drains every event accumulated since the previous
	// call, across every initialized handle, with no blocking wait.
	PollEvents(maxPerGPU int) ([]types.Event, error)

	// GenerateEvents synthesizes adapter-shaped events for
	// administrative testing (Event.Generate RPC).
	GenerateEvents(targets []EventTarget) error

	// BadPages reports the retired-memory-page records for handle, for
	// the GPUBadPage RPC's streaming reader.
	BadPages(handle types.Handle) ([]BadPageRecord, error)
}

// BadPageRecord is one retired-memory-page entry (spec §6
// GPUBadPage.{Read,ReadAll}).
type BadPageRecord struct {
	Address       uint64
	Size          uint64
	RetiredReason string
}

// EventMask is a bitmask of EventKind values an adapter should watch
// for on a given handle.
type EventMask uint32

// EventTarget names one (gpu handle, kind) pair for GenerateEvents.
type EventTarget struct {
	GPUKeyHandle types.Handle
	Kind         types.EventKind
}

// EventMaskFor builds a mask with bit k set for each given EventKind k.
func EventMaskFor(kinds ...types.EventKind) EventMask {
	var m EventMask
	for _, k := range kinds {
		m |= 1 << uint(k)
	}
	return m
}

// DefaultEventMask is the mask the event monitor arms for every GPU at
// startup (spec §4.6 initialization): every EventKind this agent
// defines (XGMI error, ECC error, GPU reset, thermal throttle, RAS
// recovery). VM-fault, pre-/post-reset and ring-hang events have no
// EventKind of their own and are not requested.
var DefaultEventMask = EventMaskFor(
	types.EventXGMIError,
	types.EventECCError,
	types.EventGPUReset,
	types.EventThermalThrottle,
	types.EventRASRecovery,
)
