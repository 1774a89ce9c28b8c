package types

import (
	"sync"

	"github.com/aga-project/aga/pkg/objkey"
)

// InvalidPartitionID is the sentinel partition id for a non-partitioned
// GPU (a physical GPU with no partitions, or a to-be-discovered entry
// before its partition id is known).
const InvalidPartitionID = 0xFFFFFFFF

// GPUSpec is the mutable configuration of a GPU, as read from and
// written to the SMI adapter. Fields not covered by an UpdateMask bit
// (Key, ParentKey) are immutable after create.
type GPUSpec struct {
	Key                 objkey.Key
	ParentKey           objkey.Key
	AdminState          AdminState
	OverdriveLevel      uint32
	PowerCap            uint32
	PerfLevel           PerfLevel
	ClockFreqRanges     []ClockFreqRange
	FanSpeed            uint32
	RASPolicy           []byte
	MemoryPartitionType MemoryPartitionType
	ComputePartitionType ComputePartitionType
}

// Clone returns a deep copy of spec, safe to stash in the cache or hand
// to a caller.
func (s GPUSpec) Clone() GPUSpec {
	c := s
	if s.ClockFreqRanges != nil {
		c.ClockFreqRanges = append([]ClockFreqRange(nil), s.ClockFreqRanges...)
	}
	if s.RASPolicy != nil {
		c.RASPolicy = append([]byte(nil), s.RASPolicy...)
	}
	return c
}

// GPUImmutableStatus holds the status fields read once at discovery and
// never mutated by an update RPC (as opposed to SMI status read on
// demand, e.g. firmware version, PCIe slot).
type GPUImmutableStatus struct {
	SerialNumber string
	CardSeries   string
	CardModel    string
	CardVendor   string
	DriverVersion string
	PCIBusID     string
	NumaNode     int32
}

// WatchFields is the fixed-shape record the watcher samples once per
// tick for every GPU, and the shape GPU.update_stats overwrites the
// cached vector with (spec §4.4, §4.5, glossary).
type WatchFields struct {
	GPUClock           uint32
	MemClock           uint32
	Temperature        uint32
	PowerUsage         uint32
	GPUUtilization     uint32
	MemUtilization     uint32
	PCIeTxThroughput   uint64
	PCIeRxThroughput   uint64

	TotalCorrectableErrors   uint64
	TotalUncorrectableErrors uint64

	// Per-block ECC counters, supplementing spec §3 per
	// original_source gpu.cc fill_stats_.
	ECC ECCCounters

	// XGMI per-neighbor counters (tx only, 6 neighbors max; throughput
	// is computed as value*32/seconds_running per spec §4.5).
	XGMI [6]XGMINeighborStats
}

// ECCCounters is the per-hardware-block correctable/uncorrectable error
// count, supplementing the watch-attribute vector per SPEC_FULL §3.
type ECCCounters struct {
	SDMACorrectable, SDMAUncorrectable     uint64
	GFXCorrectable, GFXUncorrectable       uint64
	MMHUBCorrectable, MMHUBUncorrectable   uint64
	ATHUBCorrectable, ATHUBUncorrectable   uint64
	BIFCorrectable, BIFUncorrectable       uint64
	HDPCorrectable, HDPUncorrectable       uint64
	XGMIWAFLCorrectable, XGMIWAFLUncorrectable uint64
	DFCorrectable, DFUncorrectable         uint64
	SMNCorrectable, SMNUncorrectable       uint64
	SEMCorrectable, SEMUncorrectable       uint64
	MP0Correctable, MP0Uncorrectable       uint64
	MP1Correctable, MP1Uncorrectable       uint64
	FUSECorrectable, FUSEUncorrectable     uint64
	UMCCorrectable, UMCUncorrectable       uint64
	MCACorrectable, MCAUncorrectable       uint64
	VCNCorrectable, VCNUncorrectable       uint64
	JPEGCorrectable, JPEGUncorrectable     uint64
	IHCorrectable, IHUncorrectable         uint64
	MPIOCorrectable, MPIOUncorrectable     uint64
}

// XGMINeighborStats is the per-neighbor XGMI link counter set sampled
// via pre-registered hardware counters (spec §4.5 step 3).
type XGMINeighborStats struct {
	TxNops       uint64
	TxRequests   uint64
	TxResponses  uint64
	TxBeats      uint64
	TxThroughput uint64
}

// Handle is the opaque SMI-provided reference to a physical or child
// GPU handle.
type Handle uint64

// InvalidHandle is the sentinel SMI handle.
const InvalidHandle Handle = 0

// GPU is the runtime object held by the object store for a physical GPU
// or one of its partitions (spec §3).
type GPU struct {
	mu sync.Mutex

	Key        objkey.Key
	ParentKey  objkey.Key
	PartitionID uint32 // InvalidPartitionID if not a partition
	HWID       uint32  // small discovery-order index
	Handle     Handle
	ChildKeys  []objkey.Key

	Spec       GPUSpec
	Immutable  GPUImmutableStatus
	Stats      WatchFields

	NumWatch int

	// FirstPartitionHandle caches the handle of partition 0 under the
	// same parent, computed lazily on first stats read (spec §9 open
	// question; SPEC_FULL resolves it to "compute once, on read").
	firstPartitionHandle     Handle
	firstPartitionHandleSet  bool
}

// Lock/Unlock expose the per-object mutex the engine uses to serialize
// all mutation of a single GPU. Readers that only touch the immutable
// key fields (HWID, Key, ParentKey, Handle) may skip locking per the
// by-handle walk contract in spec §4.1.
func (g *GPU) Lock()   { g.mu.Lock() }
func (g *GPU) Unlock() { g.mu.Unlock() }

// IsParent reports whether this GPU has partitions.
func (g *GPU) IsParent() bool {
	return len(g.ChildKeys) > 0
}

// IsChild reports whether this GPU is a partition of another GPU.
func (g *GPU) IsChild() bool {
	return g.ParentKey.Valid()
}

// CachedFirstPartitionHandle returns the cached first-partition handle
// and whether it has been computed yet.
func (g *GPU) CachedFirstPartitionHandle() (Handle, bool) {
	return g.firstPartitionHandle, g.firstPartitionHandleSet
}

// SetFirstPartitionHandle caches the first-partition handle.
func (g *GPU) SetFirstPartitionHandle(h Handle) {
	g.firstPartitionHandle = h
	g.firstPartitionHandleSet = true
}
