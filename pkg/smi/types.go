package smi

import (
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// DiscoveredDevice is one (handle, key) pair returned by Discover, in
// enumeration order. A physical GPU with N partitions appears N times
// with the same Key and a distinct Handle per entry.
type DiscoveredDevice struct {
	Handle types.Handle
	Key    objkey.Key
}

// LinkType identifies the interconnect between two GPUs.
type LinkType int

const (
	LinkNone LinkType = iota
	LinkXGMI
	LinkPCIe
)

// LinkUnknownSentinel values, used when a link is unreadable (spec
// §4.4 read_topology).
const (
	LinkHopsUnknown   = 0xFFFF
	LinkWeightUnknown = 0xFFFF
)

// LinkInfo describes the topology edge between two GPU handles.
type LinkInfo struct {
	Type   LinkType
	Hops   uint16
	Weight uint16
}

// CounterType identifies one of the pre-registerable hardware counters
// the watcher samples (spec §4.5 step 3).
type CounterType int

const (
	CounterXGMITx0 CounterType = iota
	CounterXGMITx1
	CounterXGMIDataOut0
	CounterXGMIDataOut1
	CounterXGMIDataOut2
	CounterXGMIDataOut3
	CounterXGMIDataOut4
	CounterXGMIDataOut5
)

// CounterHandle is an opaque reference to a registered hardware
// counter, returned by RegisterCounter and passed to ReadCounter.
type CounterHandle uint64

// InvalidCounterHandle is the sentinel for an unregistered counter.
const InvalidCounterHandle CounterHandle = 0

// ECCBlock identifies one hardware block with its own correctable /
// uncorrectable error counters (spec §3 supplement from
// original_source gpu.cc fill_stats_).
type ECCBlock int

const (
	ECCBlockSDMA ECCBlock = iota
	ECCBlockGFX
	ECCBlockMMHUB
	ECCBlockATHUB
	ECCBlockBIF
	ECCBlockHDP
	ECCBlockXGMIWAFL
	ECCBlockDF
	ECCBlockSMN
	ECCBlockSEM
	ECCBlockMP0
	ECCBlockMP1
	ECCBlockFUSE
	ECCBlockUMC
	ECCBlockMCA
	ECCBlockVCN
	ECCBlockJPEG
	ECCBlockIH
	ECCBlockMPIO
	numECCBlocks
)

// ECCBlocks lists every hardware block iterated when accumulating
// correctable/uncorrectable totals (spec §4.5 step 4).
var ECCBlocks = func() []ECCBlock {
	blocks := make([]ECCBlock, numECCBlocks)
	for i := range blocks {
		blocks[i] = ECCBlock(i)
	}
	return blocks
}()

// ECCCount is one block's correctable/uncorrectable tally.
type ECCCount struct {
	Correctable   uint64
	Uncorrectable uint64
}

// GPUStatus is the dynamic, adapter-provided status snapshot read on
// demand for GPU.read() (spec §4.4).
type GPUStatus struct {
	FirmwareVersion string
	PCIeSlot        string
	PowerState      string
	ThermalState    string
}

// BulkSample is the subset of WatchFields readable in a single "bulk"
// adapter call (spec §4.5 step 1).
type BulkSample struct {
	GPUClock       uint32
	MemClock       uint32
	Temperature    uint32
	PowerUsage     uint32
	GPUUtilization uint32
	MemUtilization uint32
	OK             bool
}
