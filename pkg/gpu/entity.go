package gpu

import (
	"fmt"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/types"
)

// Info is the read() projection: spec, status, and stats assembled for
// a single GPU (spec §4.4).
type Info struct {
	Key       objkey.Key
	Spec      types.GPUSpec
	IsParent  bool
	ChildKeys []objkey.Key
	Status    smi.GPUStatus
	Immutable types.GPUImmutableStatus
	Stats     types.WatchFields
}

// Read fills spec, status and stats for g. For a parent GPU only the
// child key-set is filled for status; for anything else the adapter is
// asked for a live status snapshot alongside the cached immutable
// fields (spec §4.4). A GPU with no adapter handle (InvalidHandle, e.g.
// one created over RPC) gets its cached spec and stats and no status.
func Read(d Deps, g *types.GPU) (Info, *types.Error) {
	g.Lock()
	defer g.Unlock()

	info := Info{
		Key:      g.Key,
		Spec:     g.Spec.Clone(),
		IsParent: g.IsParent(),
		Stats:    g.Stats,
	}

	if info.IsParent {
		info.ChildKeys = append([]objkey.Key(nil), g.ChildKeys...)
		return info, nil
	}
	if g.Handle == types.InvalidHandle {
		return info, nil
	}

	status, err := d.Adapter.FillStatus(g.Handle)
	if err != nil {
		return info, types.NewError(types.ERR, fmt.Sprintf("adapter status read failed: %v", err))
	}
	info.Status = status
	info.Immutable = g.Immutable

	if g.IsChild() {
		ensureFirstPartitionHandle(d, g)
	}

	return info, nil
}

// UpdateStats overwrites g's cached watch-vector. Called only from the
// engine, via the watch-db-update task handler (spec §4.4, §4.5).
func UpdateStats(g *types.GPU, fields types.WatchFields) {
	g.Lock()
	defer g.Unlock()
	g.Stats = fields
}

// FillGPUWatchStats projects the requested attribute ids out of g's
// cached watch-vector (spec §4.4). An unknown attribute id fails the
// whole call with ERR, per original_source gpu.cc's
// fill_gpu_watch_stats default case.
func FillGPUWatchStats(g *types.GPU, ids []types.WatchAttrID) ([]types.WatchAttr, *types.Error) {
	if len(ids) == 0 {
		return nil, types.NewError(types.InvalidArg, "no attribute ids requested")
	}
	g.Lock()
	defer g.Unlock()

	out := make([]types.WatchAttr, 0, len(ids))
	for _, id := range ids {
		v, ok := projectAttr(g.Stats, id)
		if !ok {
			return nil, types.NewError(types.ERR, fmt.Sprintf("unknown watch attribute id %d", id))
		}
		out = append(out, types.WatchAttr{ID: id, Value: v})
	}
	return out, nil
}

func projectAttr(f types.WatchFields, id types.WatchAttrID) (int64, bool) {
	switch id {
	case types.WatchAttrGPUClock:
		return int64(f.GPUClock), true
	case types.WatchAttrMemClock:
		return int64(f.MemClock), true
	case types.WatchAttrTemperature:
		return int64(f.Temperature), true
	case types.WatchAttrPowerUsage:
		return int64(f.PowerUsage), true
	case types.WatchAttrGPUUtilization:
		return int64(f.GPUUtilization), true
	case types.WatchAttrMemUtilization:
		return int64(f.MemUtilization), true
	case types.WatchAttrPCIeTxThroughput:
		return int64(f.PCIeTxThroughput), true
	case types.WatchAttrPCIeRxThroughput:
		return int64(f.PCIeRxThroughput), true
	case types.WatchAttrTotalCorrectableErrors:
		return int64(f.TotalCorrectableErrors), true
	case types.WatchAttrTotalUncorrectableErrors:
		return int64(f.TotalUncorrectableErrors), true
	case types.WatchAttrECCSDMACorrectable:
		return int64(f.ECC.SDMACorrectable), true
	case types.WatchAttrECCSDMAUncorrectable:
		return int64(f.ECC.SDMAUncorrectable), true
	case types.WatchAttrECCGFXCorrectable:
		return int64(f.ECC.GFXCorrectable), true
	case types.WatchAttrECCGFXUncorrectable:
		return int64(f.ECC.GFXUncorrectable), true
	case types.WatchAttrECCMMHUBCorrectable:
		return int64(f.ECC.MMHUBCorrectable), true
	case types.WatchAttrECCMMHUBUncorrectable:
		return int64(f.ECC.MMHUBUncorrectable), true
	case types.WatchAttrECCATHUBCorrectable:
		return int64(f.ECC.ATHUBCorrectable), true
	case types.WatchAttrECCATHUBUncorrectable:
		return int64(f.ECC.ATHUBUncorrectable), true
	case types.WatchAttrECCBIFCorrectable:
		return int64(f.ECC.BIFCorrectable), true
	case types.WatchAttrECCBIFUncorrectable:
		return int64(f.ECC.BIFUncorrectable), true
	case types.WatchAttrECCHDPCorrectable:
		return int64(f.ECC.HDPCorrectable), true
	case types.WatchAttrECCHDPUncorrectable:
		return int64(f.ECC.HDPUncorrectable), true
	case types.WatchAttrECCXGMIWAFLCorrectable:
		return int64(f.ECC.XGMIWAFLCorrectable), true
	case types.WatchAttrECCXGMIWAFLUncorrectable:
		return int64(f.ECC.XGMIWAFLUncorrectable), true
	case types.WatchAttrECCDFCorrectable:
		return int64(f.ECC.DFCorrectable), true
	case types.WatchAttrECCDFUncorrectable:
		return int64(f.ECC.DFUncorrectable), true
	case types.WatchAttrECCSMNCorrectable:
		return int64(f.ECC.SMNCorrectable), true
	case types.WatchAttrECCSMNUncorrectable:
		return int64(f.ECC.SMNUncorrectable), true
	case types.WatchAttrECCSEMCorrectable:
		return int64(f.ECC.SEMCorrectable), true
	case types.WatchAttrECCSEMUncorrectable:
		return int64(f.ECC.SEMUncorrectable), true
	case types.WatchAttrECCMP0Correctable:
		return int64(f.ECC.MP0Correctable), true
	case types.WatchAttrECCMP0Uncorrectable:
		return int64(f.ECC.MP0Uncorrectable), true
	case types.WatchAttrECCMP1Correctable:
		return int64(f.ECC.MP1Correctable), true
	case types.WatchAttrECCMP1Uncorrectable:
		return int64(f.ECC.MP1Uncorrectable), true
	case types.WatchAttrECCFUSECorrectable:
		return int64(f.ECC.FUSECorrectable), true
	case types.WatchAttrECCFUSEUncorrectable:
		return int64(f.ECC.FUSEUncorrectable), true
	case types.WatchAttrECCUMCCorrectable:
		return int64(f.ECC.UMCCorrectable), true
	case types.WatchAttrECCUMCUncorrectable:
		return int64(f.ECC.UMCUncorrectable), true
	case types.WatchAttrECCMCACorrectable:
		return int64(f.ECC.MCACorrectable), true
	case types.WatchAttrECCMCAUncorrectable:
		return int64(f.ECC.MCAUncorrectable), true
	case types.WatchAttrECCVCNCorrectable:
		return int64(f.ECC.VCNCorrectable), true
	case types.WatchAttrECCVCNUncorrectable:
		return int64(f.ECC.VCNUncorrectable), true
	case types.WatchAttrECCJPEGCorrectable:
		return int64(f.ECC.JPEGCorrectable), true
	case types.WatchAttrECCJPEGUncorrectable:
		return int64(f.ECC.JPEGUncorrectable), true
	case types.WatchAttrECCIHCorrectable:
		return int64(f.ECC.IHCorrectable), true
	case types.WatchAttrECCIHUncorrectable:
		return int64(f.ECC.IHUncorrectable), true
	case types.WatchAttrECCMPIOCorrectable:
		return int64(f.ECC.MPIOCorrectable), true
	case types.WatchAttrECCMPIOUncorrectable:
		return int64(f.ECC.MPIOUncorrectable), true
	case types.WatchAttrXGMI0NopTx:
		return int64(f.XGMI[0].TxNops), true
	case types.WatchAttrXGMI0ReqTx:
		return int64(f.XGMI[0].TxRequests), true
	case types.WatchAttrXGMI0RespTx:
		return int64(f.XGMI[0].TxResponses), true
	case types.WatchAttrXGMI0BeatsTx:
		return int64(f.XGMI[0].TxBeats), true
	case types.WatchAttrXGMI1NopTx:
		return int64(f.XGMI[1].TxNops), true
	case types.WatchAttrXGMI1ReqTx:
		return int64(f.XGMI[1].TxRequests), true
	case types.WatchAttrXGMI1RespTx:
		return int64(f.XGMI[1].TxResponses), true
	case types.WatchAttrXGMI1BeatsTx:
		return int64(f.XGMI[1].TxBeats), true
	case types.WatchAttrXGMI0Throughput:
		return int64(f.XGMI[0].TxThroughput), true
	case types.WatchAttrXGMI1Throughput:
		return int64(f.XGMI[1].TxThroughput), true
	case types.WatchAttrXGMI2Throughput:
		return int64(f.XGMI[2].TxThroughput), true
	case types.WatchAttrXGMI3Throughput:
		return int64(f.XGMI[3].TxThroughput), true
	case types.WatchAttrXGMI4Throughput:
		return int64(f.XGMI[4].TxThroughput), true
	case types.WatchAttrXGMI5Throughput:
		return int64(f.XGMI[5].TxThroughput), true
	default:
		return 0, false
	}
}

// ensureFirstPartitionHandle computes and caches the handle of
// partition 0 under g's parent, the first time it's needed (spec §9
// open-question resolution: computed once, lazily, on stats read).
func ensureFirstPartitionHandle(d Deps, g *types.GPU) {
	if _, ok := g.CachedFirstPartitionHandle(); ok {
		return
	}
	parent := d.Store.FindByKey(g.ParentKey)
	if parent == nil {
		return
	}
	for _, childKey := range parent.ChildKeys {
		child := d.Store.FindByKey(childKey)
		if child != nil && child.PartitionID == 0 {
			g.SetFirstPartitionHandle(child.Handle)
			return
		}
	}
}

// TopologyEdge is one peer-device entry in a device's topology listing
// (spec §4.4 read_topology).
type TopologyEdge struct {
	PeerKey objkey.Key
	Link    smi.LinkInfo
}

// ReadTopology names g "GPU{hardware id}" and walks the by-handle index
// to ask the adapter for the link to every other GPU. Unreadable links
// fall back to the sentinel hops/weight/type (spec §4.4).
func ReadTopology(d Deps, g *types.GPU) (name string, edges []TopologyEdge) {
	name = fmt.Sprintf("GPU%d", g.HWID)

	d.Store.Walk(func(other *types.GPU) bool {
		if other.Key == g.Key || other.Handle == types.InvalidHandle {
			return false
		}
		link, err := d.Adapter.TopologyLink(g.Handle, other.Handle)
		if err != nil {
			link = smi.LinkInfo{Type: smi.LinkNone, Hops: smi.LinkHopsUnknown, Weight: smi.LinkWeightUnknown}
		}
		edges = append(edges, TopologyEdge{PeerKey: other.Key, Link: link})
		return false
	})
	return name, edges
}
