package rpcapi

import (
	"encoding/hex"
	"fmt"

	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/types"
)

func keyString(k objkey.Key) string { return k.String() }

func parseKey(s string) (objkey.Key, error) {
	if s == "" {
		return objkey.Invalid, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return objkey.Key{}, fmt.Errorf("rpcapi: malformed key %q: %w", s, err)
	}
	if len(b) != len(objkey.Key{}) {
		return objkey.Key{}, fmt.Errorf("rpcapi: key %q has wrong length", s)
	}
	return objkey.FromBytes(b), nil
}

func keysString(ks []objkey.Key) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = keyString(k)
	}
	return out
}

func parseKeys(ss []string) ([]objkey.Key, error) {
	out := make([]objkey.Key, len(ss))
	for i, s := range ss {
		k, err := parseKey(s)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

// ClockFreqRangeDTO mirrors types.ClockFreqRange.
type ClockFreqRangeDTO struct {
	Type int    `json:"type"`
	Lo   uint32 `json:"lo"`
	Hi   uint32 `json:"hi"`
}

// GPUSpecDTO is the wire form of types.GPUSpec.
type GPUSpecDTO struct {
	AdminState           int                 `json:"admin_state"`
	OverdriveLevel       uint32              `json:"overdrive_level"`
	PowerCap             uint32              `json:"power_cap"`
	PerfLevel            int                 `json:"perf_level"`
	ClockFreqRanges      []ClockFreqRangeDTO `json:"clock_freq_ranges,omitempty"`
	FanSpeed             uint32              `json:"fan_speed"`
	RASPolicy            []byte              `json:"ras_policy,omitempty"`
	MemoryPartitionType  int                 `json:"memory_partition_type"`
	ComputePartitionType int                 `json:"compute_partition_type"`
}

func specToDTO(s types.GPUSpec) GPUSpecDTO {
	ranges := make([]ClockFreqRangeDTO, len(s.ClockFreqRanges))
	for i, r := range s.ClockFreqRanges {
		ranges[i] = ClockFreqRangeDTO{Type: int(r.Type), Lo: r.Lo, Hi: r.Hi}
	}
	return GPUSpecDTO{
		AdminState:           int(s.AdminState),
		OverdriveLevel:       s.OverdriveLevel,
		PowerCap:             s.PowerCap,
		PerfLevel:            int(s.PerfLevel),
		ClockFreqRanges:      ranges,
		FanSpeed:             s.FanSpeed,
		RASPolicy:            s.RASPolicy,
		MemoryPartitionType:  int(s.MemoryPartitionType),
		ComputePartitionType: int(s.ComputePartitionType),
	}
}

func specFromDTO(d GPUSpecDTO) types.GPUSpec {
	ranges := make([]types.ClockFreqRange, len(d.ClockFreqRanges))
	for i, r := range d.ClockFreqRanges {
		ranges[i] = types.ClockFreqRange{Type: types.ClockType(r.Type), Lo: r.Lo, Hi: r.Hi}
	}
	return types.GPUSpec{
		AdminState:           types.AdminState(d.AdminState),
		OverdriveLevel:       d.OverdriveLevel,
		PowerCap:             d.PowerCap,
		PerfLevel:            types.PerfLevel(d.PerfLevel),
		ClockFreqRanges:      ranges,
		FanSpeed:             d.FanSpeed,
		RASPolicy:            d.RASPolicy,
		MemoryPartitionType:  types.MemoryPartitionType(d.MemoryPartitionType),
		ComputePartitionType: types.ComputePartitionType(d.ComputePartitionType),
	}
}

// GPUImmutableStatusDTO mirrors types.GPUImmutableStatus.
type GPUImmutableStatusDTO struct {
	SerialNumber  string `json:"serial_number"`
	CardSeries    string `json:"card_series"`
	CardModel     string `json:"card_model"`
	CardVendor    string `json:"card_vendor"`
	DriverVersion string `json:"driver_version"`
	PCIBusID      string `json:"pci_bus_id"`
	NumaNode      int32  `json:"numa_node"`
}

// GPUStatusDTO mirrors smi.GPUStatus.
type GPUStatusDTO struct {
	FirmwareVersion string `json:"firmware_version"`
	PCIeSlot        string `json:"pcie_slot"`
	PowerState      string `json:"power_state"`
	ThermalState    string `json:"thermal_state"`
}

// WatchFieldsDTO mirrors types.WatchFields, flattened for the wire.
type WatchFieldsDTO struct {
	GPUClock                 uint32 `json:"gpu_clock"`
	MemClock                 uint32 `json:"mem_clock"`
	Temperature              uint32 `json:"temperature"`
	PowerUsage               uint32 `json:"power_usage"`
	GPUUtilization           uint32 `json:"gpu_utilization"`
	MemUtilization           uint32 `json:"mem_utilization"`
	PCIeTxThroughput         uint64 `json:"pcie_tx_throughput"`
	PCIeRxThroughput         uint64 `json:"pcie_rx_throughput"`
	TotalCorrectableErrors   uint64 `json:"total_correctable_errors"`
	TotalUncorrectableErrors uint64 `json:"total_uncorrectable_errors"`
}

func statsToDTO(f types.WatchFields) WatchFieldsDTO {
	return WatchFieldsDTO{
		GPUClock:                 f.GPUClock,
		MemClock:                 f.MemClock,
		Temperature:              f.Temperature,
		PowerUsage:               f.PowerUsage,
		GPUUtilization:           f.GPUUtilization,
		MemUtilization:           f.MemUtilization,
		PCIeTxThroughput:         f.PCIeTxThroughput,
		PCIeRxThroughput:         f.PCIeRxThroughput,
		TotalCorrectableErrors:   f.TotalCorrectableErrors,
		TotalUncorrectableErrors: f.TotalUncorrectableErrors,
	}
}

// GPUInfoDTO is the wire form of gpu.Info.
type GPUInfoDTO struct {
	Key       string                `json:"key"`
	Spec      GPUSpecDTO            `json:"spec"`
	IsParent  bool                  `json:"is_parent"`
	ChildKeys []string              `json:"child_keys,omitempty"`
	Status    GPUStatusDTO          `json:"status"`
	Immutable GPUImmutableStatusDTO `json:"immutable"`
	Stats     WatchFieldsDTO        `json:"stats"`
}

func infoToDTO(info gpu.Info) GPUInfoDTO {
	return GPUInfoDTO{
		Key:      keyString(info.Key),
		Spec:     specToDTO(info.Spec),
		IsParent: info.IsParent,
		ChildKeys: keysString(info.ChildKeys),
		Status: GPUStatusDTO{
			FirmwareVersion: info.Status.FirmwareVersion,
			PCIeSlot:        info.Status.PCIeSlot,
			PowerState:      info.Status.PowerState,
			ThermalState:    info.Status.ThermalState,
		},
		Immutable: GPUImmutableStatusDTO{
			SerialNumber:  info.Immutable.SerialNumber,
			CardSeries:    info.Immutable.CardSeries,
			CardModel:     info.Immutable.CardModel,
			CardVendor:    info.Immutable.CardVendor,
			DriverVersion: info.Immutable.DriverVersion,
			PCIBusID:      info.Immutable.PCIBusID,
			NumaNode:      info.Immutable.NumaNode,
		},
		Stats: statsToDTO(info.Stats),
	}
}

// GPUCreateRequest/Response cover GPU.Create.
type GPUCreateRequest struct {
	Key       string `json:"key"`
	ParentKey string `json:"parent_key,omitempty"`
}

type GPUCreateResponse struct {
	Info GPUInfoDTO `json:"info"`
}

// GPUReadRequest/Response cover GPU.Read.
type GPUReadRequest struct {
	Key string `json:"key"`
}

type GPUReadResponse struct {
	Info GPUInfoDTO `json:"info"`
}

// GPUReadAllResponse covers GPU.ReadAll.
type GPUReadAllResponse struct {
	Infos []GPUInfoDTO `json:"infos"`
}

// GPUUpdateRequest/Response cover GPU.Update.
type GPUUpdateRequest struct {
	Key  string     `json:"key"`
	Spec GPUSpecDTO `json:"spec"`
}

type GPUUpdateResponse struct {
	Info GPUInfoDTO `json:"info"`
}

// GPUDeleteRequest covers GPU.Delete.
type GPUDeleteRequest struct {
	Key string `json:"key"`
}

type GPUDeleteResponse struct{}

// WatchAttrDTO mirrors types.WatchAttr.
type WatchAttrDTO struct {
	ID    int   `json:"id"`
	Value int64 `json:"value"`
}

// GPUWatchGPUSnapshotDTO mirrors types.GPUWatchGPUSnapshot.
type GPUWatchGPUSnapshotDTO struct {
	GPUKey string         `json:"gpu_key"`
	Attrs  []WatchAttrDTO `json:"attrs"`
}

func snapshotToDTO(s []types.GPUWatchGPUSnapshot) []GPUWatchGPUSnapshotDTO {
	out := make([]GPUWatchGPUSnapshotDTO, len(s))
	for i, e := range s {
		attrs := make([]WatchAttrDTO, len(e.Attrs))
		for j, a := range e.Attrs {
			attrs[j] = WatchAttrDTO{ID: int(a.ID), Value: a.Value}
		}
		out[i] = GPUWatchGPUSnapshotDTO{GPUKey: keyString(e.GPUKey), Attrs: attrs}
	}
	return out
}

// GPUWatchInfoDTO is the wire form of a types.GPUWatch.
type GPUWatchInfoDTO struct {
	Key             string                   `json:"key"`
	GPUKeys         []string                 `json:"gpu_keys"`
	AttrIDs         []int                    `json:"attr_ids"`
	SubscriberCount int                      `json:"subscriber_count"`
	Snapshot        []GPUWatchGPUSnapshotDTO `json:"snapshot,omitempty"`
}

// GPUWatchCreateRequest/Response cover GPUWatch.Create.
type GPUWatchCreateRequest struct {
	Key     string   `json:"key"`
	GPUKeys []string `json:"gpu_keys"`
	AttrIDs []int    `json:"attr_ids"`
}

type GPUWatchCreateResponse struct {
	Info GPUWatchInfoDTO `json:"info"`
}

// GPUWatchReadRequest/Response cover GPUWatch.Read.
type GPUWatchReadRequest struct {
	Key string `json:"key"`
}

type GPUWatchReadResponse struct {
	Info GPUWatchInfoDTO `json:"info"`
}

// GPUWatchReadAllResponse covers GPUWatch.ReadAll.
type GPUWatchReadAllResponse struct {
	Infos []GPUWatchInfoDTO `json:"infos"`
}

// GPUWatchDeleteRequest covers GPUWatch.Delete.
type GPUWatchDeleteRequest struct {
	Key string `json:"key"`
}

type GPUWatchDeleteResponse struct{}

// GPUWatchSubscribeRequest covers the single streaming request message
// for GPUWatch.Subscribe: the caller sends exactly one message naming
// the watch-ids to follow, then reads snapshots until the stream
// closes.
type GPUWatchSubscribeRequest struct {
	WatchKeys  []string `json:"watch_keys"`
	ClientName string   `json:"client_name"`
}

// GPUWatchSnapshotMessage is one streamed GPUWatch.Subscribe message.
type GPUWatchSnapshotMessage struct {
	WatchKey string                   `json:"watch_key"`
	Snapshot []GPUWatchGPUSnapshotDTO `json:"snapshot"`
}

// ComputePartitionDTO is the GPUComputePartition read-only view.
type ComputePartitionDTO struct {
	GPUKey               string   `json:"gpu_key"`
	PartitionKeys        []string `json:"partition_keys"`
	ComputePartitionType int      `json:"compute_partition_type"`
}

// MemoryPartitionDTO is the GPUMemoryPartition read-only view.
type MemoryPartitionDTO struct {
	GPUKey              string   `json:"gpu_key"`
	PartitionKeys       []string `json:"partition_keys"`
	MemoryPartitionType int      `json:"memory_partition_type"`
}

type GPUComputePartitionGetRequest struct {
	GPUKey string `json:"gpu_key"`
}

type GPUComputePartitionGetResponse struct {
	Partition ComputePartitionDTO `json:"partition"`
}

type GPUComputePartitionGetAllResponse struct {
	Partitions []ComputePartitionDTO `json:"partitions"`
}

type GPUMemoryPartitionGetRequest struct {
	GPUKey string `json:"gpu_key"`
}

type GPUMemoryPartitionGetResponse struct {
	Partition MemoryPartitionDTO `json:"partition"`
}

type GPUMemoryPartitionGetAllResponse struct {
	Partitions []MemoryPartitionDTO `json:"partitions"`
}

// BadPageRecordDTO mirrors smi.BadPageRecord.
type BadPageRecordDTO struct {
	Address       uint64 `json:"address"`
	Size          uint64 `json:"size"`
	RetiredReason string `json:"retired_reason"`
}

func badPageToDTO(r smi.BadPageRecord) BadPageRecordDTO {
	return BadPageRecordDTO{Address: r.Address, Size: r.Size, RetiredReason: r.RetiredReason}
}

// GPUBadPageReadRequest covers GPUBadPage.Read (one GPU).
type GPUBadPageReadRequest struct {
	GPUKey string `json:"gpu_key"`
}

// GPUBadPageReadAllRequest covers GPUBadPage.ReadAll (every GPU).
type GPUBadPageReadAllRequest struct{}

// GPUBadPageMessage is one streamed page of bad-page records, bundled
// to at most 16 per message (spec §6); an empty Records slice with
// Final set ends the stream.
type GPUBadPageMessage struct {
	GPUKey  string             `json:"gpu_key"`
	Records []BadPageRecordDTO `json:"records"`
	Final   bool               `json:"final"`
}

// BadPagePageSize is the maximum number of records in one streamed
// GPUBadPage message (spec §6).
const BadPagePageSize = 16

// TopologyEdgeDTO mirrors gpu.TopologyEdge.
type TopologyEdgeDTO struct {
	PeerKey string `json:"peer_key"`
	Type    int    `json:"type"`
	Hops    int    `json:"hops"`
	Weight  int    `json:"weight"`
}

// DeviceTopologyEntryDTO is one GPU's named peer-device list.
type DeviceTopologyEntryDTO struct {
	GPUKey string            `json:"gpu_key"`
	Name   string            `json:"name"`
	Edges  []TopologyEdgeDTO `json:"edges"`
}

// DeviceTopologyGetAllResponse covers DeviceTopology.GetAll.
type DeviceTopologyGetAllResponse struct {
	Devices []DeviceTopologyEntryDTO `json:"devices"`
}

// TaskCreateRequest covers Task.Create. Kind selects which of the
// payload fields is meaningful (spec §6: one of {GPU reset,
// watch-db update, watch-subscriber add/del}).
type TaskCreateRequest struct {
	Kind     string `json:"kind"`
	GPUKey   string `json:"gpu_key,omitempty"`
	WatchKey string `json:"watch_key,omitempty"`
}

type TaskCreateResponse struct{}

// EventTargetDTO names one (gpu, event-kind) pair.
type EventTargetDTO struct {
	GPUKey string `json:"gpu_key"`
	Kind   int    `json:"kind"`
}

// EventSubscribeRequest covers the single streaming request message
// for Event.Subscribe.
type EventSubscribeRequest struct {
	GPUKeys    []string `json:"gpu_keys"`
	Kinds      []int    `json:"kinds"`
	ClientName string   `json:"client_name"`
}

// EventMessage is one streamed Event.Subscribe message.
type EventMessage struct {
	GPUKey            string `json:"gpu_key"`
	Kind              int    `json:"kind"`
	TimestampUnixNano int64  `json:"timestamp_unix_nano"`
	Message           string `json:"message"`
	SeqNum            uint64 `json:"seq_num"`
}

// EventGenerateRequest covers Event.Generate.
type EventGenerateRequest struct {
	Targets []EventTargetDTO `json:"targets"`
}

type EventGenerateResponse struct{}
