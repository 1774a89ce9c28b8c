package smi

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/types"
)

// DeviceConfig describes one physical device the Simulator should
// expose. Partitions == 0 or 1 means an unpartitioned device (a single
// Discover entry); Partitions > 1 means a partitioned device reported
// once per partition, all sharing Key.
type DeviceConfig struct {
	Key        objkey.Key
	Partitions int
}

type simDevice struct {
	key         objkey.Key
	partitionID uint32 // InvalidPartitionID if unpartitioned
}

// Simulator is a deterministic, in-memory stand-in for a real AMD SMI
// binding. It holds per-handle spec/status/stats state so that
// discovery, update and watch-sampling exercise real state transitions
// without hardware.
type Simulator struct {
	mu sync.Mutex

	devices  []DiscoveredDevice
	meta     map[types.Handle]simDevice
	specs    map[types.Handle]types.GPUSpec
	counters map[types.Handle]map[CounterType]*simCounter
	events   map[types.Handle][]types.Event
	badPages map[types.Handle][]BadPageRecord

	rng *rand.Rand

	// PowerCapMin and PowerCapMax bound the driver-enforced valid range for PowerCap, in
	// milliwatts. Simulates "after driver range check" in spec §4.4.
	PowerCapMin, PowerCapMax uint32
}

type simCounter struct {
	handle     CounterHandle
	startedAt  time.Time
	counterTyp CounterType
}

// NewSimulator builds a Simulator exposing the devices described by
// cfgs, in order. Handles are assigned sequentially starting at 1.
func NewSimulator(cfgs []DeviceConfig) *Simulator {
	s := &Simulator{
		meta:     make(map[types.Handle]simDevice),
		specs:    make(map[types.Handle]types.GPUSpec),
		counters: make(map[types.Handle]map[CounterType]*simCounter),
		events:   make(map[types.Handle][]types.Event),
		badPages: make(map[types.Handle][]BadPageRecord),
		rng:      rand.New(rand.NewSource(1)),
		PowerCapMin: 100000,
		PowerCapMax: 500000,
	}
	var next types.Handle = 1
	for _, cfg := range cfgs {
		n := cfg.Partitions
		if n <= 1 {
			h := next
			next++
			s.devices = append(s.devices, DiscoveredDevice{Handle: h, Key: cfg.Key})
			s.meta[h] = simDevice{key: cfg.Key, partitionID: types.InvalidPartitionID}
			s.specs[h] = defaultSpec()
			continue
		}
		for p := 0; p < n; p++ {
			h := next
			next++
			s.devices = append(s.devices, DiscoveredDevice{Handle: h, Key: cfg.Key})
			s.meta[h] = simDevice{key: cfg.Key, partitionID: uint32(p)}
			s.specs[h] = defaultSpec()
		}
	}
	return s
}

func defaultSpec() types.GPUSpec {
	return types.GPUSpec{
		AdminState:           types.AdminStateUp,
		OverdriveLevel:       0,
		PowerCap:             250000,
		PerfLevel:            types.PerfLevelAuto,
		FanSpeed:             128,
		MemoryPartitionType:  types.MemoryPartitionNPS1,
		ComputePartitionType: types.ComputePartitionSPX,
	}
}

func (s *Simulator) Discover() ([]DiscoveredDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DiscoveredDevice, len(s.devices))
	copy(out, s.devices)
	return out, nil
}

func (s *Simulator) GetPartitionID(handle types.Handle) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[handle]
	if !ok {
		return 0, fmt.Errorf("smi: unknown handle %d", handle)
	}
	return m.partitionID, nil
}

func (s *Simulator) FillSpec(handle types.Handle) (types.GPUSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.specs[handle]
	if !ok {
		return types.GPUSpec{}, fmt.Errorf("smi: unknown handle %d", handle)
	}
	return spec.Clone(), nil
}

func (s *Simulator) FillStatus(handle types.Handle) (GPUStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return GPUStatus{}, fmt.Errorf("smi: unknown handle %d", handle)
	}
	return GPUStatus{
		FirmwareVersion: "sim-fw-1.0",
		PCIeSlot:        fmt.Sprintf("0000:%02x:00.0", handle%256),
		PowerState:      "D0",
		ThermalState:    "normal",
	}, nil
}

func (s *Simulator) FillImmutableStatus(handle types.Handle) (types.GPUImmutableStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return types.GPUImmutableStatus{}, fmt.Errorf("smi: unknown handle %d", handle)
	}
	return types.GPUImmutableStatus{
		SerialNumber:  fmt.Sprintf("SIM-%06d", handle),
		CardSeries:    "Instinct",
		CardModel:     "MI300X",
		CardVendor:    "AMD",
		DriverVersion: "6.8.0-sim",
		PCIBusID:      fmt.Sprintf("0000:%02x:00.0", handle%256),
		NumaNode:      int32(handle % 2),
	}, nil
}

func (s *Simulator) SampleBulk(handle types.Handle) (BulkSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return BulkSample{}, fmt.Errorf("smi: unknown handle %d", handle)
	}
	base := uint32(handle)
	jitter := uint32(s.rng.Intn(50))
	return BulkSample{
		GPUClock:       1200 + base%400 + jitter,
		MemClock:       900 + base%200,
		Temperature:    45 + base%30,
		PowerUsage:     150000 + base%50000,
		GPUUtilization: uint32(s.rng.Intn(101)),
		MemUtilization: uint32(s.rng.Intn(101)),
		OK:             true,
	}, nil
}

func (s *Simulator) SamplePCIeThroughput(handle types.Handle) (tx, rx uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return 0, 0, fmt.Errorf("smi: unknown handle %d", handle)
	}
	return uint64(100+handle) * 1024, uint64(80+handle) * 1024, nil
}

func (s *Simulator) SampleECC(handle types.Handle, block ECCBlock) (ECCCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return ECCCount{}, fmt.Errorf("smi: unknown handle %d", handle)
	}
	// Deterministic, almost-always zero error counts; block 0 (SDMA) on
	// a handle that is a multiple of 7 reports one correctable error so
	// tests can exercise the accumulation path.
	if block == ECCBlockSDMA && handle%7 == 0 {
		return ECCCount{Correctable: 1}, nil
	}
	return ECCCount{}, nil
}

func (s *Simulator) RegisterCounter(handle types.Handle, counter CounterType) (CounterHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return InvalidCounterHandle, fmt.Errorf("smi: unknown handle %d", handle)
	}
	m, ok := s.counters[handle]
	if !ok {
		m = make(map[CounterType]*simCounter)
		s.counters[handle] = m
	}
	if c, ok := m[counter]; ok {
		return c.handle, nil
	}
	ch := CounterHandle(uint64(handle)<<8 | uint64(counter) + 1)
	m[counter] = &simCounter{handle: ch, startedAt: time.Now(), counterTyp: counter}
	return ch, nil
}

func (s *Simulator) ReadCounter(ch CounterHandle) (value uint64, secondsRunning uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.counters {
		for _, c := range m {
			if c.handle == ch {
				running := time.Since(c.startedAt).Seconds()
				if running < 1 {
					running = 1
				}
				return uint64(s.rng.Intn(1000)) + uint64(running), uint64(running), nil
			}
		}
	}
	return 0, 0, fmt.Errorf("smi: unknown counter handle %d", ch)
}

func (s *Simulator) Update(handle types.Handle, spec types.GPUSpec, mask types.UpdateMask) *types.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.specs[handle]
	if !ok {
		return types.NewError(types.EntryNotFound, "unknown handle")
	}

	if mask&types.UpdPowerCap != 0 && spec.PowerCap != 0 {
		if spec.PowerCap < s.PowerCapMin || spec.PowerCap > s.PowerCapMax {
			return types.NewCodedError(types.InvalidArg, types.CodePowerCapOutOfRange,
				fmt.Sprintf("power cap %d outside [%d, %d]", spec.PowerCap, s.PowerCapMin, s.PowerCapMax))
		}
	}

	next := cur.Clone()
	if mask&types.UpdAdminState != 0 {
		next.AdminState = spec.AdminState
	}
	if mask&types.UpdOverdriveLevel != 0 {
		next.OverdriveLevel = spec.OverdriveLevel
		// Adapter contract (spec §4.4): changing overdrive forces
		// manual perf level if not already set.
		if next.PerfLevel != types.PerfLevelManual {
			next.PerfLevel = types.PerfLevelManual
		}
	}
	if mask&types.UpdPowerCap != 0 {
		next.PowerCap = spec.PowerCap
	}
	if mask&types.UpdPerfLevel != 0 {
		next.PerfLevel = spec.PerfLevel
	}
	if mask&types.UpdClockFreqRange != 0 {
		next.ClockFreqRanges = append([]types.ClockFreqRange(nil), spec.ClockFreqRanges...)
	}
	if mask&types.UpdFanSpeed != 0 {
		next.FanSpeed = spec.FanSpeed
	}
	if mask&types.UpdRASPolicy != 0 {
		next.RASPolicy = append([]byte(nil), spec.RASPolicy...)
	}
	if mask&types.UpdMemoryPartitionType != 0 {
		next.MemoryPartitionType = spec.MemoryPartitionType
	}
	if mask&types.UpdComputePartitionType != 0 {
		next.ComputePartitionType = spec.ComputePartitionType
	}
	s.specs[handle] = next
	return nil
}

func (s *Simulator) Reset(handle types.Handle) *types.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return types.NewError(types.EntryNotFound, "unknown handle")
	}
	return nil
}

func (s *Simulator) TopologyLink(from, to types.Handle) (LinkInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fm, fok := s.meta[from]
	tm, tok := s.meta[to]
	if !fok || !tok {
		return LinkInfo{Type: LinkNone, Hops: LinkHopsUnknown, Weight: LinkWeightUnknown}, fmt.Errorf("smi: unknown handle")
	}
	if fm.key == tm.key {
		return LinkInfo{Type: LinkXGMI, Hops: 1, Weight: 15}, nil
	}
	return LinkInfo{Type: LinkPCIe, Hops: 2, Weight: 5}, nil
}

func (s *Simulator) InitEvents(handle types.Handle, mask EventMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return fmt.Errorf("smi: unknown handle %d", handle)
	}
	if _, ok := s.events[handle]; !ok {
		s.events[handle] = nil
	}
	return nil
}

func (s *Simulator) PollEvents(maxPerGPU int) ([]types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Event
	for h, evs := range s.events {
		n := len(evs)
		if maxPerGPU > 0 && n > maxPerGPU {
			n = maxPerGPU
		}
		for _, e := range evs[:n] {
			out = append(out, e)
		}
		s.events[h] = evs[n:]
	}
	return out, nil
}

func (s *Simulator) GenerateEvents(targets []EventTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range targets {
		m, ok := s.meta[t.GPUKeyHandle]
		if !ok {
			continue
		}
		s.events[t.GPUKeyHandle] = append(s.events[t.GPUKeyHandle], types.Event{
			GPUKey: m.key,
			Kind:   t.Kind,
			Data:   fmt.Sprintf("synthetic %s", t.Kind),
		})
	}
	return nil
}

// BadPages reports zero retired pages for every simulated device;
// tests that need non-empty pages inject them via SeedBadPages.
func (s *Simulator) BadPages(handle types.Handle) ([]BadPageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[handle]; !ok {
		return nil, fmt.Errorf("smi: unknown handle %d", handle)
	}
	return append([]BadPageRecord(nil), s.badPages[handle]...), nil
}

// SeedBadPages lets tests pre-load retired-page records for handle.
func (s *Simulator) SeedBadPages(handle types.Handle, pages []BadPageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badPages[handle] = pages
}

var _ Adapter = (*Simulator)(nil)
