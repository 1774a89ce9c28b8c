package eventmon

import (
	"sync/atomic"
	"time"

	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/metrics"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/types"
)

// DefaultStartupDelay is how long the monitor waits before its first
// poll, to let discovery populate the store first.
const DefaultStartupDelay = 10 * time.Second

// DefaultTickInterval is the steady-state poll cadence (spec §4.6).
const DefaultTickInterval = 3 * time.Second

// MaxEventsPerGPU bounds how many accumulated events PollEvents may
// return for a single GPU in one tick.
const MaxEventsPerGPU = 64

// Monitor is the event-monitor thread.
type Monitor struct {
	Adapter  smi.Adapter
	GPUStore *store.GPUStore
	Registry *subscription.Registry

	StartupDelay time.Duration
	TickInterval time.Duration

	seqNum atomic.Uint64
	stopCh chan struct{}
}

// New builds a Monitor with the spec's default delay and cadence.
func New(adapter smi.Adapter, gpuStore *store.GPUStore, registry *subscription.Registry) *Monitor {
	return &Monitor{
		Adapter:      adapter,
		GPUStore:     gpuStore,
		Registry:     registry,
		StartupDelay: DefaultStartupDelay,
		TickInterval: DefaultTickInterval,
		stopCh:       make(chan struct{}),
	}
}

// Init arms event notification for every GPU currently in the store
// (spec §4.6 initialization). Per-GPU failures are logged and skipped.
func (m *Monitor) Init() {
	m.GPUStore.Walk(func(g *types.GPU) bool {
		g.Lock()
		handle := g.Handle
		key := g.Key
		g.Unlock()
		if err := m.Adapter.InitEvents(handle, smi.DefaultEventMask); err != nil {
			log.Logger.Error().Str("gpu_key", key.String()).Err(err).Msg("eventmon: init_events failed")
		}
		return false
	})
}

// Start launches the monitor goroutine.
func (m *Monitor) Start() {
	go m.run()
}

// Stop signals the monitor goroutine to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) run() {
	select {
	case <-time.After(m.StartupDelay):
	case <-m.stopCh:
		return
	}

	ticker := time.NewTicker(m.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Tick()
		case <-m.stopCh:
			return
		}
	}
}

// Tick polls the adapter once, normalizes and fans out every drained
// event, then reaps subscribers that failed a callback this round.
func (m *Monitor) Tick() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EventTickDuration)

	events, err := m.Adapter.PollEvents(MaxEventsPerGPU)
	if err != nil {
		log.Logger.Error().Err(err).Msg("eventmon: poll_events failed")
		return
	}

	for _, ev := range events {
		g := m.GPUStore.FindByKey(ev.GPUKey)
		if g == nil {
			continue
		}
		g.Lock()
		handle := g.Handle
		g.Unlock()

		rec := types.EventRecord{
			Event:             ev,
			TimestampUnixNano: time.Now().UnixNano(),
			SeqNum:            m.seqNum.Add(1),
		}
		m.Registry.NotifyEvent(handle, rec)
	}

	m.Registry.ReapInactive()
}

// Generate synthesizes adapter-shaped events for targets and feeds them
// through PollEvents/NotifyEvent on the next Tick, via the same
// adapter-backed path real events take (spec §4.6 event_gen).
func (m *Monitor) Generate(targets []smi.EventTarget) error {
	return m.Adapter.GenerateEvents(targets)
}

// Read performs the event_read snapshot traversal described in spec
// §4.6: for every GPU, under its lock, invoke cb once per map entry.
func (m *Monitor) Read(cb func(handle types.Handle, kind types.EventKind, timestampUnixNano int64, message string)) {
	m.Registry.ReadEvents(cb)
}
