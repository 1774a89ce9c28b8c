package watcher

import (
	"sync"
	"time"

	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/gpuwatch"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/metrics"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/types"
)

// DefaultStartupDelay lets discovery finish populating the store before
// the first sample tick.
const DefaultStartupDelay = 10 * time.Second

// DefaultTickInterval is the per-GPU sample cadence.
const DefaultTickInterval = 1 * time.Second

// DefaultFanoutEveryNTicks is how many sample ticks elapse between
// subscriber fan-out rounds (spec §4.5, N = 5).
const DefaultFanoutEveryNTicks = 5

// Watcher is the watcher thread (C6).
type Watcher struct {
	Adapter    smi.Adapter
	GPUStore   *store.GPUStore
	WatchStore *store.GPUWatchStore
	Engine     *engine.Engine
	Registry   *subscription.Registry

	StartupDelay      time.Duration
	TickInterval      time.Duration
	FanoutEveryNTicks uint64

	countersMu sync.Mutex
	counters   map[types.Handle]map[smi.CounterType]smi.CounterHandle

	tickCount uint64
	stopCh    chan struct{}

	subscribeCh chan subscribeRequest
}

// New builds a Watcher with the spec's default delay and cadences.
func New(adapter smi.Adapter, gpuStore *store.GPUStore, watchStore *store.GPUWatchStore, e *engine.Engine, registry *subscription.Registry) *Watcher {
	return &Watcher{
		Adapter:           adapter,
		GPUStore:          gpuStore,
		WatchStore:        watchStore,
		Engine:            e,
		Registry:          registry,
		StartupDelay:      DefaultStartupDelay,
		TickInterval:      DefaultTickInterval,
		FanoutEveryNTicks: DefaultFanoutEveryNTicks,
		counters:          make(map[types.Handle]map[smi.CounterType]smi.CounterHandle),
		stopCh:            make(chan struct{}),
		subscribeCh:       make(chan subscribeRequest, 64),
	}
}

// InitCounters registers the XGMI counters every currently-known GPU
// supports. Failed registrations are logged and the corresponding
// field stays zero for that GPU (spec §4.5).
func (w *Watcher) InitCounters() {
	w.GPUStore.Walk(func(g *types.GPU) bool {
		g.Lock()
		handle := g.Handle
		key := g.Key
		g.Unlock()
		w.registerCounters(handle, key)
		return false
	})
}

func (w *Watcher) registerCounters(handle types.Handle, key objkey.Key) {
	w.countersMu.Lock()
	defer w.countersMu.Unlock()
	m, ok := w.counters[handle]
	if !ok {
		m = make(map[smi.CounterType]smi.CounterHandle)
		w.counters[handle] = m
	}
	for _, ct := range xgmiDataOutCounters {
		w.registerOne(m, handle, key, ct)
	}
	for _, ct := range xgmiTxCounters {
		w.registerOne(m, handle, key, ct)
	}
}

func (w *Watcher) registerOne(m map[smi.CounterType]smi.CounterHandle, handle types.Handle, key objkey.Key, ct smi.CounterType) {
	if _, ok := m[ct]; ok {
		return
	}
	ch, err := w.Adapter.RegisterCounter(handle, ct)
	if err != nil {
		log.Logger.Warn().Str("gpu_key", key.String()).Int("counter", int(ct)).Err(err).Msg("watcher: counter registration failed")
		return
	}
	m[ct] = ch
}

func (w *Watcher) counterHandle(handle types.Handle, ct smi.CounterType) (smi.CounterHandle, bool) {
	w.countersMu.Lock()
	defer w.countersMu.Unlock()
	m, ok := w.counters[handle]
	if !ok {
		return 0, false
	}
	ch, ok := m[ct]
	return ch, ok
}

// Start launches the watcher goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop signals the watcher goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) run() {
	select {
	case <-time.After(w.StartupDelay):
	case <-w.stopCh:
		return
	}

	ticker := time.NewTicker(w.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick()
		case req := <-w.subscribeCh:
			w.handleSubscribe(req)
		case <-w.stopCh:
			return
		}
	}
}

// Tick samples every GPU, submits one watch-db-update task covering
// all of them, and performs subscriber fan-out every Nth tick.
func (w *Watcher) Tick() {
	timer := metrics.NewTimer()

	var samples []types.GPUWatchSample
	w.GPUStore.Walk(func(g *types.GPU) bool {
		g.Lock()
		handle := g.Handle
		key := g.Key
		isParent := g.IsParent()
		g.Unlock()
		if isParent {
			return false
		}
		samples = append(samples, types.GPUWatchSample{GPUKey: key, Fields: w.sampleGPU(handle)})
		return false
	})

	if len(samples) > 0 {
		task := &types.Task{Kind: types.TaskWatchDBUpdate, WatchDBUpdate: &types.WatchDBUpdateParams{Samples: samples}}
		resp := w.Engine.Submit(engine.Request{Kind: types.KindTask, Op: types.OpCreate, Params: task})
		if resp.Err != nil {
			log.Logger.Error().Str("err", resp.Err.Error()).Msg("watcher: watch-db-update task failed")
		}
	}
	timer.ObserveDuration(metrics.WatchTickDuration)

	w.tickCount++
	if w.FanoutEveryNTicks > 0 && w.tickCount%w.FanoutEveryNTicks == 0 {
		w.fanout()
	}
}

func (w *Watcher) fanout() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WatchFanoutDuration)

	gpuDeps := gpu.Deps{Store: w.GPUStore, Adapter: w.Adapter}
	w.WatchStore.Walk(func(wg *types.GPUWatch) bool {
		snapshot := gpuwatch.Snapshot(gpuDeps, wg)
		wg.Lock()
		wg.LastSnapshot = snapshot
		wg.Unlock()
		w.Registry.FanoutWatch(wg.Key, snapshot)
		return false
	})

	for _, removed := range w.Registry.ReapInactiveWatchGroups() {
		task := &types.Task{Kind: types.TaskWatchSubscriberDel, WatchSubscriberDel: &types.WatchSubscriberParams{WatchKey: removed.WatchKey}}
		resp := w.Engine.Submit(engine.Request{Kind: types.KindTask, Op: types.OpCreate, Params: task})
		if resp.Err != nil {
			log.Logger.Error().Str("err", resp.Err.Error()).Msg("watcher: watch-subscriber-del task failed")
		}
	}
}
