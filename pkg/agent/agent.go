// Package agent wires together every component package (C1-C9) into one
// running process: the object store, API engine, discovery pass, entity
// handlers, watcher, event monitor, subscription registry and RPC
// boundary. It is the Go analogue of the teacher's pkg/manager — minus
// Raft, minus persistence, since this is a node-local, stateless-at-rest
// agent (spec Non-goals).
package agent

import (
	"net"
	"net/http"

	"github.com/aga-project/aga/pkg/config"
	"github.com/aga-project/aga/pkg/discovery"
	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/eventmon"
	"github.com/aga-project/aga/pkg/gpu"
	"github.com/aga-project/aga/pkg/gpuwatch"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/metrics"
	"github.com/aga-project/aga/pkg/rpcapi"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/aga-project/aga/pkg/store"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/task"
	"github.com/aga-project/aga/pkg/types"
	"github.com/aga-project/aga/pkg/watcher"
)

// MetricsAddr is the loopback address the Prometheus handler listens on,
// grounded on the teacher's fixed metrics.Handler() binding.
const MetricsAddr = "127.0.0.1:9090"

// Agent owns every long-lived goroutine and listener for one node.
type Agent struct {
	Config config.Config

	GPUStore   *store.GPUStore
	WatchStore *store.GPUWatchStore
	Engine     *engine.Engine
	Adapter    smi.Adapter
	Registry   *subscription.Registry
	Watcher    *watcher.Watcher
	EventMon   *eventmon.Monitor
	RPC        *rpcapi.Server

	metricsSrv *http.Server
}

// New builds an Agent with adapter as the SMI backend (the real binding
// in production, pkg/smi.Simulator in tests/dev). It does not start any
// goroutine or listener; call Run for that.
func New(cfg config.Config, adapter smi.Adapter) *Agent {
	gpuStore := store.NewGPUStore()
	watchStore := store.NewGPUWatchStore()

	e := engine.New()
	e.Register(types.KindGPU, gpu.NewHandlers(gpu.Deps{Store: gpuStore, Adapter: adapter}))
	e.Register(types.KindGPUWatch, gpuwatch.NewHandlers(gpuwatch.Deps{WatchStore: watchStore, GPUStore: gpuStore}))
	e.Register(types.KindTask, task.NewHandlers(task.Deps{GPUStore: gpuStore, WatchStore: watchStore, Adapter: adapter}))

	registry := subscription.NewRegistry()
	w := watcher.New(adapter, gpuStore, watchStore, e, registry)
	mon := eventmon.New(adapter, gpuStore, registry)

	rpc := rpcapi.NewServer(rpcapi.Deps{
		GPUStore:   gpuStore,
		WatchStore: watchStore,
		Engine:     e,
		Adapter:    adapter,
		Watcher:    w,
		EventMon:   mon,
		Registry:   registry,
	})

	return &Agent{
		Config:     cfg,
		GPUStore:   gpuStore,
		WatchStore: watchStore,
		Engine:     e,
		Adapter:    adapter,
		Registry:   registry,
		Watcher:    w,
		EventMon:   mon,
		RPC:        rpc,
	}
}

// Run starts the engine, runs discovery once, arms the event monitor,
// launches the watcher/event-monitor goroutines and the Prometheus
// handler, then serves RPC on lis until Stop is called. It blocks until
// the RPC server returns.
func (a *Agent) Run(lis net.Listener) error {
	a.Engine.Start()

	if err := discovery.Run(discovery.Deps{Adapter: a.Adapter, Store: a.GPUStore, Engine: a.Engine}); err != nil {
		log.Logger.Error().Err(err).Msg("agent: discovery failed")
	}

	a.Watcher.InitCounters()
	a.EventMon.Init()

	a.Watcher.Start()
	a.EventMon.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsSrv = &http.Server{Addr: MetricsAddr, Handler: mux}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("agent: metrics server error")
		}
	}()

	log.Logger.Info().Str("addr", lis.Addr().String()).Msg("agent: rpc server listening")
	return a.RPC.Serve(lis)
}

// Stop tears down every goroutine and listener started by Run.
func (a *Agent) Stop() {
	a.RPC.GracefulStop()
	a.Watcher.Stop()
	a.EventMon.Stop()
	a.Engine.Stop()
	if a.metricsSrv != nil {
		a.metricsSrv.Close()
	}
}
