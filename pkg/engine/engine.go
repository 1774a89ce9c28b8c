package engine

import (
	"time"

	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/metrics"
	"github.com/aga-project/aga/pkg/types"
)

// Engine is the single-writer API engine (C3). All mutating requests
// are marshaled through Submit onto reqCh and applied by one goroutine,
// so every object is mutated by exactly one thread at a time.
type Engine struct {
	handlers map[types.Kind]*Handlers
	reqCh    chan inflightRequest
	reaper   *reaper
	stopCh   chan struct{}
}

// New builds an Engine with the default delayed-delete window. Register
// every kind's Handlers before calling Start.
func New() *Engine {
	return &Engine{
		handlers: make(map[types.Kind]*Handlers),
		reqCh:    make(chan inflightRequest, 256),
		reaper:   newReaper(DefaultDeleteDelay, func(n int) { metrics.ReaperPending.Set(float64(n)) }),
		stopCh:   make(chan struct{}),
	}
}

// Register installs the dispatch entry for kind. Must be called before
// Start.
func (e *Engine) Register(kind types.Kind, h *Handlers) {
	e.handlers[kind] = h
}

// Start launches the engine goroutine and the reaper goroutine.
func (e *Engine) Start() {
	go e.run()
	go e.reaper.run(e.destroy)
}

// Stop signals both goroutines to exit. It does not drain pending
// requests.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.reaper.stop()
}

// Submit sends req to the engine goroutine and blocks for its result.
func (e *Engine) Submit(req Request) Response {
	reply := make(chan Response, 1)
	e.reqCh <- inflightRequest{req: req, reply: reply}
	return <-reply
}

func (e *Engine) run() {
	for {
		select {
		case ir := <-e.reqCh:
			start := time.Now()
			resp := e.apply(ir.req)
			metrics.EngineOpDuration.WithLabelValues(ir.req.Kind.String(), ir.req.Op.String()).Observe(time.Since(start).Seconds())
			ir.reply <- resp
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) apply(req Request) Response {
	h, ok := e.handlers[req.Kind]
	if !ok {
		log.Logger.Error().Int("kind", int(req.Kind)).Msg("engine: unknown object kind")
		return Response{Err: types.NewError(types.ERR, "unknown object kind")}
	}

	switch req.Op {
	case types.OpCreate:
		return e.applyCreate(req, h)
	case types.OpUpdate:
		return e.applyUpdate(req, h)
	case types.OpDelete:
		return e.applyDelete(req, h)
	default:
		log.Logger.Error().Str("kind", req.Kind.String()).Msg("engine: unknown op")
		return Response{Err: types.NewError(types.ERR, "unknown op")}
	}
}

func (e *Engine) applyCreate(req Request, h *Handlers) Response {
	if !h.Stateless {
		if existing := h.Find(req.Key); existing != nil {
			metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "create", "err").Inc()
			return Response{Err: types.NewError(types.EntryExists, "key already present")}
		}
	}

	obj, err := h.Factory(req.Key, req.Params)
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "create", "err").Inc()
		return Response{Err: err}
	}

	if err := h.Create(obj, req.Params); err != nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "create", "err").Inc()
		return Response{Err: err}
	}

	if h.Stateless {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "create", "ok").Inc()
		return Response{Obj: obj}
	}

	if err := h.Insert(obj); err != nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "create", "err").Inc()
		return Response{Err: err}
	}
	metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "create", "ok").Inc()
	return Response{Obj: obj}
}

func (e *Engine) applyUpdate(req Request, h *Handlers) Response {
	obj := h.Find(req.Key)
	if obj == nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "update", "err").Inc()
		return Response{Err: types.NewError(types.EntryNotFound, "key not found")}
	}
	if err := h.Update(obj, req.Params); err != nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "update", "err").Inc()
		return Response{Err: err, Obj: obj}
	}
	metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "update", "ok").Inc()
	return Response{Obj: obj}
}

func (e *Engine) applyDelete(req Request, h *Handlers) Response {
	obj := h.Find(req.Key)
	if obj == nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "delete", "err").Inc()
		return Response{Err: types.NewError(types.EntryNotFound, "key not found")}
	}
	if err := h.Delete(obj); err != nil {
		metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "delete", "err").Inc()
		return Response{Err: err}
	}
	removed := h.Remove(req.Key)
	e.reaper.enqueue(req.Kind, removed)
	metrics.StoreOpsTotal.WithLabelValues(req.Kind.String(), "delete", "ok").Inc()
	return Response{}
}

func (e *Engine) destroy(kind types.Kind, obj interface{}) {
	h, ok := e.handlers[kind]
	if !ok || h.Destroy == nil {
		return
	}
	h.Destroy(obj)
}
