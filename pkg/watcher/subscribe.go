package watcher

import (
	"github.com/aga-project/aga/pkg/engine"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/subscription"
	"github.com/aga-project/aga/pkg/types"
)

// subscribeRequest is the process-local message the RPC boundary
// dispatches to the watcher goroutine for a watch-subscribe call (spec
// §4.5 "Subscription ingress").
type subscribeRequest struct {
	WatchKeys []objkey.Key
	Client    *subscription.Client
	Callback  subscription.WatchCallback
	done      chan struct{}
}

// Subscribe delivers a watch-subscribe request to the watcher goroutine
// and blocks until it has been applied. For every watch-id the client
// is not already subscribed to, the registry set gains the client and
// the watch group's authoritative subscriber refcount is bumped
// through the engine; duplicate subscribes are idempotent.
func (w *Watcher) Subscribe(watchKeys []objkey.Key, client *subscription.Client, cb subscription.WatchCallback) {
	req := subscribeRequest{WatchKeys: watchKeys, Client: client, Callback: cb, done: make(chan struct{})}
	select {
	case w.subscribeCh <- req:
	case <-w.stopCh:
		return
	}
	<-req.done
}

func (w *Watcher) handleSubscribe(req subscribeRequest) {
	defer close(req.done)
	for _, wk := range req.WatchKeys {
		added := w.Registry.SubscribeWatch(wk, req.Client, req.Callback)
		if !added {
			continue
		}
		resp := w.Engine.Submit(engine.Request{
			Kind: types.KindGPUWatch, Op: types.OpUpdate, Key: wk,
			Params: types.GPUWatchSubscriberDelta{Delta: 1},
		})
		if resp.Err != nil {
			log.Logger.Error().Str("watch_key", wk.String()).Str("err", resp.Err.Error()).Msg("watcher: subscriber refcount bump failed")
		}
	}
}
