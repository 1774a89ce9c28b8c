package engine

import (
	"container/heap"
	"time"

	"github.com/aga-project/aga/pkg/types"
)

// DefaultDeleteDelay is the fixed delay a removed object is held before
// its destructor runs, giving in-flight readers a bounded window to
// finish (spec §4.2 "delayed destruction").
const DefaultDeleteDelay = 2 * time.Second

type reaperEntry struct {
	readyAt time.Time
	kind    types.Kind
	obj     interface{}
	index   int
}

type reaperHeap []*reaperEntry

func (h reaperHeap) Len() int            { return len(h) }
func (h reaperHeap) Less(i, j int) bool  { return h[i].readyAt.Before(h[j].readyAt) }
func (h reaperHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *reaperHeap) Push(x interface{}) {
	e := x.(*reaperEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *reaperHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// reaper owns the min-heap of pending delayed destructions and the
// goroutine that pops and destroys entries as they come due.
type reaper struct {
	delay time.Duration

	enqueueCh chan *reaperEntry
	doneCh    chan struct{}

	pendingGauge func(n int)
}

func newReaper(delay time.Duration, pendingGauge func(n int)) *reaper {
	return &reaper{
		delay:        delay,
		enqueueCh:    make(chan *reaperEntry, 256),
		doneCh:       make(chan struct{}),
		pendingGauge: pendingGauge,
	}
}

func (r *reaper) enqueue(kind types.Kind, obj interface{}) {
	r.enqueueCh <- &reaperEntry{readyAt: time.Now().Add(r.delay), kind: kind, obj: obj}
}

func (r *reaper) run(destroy func(kind types.Kind, obj interface{})) {
	h := &reaperHeap{}
	heap.Init(h)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case e := <-r.enqueueCh:
			heap.Push(h, e)
			if r.pendingGauge != nil {
				r.pendingGauge(h.Len())
			}
		case <-ticker.C:
			now := time.Now()
			for h.Len() > 0 && (*h)[0].readyAt.Before(now) {
				e := heap.Pop(h).(*reaperEntry)
				destroy(e.kind, e.obj)
			}
			if r.pendingGauge != nil {
				r.pendingGauge(h.Len())
			}
		case <-r.doneCh:
			return
		}
	}
}

func (r *reaper) stop() {
	close(r.doneCh)
}
