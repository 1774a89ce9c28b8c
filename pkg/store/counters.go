package store

import "sync/atomic"

// Counters is the per-store operation tally named in spec §4.1.
type Counters struct {
	InsertOK  atomic.Uint64
	InsertErr atomic.Uint64
	RemoveOK  atomic.Uint64
	RemoveErr atomic.Uint64
	UpdateOK  atomic.Uint64
	UpdateErr atomic.Uint64
	NumElems  atomic.Int64
}

func (c *Counters) insertOK() { c.InsertOK.Add(1); c.NumElems.Add(1) }
func (c *Counters) insertErr() { c.InsertErr.Add(1) }
func (c *Counters) removeOK()  { c.RemoveOK.Add(1); c.NumElems.Add(-1) }
func (c *Counters) removeErr() { c.RemoveErr.Add(1) }
func (c *Counters) updateOK()  { c.UpdateOK.Add(1) }
func (c *Counters) updateErr() { c.UpdateErr.Add(1) }

// Snapshot is a point-in-time copy of Counters suitable for exporting.
type Snapshot struct {
	InsertOK, InsertErr uint64
	RemoveOK, RemoveErr uint64
	UpdateOK, UpdateErr uint64
	NumElems            int64
}

// Snapshot reads all counters without synchronizing them against each
// other (each field is individually atomic; the aggregate is advisory).
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		InsertOK:  c.InsertOK.Load(),
		InsertErr: c.InsertErr.Load(),
		RemoveOK:  c.RemoveOK.Load(),
		RemoveErr: c.RemoveErr.Load(),
		UpdateOK:  c.UpdateOK.Load(),
		UpdateErr: c.UpdateErr.Load(),
		NumElems:  c.NumElems.Load(),
	}
}
