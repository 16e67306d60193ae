package sched

import "sync/atomic"

// GlobalPool is the single cross-core leftover-token bank: an
// atomic counter donated to by cores with surplus BE capacity and acquired
// from by cores with unmet BE demand, plus the scheduled-bit-vector barrier
// that periodically resets it so no core's stale donation starves another.
type GlobalPool struct {
	leftover atomic.Int64

	// scheduled holds one bit per active core, set when that core has run
	// sched() at least once since the last barrier reset. Each element is
	// updated atomically in isolation; there is deliberately no ordering
	// guarantee across elements — only the reset itself is atomic.
	scheduled []atomic.Bool

	donations    atomic.Int64 // donate calls that moved tokens
	acquisitions atomic.Int64 // acquires that returned tokens
	resets       atomic.Int64 // barrier resets fired
}

// NewGlobalPool creates a pool sized for numCores active cores.
func NewGlobalPool(numCores int) *GlobalPool {
	return &GlobalPool{scheduled: make([]atomic.Bool, numCores)}
}

// Donate adds amount to the leftover pool. A non-positive amount is a no-op.
func (p *GlobalPool) Donate(amount int64) {
	if amount <= 0 {
		return
	}
	p.leftover.Add(amount)
	p.donations.Add(1)
}

// TryAcquire withdraws up to demand tokens
// from the pool, returning whatever was actually available (which may be
// less than demand, or zero).
func (p *GlobalPool) TryAcquire(demand int64) int64 {
	if demand <= 0 {
		return 0
	}
	for {
		avail := p.leftover.Load()
		if demand > avail {
			if p.leftover.CompareAndSwap(avail, 0) {
				if avail > 0 {
					p.acquisitions.Add(1)
				}
				return avail
			}
		} else {
			if p.leftover.CompareAndSwap(avail, avail-demand) {
				p.acquisitions.Add(1)
				return demand
			}
		}
	}
}

// Stats reports how many donations landed, how many acquisitions returned
// tokens, and how many barrier resets have fired.
func (p *GlobalPool) Stats() (donations, acquisitions, resets int64) {
	return p.donations.Load(), p.acquisitions.Load(), p.resets.Load()
}

// Leftover reports the pool's current balance, for metrics/inspection.
func (p *GlobalPool) Leftover() int64 {
	return p.leftover.Load()
}

// MarkScheduled records that core has completed a sched() iteration. Once
// every active core's bit is set, the caller that observes the full set
// atomically zeros the pool and clears every bit, starting a new barrier
// period. A race between two cores both observing the full set is
// harmless: the second reset is a no-op over an already-zero pool.
func (p *GlobalPool) MarkScheduled(core int) {
	if core < 0 || core >= len(p.scheduled) {
		return
	}
	p.scheduled[core].Store(true)

	for i := range p.scheduled {
		if !p.scheduled[i].Load() {
			return
		}
	}
	p.leftover.Store(0)
	for i := range p.scheduled {
		p.scheduled[i].Store(false)
	}
	p.resets.Add(1)
}
