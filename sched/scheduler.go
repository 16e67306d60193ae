package sched

import (
	"sort"
	"time"
)

// Submitter is the scheduler's view of the submission path: handing a
// dequeued request to the raw driver. The driver package implements
// this; sched never talks to the device directly.
type Submitter interface {
	Submit(req *RequestContext)
}

// CoreScheduler runs the two-subround scheduling loop for the tenants owned
// by one core: latency-critical queues drain first against their credit,
// then best-effort queues share what remains. It is driven by the host
// event loop calling Sched() once per iteration; it is not safe to call
// Sched() concurrently with itself, and it must only ever be called from
// the core it is bound to.
type CoreScheduler struct {
	core      int
	admission *AdmissionController
	pool      *GlobalPool
	submitter Submitter

	lastSched time.Time
	rrStart   int
}

// NewCoreScheduler creates a scheduler for the given core index.
func NewCoreScheduler(core int, admission *AdmissionController, pool *GlobalPool, submitter Submitter) *CoreScheduler {
	return &CoreScheduler{
		core:      core,
		admission: admission,
		pool:      pool,
		submitter: submitter,
		lastSched: time.Now(),
	}
}

// coreTenants returns this core's LC and BE tenants, each sorted by
// ascending FlowID (a stable order across rounds).
func (s *CoreScheduler) coreTenants() (lc, be []*Tenant) {
	s.admission.Table().Each(func(h TenantHandle, t *Tenant) {
		if t.OwningCore != s.core {
			return
		}
		if t.IsLC() {
			lc = append(lc, t)
		} else {
			be = append(be, t)
		}
	})
	sort.Slice(lc, func(i, j int) bool { return lc[i].FlowID < lc[j].FlowID })
	sort.Slice(be, func(i, j int) bool { return be[i].FlowID < be[j].FlowID })
	return lc, be
}

// Sched runs one scheduling iteration: subround 1 (LC) then subround 2 (BE),
// then marks this core scheduled against the global barrier.
func (s *CoreScheduler) Sched(now time.Time) {
	deltaUS := now.Sub(s.lastSched).Microseconds()
	if deltaUS < 0 {
		deltaUS = 0
	}
	s.lastSched = now

	lcTenants, beTenants := s.coreTenants()

	localLeftover := s.runLC(lcTenants, deltaUS)
	s.reconcileAndServeBE(beTenants, deltaUS, localLeftover, 0)

	s.pool.MarkScheduled(s.core)
}

// runLC is subround 1: replenish credit, drain up to the deficit
// floor, spill surplus credit to a per-core leftover returned for the BE
// reconciliation step.
func (s *CoreScheduler) runLC(lcTenants []*Tenant, deltaUS int64) (localLeftover int64) {
	for _, t := range lcTenants {
		q := t.Queue
		increment := int64(t.ScaledIOPSPerUS*float64(deltaUS) + 0.5)
		q.TokenCredit += increment

		for !q.IsEmpty() && q.TokenCredit > -TokenDeficitLimit {
			req := q.PopFront()
			s.submitter.Submit(req)
			q.TokenCredit -= req.Cost
		}

		// A tenant in deficit does not borrow from the global pool;
		// deficit is a pure backpressure signal until replenishment
		// recovers the credit.
		// TODO: consider letting a deficit tenant grab from the global
		// token bucket.

		posLimit := 3 * increment
		if q.TokenCredit > posLimit {
			donate := int64(float64(q.TokenCredit) * TokenFracGiveaway)
			localLeftover += donate
			q.TokenCredit -= donate
		}
	}

	return localLeftover
}

// reconcileAndServeBE is subround 2: reconcile the core's leftover
// against its BE demand with the global pool, then serve BE tenants
// round-robin from rrStart.
func (s *CoreScheduler) reconcileAndServeBE(beTenants []*Tenant, deltaUS, localLeftover, localExtraDemand int64) {
	for _, t := range beTenants {
		localExtraDemand += t.Queue.TotalTokenDemand - t.Queue.SavedTokens
	}

	var beTokens int64
	switch {
	case localLeftover > 0 && localExtraDemand == 0:
		s.pool.Donate(localLeftover)
		return
	case localLeftover < localExtraDemand:
		acquired := s.pool.TryAcquire(localExtraDemand - localLeftover)
		beTokens = localLeftover + acquired
	default:
		beTokens = localLeftover
	}

	n := len(beTenants)
	if n == 0 {
		if beTokens > 0 {
			s.pool.Donate(beTokens)
		}
		return
	}
	if s.rrStart >= n {
		s.rrStart = 0
	}

	bePerTenantRate := s.admission.BEPerTenantRate()
	for i := 0; i < n; i++ {
		t := beTenants[(s.rrStart+i)%n]
		q := t.Queue

		beTokens += q.TakeSavedTokens()
		beTokens += int64(bePerTenantRate*float64(deltaUS)/1e6 + 0.5)

		for !q.IsEmpty() && q.PeekHeadCost() <= beTokens {
			req := q.PopFront()
			s.submitter.Submit(req)
			beTokens -= req.Cost
		}
		beTokens -= q.SaveTokens(beTokens)
	}

	s.rrStart = (s.rrStart + 1) % n

	if beTokens > 0 {
		s.pool.Donate(beTokens)
	}
}

