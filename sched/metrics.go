package sched

import (
	"fmt"
	"sync"
)

// Metrics aggregates scheduling-fairness and throughput counters across a
// run, for final reporting by the bench CLI. Updated by whatever submits
// and completes requests (the driver's Adapter); sched itself only reads it
// to decide nothing — Metrics is purely observational. Every core's event
// loop records into the same Metrics, so the Record methods take mu; reads
// of the exported fields are only meaningful once the cores have stopped.
type Metrics struct {
	mu sync.Mutex

	LCIssued int64 // requests dequeued and submitted by an LC tenant
	BEIssued int64 // requests dequeued and submitted by a BE tenant

	LCCompleted int64
	BECompleted int64
	Faulted     int64

	// PerTenantIssued tracks issue counts keyed by FlowID, for round-robin
	// fairness checks (issued counts across saturated BE tenants should
	// differ by at most 1 over a run).
	PerTenantIssued map[int64]int64

	// PoolDonations counts donations that moved tokens into the global
	// pool and PoolAcquisitions counts acquisitions that returned tokens,
	// a coarse proxy for cross-core work-conservation activity.
	// Filled from GlobalPool.Stats by CapturePoolStats.
	PoolDonations     int64
	PoolAcquisitions  int64
	BarrierResetCount int64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{PerTenantIssued: make(map[int64]int64)}
}

// RecordIssued records one request submitted on behalf of tenant.
func (m *Metrics) RecordIssued(tenant *Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tenant.IsLC() {
		m.LCIssued++
	} else {
		m.BEIssued++
	}
	m.PerTenantIssued[tenant.FlowID]++
}

// RecordCompletion records one completion, LC or BE, OK or FAULT.
func (m *Metrics) RecordCompletion(tenant *Tenant, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !ok {
		m.Faulted++
		return
	}
	if tenant.IsLC() {
		m.LCCompleted++
	} else {
		m.BECompleted++
	}
}

// CapturePoolStats copies the global pool's donation/acquisition/reset
// counters in ahead of a Print.
func (m *Metrics) CapturePoolStats(donations, acquisitions, resets int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PoolDonations = donations
	m.PoolAcquisitions = acquisitions
	m.BarrierResetCount = resets
}

// Print displays aggregated metrics at the end of a run.
func (m *Metrics) Print() {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Println("=== Scheduler Metrics ===")
	fmt.Printf("LC issued/completed   : %d / %d\n", m.LCIssued, m.LCCompleted)
	fmt.Printf("BE issued/completed   : %d / %d\n", m.BEIssued, m.BECompleted)
	fmt.Printf("Faulted completions   : %d\n", m.Faulted)
	fmt.Printf("Pool donations/acquires : %d / %d\n", m.PoolDonations, m.PoolAcquisitions)
	fmt.Printf("Barrier resets        : %d\n", m.BarrierResetCount)
	if len(m.PerTenantIssued) > 0 {
		fmt.Println("Per-tenant issued:")
		for flowID, n := range m.PerTenantIssued {
			fmt.Printf("  flow=%d: %d\n", flowID, n)
		}
	}
}
