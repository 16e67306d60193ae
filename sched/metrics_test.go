package sched

import "testing"

func TestMetrics_RecordIssuedSplitsLCAndBE(t *testing.T) {
	m := NewMetrics()
	lc := &Tenant{FlowID: 1, LCFlag: true}
	be := &Tenant{FlowID: 2, LCFlag: false}

	m.RecordIssued(lc)
	m.RecordIssued(be)
	m.RecordIssued(be)

	if m.LCIssued != 1 {
		t.Errorf("LCIssued = %d, want 1", m.LCIssued)
	}
	if m.BEIssued != 2 {
		t.Errorf("BEIssued = %d, want 2", m.BEIssued)
	}
	if m.PerTenantIssued[2] != 2 {
		t.Errorf("PerTenantIssued[2] = %d, want 2", m.PerTenantIssued[2])
	}
}

func TestMetrics_RecordCompletionFault(t *testing.T) {
	m := NewMetrics()
	tenant := &Tenant{FlowID: 1, LCFlag: true}

	m.RecordCompletion(tenant, true)
	m.RecordCompletion(tenant, false)

	if m.LCCompleted != 1 {
		t.Errorf("LCCompleted = %d, want 1", m.LCCompleted)
	}
	if m.Faulted != 1 {
		t.Errorf("Faulted = %d, want 1", m.Faulted)
	}
}
