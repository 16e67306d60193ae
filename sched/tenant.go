package sched

import "github.com/sirupsen/logrus"

// TenantHandle is the slot index identifying a registered tenant within a
// Table. It is only meaningful together with the table that issued it.
type TenantHandle int

// Tenant is a flow group: the SLO-bearing identity of one logical tenant.
// Identity is (FlowID, OwningCore) — both must match for two registrations
// to refer to the same tenant. Mutated only by its owning core.
type Tenant struct {
	FlowID     int64
	OwningCore int

	SLOLatencyUS int64 // 0 => best-effort
	SLOIOPS      int64
	RWRatioPct   int

	// ScaledIOPSLimit is tokens/s at the 4 KiB reference size.
	ScaledIOPSLimit int64
	// ScaledIOPSPerUS is the per-microsecond credit increment rate,
	// recomputed whenever the no-BE boost changes.
	ScaledIOPSPerUS float64

	LCFlag       bool
	ConnRefCount int
	Queue        *SWQueue
}

// IsLC reports whether this tenant is latency-critical.
func (t *Tenant) IsLC() bool { return t.LCFlag }

// Table is the global slotted array of flow groups: a slot is
// occupied iff its bit is set in occupied. Allocation searches for the
// lowest free index.
// Table itself does not lock; callers (AdmissionController) serialize
// access via the admission spinlock.
type Table struct {
	slots    []*Tenant
	occupied []bool
}

// NewTable creates a Table sized to hold up to capacity tenants.
func NewTable(capacity int) *Table {
	return &Table{
		slots:    make([]*Tenant, capacity),
		occupied: make([]bool, capacity),
	}
}

// Find returns the handle and tenant matching (flowID, core), if any.
func (t *Table) Find(flowID int64, core int) (TenantHandle, *Tenant, bool) {
	for i, occ := range t.occupied {
		if occ && t.slots[i].FlowID == flowID && t.slots[i].OwningCore == core {
			return TenantHandle(i), t.slots[i], true
		}
	}
	return 0, nil, false
}

// Allocate inserts a new tenant at the lowest free slot. Returns
// StatusNoMem if the table is full.
func (t *Table) Allocate(tenant *Tenant) (TenantHandle, Status) {
	for i, occ := range t.occupied {
		if !occ {
			t.occupied[i] = true
			t.slots[i] = tenant
			return TenantHandle(i), StatusOK
		}
	}
	logrus.Warnf("sched: tenant table full (capacity=%d)", len(t.slots))
	return 0, StatusNoMem
}

// Get returns the tenant at handle, if the slot is occupied.
func (t *Table) Get(h TenantHandle) (*Tenant, bool) {
	if int(h) < 0 || int(h) >= len(t.slots) || !t.occupied[h] {
		return nil, false
	}
	return t.slots[h], true
}

// Free clears the slot at handle.
func (t *Table) Free(h TenantHandle) {
	if int(h) < 0 || int(h) >= len(t.slots) {
		return
	}
	t.occupied[h] = false
	t.slots[h] = nil
}

// Each iterates over every occupied slot in index order.
func (t *Table) Each(fn func(h TenantHandle, tenant *Tenant)) {
	for i, occ := range t.occupied {
		if occ {
			fn(TenantHandle(i), t.slots[i])
		}
	}
}
