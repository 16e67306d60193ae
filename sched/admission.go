package sched

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// AdmissionController holds the global admission state guarded by a single
// spinlock: the tenant table, the device model, and the derived
// aggregate rates every core's scheduler reads each round.
//
// BEPerTenantRate is exposed as a lockless atomic scalar so per-core
// schedulers never contend with admission on the hot path.
type AdmissionController struct {
	mu sync.Mutex

	table  *Table
	device *DeviceModel

	globalTokenRate  int64
	lcReservationSum int64
	numLC            int
	numBE            int
	lcNoBEBoost      float64
	readonlyFlag     bool

	// bePerTenantRateBits holds math.Float64bits(bePerTenantRate) for
	// lockless atomic reads from scheduler goroutines.
	bePerTenantRateBits atomic.Uint64
}

// NewAdmissionController creates a controller with the given device model
// and tenant table capacity.
func NewAdmissionController(device *DeviceModel, capacity int) *AdmissionController {
	a := &AdmissionController{
		table:        NewTable(capacity),
		device:       device,
		readonlyFlag: true,
	}
	// No LC tenant constrains the rate yet, so start from the device's
	// unconstrained rate (the same value withdraw() falls back to).
	a.globalTokenRate = device.Lookup(math.MaxInt64, a.readonlyFlag)
	return a
}

// GlobalTokenRate returns the current device aggregate rate (tokens/s).
func (a *AdmissionController) GlobalTokenRate() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.globalTokenRate
}

// BEPerTenantRate atomically reads the per-BE-tenant token rate without
// taking the admission lock.
func (a *AdmissionController) BEPerTenantRate() float64 {
	return math.Float64frombits(a.bePerTenantRateBits.Load())
}

func (a *AdmissionController) setBEPerTenantRate(v float64) {
	a.bePerTenantRateBits.Store(math.Float64bits(v))
}

// Register admits or re-admits a tenant per (flow_id, owning_core)
// identity. A repeat registration from the same identity bumps
// ConnRefCount instead of allocating a new slot; if its SLO parameters
// differ from the existing registration, the existing tenant's SLO is
// overwritten with a warning (one SLO per tenant is contract).
func (a *AdmissionController) Register(cfg TenantConfig, core int) (TenantHandle, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if h, existing, ok := a.table.Find(cfg.FlowID, core); ok {
		newLimit := ScaledIOPS(cfg.SLOIOPS, cfg.RWRatioPct)
		if newLimit != existing.ScaledIOPSLimit || existing.SLOLatencyUS != cfg.SLOLatencyUS || existing.RWRatioPct != cfg.RWRatioPct {
			logrus.Warnf("sched: tenant flow=%d core=%d re-registered with a different SLO; overwriting (one SLO per tenant)",
				cfg.FlowID, core)
			existing.SLOLatencyUS = cfg.SLOLatencyUS
			existing.SLOIOPS = cfg.SLOIOPS
			existing.RWRatioPct = cfg.RWRatioPct
			existing.ScaledIOPSLimit = newLimit
			existing.ScaledIOPSPerUS = float64(newLimit+int64(a.lcNoBEBoost)) / 1e6
		}
		existing.ConnRefCount++
		return h, StatusOK
	}

	tenant := &Tenant{
		FlowID:       cfg.FlowID,
		OwningCore:   core,
		SLOLatencyUS: cfg.SLOLatencyUS,
		SLOIOPS:      cfg.SLOIOPS,
		RWRatioPct:   cfg.RWRatioPct,
		LCFlag:       cfg.SLOLatencyUS != 0,
		ConnRefCount: 0,
		Queue:        &SWQueue{},
	}
	if tenant.LCFlag {
		tenant.ScaledIOPSLimit = ScaledIOPS(cfg.SLOIOPS, cfg.RWRatioPct)
	}

	if status := a.admit(tenant); status != StatusOK {
		return 0, status
	}
	// recompute() inside admit() only reaches tenants already in the table,
	// so set the new LC tenant's credit rate before it becomes visible.
	if tenant.LCFlag {
		tenant.ScaledIOPSPerUS = (float64(tenant.ScaledIOPSLimit) + a.lcNoBEBoost) / 1e6
	}

	h, status := a.table.Allocate(tenant)
	if status != StatusOK {
		// Roll back the rate accounting applied in admit().
		a.withdraw(tenant)
		return 0, status
	}
	tenant.ConnRefCount = 1
	return h, StatusOK
}

// Unregister decrements the tenant's refcount, removing it once it reaches
// zero. Unregistering a handle with nonzero remaining refcount is a
// no-op beyond the decrement.
func (a *AdmissionController) Unregister(h TenantHandle) Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	tenant, ok := a.table.Get(h)
	if !ok {
		return StatusInval
	}
	tenant.ConnRefCount--
	if tenant.ConnRefCount > 0 {
		return StatusOK
	}

	a.withdraw(tenant)
	a.table.Free(h)
	return StatusOK
}

// admit applies the add side of admission under the held lock. Returns
// StatusCantMeetSLO without mutating state if an LC tenant's reservation
// would exceed the device's capacity under the new strictest SLO.
func (a *AdmissionController) admit(tenant *Tenant) Status {
	if tenant.LCFlag {
		readonlyAfterAdd := tenant.RWRatioPct == 100 && a.numBE == 0
		newRate := a.device.Lookup(tenant.SLOLatencyUS, readonlyAfterAdd)
		if a.numLC > 0 && a.globalTokenRate < newRate {
			newRate = a.globalTokenRate
		}
		newSum := a.lcReservationSum + tenant.ScaledIOPSLimit
		if newSum > newRate {
			logrus.Warnf("sched: admission rejected flow=%d: reservation sum %d exceeds device rate %d at SLO=%dus",
				tenant.FlowID, newSum, newRate, tenant.SLOLatencyUS)
			return StatusCantMeetSLO
		}
		a.globalTokenRate = newRate
		a.lcReservationSum = newSum
		a.numLC++
		a.readonlyFlag = a.readonlyFlag && tenant.RWRatioPct == 100
	} else {
		a.numBE++
		a.readonlyFlag = false
	}
	a.recompute()
	return StatusOK
}

// withdraw applies the remove side of admission under the held lock.
func (a *AdmissionController) withdraw(tenant *Tenant) {
	if tenant.LCFlag {
		a.lcReservationSum -= tenant.ScaledIOPSLimit
		a.numLC--

		strictest := int64(math.MaxInt64)
		readonlyAfterRemove := true
		a.table.Each(func(_ TenantHandle, other *Tenant) {
			if other == tenant || !other.LCFlag {
				return
			}
			if other.SLOLatencyUS < strictest {
				strictest = other.SLOLatencyUS
			}
			if other.RWRatioPct < 100 {
				readonlyAfterRemove = false
			}
		})
		if a.numBE > 0 {
			readonlyAfterRemove = false
		}
		// With no LC tenants left, strictest stays at its max sentinel and
		// Lookup resolves to the device's unconstrained rate.
		a.globalTokenRate = a.device.Lookup(strictest, readonlyAfterRemove)
		a.readonlyFlag = readonlyAfterRemove && a.numBE == 0
	} else {
		a.numBE--
	}
	a.recompute()
}

// recompute derives BEPerTenantRate and lcNoBEBoost, and, if the
// no-BE boost crossed zero (BE count transitioned 0<->>=1), recomputes
// every LC tenant's per-microsecond credit rate.
func (a *AdmissionController) recompute() {
	var bePerTenant float64
	var lcBoost float64
	if a.numBE > 0 {
		bePerTenant = float64(a.globalTokenRate-a.lcReservationSum) / float64(a.numBE)
	} else if a.numLC > 0 {
		lcBoost = float64(a.globalTokenRate-a.lcReservationSum) / float64(a.numLC)
	}
	a.setBEPerTenantRate(bePerTenant)

	boostChanged := (lcBoost == 0) != (a.lcNoBEBoost == 0)
	a.lcNoBEBoost = lcBoost
	if boostChanged {
		a.table.Each(func(_ TenantHandle, tenant *Tenant) {
			if tenant.LCFlag {
				tenant.ScaledIOPSPerUS = (float64(tenant.ScaledIOPSLimit) + a.lcNoBEBoost) / 1e6
			}
		})
	}
}

// Tenant looks up a tenant by handle.
func (a *AdmissionController) Tenant(h TenantHandle) (*Tenant, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.table.Get(h)
}

// Table exposes the underlying tenant table for scheduler iteration. The
// scheduler only reads tenants owned by its own core, which are mutated
// exclusively by that core (I3), so no additional locking is needed there;
// admission mutation of shared fields (ScaledIOPSPerUS, LCFlag at
// registration) happens under a.mu before the tenant becomes visible to a
// scheduler, and is a rare, amortized operation.
func (a *AdmissionController) Table() *Table {
	return a.table
}
