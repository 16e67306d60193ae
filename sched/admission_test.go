package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRateModel(rate int64) *DeviceModel {
	return NewDeviceModel(DeviceModelConfig{
		Kind: FlashDevModel,
		Calibration: []CalibrationPoint{
			{P95LatencyUS: 200, TokenRateMixed: rate, TokenRateROnly: rate},
		},
	})
}

// TestAdmission_RejectsOverReservedLC: a second LC tenant
// whose reservation would push the sum over the device's rate at the
// shared SLO is rejected with CANTMEETSLO, and state is left unchanged.
// (iops chosen so reservations clear a 500,000 tok/s budget singly but not
// combined, at this package's NVMeReadCost.)
func TestAdmission_RejectsOverReservedLC(t *testing.T) {
	a := NewAdmissionController(fixedRateModel(500_000), 16)

	h1, status := a.Register(TenantConfig{FlowID: 1, SLOLatencyUS: 200, SLOIOPS: 50_000, RWRatioPct: 100}, 0)
	require.Equal(t, StatusOK, status)

	_, status = a.Register(TenantConfig{FlowID: 2, SLOLatencyUS: 200, SLOIOPS: 40_000, RWRatioPct: 100}, 0)
	assert.Equal(t, StatusCantMeetSLO, status, "second LC tenant should be rejected: reservations exceed device rate")

	tenant1, ok := a.Tenant(h1)
	require.True(t, ok)
	assert.Equal(t, int64(ScaledIOPS(50_000, 100)), a.lcReservationSum, "lc_reservation_sum must be unchanged by the rejected add")
	assert.Equal(t, 1, a.numLC)
	assert.NotNil(t, tenant1)
}

// TestAdmission_BEBoostToggles: registering a BE tenant
// zeroes the no-BE boost and sets be_per_tenant_rate to the residual.
func TestAdmission_BEBoostToggles(t *testing.T) {
	a := NewAdmissionController(fixedRateModel(500_000), 16)

	h1, status := a.Register(TenantConfig{FlowID: 1, SLOLatencyUS: 200, SLOIOPS: 50_000, RWRatioPct: 100}, 0)
	require.Equal(t, StatusOK, status)

	tenant1, _ := a.Tenant(h1)
	require.InDelta(t, 300_000, tenant1.ScaledIOPSLimit, 1, "scaled_iops_limit should be 50k reads at NVMeReadCost=6")
	assert.InDelta(t, 200_000, a.lcNoBEBoost, 1)
	assert.InDelta(t, (300_000.0+200_000.0)/1e6, tenant1.ScaledIOPSPerUS, 1e-9)

	_, status = a.Register(TenantConfig{FlowID: 2, SLOLatencyUS: 0, SLOIOPS: 0}, 0)
	require.Equal(t, StatusOK, status)

	assert.Equal(t, 0.0, a.lcNoBEBoost, "lc_no_be_boost must be 0 once a BE tenant exists")
	assert.InDelta(t, 0.3, tenant1.ScaledIOPSPerUS, 1e-9, "scaled_iops_per_us should drop back to the bare reservation rate")
	assert.InDelta(t, 200_000, a.BEPerTenantRate(), 1)
}

// TestAdmission_RepeatRegistrationBumpsRefcount verifies that the same
// (flow_id, core) only bumps conn_refcount rather than allocating a slot.
func TestAdmission_RepeatRegistrationBumpsRefcount(t *testing.T) {
	a := NewAdmissionController(fixedRateModel(500_000), 16)

	cfg := TenantConfig{FlowID: 1, SLOLatencyUS: 200, SLOIOPS: 10_000, RWRatioPct: 100}
	h1, status := a.Register(cfg, 0)
	require.Equal(t, StatusOK, status)

	h2, status := a.Register(cfg, 0)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, h1, h2, "re-registering the same (flow_id, core) must return the same handle")

	tenant, _ := a.Tenant(h1)
	assert.Equal(t, 2, tenant.ConnRefCount)
}

// TestAdmission_UnregisterDownToZeroFreesSlot verifies that unregistration
// with nonzero remaining refcount only decrements; it frees the slot only
// once refcount reaches zero, and a subsequent lookup fails.
func TestAdmission_UnregisterDownToZeroFreesSlot(t *testing.T) {
	a := NewAdmissionController(fixedRateModel(500_000), 16)

	cfg := TenantConfig{FlowID: 1, SLOLatencyUS: 200, SLOIOPS: 10_000, RWRatioPct: 100}
	h, _ := a.Register(cfg, 0)
	_, _ = a.Register(cfg, 0)

	require.Equal(t, StatusOK, a.Unregister(h))
	_, ok := a.Tenant(h)
	require.True(t, ok, "tenant should still exist after first unregister (refcount 1)")

	require.Equal(t, StatusOK, a.Unregister(h))
	_, ok = a.Tenant(h)
	assert.False(t, ok, "tenant should be freed once refcount reaches zero")
	assert.Equal(t, 0, a.numLC)
	assert.Equal(t, int64(0), a.lcReservationSum)
}

// TestAdmission_RemoveRescansForStrictestRemainingSLO covers removal:
// removing the strictest LC tenant recomputes the global token rate
// from whichever LC tenant is now strictest.
func TestAdmission_RemoveRescansForStrictestRemainingSLO(t *testing.T) {
	dm := NewDeviceModel(DeviceModelConfig{
		Kind: FlashDevModel,
		Calibration: []CalibrationPoint{
			{P95LatencyUS: 100, TokenRateMixed: 200_000, TokenRateROnly: 200_000},
			{P95LatencyUS: 500, TokenRateMixed: 900_000, TokenRateROnly: 900_000},
		},
	})
	a := NewAdmissionController(dm, 16)

	hStrict, status := a.Register(TenantConfig{FlowID: 1, SLOLatencyUS: 100, SLOIOPS: 1000, RWRatioPct: 100}, 0)
	require.Equal(t, StatusOK, status)
	_, status = a.Register(TenantConfig{FlowID: 2, SLOLatencyUS: 500, SLOIOPS: 1000, RWRatioPct: 100}, 0)
	require.Equal(t, StatusOK, status)

	before := a.GlobalTokenRate()

	require.Equal(t, StatusOK, a.Unregister(hStrict))

	after := a.GlobalTokenRate()
	assert.Greater(t, after, before, "removing the strictest LC tenant should relax the global rate")
}

// TestAdmission_RemoveLastLCUnconstrainsGlobalRate: unregistering the sole
// LC tenant recomputes the global rate from the device's unconstrained
// maximum, so remaining BE tenants inherit the full device capacity.
func TestAdmission_RemoveLastLCUnconstrainsGlobalRate(t *testing.T) {
	dm := NewDeviceModel(DeviceModelConfig{
		Kind: FlashDevModel,
		Calibration: []CalibrationPoint{
			{P95LatencyUS: 100, TokenRateMixed: 200_000, TokenRateROnly: 200_000},
			{P95LatencyUS: 500, TokenRateMixed: 900_000, TokenRateROnly: 900_000},
		},
	})
	a := NewAdmissionController(dm, 16)

	hLC, status := a.Register(TenantConfig{FlowID: 1, SLOLatencyUS: 100, SLOIOPS: 1000, RWRatioPct: 100}, 0)
	require.Equal(t, StatusOK, status)
	_, status = a.Register(TenantConfig{FlowID: 2}, 0)
	require.Equal(t, StatusOK, status)

	require.Equal(t, int64(200_000), a.GlobalTokenRate(), "rate should be pinned by the sole LC tenant's SLO")

	require.Equal(t, StatusOK, a.Unregister(hLC))

	assert.Equal(t, int64(900_000), a.GlobalTokenRate(), "rate should relax to the device maximum once no LC tenant constrains it")
	assert.InDelta(t, 900_000, a.BEPerTenantRate(), 1, "the lone BE tenant should inherit the full unconstrained rate")
}
