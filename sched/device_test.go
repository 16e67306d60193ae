package sched

import "testing"

func calibratedModel() *DeviceModel {
	return NewDeviceModel(DeviceModelConfig{
		Kind: FlashDevModel,
		Calibration: []CalibrationPoint{
			{P95LatencyUS: 100, TokenRateMixed: 200_000, TokenRateROnly: 300_000},
			{P95LatencyUS: 200, TokenRateMixed: 500_000, TokenRateROnly: 600_000},
			{P95LatencyUS: 400, TokenRateMixed: 900_000, TokenRateROnly: 1_000_000},
		},
	})
}

func TestDeviceModel_DefaultAndFakeAreUnlimited(t *testing.T) {
	for _, kind := range []DeviceModelKind{DefaultFlash, FakeFlash} {
		dm := NewDeviceModel(DeviceModelConfig{Kind: kind})
		if got := dm.Lookup(200, false); got != unlimitedTokenRate {
			t.Errorf("kind %v: Lookup = %d, want unlimited", kind, got)
		}
	}
}

func TestDeviceModel_ExactPoint(t *testing.T) {
	dm := calibratedModel()
	// slo=100 equals the lowest point's latency; the lookup finds the first
	// point whose latency exceeds the SLO (200us), so an exact match goes
	// through interpolation, which yields that point's own rate.
	if got := dm.Lookup(100, false); got != 200_000 {
		t.Errorf("Lookup(100, mixed) = %d, want 200000 (the 100us point's rate)", got)
	}
}

func TestDeviceModel_BelowLowestClamps(t *testing.T) {
	dm := calibratedModel()
	if got := dm.Lookup(50, false); got != 200_000 {
		t.Errorf("Lookup(50, mixed) = %d, want clamp to lowest calibration point (200000)", got)
	}
}

func TestDeviceModel_AboveHighestClamps(t *testing.T) {
	dm := calibratedModel()
	if got := dm.Lookup(1000, true); got != 1_000_000 {
		t.Errorf("Lookup(1000, readonly) = %d, want clamp to highest calibration point (1000000)", got)
	}
}

func TestDeviceModel_InterpolatesBetweenPoints(t *testing.T) {
	dm := calibratedModel()
	// Halfway between 200us (500k) and 400us (900k) is 300us -> 700k.
	got := dm.Lookup(300, false)
	if got != 700_000 {
		t.Errorf("Lookup(300, mixed) = %d, want 700000", got)
	}
}

func TestDeviceModel_ReadOnlyUsesSeparateCurve(t *testing.T) {
	dm := calibratedModel()
	mixed := dm.Lookup(300, false)
	ronly := dm.Lookup(300, true)
	if mixed == ronly {
		t.Errorf("expected mixed (%d) and read-only (%d) rates to differ", mixed, ronly)
	}
}

func TestDeviceModel_EmptyCalibrationTableIsUnlimited(t *testing.T) {
	dm := NewDeviceModel(DeviceModelConfig{Kind: FlashDevModel})
	if got := dm.Lookup(200, false); got != unlimitedTokenRate {
		t.Errorf("Lookup with empty table = %d, want unlimited", got)
	}
}
