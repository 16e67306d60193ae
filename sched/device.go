package sched

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/interp"
)

// unlimitedTokenRate is the effectively-infinite rate reported when rate
// limiting does not apply.
const unlimitedTokenRate = int64(1) << 40

// DeviceModel maps an SLO tail-latency target to a device token rate.
// FlashDevModel interpolates between calibrated (p95_latency, rate) points
// separately for mixed and read-only workloads; DefaultFlash/FakeFlash
// report an unlimited rate.
type DeviceModel struct {
	kind   DeviceModelKind
	points []CalibrationPoint // sorted by P95LatencyUS

	mixed *interp.PiecewiseLinear
	ronly *interp.PiecewiseLinear
}

// NewDeviceModel builds a DeviceModel from the given configuration. For
// FlashDevModel, the calibration table is sorted and two piecewise-linear
// fits (mixed, read-only) are built once and reused by every Lookup.
func NewDeviceModel(cfg DeviceModelConfig) *DeviceModel {
	dm := &DeviceModel{kind: cfg.Kind}
	if cfg.Kind != FlashDevModel || len(cfg.Calibration) == 0 {
		return dm
	}

	points := append([]CalibrationPoint(nil), cfg.Calibration...)
	sort.Slice(points, func(i, j int) bool { return points[i].P95LatencyUS < points[j].P95LatencyUS })
	dm.points = points

	xs := make([]float64, len(points))
	ysMixed := make([]float64, len(points))
	ysROnly := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.P95LatencyUS)
		ysMixed[i] = float64(p.TokenRateMixed)
		ysROnly[i] = float64(p.TokenRateROnly)
	}

	// A single-point table has nothing to interpolate; Lookup clamps to
	// that point directly.
	if len(points) < 2 {
		return dm
	}

	dm.mixed = &interp.PiecewiseLinear{}
	if err := dm.mixed.Fit(xs, ysMixed); err != nil {
		logrus.Warnf("sched: device model mixed-rate fit failed: %v", err)
		dm.mixed = nil
	}
	dm.ronly = &interp.PiecewiseLinear{}
	if err := dm.ronly.Fit(xs, ysROnly); err != nil {
		logrus.Warnf("sched: device model read-only-rate fit failed: %v", err)
		dm.ronly = nil
	}
	return dm
}

// Lookup returns the device token rate (tokens/sec) admissible at the given
// latency SLO for a workload that is (or is not) entirely read-only.
func (dm *DeviceModel) Lookup(sloUS int64, readonly bool) int64 {
	switch dm.kind {
	case DefaultFlash, FakeFlash:
		return unlimitedTokenRate
	case FlashDevModel:
		return dm.lookupCalibrated(sloUS, readonly)
	default:
		logrus.Warnf("sched: undefined device model kind %v", dm.kind)
		return unlimitedTokenRate
	}
}

func (dm *DeviceModel) lookupCalibrated(sloUS int64, readonly bool) int64 {
	if len(dm.points) == 0 {
		logrus.Warnf("sched: FlashDevModel selected with empty calibration table")
		return unlimitedTokenRate
	}

	// Find the smallest index i with points[i].P95Latency > sloUS.
	i := sort.Search(len(dm.points), func(i int) bool { return dm.points[i].P95LatencyUS > sloUS })

	rate := func(p CalibrationPoint) int64 {
		if readonly {
			return p.TokenRateROnly
		}
		return p.TokenRateMixed
	}

	if i == 0 {
		logrus.Warnf("sched: latency SLO %dus below lowest calibration point %dus, clamping",
			sloUS, dm.points[0].P95LatencyUS)
		return rate(dm.points[0])
	}
	if i == len(dm.points) {
		return rate(dm.points[len(dm.points)-1])
	}

	fit := dm.mixed
	if readonly {
		fit = dm.ronly
	}
	if fit == nil {
		return rate(dm.points[i-1])
	}
	return int64(fit.Predict(float64(sloUS)) + 0.5)
}
