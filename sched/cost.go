package sched

import (
	"github.com/sirupsen/logrus"
)

// Op identifies the direction of a request.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

// Cost converts (op, length) to an integer token cost: base[op] scaled by
// the number of 4 KiB chunks the request spans, rounding partial chunks up.
// bytes <= 0 is a caller bug; it is logged and costed at zero.
func Cost(op Op, bytes int64) int64 {
	if bytes <= 0 {
		logrus.Warnf("sched: Cost called with non-positive bytes=%d", bytes)
		return 0
	}
	chunks := (bytes + SLORequestSize - 1) / SLORequestSize
	if chunks < 1 {
		chunks = 1
	}
	return baseCost(op) * chunks
}

func baseCost(op Op) int64 {
	switch op {
	case OpRead:
		return NVMeReadCost
	case OpWrite:
		return NVMeWriteCost
	default:
		logrus.Warnf("sched: Cost called with unknown op %d", op)
		return NVMeWriteCost
	}
}

// ScaledIOPS converts an IOPS target stated at the 4 KiB reference size and
// a read/write mix into a tokens/s reservation, used for LC admission.
// rwRatioPct is the read percentage, e.g. 100 for read-only.
func ScaledIOPS(iops int64, rwRatioPct int) int64 {
	r := float64(rwRatioPct) / 100.0
	readCost := float64(Cost(OpRead, SLORequestSize))
	writeCost := float64(Cost(OpWrite, SLORequestSize))
	scaled := float64(iops)*r*readCost + float64(iops)*(1-r)*writeCost
	return int64(scaled + 0.5)
}
