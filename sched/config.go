package sched

// Device-level constants; a real deployment would tune these per flash
// device.
const (
	// NVMeReadCost is the token cost of a 4 KiB read, the device constant
	// base[READ] in the cost function.
	NVMeReadCost = 6
	// NVMeWriteCost is the token cost of a 4 KiB write, base[WRITE].
	NVMeWriteCost = 19

	// SLORequestSize is the reference request size (bytes) SLOs are stated
	// against, regardless of a tenant's actual request size.
	SLORequestSize = 4096

	// TokenFracGiveaway is the fraction of its whole credit an LC tenant
	// donates to the per-core leftover pool in a round where that credit
	// exceeds the positive cap (three replenishment increments).
	TokenFracGiveaway = 0.9

	// MaxNVMeFlowGroups bounds the tenant table and its slot bitmap.
	MaxNVMeFlowGroups = 1024

	// MaxOpenBatch bounds how many device-opened upcalls are coalesced
	// per completion poll.
	MaxOpenBatch = 32

	// NumNVMeRequests is the nominal size of the per-core request-context
	// pool.
	NumNVMeRequests = 4096 * 256
)

// TokenDeficitLimit is the most negative an LC tenant's credit may go
// before requests stop issuing, set at 100 write-costs of slack.
var TokenDeficitLimit = int64(100 * NVMeWriteCost)

// DeviceModelKind selects how the Device Model maps a latency SLO to a
// token rate.
type DeviceModelKind int

const (
	// DefaultFlash and FakeFlash both report an effectively unlimited
	// token rate and behave identically: selecting FakeFlash does not
	// change submission. Submission is short-circuited only by wiring
	// driver.FakeDriver in as the raw driver.
	DefaultFlash DeviceModelKind = iota
	FakeFlash
	// FlashDevModel performs calibration-table interpolation.
	FlashDevModel
)

// CalibrationPoint is one row of the device's calibrated latency/rate table.
type CalibrationPoint struct {
	P95LatencyUS   int64 `yaml:"p95_latency_us"`
	TokenRateMixed int64 `yaml:"token_rate_mixed"`
	TokenRateROnly int64 `yaml:"token_rate_ronly"`
}

// DeviceModelConfig configures a DeviceModel.
type DeviceModelConfig struct {
	Kind        DeviceModelKind    `yaml:"kind"`
	Calibration []CalibrationPoint `yaml:"calibration"`
}

// TenantConfig describes a tenant registration request, the parameters
// passed to RegisterFlow in the external interface.
type TenantConfig struct {
	FlowID       int64
	SLOLatencyUS int64 // 0 => best-effort
	SLOIOPS      int64
	RWRatioPct   int
}
