package gateway

import "time"

// Config groups the knobs needed to stand up a Device: core count,
// per-core submit queue depth and poll budget, the tick interval each
// core's event loop uses to drive sched()/poll, and namespace geometry.
// The device model is passed to NewDevice separately.
type Config struct {
	NumCores int `yaml:"num_cores"`

	// SubmitQueueDepth bounds each core's inbound submit channel; a full
	// channel surfaces NOBUFS synchronously to the caller, playing the
	// role of a per-core mempool cap.
	SubmitQueueDepth int `yaml:"submit_queue_depth"`

	// PollBudget is the max completions drained per core per tick.
	PollBudget int `yaml:"poll_budget"`

	// TickInterval is how often each core's event loop calls sched(). A
	// ticker stands in for a host event loop that would otherwise call
	// sched() once per iteration.
	TickInterval time.Duration `yaml:"tick_interval"`

	NamespaceSize uint64 `yaml:"namespace_size"`
	SectorSize    uint32 `yaml:"sector_size"`
}

// DefaultConfig returns reasonable defaults for the bench CLI and tests.
func DefaultConfig() Config {
	return Config{
		NumCores:         4,
		SubmitQueueDepth: 4096,
		PollBudget:       256,
		TickInterval:     100 * time.Microsecond,
		NamespaceSize:    1 << 40,
		SectorSize:       512,
	}
}
