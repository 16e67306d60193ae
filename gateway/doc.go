// Package gateway exposes the user-facing block I/O submission API: open/close,
// register_flow/unregister_flow, read/write/readv/writev, delivering
// completions through a Callbacks implementation the caller supplies.
//
// Reading guide: device.go holds Device, the top-level handle binding one
// namespace to N per-core event loops; core.go is the per-core event loop
// itself (ticker-driven sched()+poll, fed by a bounded submit channel);
// config.go groups the construction-time knobs.
package gateway
