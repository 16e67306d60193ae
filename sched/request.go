package sched

import "sync"

// requestPool backs GetRequestContext/PutRequestContext. A sync.Pool is
// Go's per-P free list, playing the role of a per-core request-context
// mempool: each P tends to reuse the contexts it just freed, so a core's
// own goroutine rarely contends with another core's for the same backing
// memory.
var requestPool = sync.Pool{
	New: func() any { return new(RequestContext) },
}

// GetRequestContext returns a zeroed RequestContext from the pool.
func GetRequestContext() *RequestContext {
	req := requestPool.Get().(*RequestContext)
	*req = RequestContext{}
	return req
}

// PutRequestContext releases req back to the pool once its completion has
// fired. Callers must not touch req afterward.
func PutRequestContext(req *RequestContext) {
	requestPool.Put(req)
}

// RequestContext is a single pending or in-flight I/O request. It carries
// everything the scheduler and the submission adapter need: the op, the
// target LBAs, the precomputed token cost, and enough identity to route a
// completion back to the user callback and the owning core's request pool.
type RequestContext struct {
	Op         Op
	LBA        uint64
	LBACount   uint32
	SGL        [][]byte // non-nil => scatter/gather; else PhysBuf is used
	PhysBuf    []byte
	Cost       int64
	Cookie     uint64
	Tenant     *Tenant
	OwningCore int
}
