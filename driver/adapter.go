package driver

import (
	"github.com/sirupsen/logrus"

	"github.com/nvme-qos/nvme-qos/sched"
)

// UserCallbacks are the async upcalls to user space:
// opened/closed/registered_flow/unregistered_flow/response/written. Adapter
// only ever invokes Response, Written, and Opened; the gateway package
// drives the admission-facing upcalls directly.
type UserCallbacks interface {
	Response(cookie uint64, buf []byte, status sched.Status)
	Written(cookie uint64, status sched.Status)
	Opened(handle int, nsSize uint64, sectorSize uint32)
}

type openEvent struct {
	handle     int
	nsSize     uint64
	sectorSize uint32
}

// Adapter is the submission/completion adapter: it implements
// sched.Submitter by dispatching dequeued requests to the raw driver, and
// its Poll method drains device completions and flushes any batched
// namespace-open notifications from the same place.
type Adapter struct {
	driver    NVMeDriver
	qpair     int
	callbacks UserCallbacks
	metrics   *sched.Metrics

	openBatch []openEvent
}

// NewAdapter binds an Adapter to one already-allocated queue pair.
func NewAdapter(drv NVMeDriver, qpair int, callbacks UserCallbacks, metrics *sched.Metrics) *Adapter {
	return &Adapter{driver: drv, qpair: qpair, callbacks: callbacks, metrics: metrics}
}

// Submit dispatches req to the raw driver based on its op.
// A request carrying an SGL goes out as scatter/gather; otherwise its
// single PhysBuf is used. An unrecognized op is fatal; it indicates a
// configuration bug, not a caller error.
func (a *Adapter) Submit(req *sched.RequestContext) {
	a.metrics.RecordIssued(req.Tenant)

	cb := func(req *sched.RequestContext, status sched.Status) {
		a.complete(req, status)
	}

	var status sched.Status
	switch req.Op {
	case sched.OpRead:
		status = a.driver.SubmitRead(a.qpair, req, cb)
	case sched.OpWrite:
		status = a.driver.SubmitWrite(a.qpair, req, cb)
	default:
		logrus.Fatalf("driver: unknown op %d for request cookie=%d", req.Op, req.Cookie)
		return
	}

	if status != sched.StatusOK {
		// The raw driver rejected submission outright (not an out-of-slots
		// fatal, which the driver itself aborts on) — surface as FAULT.
		a.complete(req, sched.StatusFault)
	}
}

// complete fires the user's response/written callback and records the
// completion, releasing the request context to its owning core's pool.
func (a *Adapter) complete(req *sched.RequestContext, status sched.Status) {
	ok := status == sched.StatusOK
	a.metrics.RecordCompletion(req.Tenant, ok)

	switch req.Op {
	case sched.OpRead:
		var buf []byte
		if ok {
			buf = req.PhysBuf
		}
		a.callbacks.Response(req.Cookie, buf, status)
	case sched.OpWrite:
		a.callbacks.Written(req.Cookie, status)
	}

	sched.PutRequestContext(req)
}

// QueueOpen batches a namespace-open notification ("opened" upcall),
// flushing immediately if the batch reaches MaxOpenBatch.
func (a *Adapter) QueueOpen(handle int, nsSize uint64, sectorSize uint32) {
	a.openBatch = append(a.openBatch, openEvent{handle: handle, nsSize: nsSize, sectorSize: sectorSize})
	if len(a.openBatch) >= sched.MaxOpenBatch {
		a.flushOpens()
	}
}

func (a *Adapter) flushOpens() {
	for _, ev := range a.openBatch {
		a.callbacks.Opened(ev.handle, ev.nsSize, ev.sectorSize)
	}
	a.openBatch = a.openBatch[:0]
}

// Poll drains up to budget device completions and flushes any pending
// namespace-open notifications from the same call site.
func (a *Adapter) Poll(budget int) int {
	n := a.driver.PollCompletions(a.qpair, budget)
	a.flushOpens()
	return n
}
