// Package driver is the opaque raw NVMe submission/completion path:
// submit(read|write, lba, len, cb) / poll_completions(), plus a
// FakeDriver that short-circuits submission for scheduler-in-isolation
// testing (the FakeFlash device model).
//
// Everything below the NVMeDriver interface — vtophys translation,
// scatter/gather buffer plumbing, the actual PCIe command ring — is
// explicitly out of scope; FakeDriver stands in for it.
package driver

import (
	"github.com/sirupsen/logrus"

	"github.com/nvme-qos/nvme-qos/sched"
)

// CompletionFunc is invoked once per request, exactly once, on the core
// that submitted it, so that freeing the request context stays
// single-threaded.
type CompletionFunc func(req *sched.RequestContext, status sched.Status)

// NVMeDriver is the opaque raw driver interface: submit_read,
// submit_write, alloc_qpair, poll_completions, and namespace getters.
type NVMeDriver interface {
	AllocQPair() (qpair int, status sched.Status)
	SubmitRead(qpair int, req *sched.RequestContext, cb CompletionFunc) sched.Status
	SubmitWrite(qpair int, req *sched.RequestContext, cb CompletionFunc) sched.Status
	PollCompletions(qpair int, budget int) (completed int)
	NamespaceSize() uint64
	SectorSize() uint32
}

type pendingCompletion struct {
	req    *sched.RequestContext
	status sched.Status
	cb     CompletionFunc
}

// FakeDriver implements the FakeFlash model: it bypasses real submission
// and immediately posts success, but still defers the callback to
// PollCompletions rather than firing it inline from Submit, so callers see
// the same submit-then-poll shape a real driver would impose.
//
// Queue depth is bounded at capacity; submitting past it is the ran-out-
// of-command-slots fatal condition — the fake exists to test the
// scheduler, not to hide a sizing bug.
type FakeDriver struct {
	nsSize     uint64
	sectorSize uint32
	capacity   int

	qpairs [][]pendingCompletion
	nextQP int
}

// NewFakeDriver creates a FakeDriver reporting the given namespace geometry
// and bounding each queue pair's in-flight depth at capacity.
func NewFakeDriver(nsSize uint64, sectorSize uint32, capacity int) *FakeDriver {
	return &FakeDriver{nsSize: nsSize, sectorSize: sectorSize, capacity: capacity}
}

func (d *FakeDriver) AllocQPair() (int, sched.Status) {
	d.qpairs = append(d.qpairs, nil)
	qp := d.nextQP
	d.nextQP++
	return qp, sched.StatusOK
}

func (d *FakeDriver) submit(qpair int, req *sched.RequestContext, cb CompletionFunc) sched.Status {
	if qpair < 0 || qpair >= len(d.qpairs) {
		logrus.Fatalf("driver: submit on unallocated qpair %d", qpair)
	}
	if len(d.qpairs[qpair]) >= d.capacity {
		// Fatal: the mempool/queue sizing is a configuration invariant,
		// not a transient backpressure condition.
		logrus.Fatalf("driver: qpair %d out of command slots (capacity=%d)", qpair, d.capacity)
	}
	d.qpairs[qpair] = append(d.qpairs[qpair], pendingCompletion{req: req, status: sched.StatusOK, cb: cb})
	return sched.StatusOK
}

func (d *FakeDriver) SubmitRead(qpair int, req *sched.RequestContext, cb CompletionFunc) sched.Status {
	return d.submit(qpair, req, cb)
}

func (d *FakeDriver) SubmitWrite(qpair int, req *sched.RequestContext, cb CompletionFunc) sched.Status {
	return d.submit(qpair, req, cb)
}

// PollCompletions drains up to budget pending completions from qpair,
// invoking each callback in submission order.
func (d *FakeDriver) PollCompletions(qpair int, budget int) int {
	if qpair < 0 || qpair >= len(d.qpairs) {
		return 0
	}
	pending := d.qpairs[qpair]
	n := budget
	if n > len(pending) {
		n = len(pending)
	}
	for i := 0; i < n; i++ {
		pending[i].cb(pending[i].req, pending[i].status)
	}
	d.qpairs[qpair] = pending[n:]
	return n
}

func (d *FakeDriver) NamespaceSize() uint64 { return d.nsSize }
func (d *FakeDriver) SectorSize() uint32    { return d.sectorSize }
