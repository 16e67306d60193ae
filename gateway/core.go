package gateway

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvme-qos/nvme-qos/driver"
	"github.com/nvme-qos/nvme-qos/sched"
)

// core binds one CPU's worth of state: its scheduler, its submission
// adapter (and the qpair it owns), and the inbound channel through which
// Read/Write calls from arbitrary goroutines reach this core's
// single-threaded SW queues.
type core struct {
	id         int
	scheduler  *sched.CoreScheduler
	adapter    *driver.Adapter
	submitCh   chan *sched.RequestContext
	pollBudget int

	stop chan struct{}
	done chan struct{}
}

func newCore(id int, scheduler *sched.CoreScheduler, adapter *driver.Adapter, queueDepth, pollBudget int) *core {
	return &core{
		id:         id,
		scheduler:  scheduler,
		adapter:    adapter,
		submitCh:   make(chan *sched.RequestContext, queueDepth),
		pollBudget: pollBudget,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// enqueue hands req to this core's inbound channel, returning NOBUFS
// synchronously if the channel is full.
func (c *core) enqueue(req *sched.RequestContext) sched.Status {
	select {
	case c.submitCh <- req:
		return sched.StatusOK
	default:
		logrus.Warnf("gateway: core %d submit queue full, dropping cookie=%d", c.id, req.Cookie)
		return sched.StatusNoBufs
	}
}

// run is the per-core event loop: drain pending submissions into their
// tenant's SW queue, run one sched() iteration, then poll completions.
// Each core's loop is the single writer for its tenants' queues.
func (c *core) run(tick time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.drainSubmissions()
			c.scheduler.Sched(time.Now())
			c.adapter.Poll(c.pollBudget)
		}
	}
}

func (c *core) drainSubmissions() {
	for {
		select {
		case req := <-c.submitCh:
			req.Tenant.Queue.PushBack(req)
		default:
			return
		}
	}
}

func (c *core) Stop() {
	close(c.stop)
	<-c.done
}
