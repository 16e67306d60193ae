package gateway

import (
	"fmt"
	"sync/atomic"

	"github.com/nvme-qos/nvme-qos/driver"
	"github.com/nvme-qos/nvme-qos/sched"
)

// Callbacks are the async upcalls to user space: opened, closed,
// registered_flow, unregistered_flow, response, written. register/
// unregister/close have no real device round-trip in this implementation,
// so their upcalls fire synchronously within the call that triggers them;
// opened is queued on core 0 and fires at that core's next poll;
// response/written genuinely complete later, on whichever core's event
// loop drains the I/O.
type Callbacks interface {
	Opened(handle int, nsSize uint64, sectorSize uint32)
	Closed(handle int, status sched.Status)
	RegisteredFlow(fgHandle sched.TenantHandle, cookie uint64, status sched.Status)
	UnregisteredFlow(fgHandle sched.TenantHandle, status sched.Status)
	Response(cookie uint64, buf []byte, status sched.Status)
	Written(cookie uint64, status sched.Status)
}

// Device is one open NVMe namespace handle, fanned out across NumCores
// per-core event loops sharing a single AdmissionController and
// GlobalPool.
type Device struct {
	cfg       Config
	admission *sched.AdmissionController
	pool      *sched.GlobalPool
	driver    driver.NVMeDriver
	callbacks Callbacks
	metrics   *sched.Metrics

	cores  []*core
	handle int32
	opened atomic.Bool
}

// callbackAdapter forwards driver.UserCallbacks onto a Device's Callbacks,
// since the two interfaces differ only in which upcalls they expose.
type callbackAdapter struct {
	cb Callbacks
}

func (a callbackAdapter) Response(cookie uint64, buf []byte, status sched.Status) {
	a.cb.Response(cookie, buf, status)
}
func (a callbackAdapter) Written(cookie uint64, status sched.Status) {
	a.cb.Written(cookie, status)
}
func (a callbackAdapter) Opened(handle int, nsSize uint64, sectorSize uint32) {
	a.cb.Opened(handle, nsSize, sectorSize)
}

// NewDevice wires an AdmissionController, DeviceModel, and one core per
// cfg.NumCores around the given raw driver, then opens the namespace and
// starts each core's event loop. The returned Device is ready for
// RegisterFlow/Read/Write immediately; Open's "opened" upcall is delivered
// once the first core's event loop next polls.
func NewDevice(cfg Config, deviceModel sched.DeviceModelConfig, drv driver.NVMeDriver, callbacks Callbacks) (*Device, error) {
	if cfg.NumCores <= 0 {
		return nil, fmt.Errorf("gateway: NumCores must be positive, got %d", cfg.NumCores)
	}

	dm := sched.NewDeviceModel(deviceModel)
	admission := sched.NewAdmissionController(dm, sched.MaxNVMeFlowGroups)
	pool := sched.NewGlobalPool(cfg.NumCores)
	metrics := sched.NewMetrics()

	d := &Device{
		cfg:       cfg,
		admission: admission,
		pool:      pool,
		driver:    drv,
		callbacks: callbacks,
		metrics:   metrics,
	}

	for i := 0; i < cfg.NumCores; i++ {
		qpair, status := drv.AllocQPair()
		if status != sched.StatusOK {
			return nil, fmt.Errorf("gateway: AllocQPair for core %d: %s", i, status)
		}
		adapter := driver.NewAdapter(drv, qpair, callbackAdapter{cb: callbacks}, metrics)
		scheduler := sched.NewCoreScheduler(i, admission, pool, adapter)
		c := newCore(i, scheduler, adapter, cfg.SubmitQueueDepth, cfg.PollBudget)
		d.cores = append(d.cores, c)
		go c.run(cfg.TickInterval)
	}

	d.Open()
	return d, nil
}

// Open assigns this device a handle and queues the "opened" upcall on
// core 0, delivered on its next poll.
func (d *Device) Open() int {
	h := int(atomic.AddInt32(&d.handle, 1) - 1)
	d.opened.Store(true)
	d.cores[0].adapter.QueueOpen(h, d.driver.NamespaceSize(), d.driver.SectorSize())
	return h
}

// Close stops every core's event loop and fires the closed upcall.
func (d *Device) Close(handle int) {
	for _, c := range d.cores {
		c.Stop()
	}
	d.opened.Store(false)
	d.callbacks.Closed(handle, sched.StatusOK)
}

// RegisterFlow admits a tenant on the given core. Registration is
// rejected with CANTMEETSLO or NOMEM synchronously through the status
// return and mirrored to the RegisteredFlow upcall; admission errors
// never surface asynchronously.
func (d *Device) RegisterFlow(cfg sched.TenantConfig, core int, cookie uint64) (sched.TenantHandle, sched.Status) {
	if core < 0 || core >= len(d.cores) {
		d.callbacks.RegisteredFlow(0, cookie, sched.StatusInval)
		return 0, sched.StatusInval
	}
	h, status := d.admission.Register(cfg, core)
	d.callbacks.RegisteredFlow(h, cookie, status)
	return h, status
}

// UnregisterFlow decrements the tenant's refcount, removing it at zero.
func (d *Device) UnregisterFlow(h sched.TenantHandle) sched.Status {
	status := d.admission.Unregister(h)
	d.callbacks.UnregisteredFlow(h, status)
	return status
}

// Read enqueues a read request on the tenant's owning core. Returns
// NOBUFS synchronously if that core's submit queue is full, INVAL if the
// handle is unknown.
func (d *Device) Read(h sched.TenantHandle, lba uint64, lbaCount uint32, cookie uint64) sched.Status {
	return d.submit(h, sched.OpRead, lba, lbaCount, nil, nil, cookie)
}

// Write enqueues a write request on the tenant's owning core.
func (d *Device) Write(h sched.TenantHandle, buf []byte, lba uint64, lbaCount uint32, cookie uint64) sched.Status {
	return d.submit(h, sched.OpWrite, lba, lbaCount, nil, buf, cookie)
}

// ReadV is the scatter/gather read variant: n_sgls buffers are filled
// in order as the device returns data.
func (d *Device) ReadV(h sched.TenantHandle, sgl [][]byte, lba uint64, lbaCount uint32, cookie uint64) sched.Status {
	return d.submit(h, sched.OpRead, lba, lbaCount, sgl, nil, cookie)
}

// WriteV is the scatter/gather write variant.
func (d *Device) WriteV(h sched.TenantHandle, sgl [][]byte, lba uint64, lbaCount uint32, cookie uint64) sched.Status {
	return d.submit(h, sched.OpWrite, lba, lbaCount, sgl, nil, cookie)
}

func (d *Device) submit(h sched.TenantHandle, op sched.Op, lba uint64, lbaCount uint32, sgl [][]byte, buf []byte, cookie uint64) sched.Status {
	tenant, ok := d.admission.Tenant(h)
	if !ok {
		return sched.StatusInval
	}

	bytes := int64(lbaCount) * int64(d.driver.SectorSize())
	req := sched.GetRequestContext()
	req.Op = op
	req.LBA = lba
	req.LBACount = lbaCount
	req.SGL = sgl
	req.PhysBuf = buf
	req.Cost = sched.Cost(op, bytes)
	req.Cookie = cookie
	req.Tenant = tenant
	req.OwningCore = tenant.OwningCore

	status := d.cores[tenant.OwningCore].enqueue(req)
	if status != sched.StatusOK {
		sched.PutRequestContext(req)
	}
	return status
}

// Metrics exposes the device's accumulated scheduling metrics, with the
// global pool's donation/acquisition/reset counters folded in.
func (d *Device) Metrics() *sched.Metrics {
	d.metrics.CapturePoolStats(d.pool.Stats())
	return d.metrics
}
