// Package sched implements the per-core, SLO-aware NVMe request scheduler:
// device-model token rates, per-tenant admission and credit accounting, and
// the two-subround per-core scheduling loop that drains latency-critical
// (LC) queues against their reservations and shares the remainder fairly
// across best-effort (BE) tenants.
//
// # Reading Guide
//
//   - request.go: RequestContext, the unit of work the scheduler moves.
//   - queue.go: SWQueue, the per-tenant FIFO and its credit bookkeeping.
//   - cost.go: request cost and scaled-IOPS token-rate conversion.
//   - device.go: DeviceModel, mapping a latency SLO to a device token rate.
//   - tenant.go: Tenant (flow group) identity and the slotted tenant table.
//   - admission.go: AdmissionController, the single spinlock-guarded global
//     state machine for adding/removing tenants and recomputing shares.
//   - pool.go: GlobalPool, the cross-core leftover-token bank and barrier.
//   - scheduler.go: CoreScheduler, the two-subround per-core loop.
//
// Everything outside this package (the raw NVMe submit/complete path, vtophys
// translation, SGL plumbing) is an opaque collaborator; see package driver
// for the adapter that bridges CoreScheduler decisions to it.
package sched
