package uarch

import (
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/semantic"
)

// PopMemOp removes the next outbound request, or returns nil.
func (m *MicroArch) PopMemOp() *memop.MemOp {
	if len(m.outbound) == 0 {
		return nil
	}

	op := m.outbound[0]
	m.outbound[0] = nil
	m.outbound = m.outbound[1:]

	return op
}

// PopSnoopOp removes the next outbound snoop reply, or returns nil.
func (m *MicroArch) PopSnoopOp() *memop.MemOp {
	if len(m.snoops) == 0 {
		return nil
	}

	op := m.snoops[0]
	m.snoops[0] = nil
	m.snoops = m.snoops[1:]

	return op
}

// PushMemOp delivers a reply or a snoop from the memory system.
func (m *MicroArch) PushMemOp(op *memop.MemOp) {
	switch op.Kind {
	case memop.LoadReply:
		m.loadReply(op)
	case memop.StoreReply:
		m.storeReply(op)
	case memop.StorePrefetchReply:
		m.complete(op)
		if m.prefetchesOutstanding > 0 {
			m.prefetchesOutstanding--
		}
	case memop.AtomicPreloadReply:
		m.preloadReply(op)
	case memop.RMWReply, memop.CASReply:
		m.atomicReply(op)
	case memop.Invalidate:
		m.snoopReply(op, memop.InvAck)
		m.checkCoherence(op.Address)
	case memop.Downgrade:
		m.snoopReply(op, memop.DowngradeAck)
	case memop.Probe:
		m.snoopReply(op, memop.ProbeAck)
	case memop.ReturnReq:
		m.snoopReply(op, memop.ReturnReply)
	default:
		m.log.WithFields(logrus.Fields{
			"kind": op.Kind,
			"addr": op.Address,
		}).Panic("unexpected memory operation delivered to the core")
	}

	m.applySquash()
}

// WritePermissionLost tells the core that the block holding addr can no
// longer be written locally.
func (m *MicroArch) WritePermissionLost(addr uint64) {
	m.checkCoherence(addr)
	m.applySquash()
}

// complete closes the transaction of a reply and returns the queue entry
// that issued it, if it is still in flight.
func (m *MicroArch) complete(op *memop.MemOp) *lsqEntry {
	if op.Tracker != nil {
		op.Tracker.Complete()
	}

	e, ok := m.outstanding[op]
	if !ok {
		return nil
	}
	delete(m.outstanding, op)

	return e
}

func (m *MicroArch) loadReply(op *memop.MemOp) {
	e := m.complete(op)
	if e == nil {
		return
	}

	e.value = m.backend.ReadMemory(e.addr, e.size())
	e.performed = true

	if m.graph.ActionAlive(e.rob.value) {
		m.graph.Satisfy(e.rob.value, semantic.LoadValuePort)
	}
}

func (m *MicroArch) storeReply(op *memop.MemOp) {
	e := m.complete(op)
	if e == nil {
		m.log.WithField("addr", op.Address).Warn("store reply without a pending store")
		return
	}

	m.backend.WriteMemory(e.addr, e.size(), e.storeValue)
	e.performed = true
	m.removeFromTable(e)

	m.storeBuffer = removeEntry(m.storeBuffer, e)
	m.nawStores = removeEntry(m.nawStores, e)
}

func removeEntry(list []*lsqEntry, e *lsqEntry) []*lsqEntry {
	for i, x := range list {
		if x == e {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil

			return list[:len(list)-1]
		}
	}

	return list
}

func (m *MicroArch) preloadReply(op *memop.MemOp) {
	e := m.complete(op)
	if e == nil || e.performed {
		return
	}

	e.preloadValue = m.backend.ReadMemory(e.addr, e.size())
	e.preloaded = true

	if m.graph.ActionAlive(e.rob.value) {
		m.graph.Satisfy(e.rob.value, semantic.LoadValuePort)
	}
}

func (m *MicroArch) atomicReply(op *memop.MemOp) {
	e := m.complete(op)
	if e == nil {
		return
	}

	d := &e.rob.d
	old := m.backend.ReadMemory(e.addr, d.Size)

	switch d.Class {
	case ClassRMW:
		updated := d.Size.Shape(d.Op([]uint64{old, e.storeValue, 0, 0}), false)
		m.backend.WriteMemory(e.addr, d.Size, updated)
	case ClassCAS:
		if old == op.Compare {
			m.backend.WriteMemory(e.addr, d.Size, e.storeValue)
		}
	}

	e.value = old
	e.performed = true

	if !e.preloaded {
		if m.graph.ActionAlive(e.rob.value) {
			m.graph.Satisfy(e.rob.value, semantic.LoadValuePort)
		}

		return
	}

	if old == e.preloadValue {
		return
	}

	if d.Dest != NoReg {
		m.publish(e.rob.newReg, old)
	}

	m.requestSquash(squashRequest{
		after:    e.seq(),
		cause:    Resynchronize,
		redirect: Redirect{PC: d.PC, NextPC: d.FallThrough()},
	})
}

func (m *MicroArch) snoopReply(op *memop.MemOp, kind memop.Kind) {
	m.snoops = append(m.snoops, &memop.MemOp{
		Kind:    kind,
		Address: op.Address,
		Size:    op.Size,
		Tracker: op.Tracker,
	})
}

// checkCoherence rolls back when a block that a speculative load read is
// taken away.
func (m *MicroArch) checkCoherence(addr uint64) {
	mask := ^(m.opts.CoherenceUnit - 1)
	block := addr & mask

	for _, l := range m.lsq {
		if l.class() != ClassLoad || !l.speculative || !l.performed {
			continue
		}

		if l.addr&mask != block {
			continue
		}

		m.log.WithFields(logrus.Fields{
			"seq":  l.seq(),
			"addr": addr,
		}).Debug("coherence violation")

		m.rollback(l, CoherenceViolation)

		return
	}
}

// publish writes a register and wakes the actions waiting for it.
func (m *MicroArch) publish(reg semantic.Reg, v uint64) {
	for _, a := range m.regs.write(reg, v) {
		if m.graph.ActionAlive(a) {
			m.graph.Satisfy(a, semantic.RegisterReadyPort)
		}
	}
}
