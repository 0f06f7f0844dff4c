package uarch

import (
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/semantic"
)

const forwardingGranule = 8

type lsqEntry struct {
	rob *robEntry

	addr      uint64
	addrKnown bool

	storeValue uint64
	valueKnown bool

	issued      bool
	performed   bool
	speculative bool
	retired     bool
	inTable     bool

	value uint64

	// forwardedFrom is the sequence number of the store a load took its
	// value from, or 0.
	forwardedFrom uint64

	prefetched    bool
	preloadIssued bool
	preloaded     bool
	preloadValue  uint64
}

func (e *lsqEntry) seq() uint64 {
	return e.rob.seq
}

func (e *lsqEntry) size() memop.Size {
	return e.rob.d.Size
}

func (e *lsqEntry) class() Class {
	return e.rob.d.Class
}

func (e *lsqEntry) overlaps(addr uint64, size memop.Size) bool {
	return e.addr < addr+uint64(size) && addr < e.addr+uint64(e.size())
}

func granules(addr uint64, size memop.Size) []uint64 {
	first := addr &^ (forwardingGranule - 1)
	last := (addr + uint64(size) - 1) &^ (forwardingGranule - 1)

	if first == last {
		return []uint64{first}
	}

	return []uint64{first, last}
}

// addToTable enters a store into the forwarding table in program order.
func (m *MicroArch) addToTable(e *lsqEntry) {
	e.inTable = true

	for _, g := range granules(e.addr, e.size()) {
		list := m.forwarding[g]

		i := len(list)
		for i > 0 && list[i-1].seq() > e.seq() {
			i--
		}

		list = append(list, nil)
		copy(list[i+1:], list[i:])
		list[i] = e
		m.forwarding[g] = list
	}
}

func (m *MicroArch) removeFromTable(e *lsqEntry) {
	if !e.inTable {
		return
	}
	e.inTable = false

	for _, g := range granules(e.addr, e.size()) {
		list := m.forwarding[g]
		for i, s := range list {
			if s == e {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}

		if len(list) == 0 {
			delete(m.forwarding, g)
		} else {
			m.forwarding[g] = list
		}
	}
}

// youngestOlderStore returns the youngest store older than the load that
// overlaps it.
func (m *MicroArch) youngestOlderStore(load *lsqEntry) *lsqEntry {
	var found *lsqEntry

	for _, g := range granules(load.addr, load.size()) {
		list := m.forwarding[g]
		for i := len(list) - 1; i >= 0; i-- {
			s := list[i]
			if s.seq() >= load.seq() || !s.overlaps(load.addr, load.size()) {
				continue
			}

			if found == nil || s.seq() > found.seq() {
				found = s
			}

			break
		}
	}

	return found
}

// resolveAddress records the effective address of a memory instruction.
func (m *MicroArch) resolveAddress(e *lsqEntry, addr uint64) {
	e.addr = addr
	e.addrKnown = true

	if e.class() != ClassStore {
		return
	}

	m.addToTable(e)
	m.checkLoadStoreConflict(e)
}

// checkLoadStoreConflict squashes from the oldest younger load that read
// memory before the address of store s was known.
func (m *MicroArch) checkLoadStoreConflict(s *lsqEntry) {
	for _, l := range m.lsq {
		if l.seq() <= s.seq() || l.class() != ClassLoad {
			continue
		}

		if !l.issued && !l.performed {
			continue
		}

		if !l.overlaps(s.addr, s.size()) {
			continue
		}

		if l.forwardedFrom > s.seq() {
			continue
		}

		m.log.WithFields(logrus.Fields{
			"store": s.seq(),
			"load":  l.seq(),
			"addr":  s.addr,
		}).Debug("load-store conflict")

		m.requestSquash(squashRequest{
			after:    l.seq() - 1,
			cause:    LoadStoreConflict,
			redirect: Redirect{PC: l.rob.d.PC, NextPC: l.rob.d.PC},
		})

		return
	}
}

// olderIncomplete reports whether the consistency model orders e after a
// memory operation that has not completed.
func (m *MicroArch) olderIncomplete(e *lsqEntry) bool {
	if m.model == RMO {
		return false
	}

	if m.model == SC && (len(m.storeBuffer) > 0 || len(m.nawStores) > 0) {
		return true
	}

	for _, o := range m.lsq {
		if o.seq() >= e.seq() {
			break
		}

		if m.incomplete(o) {
			return true
		}
	}

	return false
}

func (m *MicroArch) incomplete(o *lsqEntry) bool {
	switch o.class() {
	case ClassStore:
		return m.model == SC
	default:
		return !o.performed
	}
}

// settleSpeculation clears the speculative mark of loads whose older
// memory operations have all completed.
func (m *MicroArch) settleSpeculation() {
	if m.model == RMO {
		return
	}

	older := m.model == SC && (len(m.storeBuffer) > 0 || len(m.nawStores) > 0)

	for _, e := range m.lsq {
		if e.speculative && e.performed && !older {
			e.speculative = false
		}

		if m.incomplete(e) {
			older = true
		}
	}
}

// olderMemoryPending reports whether any memory operation older than e has
// not completed, regardless of the consistency model.
func (m *MicroArch) olderMemoryPending(e *lsqEntry) bool {
	if len(m.storeBuffer) > 0 || len(m.nawStores) > 0 {
		return true
	}

	for _, o := range m.lsq {
		if o.seq() >= e.seq() {
			break
		}

		if o.class() == ClassStore || !o.performed {
			return true
		}
	}

	return false
}

func (m *MicroArch) owner(e *lsqEntry) memop.Owner {
	return memop.Owner{
		Index: e.rob.inst.Index,
		Gen:   e.rob.inst.Gen,
		Seq:   e.rob.seq,
	}
}

func (m *MicroArch) send(op *memop.MemOp, e *lsqEntry) {
	m.outbound = append(m.outbound, op)
	if e != nil {
		m.outstanding[op] = e
	}
}

// issueMemory issues memory operations in priority order: store buffer,
// atomics at the head of the window, loads, store prefetches and atomic
// preloads.
func (m *MicroArch) issueMemory() {
	budget := m.opts.MemoryPorts - len(m.outbound)
	if budget <= 0 {
		return
	}

	budget -= m.issueStores(budget)
	if budget > 0 && m.issueAtomic() {
		budget--
	}
	if budget > 0 {
		budget -= m.issueLoads(budget)
	}
	if budget > 0 {
		budget -= m.issuePrefetches(budget)
	}
	if budget > 0 {
		m.issuePreloads(budget)
	}
}

func (m *MicroArch) storeOp(e *lsqEntry) *memop.MemOp {
	d := &e.rob.d
	op := &memop.MemOp{
		Kind:    memop.Store,
		Address: e.addr,
		Size:    d.Size,
		PC:      d.PC,
		NAW:     d.NAW,
	}
	op.SetValue(e.storeValue)
	op.Owner = m.owner(e)

	return op
}

func (m *MicroArch) issueStores(budget int) int {
	n := 0

	for _, e := range m.nawStores {
		if n >= budget {
			return n
		}

		if e.issued {
			continue
		}

		e.issued = true
		m.send(m.storeOp(e), e)
		m.stats.StoresIssued++
		n++
	}

	for i, e := range m.storeBuffer {
		if n >= budget {
			break
		}

		if e.issued {
			if m.model != RMO {
				break
			}

			continue
		}

		if m.model != RMO && i > 0 {
			break
		}

		e.issued = true
		m.send(m.storeOp(e), e)
		m.stats.StoresIssued++
		n++
	}

	return n
}

func (m *MicroArch) issueAtomic() bool {
	if len(m.rob) == 0 || len(m.storeBuffer) > 0 || len(m.nawStores) > 0 {
		return false
	}

	head := m.rob[0]
	e := head.mem
	if e == nil || !e.class().IsAtomic() || e.issued || e.performed {
		return false
	}

	if !e.addrKnown || !e.valueKnown {
		return false
	}

	d := &head.d
	op := &memop.MemOp{
		Kind:    memop.RMW,
		Address: e.addr,
		Size:    d.Size,
		PC:      d.PC,
	}
	op.SetValue(e.storeValue)

	if d.Class == ClassCAS {
		inst, _ := m.graph.Instruction(head.inst)
		cmp, ok := inst.Operand(semantic.OperandRS2)
		if !ok {
			return false
		}

		op.Kind = memop.CAS
		op.Compare = d.Size.Shape(cmp, false)
	}

	op.Owner = m.owner(e)
	e.issued = true
	m.send(op, e)
	m.stats.AtomicsIssued++

	return true
}

func (m *MicroArch) issueLoads(budget int) int {
	n := 0

	for _, e := range m.lsq {
		if n >= budget {
			break
		}

		if e.class() != ClassLoad || e.issued || e.performed || !e.addrKnown {
			continue
		}

		if m.opts.InOrderMemory && m.olderMemoryPending(e) {
			break
		}

		if !m.graph.ActionAlive(e.rob.value) {
			continue
		}

		src := m.youngestOlderStore(e)
		if src != nil && !m.canForward(src, e) {
			continue
		}

		speculative := m.olderIncomplete(e)
		if speculative {
			if !m.opts.SpeculativeOrder || !m.cover(e) {
				continue
			}
		}
		e.speculative = speculative

		if src != nil {
			m.forward(src, e)
			continue
		}

		op := &memop.MemOp{
			Kind:    memop.Load,
			Address: e.addr,
			Size:    e.size(),
			PC:      e.rob.d.PC,
			Owner:   m.owner(e),
		}
		e.issued = true
		m.send(op, e)
		m.stats.LoadsIssued++
		n++
	}

	return n
}

func (m *MicroArch) canForward(s, l *lsqEntry) bool {
	return s.valueKnown && s.addr == l.addr && s.size() == l.size()
}

func (m *MicroArch) forward(s, l *lsqEntry) {
	l.performed = true
	l.value = s.storeValue
	l.forwardedFrom = s.seq()
	m.stats.ForwardedLoads++

	m.emit(HookPosForwardingHit, ForwardingHit{PC: l.rob.d.PC, Address: l.addr})
	m.graph.Satisfy(l.rob.value, semantic.LoadValuePort)
}

func (m *MicroArch) issuePrefetches(budget int) int {
	n := 0

	candidates := m.lsq
	if !m.opts.PrefetchEarly {
		candidates = m.storeBuffer
	}

	for _, e := range candidates {
		if n >= budget || m.prefetchesOutstanding >= m.opts.StorePrefetches {
			break
		}

		if e.class() != ClassStore || e.prefetched || e.issued || !e.addrKnown || e.rob.d.NAW {
			continue
		}

		e.prefetched = true
		m.prefetchesOutstanding++
		m.send(&memop.MemOp{
			Kind:    memop.StorePrefetch,
			Address: e.addr,
			Size:    e.size(),
			PC:      e.rob.d.PC,
			Owner:   m.owner(e),
		}, nil)
		m.stats.PrefetchesIssued++
		n++
	}

	return n
}

func (m *MicroArch) issuePreloads(budget int) {
	if !m.opts.SpeculateOnAtomicValue {
		return
	}

	n := 0
	for _, e := range m.lsq {
		if n >= budget {
			return
		}

		if !e.class().IsAtomic() || e.preloadIssued || e.issued || !e.addrKnown {
			continue
		}

		e.preloadIssued = true
		m.send(&memop.MemOp{
			Kind:    memop.AtomicPreload,
			Address: e.addr,
			Size:    e.size(),
			PC:      e.rob.d.PC,
			Owner:   m.owner(e),
		}, e)
		n++
	}
}
