package uarch

import (
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/memop"
)

type squashRequest struct {
	valid      bool
	after      uint64
	cause      SquashCause
	redirect   Redirect
	checkpoint *Checkpoint
}

// requestSquash records a squash to be applied at the next safe point. Of
// several requests the one reaching furthest back wins.
func (m *MicroArch) requestSquash(req squashRequest) {
	req.valid = true

	if m.pending.valid && m.pending.after <= req.after {
		return
	}

	m.pending = req
}

// applySquash discards every instruction younger than the pending request,
// restores renaming and redirects fetch.
func (m *MicroArch) applySquash() {
	if !m.pending.valid {
		return
	}

	req := m.pending
	m.pending = squashRequest{}

	if req.checkpoint != nil && !m.liveCheckpoint(req.checkpoint) {
		m.log.WithField("seq", req.checkpoint.Seq).
			Panic("rollback to a checkpoint that is not live")
	}

	count := 0
	for len(m.rob) > 0 {
		e := m.rob[len(m.rob)-1]
		if e.seq <= req.after {
			break
		}

		m.rob[len(m.rob)-1] = nil
		m.rob = m.rob[:len(m.rob)-1]

		m.discard(e, req.checkpoint == nil)
		count++
	}

	if req.checkpoint != nil {
		m.regs.restore(req.checkpoint.renameMap)
		m.stats.Rollbacks++
	}

	m.discardCheckpointsAfter(req.after)
	m.dropOutbound(req.after)

	m.stats.Squashes[req.cause]++
	m.stats.Squashed += uint64(count)

	m.log.WithFields(logrus.Fields{
		"after": req.after,
		"cause": req.cause,
		"count": count,
		"pc":    req.redirect.NextPC,
	}).Debug("squash")

	m.emit(HookPosSquash, Squash{After: req.after, Cause: req.cause, Count: count})
	m.emit(HookPosRedirect, req.redirect)
}

func (m *MicroArch) liveCheckpoint(c *Checkpoint) bool {
	for _, live := range m.checkpoints {
		if live == c {
			return true
		}
	}

	return false
}

// discard cancels and releases one squashed instruction. With undo set the
// rename it made is reverted, otherwise only its register is freed.
func (m *MicroArch) discard(e *robEntry, undo bool) {
	m.graph.CancelInstruction(e.inst)

	if mem := e.mem; mem != nil {
		n := len(m.lsq)
		if n == 0 || m.lsq[n-1] != mem {
			m.log.WithField("seq", e.seq).Panic("load/store queue out of order")
		}

		m.lsq[n-1] = nil
		m.lsq = m.lsq[:n-1]
		m.removeFromTable(mem)

		for op, owner := range m.outstanding {
			if owner == mem {
				delete(m.outstanding, op)
			}
		}
	}

	if e.d.Dest != NoReg {
		if undo {
			m.regs.undo(e.d.Dest, e.newReg, e.oldReg)
		} else {
			m.regs.release(e.newReg)
		}
	}

	delete(m.byInst, e.inst)
	m.graph.Release(e.inst)
}

// dropOutbound removes requests of squashed instructions that have not
// left the core yet.
func (m *MicroArch) dropOutbound(after uint64) {
	kept := m.outbound[:0]

	for _, op := range m.outbound {
		if op.Owner.Valid() && op.Owner.Seq > after {
			if op.Kind == memop.StorePrefetch {
				m.prefetchesOutstanding--
			}
			delete(m.outstanding, op)

			continue
		}

		kept = append(kept, op)
	}

	m.outbound = kept
}
