package uarch

import (
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/semantic"
)

// Checkpoint is a restorable rename state taken before the instruction
// with sequence number Seq.
type Checkpoint struct {
	Seq uint64
	PC  uint64

	renameMap [NumArchRegs]semantic.Reg

	// lastCovered is the youngest speculative load that relies on this
	// checkpoint.
	lastCovered uint64
}

// Checkpoints returns the live checkpoints, oldest first.
func (m *MicroArch) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(m.checkpoints))
	for i, c := range m.checkpoints {
		out[i] = *c
	}

	return out
}

func (m *MicroArch) checkpointing() bool {
	return m.model != RMO && m.opts.SpeculativeOrder
}

// maybeCheckpoint takes a checkpoint before the instruction seq when the
// distance from the newest one reached the threshold.
func (m *MicroArch) maybeCheckpoint(seq, pc uint64) {
	if !m.checkpointing() || len(m.checkpoints) >= m.opts.SpeculativeCheckpoints {
		return
	}

	if n := len(m.checkpoints); n > 0 {
		newest := m.checkpoints[n-1]
		if seq-newest.Seq < uint64(m.opts.CheckpointThreshold) {
			return
		}
	}

	m.checkpoints = append(m.checkpoints, &Checkpoint{
		Seq:       seq,
		PC:        pc,
		renameMap: m.regs.snapshot(),
	})
	m.stats.CheckpointsTaken++

	m.log.WithFields(logrus.Fields{
		"seq": seq,
		"pc":  pc,
	}).Debug("checkpoint")
}

// covering returns the newest checkpoint taken at or before seq.
func (m *MicroArch) covering(seq uint64) *Checkpoint {
	for i := len(m.checkpoints) - 1; i >= 0; i-- {
		if m.checkpoints[i].Seq <= seq {
			return m.checkpoints[i]
		}
	}

	return nil
}

// cover binds a speculative load to its checkpoint. It reports false when
// no checkpoint can cover the load.
func (m *MicroArch) cover(e *lsqEntry) bool {
	c := m.covering(e.seq())
	if c == nil {
		return false
	}

	if e.seq() > c.lastCovered {
		c.lastCovered = e.seq()
	}

	return true
}

// slideCheckpoints moves the oldest checkpoint past a retiring instruction
// and drops checkpoints that retirement made useless.
func (m *MicroArch) slideCheckpoints(retired *robEntry) {
	if len(m.checkpoints) == 0 || m.checkpoints[0].Seq != retired.seq {
		return
	}

	c := m.checkpoints[0]
	if retired.d.Dest != NoReg {
		c.renameMap[retired.d.Dest] = retired.newReg
	}

	if len(m.rob) == 0 {
		m.dropOldestCheckpoint()
		return
	}

	next := m.rob[0]
	c.Seq = next.seq
	c.PC = next.d.PC

	switch {
	case len(m.checkpoints) > 1 && m.checkpoints[1].Seq <= c.Seq:
		m.dropOldestCheckpoint()
	case c.lastCovered != 0 && c.lastCovered < c.Seq:
		m.dropOldestCheckpoint()
	}
}

func (m *MicroArch) dropOldestCheckpoint() {
	m.checkpoints[0] = nil
	m.checkpoints = m.checkpoints[1:]
}

// discardCheckpointsAfter drops checkpoints of squashed instructions.
func (m *MicroArch) discardCheckpointsAfter(seq uint64) {
	n := len(m.checkpoints)
	for n > 0 && m.checkpoints[n-1].Seq > seq {
		m.checkpoints[n-1] = nil
		n--
	}
	m.checkpoints = m.checkpoints[:n]
}

// rollback restores the checkpoint covering a load that observed a
// coherence violation.
func (m *MicroArch) rollback(l *lsqEntry, cause SquashCause) {
	c := m.covering(l.seq())
	if c == nil {
		m.log.WithFields(logrus.Fields{
			"seq":  l.seq(),
			"pc":   l.rob.d.PC,
			"addr": l.addr,
		}).Panic("speculative load without a covering checkpoint")
	}

	m.requestSquash(squashRequest{
		after:      c.Seq - 1,
		cause:      cause,
		redirect:   Redirect{PC: c.PC, NextPC: c.PC},
		checkpoint: c,
	})
}
