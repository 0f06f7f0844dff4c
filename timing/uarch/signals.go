package uarch

import "github.com/sarchlab/akita/v4/sim"

// SquashCause tells why younger instructions were discarded.
type SquashCause uint8

// Squash causes.
const (
	BranchMispredict SquashCause = iota
	LoadStoreConflict
	CoherenceViolation
	Resynchronize

	numSquashCauses
)

func (c SquashCause) String() string {
	switch c {
	case BranchMispredict:
		return "BranchMispredict"
	case LoadStoreConflict:
		return "LoadStoreConflict"
	case CoherenceViolation:
		return "CoherenceViolation"
	case Resynchronize:
		return "Resynchronize"
	}

	return "Unknown"
}

// Squash reports that every instruction with a sequence number greater than
// After was discarded.
type Squash struct {
	After uint64
	Cause SquashCause
	Count int
}

// Redirect tells fetch where to continue. PC is the instruction that
// caused the redirect and NextPC the address to fetch from.
type Redirect struct {
	PC     uint64
	NextPC uint64
}

// BranchFeedback reports a resolved branch.
type BranchFeedback struct {
	PC           uint64
	Taken        bool
	Target       uint64
	Mispredicted bool
}

// ForwardingHit reports a load that took its value from an older store.
type ForwardingHit struct {
	PC      uint64
	Address uint64
}

// Signals are the side-channel events of one or more cycles.
type Signals struct {
	Squashes       []Squash
	Redirects      []Redirect
	Feedback       []BranchFeedback
	ForwardingHits []ForwardingHit
}

// Empty reports whether no event was raised.
func (s Signals) Empty() bool {
	return len(s.Squashes) == 0 && len(s.Redirects) == 0 &&
		len(s.Feedback) == 0 && len(s.ForwardingHits) == 0
}

// Hook positions of a MicroArch.
var (
	HookPosDispatch      = &sim.HookPos{Name: "Dispatch"}
	HookPosRetire        = &sim.HookPos{Name: "Retire"}
	HookPosSquash        = &sim.HookPos{Name: "Squash"}
	HookPosRedirect      = &sim.HookPos{Name: "Redirect"}
	HookPosBranch        = &sim.HookPos{Name: "BranchFeedback"}
	HookPosForwardingHit = &sim.HookPos{Name: "StoreForwardingHit"}
)

// DrainSignals returns the events raised since the last call.
func (m *MicroArch) DrainSignals() Signals {
	s := m.signals
	m.signals = Signals{}

	return s
}

func (m *MicroArch) emit(pos *sim.HookPos, item interface{}) {
	switch v := item.(type) {
	case Squash:
		m.signals.Squashes = append(m.signals.Squashes, v)
	case Redirect:
		m.signals.Redirects = append(m.signals.Redirects, v)
	case BranchFeedback:
		m.signals.Feedback = append(m.signals.Feedback, v)
	case ForwardingHit:
		m.signals.ForwardingHits = append(m.signals.ForwardingHits, v)
	}

	m.InvokeHook(sim.HookCtx{
		Domain: m,
		Pos:    pos,
		Item:   item,
	})
}
