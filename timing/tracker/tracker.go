// Package tracker provides per-transaction metadata used for critical-path
// and delay accounting of memory transactions.
//
// A Tracker is append-only: producers fill the fields they know and no field
// is ever cleared. The only field with a lifecycle is the completion cycle,
// which moves once from absent to present. Nothing in a Tracker feeds back
// into simulated timing.
package tracker

import (
	"fmt"
)

// StateType is the coherence state a block held before a transaction.
type StateType uint8

// Coherence states.
const (
	StateInvalid StateType = iota
	StateShared
	StateModified
)

// FillLevel names the level of the hierarchy that supplied or requested
// data.
type FillLevel uint8

// Fill levels.
const (
	FillUnknown FillLevel = iota
	FillL1
	FillL2
	FillL3
	FillLocalMemory
	FillRemoteMemory
	FillPeerL1
	FillPeerL2
)

// FillType classifies why a block was filled.
type FillType uint8

// Fill types.
const (
	FillTypeReplacement FillType = iota
	FillTypeCoherence
	FillTypeCold
	FillTypePrefetch
)

type optional[T any] struct {
	value T
	valid bool
}

func (o *optional[T]) set(v T) {
	o.value = v
	o.valid = true
}

func (o optional[T]) get() (T, bool) {
	return o.value, o.valid
}

// Tracker is the metadata record of one logical memory transaction.
type Tracker struct {
	ctx *Context

	id         uint64
	taskID     string
	startCycle uint64
	lastStamp  uint64

	address    optional[uint64]
	initiator  optional[int]
	responder  optional[int]
	source     optional[string]
	completion optional[uint64]

	delayComponent optional[string]
	delayCause     optional[string]

	networkTrafficRequired optional[bool]
	criticalPath           optional[bool]
	wrongPath              optional[bool]
	os                     optional[bool]
	inPE                   optional[bool]
	blockedInMAF           optional[bool]
	fetch                  optional[bool]
	write                  optional[bool]
	speculativeAtomicLoad  optional[bool]

	previousState   optional[StateType]
	fillType        optional[FillType]
	originatorLevel optional[FillLevel]
	fillLevel       optional[FillLevel]

	logicalTimestamp optional[uint64]

	counted bool
}

// ID returns the unique id of the tracker.
func (t *Tracker) ID() uint64 {
	return t.id
}

// TaskID returns the id under which the tracker is traced.
func (t *Tracker) TaskID() string {
	return t.taskID
}

// StartCycle returns the cycle the tracker was created in.
func (t *Tracker) StartCycle() uint64 {
	return t.startCycle
}

// SetAddress records the physical address of the transaction. The address
// may be set again only with the same value.
func (t *Tracker) SetAddress(addr uint64) {
	if prev, ok := t.address.get(); ok && prev != addr {
		panic(fmt.Sprintf(
			"tracker %d: address already set to 0x%x, cannot change to 0x%x",
			t.id, prev, addr))
	}

	t.address.set(addr)
}

// Address returns the physical address, if known.
func (t *Tracker) Address() (uint64, bool) {
	return t.address.get()
}

// SetInitiator records the node that started the transaction.
func (t *Tracker) SetInitiator(node int) { t.initiator.set(node) }

// Initiator returns the initiating node, if known.
func (t *Tracker) Initiator() (int, bool) { return t.initiator.get() }

// SetResponder records the node that answered the transaction.
func (t *Tracker) SetResponder(node int) { t.responder.set(node) }

// Responder returns the responding node, if known.
func (t *Tracker) Responder() (int, bool) { return t.responder.get() }

// SetSource records the component that created the transaction.
func (t *Tracker) SetSource(source string) { t.source.set(source) }

// Source returns the creating component, if known.
func (t *Tracker) Source() (string, bool) { return t.source.get() }

// SetNetworkTrafficRequired marks whether the transaction crossed the
// network.
func (t *Tracker) SetNetworkTrafficRequired(f bool) { t.networkTrafficRequired.set(f) }

// NetworkTrafficRequired returns the network flag, if known.
func (t *Tracker) NetworkTrafficRequired() (bool, bool) { return t.networkTrafficRequired.get() }

// SetCriticalPath marks whether the transaction was on the critical path.
func (t *Tracker) SetCriticalPath(f bool) { t.criticalPath.set(f) }

// CriticalPath returns the critical path flag, if known.
func (t *Tracker) CriticalPath() (bool, bool) { return t.criticalPath.get() }

// SetWrongPath marks whether the transaction was issued on a wrong path.
func (t *Tracker) SetWrongPath(f bool) { t.wrongPath.set(f) }

// WrongPath returns the wrong path flag, if known.
func (t *Tracker) WrongPath() (bool, bool) { return t.wrongPath.get() }

// SetOS marks whether the transaction was issued in privileged mode.
func (t *Tracker) SetOS(f bool) { t.os.set(f) }

// OS returns the privileged mode flag, if known.
func (t *Tracker) OS() (bool, bool) { return t.os.get() }

// SetInPE marks whether the transaction was in the protocol engine.
func (t *Tracker) SetInPE(f bool) { t.inPE.set(f) }

// InPE returns the protocol engine flag, if known.
func (t *Tracker) InPE() (bool, bool) { return t.inPE.get() }

// SetBlockedInMAF marks whether the transaction waited in the MAF.
func (t *Tracker) SetBlockedInMAF(f bool) { t.blockedInMAF.set(f) }

// BlockedInMAF returns the MAF flag, if known.
func (t *Tracker) BlockedInMAF() (bool, bool) { return t.blockedInMAF.get() }

// SetFetch marks an instruction fetch transaction.
func (t *Tracker) SetFetch(f bool) { t.fetch.set(f) }

// IsFetch returns the fetch flag, if known.
func (t *Tracker) IsFetch() (bool, bool) { return t.fetch.get() }

// SetWrite marks a write transaction.
func (t *Tracker) SetWrite(f bool) { t.write.set(f) }

// IsWrite returns the write flag, if known.
func (t *Tracker) IsWrite() (bool, bool) { return t.write.get() }

// SetSpeculativeAtomicLoad marks an atomic performed on a speculated value.
func (t *Tracker) SetSpeculativeAtomicLoad(f bool) { t.speculativeAtomicLoad.set(f) }

// SpeculativeAtomicLoad returns the speculative atomic flag, if known.
func (t *Tracker) SpeculativeAtomicLoad() (bool, bool) { return t.speculativeAtomicLoad.get() }

// SetPreviousState records the coherence state before the transaction.
func (t *Tracker) SetPreviousState(s StateType) { t.previousState.set(s) }

// PreviousState returns the previous coherence state, if known.
func (t *Tracker) PreviousState() (StateType, bool) { return t.previousState.get() }

// SetFillType records why the block was filled.
func (t *Tracker) SetFillType(f FillType) { t.fillType.set(f) }

// FillType returns the fill type, if known.
func (t *Tracker) FillType() (FillType, bool) { return t.fillType.get() }

// SetOriginatorLevel records the level the request started from.
func (t *Tracker) SetOriginatorLevel(l FillLevel) { t.originatorLevel.set(l) }

// OriginatorLevel returns the originator level, if known.
func (t *Tracker) OriginatorLevel() (FillLevel, bool) { return t.originatorLevel.get() }

// SetFillLevel records the level that supplied the data.
func (t *Tracker) SetFillLevel(l FillLevel) { t.fillLevel.set(l) }

// FillLevel returns the fill level, if known.
func (t *Tracker) FillLevel() (FillLevel, bool) { return t.fillLevel.get() }

// SetLogicalTimestamp records a protocol-level logical time.
func (t *Tracker) SetLogicalTimestamp(ts uint64) { t.logicalTimestamp.set(ts) }

// LogicalTimestamp returns the logical timestamp, if known.
func (t *Tracker) LogicalTimestamp() (uint64, bool) { return t.logicalTimestamp.get() }

// SetDelayCause records the component and cause currently delaying the
// transaction.
func (t *Tracker) SetDelayCause(component, cause string) {
	t.delayComponent.set(component)
	t.delayCause.set(cause)
	t.lastStamp = t.ctx.now()
	t.ctx.step(t, component+": "+cause)
}

// DelayCause returns the current delay component and cause, if known.
func (t *Tracker) DelayCause() (component, cause string, ok bool) {
	component, ok = t.delayComponent.get()
	cause, _ = t.delayCause.get()

	return component, cause, ok
}

// Complete stamps the completion cycle. Later calls have no effect.
func (t *Tracker) Complete() {
	if t.completion.valid {
		return
	}

	now := t.ctx.now()
	if now < t.startCycle {
		now = t.startCycle
	}

	t.completion.set(now)
	t.ctx.finish(t)
}

// CompletionCycle returns the completion cycle, if the transaction is
// complete.
func (t *Tracker) CompletionCycle() (uint64, bool) {
	return t.completion.get()
}

// Latency returns the number of cycles between start and completion.
func (t *Tracker) Latency() (uint64, bool) {
	c, ok := t.completion.get()
	if !ok {
		return 0, false
	}

	return c - t.startCycle, true
}

// WasCounted reports whether statistics already accounted this tracker.
func (t *Tracker) WasCounted() bool {
	return t.counted
}

// SetWasCounted marks the tracker as accounted.
func (t *Tracker) SetWasCounted() {
	t.counted = true
}

// String renders the known fields of the tracker.
func (t *Tracker) String() string {
	s := fmt.Sprintf("TT#%d start=%d", t.id, t.startCycle)
	if a, ok := t.Address(); ok {
		s += fmt.Sprintf(" addr=0x%x", a)
	}
	if i, ok := t.Initiator(); ok {
		s += fmt.Sprintf(" init=%d", i)
	}
	if r, ok := t.Responder(); ok {
		s += fmt.Sprintf(" resp=%d", r)
	}
	if src, ok := t.Source(); ok {
		s += " src=" + src
	}
	if c, ok := t.CompletionCycle(); ok {
		s += fmt.Sprintf(" done=%d", c)
	}

	return s
}
