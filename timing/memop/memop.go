// Package memop defines the core-internal representation of an in-flight
// memory access.
package memop

import (
	"fmt"

	"github.com/CyberSME/flexus/timing/tracker"
)

// Size is the width of a memory access in bytes.
type Size uint8

// Access widths.
const (
	Byte       Size = 1
	HalfWord   Size = 2
	Word       Size = 4
	DoubleWord Size = 8
)

// Valid reports whether the size is one of the four access widths.
func (s Size) Valid() bool {
	switch s {
	case Byte, HalfWord, Word, DoubleWord:
		return true
	}

	return false
}

// Mask returns a mask covering the low Size bytes.
func (s Size) Mask() uint64 {
	if s >= DoubleWord {
		return ^uint64(0)
	}

	return (uint64(1) << (8 * uint(s))) - 1
}

// Shape truncates value to the width and, when signExtend is set, replicates
// the top bit of the truncated field into the vacated high bits.
func (s Size) Shape(value uint64, signExtend bool) uint64 {
	mask := s.Mask()
	value &= mask

	if s >= DoubleWord || !signExtend {
		return value
	}

	topBit := uint64(1) << (8*uint(s) - 1)
	if value&topBit != 0 {
		value |= ^mask
	}

	return value
}

// Kind is the operation a MemOp performs.
type Kind uint8

// Operation kinds. The first group leaves the core on the request channel,
// the second on the snoop channel, the rest enter the core from the fabric.
const (
	KindInvalid Kind = iota

	Load
	AtomicPreload
	StorePrefetch
	Store
	RMW
	CAS

	InvAck
	DowngradeAck
	ProbeAck
	ReturnReply

	LoadReply
	AtomicPreloadReply
	StoreReply
	StorePrefetchReply
	Invalidate
	Downgrade
	Probe
	RMWReply
	CASReply
	ReturnReq

	numKinds
)

var kindNames = [numKinds]string{
	KindInvalid:        "Invalid",
	Load:               "Load",
	AtomicPreload:      "AtomicPreload",
	StorePrefetch:      "StorePrefetch",
	Store:              "Store",
	RMW:                "RMW",
	CAS:                "CAS",
	InvAck:             "InvAck",
	DowngradeAck:       "DowngradeAck",
	ProbeAck:           "ProbeAck",
	ReturnReply:        "ReturnReply",
	LoadReply:          "LoadReply",
	AtomicPreloadReply: "AtomicPreloadReply",
	StoreReply:         "StoreReply",
	StorePrefetchReply: "StorePrefetchReply",
	Invalidate:         "Invalidate",
	Downgrade:          "Downgrade",
	Probe:              "Probe",
	RMWReply:           "RMWReply",
	CASReply:           "CASReply",
	ReturnReq:          "ReturnReq",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}

	return kindNames[k]
}

// IsReply reports whether the kind answers a request issued by the core.
func (k Kind) IsReply() bool {
	switch k {
	case LoadReply, AtomicPreloadReply, StoreReply, StorePrefetchReply,
		RMWReply, CASReply:
		return true
	}

	return false
}

// IsSnoop reports whether the kind is initiated by the fabric.
func (k Kind) IsSnoop() bool {
	switch k {
	case Invalidate, Downgrade, Probe, ReturnReq:
		return true
	}

	return false
}

// Owner identifies the instruction a MemOp belongs to. The zero value means
// the MemOp has no owner, as for fabric-initiated snoops.
type Owner struct {
	Index uint32
	Gen   uint32
	Seq   uint64
}

// Valid reports whether the owner is set.
func (o Owner) Valid() bool {
	return o.Gen != 0
}

// MemOp is one memory access of the core.
type MemOp struct {
	Kind    Kind
	Address uint64
	Size    Size
	PC      uint64

	Value    uint64
	HasValue bool

	// Compare holds the expected value of a CAS.
	Compare uint64

	// NAW marks a non-allocating store.
	NAW bool

	Tracker *tracker.Tracker
	Owner   Owner
}

// SetValue attaches a data value to the MemOp.
func (op *MemOp) SetValue(v uint64) {
	op.Value = v
	op.HasValue = true
}

// EnsureTracker returns the tracker of the MemOp, creating one from ctx if
// the MemOp does not have one yet.
func (op *MemOp) EnsureTracker(ctx *tracker.Context) (t *tracker.Tracker, created bool) {
	if op.Tracker != nil {
		return op.Tracker, false
	}

	op.Tracker = ctx.NewTracker()

	return op.Tracker, true
}

func (op *MemOp) String() string {
	s := fmt.Sprintf("MemOp %s addr=0x%x size=%d", op.Kind, op.Address, op.Size)
	if op.HasValue {
		s += fmt.Sprintf(" value=0x%x", op.Value)
	}
	if op.NAW {
		s += " NAW"
	}
	if op.Owner.Valid() {
		s += fmt.Sprintf(" seq=%d", op.Owner.Seq)
	}

	return s
}
