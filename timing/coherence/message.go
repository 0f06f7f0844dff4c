// Package coherence defines the wire messages exchanged between a core and
// the memory fabric, and the vocabulary of the coherence directory.
package coherence

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/tracker"
)

var (
	requestByteOverhead = 12
	replyByteOverhead   = 4
	controlByteOverhead = 4
)

// MessageType enumerates the memory message kinds on the wire.
type MessageType uint8

// Memory message types.
const (
	Load MessageType = iota
	AtomicPreload
	StorePrefetch
	Store
	RMW
	CAS
	NonAllocatingStoreReq
	NonAllocatingStoreReply
	LoadReply
	AtomicPreloadReply
	StoreReply
	StorePrefetchReply
	Invalidate
	Downgrade
	Probe
	InvalidateAck
	DowngradeAck
	ProbedNotPresent
	RMWReply
	CmpxReply
	ReturnReq
	ReturnReply

	numMessageTypes
)

var messageTypeNames = [numMessageTypes]string{
	Load:                    "Load",
	AtomicPreload:           "AtomicPreload",
	StorePrefetch:           "StorePrefetch",
	Store:                   "Store",
	RMW:                     "RMW",
	CAS:                     "CAS",
	NonAllocatingStoreReq:   "NonAllocatingStoreReq",
	NonAllocatingStoreReply: "NonAllocatingStoreReply",
	LoadReply:               "LoadReply",
	AtomicPreloadReply:      "AtomicPreloadReply",
	StoreReply:              "StoreReply",
	StorePrefetchReply:      "StorePrefetchReply",
	Invalidate:              "Invalidate",
	Downgrade:               "Downgrade",
	Probe:                   "Probe",
	InvalidateAck:           "InvalidateAck",
	DowngradeAck:            "DowngradeAck",
	ProbedNotPresent:        "ProbedNotPresent",
	RMWReply:                "RMWReply",
	CmpxReply:               "CmpxReply",
	ReturnReq:               "ReturnReq",
	ReturnReply:             "ReturnReply",
}

func (t MessageType) String() string {
	if t >= numMessageTypes {
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}

	return messageTypeNames[t]
}

// IsRequest reports whether the type is a request sent by a core.
func (t MessageType) IsRequest() bool {
	switch t {
	case Load, AtomicPreload, StorePrefetch, Store, RMW, CAS,
		NonAllocatingStoreReq:
		return true
	}

	return false
}

// MemoryMessage is a memory request, reply or snoop on the wire.
type MemoryMessage struct {
	sim.MsgMeta

	Type     MessageType
	Address  uint64
	PC       uint64
	HasPC    bool
	ReqSize  memop.Size
	Value    uint64
	HasValue bool
	Compare  uint64
}

// Meta returns the message meta.
func (m *MemoryMessage) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *MemoryMessage) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

func (m *MemoryMessage) String() string {
	s := fmt.Sprintf("%s addr=0x%x size=%d", m.Type, m.Address, m.ReqSize)
	if m.HasValue {
		s += fmt.Sprintf(" value=0x%x", m.Value)
	}

	return s
}

// MemoryMessageBuilder can build memory messages.
type MemoryMessageBuilder struct {
	src, dst sim.RemotePort
	msgType  MessageType
	address  uint64
	pc       uint64
	hasPC    bool
	size     memop.Size
	value    uint64
	hasValue bool
	compare  uint64
}

// WithSrc sets the source of the message to build.
func (b MemoryMessageBuilder) WithSrc(src sim.RemotePort) MemoryMessageBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b MemoryMessageBuilder) WithDst(dst sim.RemotePort) MemoryMessageBuilder {
	b.dst = dst
	return b
}

// WithType sets the type of the message to build.
func (b MemoryMessageBuilder) WithType(t MessageType) MemoryMessageBuilder {
	b.msgType = t
	return b
}

// WithAddress sets the address of the message to build.
func (b MemoryMessageBuilder) WithAddress(addr uint64) MemoryMessageBuilder {
	b.address = addr
	return b
}

// WithPC sets the program counter of the instruction that caused the
// message.
func (b MemoryMessageBuilder) WithPC(pc uint64) MemoryMessageBuilder {
	b.pc = pc
	b.hasPC = true
	return b
}

// WithSize sets the access width of the message to build.
func (b MemoryMessageBuilder) WithSize(size memop.Size) MemoryMessageBuilder {
	b.size = size
	return b
}

// WithValue sets the data value carried by the message.
func (b MemoryMessageBuilder) WithValue(v uint64) MemoryMessageBuilder {
	b.value = v
	b.hasValue = true
	return b
}

// WithCompare sets the expected value of a CAS.
func (b MemoryMessageBuilder) WithCompare(v uint64) MemoryMessageBuilder {
	b.compare = v
	return b
}

// Build creates a new MemoryMessage.
func (b MemoryMessageBuilder) Build() *MemoryMessage {
	m := &MemoryMessage{
		Type:     b.msgType,
		Address:  b.address,
		PC:       b.pc,
		HasPC:    b.hasPC,
		ReqSize:  b.size,
		Value:    b.value,
		HasValue: b.hasValue,
		Compare:  b.compare,
	}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = "coherence.MemoryMessage"

	switch {
	case b.msgType.IsRequest():
		m.TrafficBytes = requestByteOverhead
		if b.hasValue {
			m.TrafficBytes += int(b.size)
		}
	case b.hasValue:
		m.TrafficBytes = replyByteOverhead + int(b.size)
	default:
		m.TrafficBytes = replyByteOverhead
	}

	return m
}

// Transport bundles a memory message with the side information that travels
// with it: the transaction tracker and, for requests, the MemOp of the
// requester. Fabric replies carry the requester's MemOp back unchanged.
type Transport struct {
	Message *MemoryMessage
	Tracker *tracker.Tracker
	State   *memop.MemOp
}
