// Package memiface connects a core to the memory fabric. It turns the
// memory operations a core emits into wire messages and classifies the
// messages the fabric delivers back into memory operations.
package memiface

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/coherence"
	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/tracker"
)

// TrackerSource is the source recorded on trackers created by an
// interface.
const TrackerSource = "uArch"

// nawAlignment is the block size below which non-allocating stores are
// answered without reaching the fabric.
const nawAlignment = 64

// Core is the side of a core that an interface drives.
type Core interface {
	PopMemOp() *memop.MemOp
	PopSnoopOp() *memop.MemOp
	PushMemOp(op *memop.MemOp)
}

// Stats counts the traffic of an interface.
type Stats struct {
	RequestsSent     uint64
	SnoopsSent       uint64
	LocalReplies     uint64
	MessagesReceived uint64
}

// Interface is the memory interface of one core.
type Interface struct {
	name string
	node int

	core     Core
	trackers *tracker.Context
	log      *logrus.Entry

	local  sim.RemotePort
	remote sim.RemotePort

	requestOut sim.Buffer
	snoopOut   sim.Buffer
	memoryIn   sim.Buffer

	stats Stats
}

// Name returns the name of the interface.
func (i *Interface) Name() string {
	return i.name
}

// Node returns the index of the core the interface belongs to.
func (i *Interface) Node() int {
	return i.node
}

// RequestOut holds the requests waiting for the fabric.
func (i *Interface) RequestOut() sim.Buffer {
	return i.requestOut
}

// SnoopOut holds the snoop replies waiting for the fabric.
func (i *Interface) SnoopOut() sim.Buffer {
	return i.snoopOut
}

// MemoryIn holds the messages the fabric delivered that the core has not
// received yet.
func (i *Interface) MemoryIn() sim.Buffer {
	return i.memoryIn
}

// Stats returns the traffic counters.
func (i *Interface) Stats() Stats {
	return i.stats
}

// SendMemoryMessages moves as many operations from the core into the
// outbound buffers as they can hold.
func (i *Interface) SendMemoryMessages() {
	for i.requestOut.CanPush() {
		op := i.core.PopMemOp()
		if op == nil {
			break
		}

		t := i.request(op)

		if op.NAW && op.Address%nawAlignment != 0 {
			i.stats.LocalReplies++
			t.Message.Type = coherence.NonAllocatingStoreReply
			i.HandleMemoryMessage(t)

			continue
		}

		i.requestOut.Push(t)
		i.stats.RequestsSent++
	}

	for i.snoopOut.CanPush() {
		op := i.core.PopSnoopOp()
		if op == nil {
			break
		}

		i.snoopOut.Push(i.snoop(op))
		i.stats.SnoopsSent++
	}
}

// ReceiveMemoryMessages hands every message waiting in MemoryIn to the core.
func (i *Interface) ReceiveMemoryMessages() {
	for i.memoryIn.Size() > 0 {
		i.HandleMemoryMessage(i.memoryIn.Pop().(*coherence.Transport))
	}
}

var requestTypes = map[memop.Kind]coherence.MessageType{
	memop.Load:          coherence.Load,
	memop.AtomicPreload: coherence.AtomicPreload,
	memop.StorePrefetch: coherence.StorePrefetch,
	memop.Store:         coherence.Store,
	memop.RMW:           coherence.RMW,
	memop.CAS:           coherence.CAS,
}

func (i *Interface) request(op *memop.MemOp) *coherence.Transport {
	msgType, ok := requestTypes[op.Kind]
	if !ok {
		i.log.WithFields(logrus.Fields{
			"kind": op.Kind,
			"addr": op.Address,
		}).Panic("unknown memory operation type")
	}

	if op.NAW {
		if op.Kind != memop.Store {
			i.log.WithField("kind", op.Kind).Panic("non-allocating operation that is not a store")
		}

		msgType = coherence.NonAllocatingStoreReq
	}

	b := coherence.MemoryMessageBuilder{}.
		WithSrc(i.local).
		WithDst(i.remote).
		WithType(msgType).
		WithAddress(op.Address).
		WithPC(op.PC).
		WithSize(op.Size)

	if op.HasValue {
		b = b.WithValue(op.Value)
	}

	if op.Kind == memop.CAS {
		b = b.WithCompare(op.Compare)
	}

	t, created := op.EnsureTracker(i.trackers)
	if created {
		t.SetAddress(op.Address)
		t.SetInitiator(i.node)
		t.SetSource(TrackerSource)
		t.SetOS(false)
	}

	i.log.WithFields(logrus.Fields{
		"type": msgType,
		"addr": op.Address,
	}).Debug("send request")

	return &coherence.Transport{
		Message: b.Build(),
		Tracker: t,
		State:   op,
	}
}

var snoopTypes = map[memop.Kind]coherence.MessageType{
	memop.InvAck:       coherence.InvalidateAck,
	memop.DowngradeAck: coherence.DowngradeAck,
	memop.ProbeAck:     coherence.ProbedNotPresent,
	memop.ReturnReply:  coherence.ReturnReply,
}

func (i *Interface) snoop(op *memop.MemOp) *coherence.Transport {
	msgType, ok := snoopTypes[op.Kind]
	if !ok {
		i.log.WithFields(logrus.Fields{
			"kind": op.Kind,
			"addr": op.Address,
		}).Panic("unknown snoop reply type")
	}

	msg := coherence.MemoryMessageBuilder{}.
		WithSrc(i.local).
		WithDst(i.remote).
		WithType(msgType).
		WithAddress(op.Address).
		WithSize(op.Size).
		Build()

	t := op.Tracker
	if t == nil {
		t = i.trackers.NewTracker()
		t.SetAddress(op.Address)
		t.SetInitiator(i.node)
		t.SetSource(TrackerSource)
	}

	i.log.WithFields(logrus.Fields{
		"type": msgType,
		"addr": op.Address,
	}).Debug("send snoop reply")

	return &coherence.Transport{Message: msg, Tracker: t}
}

var inboundKinds = map[coherence.MessageType]memop.Kind{
	coherence.LoadReply:               memop.LoadReply,
	coherence.AtomicPreloadReply:      memop.AtomicPreloadReply,
	coherence.StoreReply:              memop.StoreReply,
	coherence.NonAllocatingStoreReply: memop.StoreReply,
	coherence.StorePrefetchReply:      memop.StorePrefetchReply,
	coherence.Invalidate:              memop.Invalidate,
	coherence.Downgrade:               memop.Downgrade,
	coherence.Probe:                   memop.Probe,
	coherence.RMWReply:                memop.RMWReply,
	coherence.CmpxReply:               memop.CASReply,
	coherence.ReturnReq:               memop.ReturnReq,
}

// HandleMemoryMessage delivers a message from the fabric to the core.
//
// Replies carry the MemOp of the request back and reuse it. Invalidates
// and downgrades may carry the MemOp of another requester, so they always
// get a fresh one.
func (i *Interface) HandleMemoryMessage(t *coherence.Transport) {
	msg := t.Message

	kind, ok := inboundKinds[msg.Type]
	if !ok {
		i.log.WithFields(logrus.Fields{
			"type": msg.Type,
			"addr": msg.Address,
		}).Panic("unhandled memory message type")
	}

	op := t.State
	if op == nil || msg.Type == coherence.Invalidate || msg.Type == coherence.Downgrade {
		op = &memop.MemOp{
			Address: msg.Address,
			Size:    msg.ReqSize,
			Tracker: t.Tracker,
		}
		if msg.HasValue {
			op.SetValue(msg.Value)
		}
	}
	op.Kind = kind

	i.stats.MessagesReceived++
	i.core.PushMemOp(op)
}
