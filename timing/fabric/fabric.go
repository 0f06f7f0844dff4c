// Package fabric is a reference memory system for cores attached through
// their memory interfaces. Each core gets a private tag-only cache, stores
// invalidate the other copies of a block and reads take write permission
// away from a remote owner.
package fabric

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/cache"
	"github.com/CyberSME/flexus/timing/coherence"
	"github.com/CyberSME/flexus/timing/tracker"
)

// Node is a memory interface attached to the fabric.
type Node interface {
	Name() string
	Node() int
	RequestOut() sim.Buffer
	SnoopOut() sim.Buffer
	MemoryIn() sim.Buffer
}

// Listener is told when the fabric takes write permission away from a node
// and when it leaves a message in the node's MemoryIn buffer.
type Listener interface {
	WritePermissionLost(addr uint64)
	MessageArrived()
}

// Config holds the fabric timing parameters.
type Config struct {
	Cache cache.Config

	// PeerLatency in cycles to fill a block from another core's cache.
	PeerLatency uint64
	// SnoopLatency in cycles to deliver an invalidate or a downgrade.
	SnoopLatency uint64
}

// DefaultConfig returns the default fabric configuration.
func DefaultConfig() Config {
	return Config{
		Cache:        cache.DefaultL1DConfig(),
		PeerLatency:  20,
		SnoopLatency: 4,
	}
}

// Stats counts the traffic of the fabric.
type Stats struct {
	Requests      uint64
	Hits          uint64
	Misses        uint64
	Upgrades      uint64
	PeerFills     uint64
	Invalidations uint64
	Downgrades    uint64
	Acks          uint64
	Delivered     uint64
	InboundStalls uint64
}

type port struct {
	node     Node
	listener Listener
	cache    *cache.Cache
}

type delivery struct {
	due uint64
	to  *port
	t   *coherence.Transport
}

// Fabric connects cores to memory.
type Fabric struct {
	*sim.TickingComponent

	config Config
	log    *logrus.Entry

	ports   []*port
	cycle   uint64
	pending []delivery
	stats   Stats
}

// Attach connects a node. The listener may be nil.
func (f *Fabric) Attach(node Node, listener Listener) {
	for _, p := range f.ports {
		if p.node.Node() == node.Node() {
			f.log.WithField("node", node.Node()).Panic("node attached twice")
		}
	}

	f.ports = append(f.ports, &port{
		node:     node,
		listener: listener,
		cache:    cache.New(f.config.Cache),
	})
}

// Cache returns the private cache of a node, or nil if the node is not
// attached.
func (f *Fabric) Cache(node int) *cache.Cache {
	for _, p := range f.ports {
		if p.node.Node() == node {
			return p.cache
		}
	}

	return nil
}

// Stats returns the traffic counters.
func (f *Fabric) Stats() Stats {
	return f.stats
}

// Busy reports whether messages are still in flight.
func (f *Fabric) Busy() bool {
	if len(f.pending) > 0 {
		return true
	}

	for _, p := range f.ports {
		if p.node.RequestOut().Size() > 0 || p.node.SnoopOut().Size() > 0 {
			return true
		}
	}

	return false
}

// Tick delivers the messages that are due and accepts new ones.
func (f *Fabric) Tick() bool {
	madeProgress := f.deliver()

	for _, p := range f.ports {
		madeProgress = f.acceptSnoops(p) || madeProgress
		madeProgress = f.acceptRequests(p) || madeProgress
	}

	f.cycle++

	return madeProgress || len(f.pending) > 0
}

func (f *Fabric) deliver() bool {
	madeProgress := false
	kept := f.pending[:0]

	for _, d := range f.pending {
		if d.due > f.cycle {
			kept = append(kept, d)
			continue
		}

		in := d.to.node.MemoryIn()
		if !in.CanPush() {
			f.stats.InboundStalls++
			kept = append(kept, d)

			continue
		}

		in.Push(d.t)
		f.stats.Delivered++
		madeProgress = true

		if d.to.listener != nil {
			d.to.listener.MessageArrived()
		}
	}

	for i := len(kept); i < len(f.pending); i++ {
		f.pending[i] = delivery{}
	}
	f.pending = kept

	return madeProgress
}

func (f *Fabric) schedule(to *port, latency uint64, t *coherence.Transport) {
	f.pending = append(f.pending, delivery{due: f.cycle + latency, to: to, t: t})
}

func (f *Fabric) acceptSnoops(p *port) bool {
	buf := p.node.SnoopOut()
	madeProgress := false

	for buf.Size() > 0 {
		t := buf.Pop().(*coherence.Transport)
		madeProgress = true

		switch t.Message.Type {
		case coherence.InvalidateAck, coherence.DowngradeAck,
			coherence.ProbedNotPresent, coherence.ReturnReply:
			f.stats.Acks++
		default:
			f.log.WithFields(logrus.Fields{
				"node": p.node.Node(),
				"type": t.Message.Type,
			}).Panic("unexpected message on a snoop channel")
		}
	}

	return madeProgress
}

var replyTypes = map[coherence.MessageType]coherence.MessageType{
	coherence.Load:                  coherence.LoadReply,
	coherence.AtomicPreload:         coherence.AtomicPreloadReply,
	coherence.StorePrefetch:         coherence.StorePrefetchReply,
	coherence.Store:                 coherence.StoreReply,
	coherence.NonAllocatingStoreReq: coherence.NonAllocatingStoreReply,
	coherence.RMW:                   coherence.RMWReply,
	coherence.CAS:                   coherence.CmpxReply,
}

func (f *Fabric) acceptRequests(p *port) bool {
	buf := p.node.RequestOut()
	madeProgress := false

	for buf.Size() > 0 {
		t := buf.Pop().(*coherence.Transport)
		f.request(p, t)
		madeProgress = true
	}

	return madeProgress
}

func (f *Fabric) request(p *port, t *coherence.Transport) {
	msg := t.Message

	replyType, ok := replyTypes[msg.Type]
	if !ok {
		f.log.WithFields(logrus.Fields{
			"node": p.node.Node(),
			"type": msg.Type,
		}).Panic("unexpected message on a request channel")
	}

	f.stats.Requests++

	var latency uint64

	switch msg.Type {
	case coherence.Load, coherence.AtomicPreload:
		latency = f.read(p, t)
	case coherence.NonAllocatingStoreReq:
		latency = f.writeAround(p, t)
	default:
		latency = f.write(p, t)
	}

	f.log.WithFields(logrus.Fields{
		"node":    p.node.Node(),
		"type":    msg.Type,
		"addr":    msg.Address,
		"latency": latency,
	}).Debug("request")

	reply := coherence.MemoryMessageBuilder{}.
		WithSrc(msg.Dst).
		WithDst(msg.Src).
		WithType(replyType).
		WithAddress(msg.Address).
		WithSize(msg.ReqSize).
		Build()

	f.schedule(p, latency, &coherence.Transport{
		Message: reply,
		Tracker: t.Tracker,
		State:   t.State,
	})
}

func (f *Fabric) read(p *port, t *coherence.Transport) uint64 {
	addr := t.Message.Address
	previous := stateOf(p.cache, addr)
	res := p.cache.Read(addr)

	if res.Hit {
		f.stats.Hits++
		stamp(t.Tracker, p.node.Node(), tracker.FillL1, previous)

		return res.Latency
	}

	f.stats.Misses++

	for _, peer := range f.ports {
		if peer == p || !peer.cache.Writable(addr) {
			continue
		}

		peer.cache.Downgrade(addr)
		f.snoop(peer, coherence.Downgrade, t)
		f.stats.Downgrades++
		f.stats.PeerFills++

		if peer.listener != nil {
			peer.listener.WritePermissionLost(addr)
		}

		stamp(t.Tracker, peer.node.Node(), tracker.FillPeerL1, previous)

		return f.config.PeerLatency
	}

	stamp(t.Tracker, -1, tracker.FillLocalMemory, previous)

	return res.Latency
}

func (f *Fabric) write(p *port, t *coherence.Transport) uint64 {
	addr := t.Message.Address
	previous := stateOf(p.cache, addr)
	res := p.cache.Write(addr)

	if t.Tracker != nil {
		t.Tracker.SetWrite(true)
	}

	if res.Hit {
		f.stats.Hits++
		stamp(t.Tracker, p.node.Node(), tracker.FillL1, previous)

		return res.Latency
	}

	if res.Upgrade {
		f.stats.Upgrades++
	} else {
		f.stats.Misses++
	}

	responder, level, latency := -1, tracker.FillLocalMemory, res.Latency
	if res.Upgrade {
		responder, level = p.node.Node(), tracker.FillL1
	}

	if f.invalidatePeers(p, t) && !res.Upgrade {
		level, latency = tracker.FillPeerL1, f.config.PeerLatency
	}

	stamp(t.Tracker, responder, level, previous)

	return latency
}

func (f *Fabric) writeAround(p *port, t *coherence.Transport) uint64 {
	if t.Tracker != nil {
		t.Tracker.SetWrite(true)
	}

	f.invalidatePeers(p, t)
	stamp(t.Tracker, -1, tracker.FillLocalMemory, stateOf(p.cache, t.Message.Address))

	return f.config.Cache.MissLatency
}

// invalidatePeers removes the block from every other cache and reports
// whether any of them held it.
func (f *Fabric) invalidatePeers(p *port, t *coherence.Transport) bool {
	found := false

	for _, peer := range f.ports {
		if peer == p || !peer.cache.Invalidate(t.Message.Address) {
			continue
		}

		f.snoop(peer, coherence.Invalidate, t)
		f.stats.Invalidations++
		found = true
	}

	return found
}

func (f *Fabric) snoop(peer *port, msgType coherence.MessageType, cause *coherence.Transport) {
	block := peer.cache.BlockAddr(cause.Message.Address)

	msg := coherence.MemoryMessageBuilder{}.
		WithSrc(cause.Message.Dst).
		WithDst(sim.RemotePort(peer.node.Name())).
		WithType(msgType).
		WithAddress(block).
		WithSize(cause.Message.ReqSize).
		Build()

	f.schedule(peer, f.config.SnoopLatency, &coherence.Transport{
		Message: msg,
		Tracker: cause.Tracker,
	})
}

func stateOf(c *cache.Cache, addr uint64) tracker.StateType {
	switch {
	case c.Writable(addr):
		return tracker.StateModified
	case c.Contains(addr):
		return tracker.StateShared
	}

	return tracker.StateInvalid
}

// stamp records where a transaction was served. A negative responder means
// memory answered.
func stamp(t *tracker.Tracker, responder int, level tracker.FillLevel, previous tracker.StateType) {
	if t == nil {
		return
	}

	if responder >= 0 {
		t.SetResponder(responder)
	}

	t.SetFillLevel(level)
	t.SetPreviousState(previous)
	t.SetNetworkTrafficRequired(level != tracker.FillL1)
}
