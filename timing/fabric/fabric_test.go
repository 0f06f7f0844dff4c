package fabric_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/CyberSME/flexus/timing/cache"
	"github.com/CyberSME/flexus/timing/coherence"
	"github.com/CyberSME/flexus/timing/fabric"
	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/tracker"
)

type fakeNode struct {
	name     string
	index    int
	requests sim.Buffer
	snoops   sim.Buffer
	inbound  sim.Buffer
	hold     bool
	received []*coherence.Transport
	lost     []uint64
}

func newFakeNode(index, inbound int) *fakeNode {
	name := fmt.Sprintf("Core[%d].MemIface", index)

	return &fakeNode{
		name:     name,
		index:    index,
		requests: sim.NewBuffer(name+".RequestOut", 4),
		snoops:   sim.NewBuffer(name+".SnoopOut", 4),
		inbound:  sim.NewBuffer(name+".MemoryIn", inbound),
	}
}

func (n *fakeNode) Name() string { return n.name }
func (n *fakeNode) Node() int { return n.index }
func (n *fakeNode) RequestOut() sim.Buffer { return n.requests }
func (n *fakeNode) SnoopOut() sim.Buffer { return n.snoops }
func (n *fakeNode) MemoryIn() sim.Buffer { return n.inbound }
func (n *fakeNode) WritePermissionLost(a uint64) { n.lost = append(n.lost, a) }

func (n *fakeNode) MessageArrived() {
	if !n.hold {
		n.receive()
	}
}

func (n *fakeNode) receive() {
	for n.inbound.Size() > 0 {
		n.received = append(n.received, n.inbound.Pop().(*coherence.Transport))
	}
}

func (n *fakeNode) types() []coherence.MessageType {
	var types []coherence.MessageType
	for _, t := range n.received {
		types = append(types, t.Message.Type)
	}

	return types
}

var _ = Describe("Fabric", func() {
	var (
		trackers *tracker.Context
		f        *fabric.Fabric
		nodes    []*fakeNode
	)

	send := func(n *fakeNode, msgType coherence.MessageType, addr uint64) *coherence.Transport {
		t := &coherence.Transport{
			Message: coherence.MemoryMessageBuilder{}.
				WithSrc(sim.RemotePort(n.name)).
				WithDst("Fabric").
				WithType(msgType).
				WithAddress(addr).
				WithSize(memop.DoubleWord).
				Build(),
			Tracker: trackers.NewTracker(),
			State:   &memop.MemOp{Address: addr, Size: memop.DoubleWord},
		}
		n.requests.Push(t)

		return t
	}

	ticks := func(n int) {
		for i := 0; i < n; i++ {
			f.Tick()
		}
	}

	BeforeEach(func() {
		trackers = tracker.NewContext("Trackers", nil)

		config := fabric.Config{
			Cache: cache.Config{
				Size:           4 * 1024,
				Associativity:  4,
				BlockSize:      64,
				HitLatency:     1,
				MissLatency:    10,
				UpgradeLatency: 5,
			},
			PeerLatency:  6,
			SnoopLatency: 2,
		}

		f = fabric.MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithConfig(config).
			Build("Fabric")

		nodes = []*fakeNode{newFakeNode(0, 4), newFakeNode(1, 4)}
		for _, n := range nodes {
			f.Attach(n, n)
		}
	})

	It("should panic without an engine", func() {
		Expect(func() { fabric.MakeBuilder().Build("Fabric") }).To(Panic())
	})

	It("should panic when a node is attached twice", func() {
		Expect(func() { f.Attach(nodes[0], nil) }).To(Panic())
	})

	It("should report idle ticks", func() {
		Expect(f.Tick()).To(BeFalse())
		Expect(f.Busy()).To(BeFalse())
	})

	It("should answer a cold load after the miss latency", func() {
		req := send(nodes[0], coherence.Load, 0x1008)

		Expect(f.Tick()).To(BeTrue())
		Expect(f.Busy()).To(BeTrue())
		ticks(9)
		Expect(nodes[0].received).To(BeEmpty())

		ticks(1)
		Expect(nodes[0].types()).To(Equal([]coherence.MessageType{coherence.LoadReply}))

		reply := nodes[0].received[0]
		Expect(reply.State).To(BeIdenticalTo(req.State))
		Expect(reply.Tracker).To(BeIdenticalTo(req.Tracker))
		Expect(reply.Message.Dst).To(Equal(sim.RemotePort(nodes[0].name)))

		level, _ := req.Tracker.FillLevel()
		Expect(level).To(Equal(tracker.FillLocalMemory))
		_, ok := req.Tracker.Responder()
		Expect(ok).To(BeFalse())
		Expect(f.Busy()).To(BeFalse())
	})

	It("should answer a repeated load from the local cache", func() {
		send(nodes[0], coherence.Load, 0x1000)
		ticks(11)

		req := send(nodes[0], coherence.Load, 0x1010)
		ticks(2)

		Expect(nodes[0].received).To(HaveLen(2))
		responder, _ := req.Tracker.Responder()
		Expect(responder).To(Equal(0))
		level, _ := req.Tracker.FillLevel()
		Expect(level).To(Equal(tracker.FillL1))
		previous, _ := req.Tracker.PreviousState()
		Expect(previous).To(Equal(tracker.StateShared))
		Expect(f.Stats().Hits).To(Equal(uint64(1)))
	})

	DescribeTable("reply types",
		func(req, reply coherence.MessageType) {
			send(nodes[0], req, 0x2000)
			ticks(11)

			Expect(nodes[0].types()).To(Equal([]coherence.MessageType{reply}))
		},
		Entry("load", coherence.Load, coherence.LoadReply),
		Entry("atomic preload", coherence.AtomicPreload, coherence.AtomicPreloadReply),
		Entry("store prefetch", coherence.StorePrefetch, coherence.StorePrefetchReply),
		Entry("store", coherence.Store, coherence.StoreReply),
		Entry("non-allocating store", coherence.NonAllocatingStoreReq, coherence.NonAllocatingStoreReply),
		Entry("read-modify-write", coherence.RMW, coherence.RMWReply),
		Entry("compare and swap", coherence.CAS, coherence.CmpxReply),
	)

	It("should invalidate other copies on a store", func() {
		send(nodes[0], coherence.Load, 0x3000)
		ticks(11)

		req := send(nodes[1], coherence.Store, 0x3008)
		ticks(3)

		Expect(nodes[0].types()).To(Equal([]coherence.MessageType{
			coherence.LoadReply, coherence.Invalidate,
		}))
		inv := nodes[0].received[1]
		Expect(inv.Message.Address).To(Equal(uint64(0x3000)))
		Expect(inv.State).To(BeNil())
		Expect(inv.Tracker).To(BeIdenticalTo(req.Tracker))
		Expect(f.Cache(0).Contains(0x3000)).To(BeFalse())
		Expect(f.Cache(1).Writable(0x3000)).To(BeTrue())

		ticks(4)
		Expect(nodes[1].types()).To(Equal([]coherence.MessageType{coherence.StoreReply}))
		level, _ := req.Tracker.FillLevel()
		Expect(level).To(Equal(tracker.FillPeerL1))
		write, _ := req.Tracker.IsWrite()
		Expect(write).To(BeTrue())
		Expect(f.Stats().Invalidations).To(Equal(uint64(1)))
	})

	It("should upgrade a shared block in place", func() {
		send(nodes[0], coherence.Load, 0x3000)
		ticks(11)

		req := send(nodes[0], coherence.Store, 0x3000)
		ticks(6)

		Expect(nodes[0].types()).To(Equal([]coherence.MessageType{
			coherence.LoadReply, coherence.StoreReply,
		}))
		responder, _ := req.Tracker.Responder()
		Expect(responder).To(Equal(0))
		Expect(f.Stats().Upgrades).To(Equal(uint64(1)))
	})

	It("should downgrade a remote owner on a read", func() {
		send(nodes[1], coherence.Store, 0x4000)
		ticks(11)

		req := send(nodes[0], coherence.Load, 0x4010)
		ticks(3)

		Expect(nodes[1].types()).To(Equal([]coherence.MessageType{
			coherence.StoreReply, coherence.Downgrade,
		}))
		Expect(nodes[1].lost).To(Equal([]uint64{0x4010}))
		Expect(f.Cache(1).Contains(0x4000)).To(BeTrue())
		Expect(f.Cache(1).Writable(0x4000)).To(BeFalse())

		ticks(4)
		Expect(nodes[0].types()).To(Equal([]coherence.MessageType{coherence.LoadReply}))
		responder, _ := req.Tracker.Responder()
		Expect(responder).To(Equal(1))
		level, _ := req.Tracker.FillLevel()
		Expect(level).To(Equal(tracker.FillPeerL1))
	})

	It("should write around the caches for non-allocating stores", func() {
		send(nodes[1], coherence.Load, 0x5000)
		ticks(11)

		send(nodes[0], coherence.NonAllocatingStoreReq, 0x5000)
		ticks(11)

		Expect(nodes[1].types()).To(ContainElement(coherence.Invalidate))
		Expect(f.Cache(0).Contains(0x5000)).To(BeFalse())
	})

	It("should hold deliveries while the inbound buffer is full", func() {
		n := newFakeNode(2, 1)
		n.hold = true
		f.Attach(n, n)

		send(n, coherence.Load, 0x1000)
		send(n, coherence.Load, 0x2000)
		ticks(11)

		Expect(n.inbound.Size()).To(Equal(1))
		Expect(f.Stats().Delivered).To(Equal(uint64(1)))
		Expect(f.Stats().InboundStalls).To(Equal(uint64(1)))
		Expect(f.Busy()).To(BeTrue())

		ticks(1)
		Expect(f.Stats().InboundStalls).To(Equal(uint64(2)))

		n.receive()
		Expect(f.Tick()).To(BeTrue())
		n.receive()

		Expect(n.types()).To(Equal([]coherence.MessageType{
			coherence.LoadReply, coherence.LoadReply,
		}))
		Expect(f.Stats().Delivered).To(Equal(uint64(2)))
		Expect(f.Busy()).To(BeFalse())
	})

	It("should consume snoop acknowledgements", func() {
		for _, msgType := range []coherence.MessageType{
			coherence.InvalidateAck, coherence.DowngradeAck,
			coherence.ProbedNotPresent, coherence.ReturnReply,
		} {
			nodes[0].snoops.Push(&coherence.Transport{
				Message: coherence.MemoryMessageBuilder{}.WithType(msgType).Build(),
			})
		}

		Expect(f.Tick()).To(BeTrue())
		Expect(f.Stats().Acks).To(Equal(uint64(4)))
		Expect(f.Busy()).To(BeFalse())
	})

	It("should panic on a request in the snoop channel", func() {
		nodes[0].snoops.Push(&coherence.Transport{
			Message: coherence.MemoryMessageBuilder{}.WithType(coherence.Load).Build(),
		})

		Expect(func() { f.Tick() }).To(Panic())
	})

	It("should panic on a reply in the request channel", func() {
		send(nodes[0], coherence.LoadReply, 0x1000)

		Expect(func() { f.Tick() }).To(Panic())
	})
})
