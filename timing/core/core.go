// Package core drives one out-of-order core per akita ticking component.
// Each tick it feeds the core from its front end, advances it by a cycle,
// steers fetch with the side-channel signals and hands the memory
// operations it produced to the memory interface.
package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/emu"
	"github.com/CyberSME/flexus/timing/frontend"
	"github.com/CyberSME/flexus/timing/memiface"
	"github.com/CyberSME/flexus/timing/tracker"
	"github.com/CyberSME/flexus/timing/uarch"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the number of cycles the core was ticked.
	Cycles uint64
	// ActiveCycles is the number of cycles the scheduler gave the core.
	ActiveCycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Dispatched is the number of instructions dispatched.
	Dispatched uint64
	// Stalls is the number of cycles with nothing retired.
	Stalls uint64
	// Squashes is the number of squashes of any cause.
	Squashes uint64
	// FetchStalls is the number of cycles dispatch stopped on a full window.
	FetchStalls uint64
}

// CPI returns cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}

	return float64(s.Cycles) / float64(s.Instructions)
}

// Waker is ticked again when the core has sent it work.
type Waker interface {
	TickLater()
}

// Core is a cycle-level out-of-order core with its front end, functional
// state and memory interface.
type Core struct {
	*sim.TickingComponent

	index     int
	uarch     *uarch.MicroArch
	mem       *memiface.Interface
	frontend  *frontend.Frontend
	thread    *emu.Thread
	trackers  *tracker.Context
	scheduler Scheduler
	fabric    Waker
	log       *logrus.Entry

	dispatchWidth int
	maxCycles     uint64

	cycle  uint64
	halted bool
	stats  Stats
}

// Index returns the node index of the core.
func (c *Core) Index() int {
	return c.index
}

// MicroArch returns the out-of-order core.
func (c *Core) MicroArch() *uarch.MicroArch {
	return c.uarch
}

// MemoryInterface returns the memory interface of the core.
func (c *Core) MemoryInterface() *memiface.Interface {
	return c.mem
}

// Frontend returns the front end of the core.
func (c *Core) Frontend() *frontend.Frontend {
	return c.frontend
}

// Thread returns the architectural state of the core.
func (c *Core) Thread() *emu.Thread {
	return c.thread
}

// Trackers returns the tracker context of the core.
func (c *Core) Trackers() *tracker.Context {
	return c.trackers
}

// CurrentCycle returns the number of cycles the core has been ticked.
func (c *Core) CurrentCycle() uint64 {
	return c.cycle
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.stats
	u := c.uarch.Stats()

	s.Instructions = u.Retired
	s.Dispatched = u.Dispatched
	s.Stalls = u.RetireStallCycles

	s.Squashes = 0
	for _, n := range u.Squashes {
		s.Squashes += n
	}

	return s
}

// Halted reports whether the program has been fully executed and no
// message from the fabric is left to answer.
func (c *Core) Halted() bool {
	return c.frontend.Done() && c.uarch.IsSynchronized() &&
		c.uarch.PendingSnoops() == 0 && c.mem.MemoryIn().Size() == 0
}

// TimedOut reports whether the core stopped at its cycle limit.
func (c *Core) TimedOut() bool {
	return c.maxCycles > 0 && c.cycle >= c.maxCycles
}

// Dispatch enters one instruction into the window.
func (c *Core) Dispatch(d uarch.DecodedInstruction) uint64 {
	seq := c.uarch.Dispatch(d)
	c.frontend.Apply(c.uarch.DrainSignals())

	return seq
}

// AvailableDispatch returns the number of free window slots.
func (c *Core) AvailableDispatch() int {
	return c.uarch.AvailableROB()
}

// Synchronized reports whether nothing is in flight.
func (c *Core) Synchronized() bool {
	return c.uarch.IsSynchronized()
}

// Stalled reports whether the last cycle retired nothing while
// instructions were waiting.
func (c *Core) Stalled() bool {
	return c.uarch.IsStalled()
}

// ICount returns the number of instructions in the window.
func (c *Core) ICount() int {
	return c.uarch.ICount()
}

// MessageArrived wakes the core when the fabric left a message for it.
func (c *Core) MessageArrived() {
	c.TickLater()
}

// WritePermissionLost tells the core it may no longer write a block.
func (c *Core) WritePermissionLost(addr uint64) {
	c.uarch.WritePermissionLost(addr)
}

// Tick advances the core by one cycle.
func (c *Core) Tick() bool {
	if c.Halted() || c.TimedOut() {
		return false
	}

	c.stats.Cycles++

	if !c.scheduler.Run(c.index, c.cycle) {
		c.uarch.SkipCycle()
		c.cycle++

		return true
	}

	c.stats.ActiveCycles++

	c.mem.ReceiveMemoryMessages()
	c.dispatch()
	c.uarch.Cycle()
	c.frontend.Apply(c.uarch.DrainSignals())
	c.sendMemory()

	c.cycle++

	if c.Halted() {
		if !c.halted {
			c.halted = true
			c.log.WithFields(logrus.Fields{
				"cycle":   c.cycle,
				"retired": c.uarch.Stats().Retired,
			}).Info("halted")
		}

		return false
	}

	return true
}

func (c *Core) dispatch() {
	for i := 0; i < c.dispatchWidth; i++ {
		if c.uarch.AvailableROB() == 0 {
			c.stats.FetchStalls++
			return
		}

		d, ok := c.frontend.Next()
		if !ok {
			return
		}

		c.Dispatch(d)
	}
}

func (c *Core) sendMemory() {
	c.mem.SendMemoryMessages()

	if c.fabric == nil {
		return
	}

	if c.mem.RequestOut().Size() > 0 || c.mem.SnoopOut().Size() > 0 {
		c.fabric.TickLater()
	}
}
