package tracker

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/tracing"
)

// A Clock tells the current simulation cycle.
type Clock interface {
	CurrentCycle() uint64
}

// A Recorder receives trackers when they complete.
type Recorder interface {
	Record(t *Tracker)
	Flush()
}

// Context creates and closes trackers. It replaces a process-wide tracker
// manager: every core or fabric that creates trackers is handed one.
//
// Context is also an akita tracing domain. Hooks attached to it observe one
// task per tracker.
type Context struct {
	sim.HookableBase

	name     string
	clock    Clock
	recorder Recorder
	nextID   uint64
	open     int
	closed   bool
}

// NewContext creates a tracker context reading cycles from the given clock.
func NewContext(name string, clock Clock) *Context {
	return &Context{
		name:  name,
		clock: clock,
	}
}

// WithRecorder attaches a recorder that receives completed trackers.
func (c *Context) WithRecorder(r Recorder) *Context {
	c.recorder = r
	return c
}

// Name returns the name of the context.
func (c *Context) Name() string {
	return c.name
}

// NewTracker creates a tracker starting at the current cycle.
func (c *Context) NewTracker() *Tracker {
	if c.closed {
		panic(fmt.Sprintf("tracker context %s is closed", c.name))
	}

	c.nextID++
	now := c.now()
	t := &Tracker{
		ctx:        c,
		id:         c.nextID,
		taskID:     sim.GetIDGenerator().Generate(),
		startCycle: now,
		lastStamp:  now,
	}
	c.open++

	tracing.StartTask(t.taskID, "", c, "mem_transaction", "transaction", t)

	return t
}

// Outstanding returns the number of trackers created but not completed.
func (c *Context) Outstanding() int {
	return c.open
}

// Close flushes the recorder. No tracker can be created afterwards.
func (c *Context) Close() {
	if c.closed {
		return
	}

	c.closed = true
	if c.recorder != nil {
		c.recorder.Flush()
	}
}

func (c *Context) now() uint64 {
	if c.clock == nil {
		return 0
	}

	return c.clock.CurrentCycle()
}

func (c *Context) step(t *Tracker, what string) {
	tracing.AddTaskStep(t.taskID, c, what)
}

func (c *Context) finish(t *Tracker) {
	c.open--

	tracing.EndTask(t.taskID, c)

	if c.recorder != nil {
		c.recorder.Record(t)
	}
}
