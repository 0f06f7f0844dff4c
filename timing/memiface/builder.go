package memiface

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/tracker"
)

// Builder can build memory interfaces.
type Builder struct {
	node     int
	requests int
	snoops   int
	inbound  int
	trackers *tracker.Context
	remote   sim.RemotePort
	log      *logrus.Entry
}

// MakeBuilder creates a builder with one request slot, one snoop slot and
// two inbound slots.
func MakeBuilder() Builder {
	return Builder{
		requests: 1,
		snoops:   1,
		inbound:  2,
	}
}

// WithNode sets the index of the core.
func (b Builder) WithNode(node int) Builder {
	b.node = node
	return b
}

// WithRequestPorts sets the capacity of the request buffer.
func (b Builder) WithRequestPorts(n int) Builder {
	b.requests = n
	return b
}

// WithSnoopPorts sets the capacity of the snoop buffer.
func (b Builder) WithSnoopPorts(n int) Builder {
	b.snoops = n
	return b
}

// WithInboundPorts sets the capacity of the buffer that holds messages
// from the fabric.
func (b Builder) WithInboundPorts(n int) Builder {
	b.inbound = n
	return b
}

// WithTrackers sets the context new trackers are created in.
func (b Builder) WithTrackers(ctx *tracker.Context) Builder {
	b.trackers = ctx
	return b
}

// WithRemote sets the destination of outgoing messages.
func (b Builder) WithRemote(p sim.RemotePort) Builder {
	b.remote = p
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log *logrus.Entry) Builder {
	b.log = log
	return b
}

// Build creates an interface that drives core.
func (b Builder) Build(name string, core Core) *Interface {
	log := b.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("node", b.node)

	if core == nil {
		log.Panic("memory interface without a core")
	}

	trackers := b.trackers
	if trackers == nil {
		trackers = tracker.NewContext(fmt.Sprintf("%s.Trackers", name), nil)
	}

	return &Interface{
		name:       name,
		node:       b.node,
		core:       core,
		trackers:   trackers,
		log:        log,
		local:      sim.RemotePort(name),
		remote:     b.remote,
		requestOut: sim.NewBuffer(name+".RequestOut", b.requests),
		snoopOut:   sim.NewBuffer(name+".SnoopOut", b.snoops),
		memoryIn:   sim.NewBuffer(name+".MemoryIn", b.inbound),
	}
}
