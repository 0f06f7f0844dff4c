package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/emu"
	"github.com/CyberSME/flexus/timing/fabric"
	"github.com/CyberSME/flexus/timing/frontend"
	"github.com/CyberSME/flexus/timing/memiface"
	"github.com/CyberSME/flexus/timing/tracker"
	"github.com/CyberSME/flexus/timing/uarch"
)

// Builder creates cores.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	options       *uarch.Options
	predictor     frontend.PredictorConfig
	scheduler     Scheduler
	fabric        *fabric.Fabric
	recorder      tracker.Recorder
	dispatchWidth int
	maxCycles     uint64
	log           *logrus.Entry
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:          1 * sim.GHz,
		options:       uarch.DefaultOptions(),
		predictor:     frontend.DefaultPredictorConfig(),
		scheduler:     AlwaysRun{},
		dispatchWidth: 4,
	}
}

// WithEngine sets the engine that schedules the core.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithOptions sets the micro-architectural options.
func (b Builder) WithOptions(options *uarch.Options) Builder {
	b.options = options
	return b
}

// WithPredictor sets the branch predictor geometry.
func (b Builder) WithPredictor(config frontend.PredictorConfig) Builder {
	b.predictor = config
	return b
}

// WithScheduler sets the policy that gives cycles to the core.
func (b Builder) WithScheduler(s Scheduler) Builder {
	b.scheduler = s
	return b
}

// WithFabric attaches the core to a fabric.
func (b Builder) WithFabric(f *fabric.Fabric) Builder {
	b.fabric = f
	return b
}

// WithRecorder sets where completed trackers go.
func (b Builder) WithRecorder(r tracker.Recorder) Builder {
	b.recorder = r
	return b
}

// WithDispatchWidth sets the number of instructions dispatched per cycle.
func (b Builder) WithDispatchWidth(n int) Builder {
	b.dispatchWidth = n
	return b
}

// WithMaxCycles stops the core after n cycles. Zero means no limit.
func (b Builder) WithMaxCycles(n uint64) Builder {
	b.maxCycles = n
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log *logrus.Entry) Builder {
	b.log = log
	return b
}

// Build creates a core that runs program on memory.
func (b Builder) Build(
	name string,
	index int,
	program *frontend.Program,
	memory *emu.Memory,
) *Core {
	log := b.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if b.engine == nil {
		log.WithField("node", name).Panic("core without an engine")
	}

	if b.dispatchWidth <= 0 {
		log.WithField("node", name).Panic("dispatch width must be positive")
	}

	c := &Core{
		index:         index,
		scheduler:     b.scheduler,
		log:           log.WithField("node", name),
		dispatchWidth: b.dispatchWidth,
		maxCycles:     b.maxCycles,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.thread = emu.NewThread(memory, program.Entry())
	c.uarch = uarch.New(name+".UArch", b.options, c.thread, log)
	c.frontend = frontend.New(program, frontend.NewPredictor(b.predictor), c.log)

	c.trackers = tracker.NewContext(name+".Trackers", c)
	if b.recorder != nil {
		c.trackers.WithRecorder(b.recorder)
	}

	mb := memiface.MakeBuilder().
		WithNode(index).
		WithRequestPorts(b.options.MemoryPorts).
		WithSnoopPorts(b.options.SnoopPorts).
		WithInboundPorts(b.options.MemoryPorts+b.options.SnoopPorts).
		WithTrackers(c.trackers).
		WithLogger(log)

	if b.fabric != nil {
		mb = mb.WithRemote(sim.RemotePort(b.fabric.Name()))
	}

	c.mem = mb.Build(name+".MemIface", c.uarch)

	if b.fabric != nil {
		b.fabric.Attach(c.mem, c)
		c.fabric = b.fabric
	}

	return c
}
