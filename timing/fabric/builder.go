package fabric

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
)

// Builder creates fabrics.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	config Config
	log    *logrus.Entry
}

// MakeBuilder returns a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		freq:   1 * sim.GHz,
		config: DefaultConfig(),
	}
}

// WithEngine sets the engine that schedules the fabric.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock of the fabric.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the cache geometry and latencies.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log *logrus.Entry) Builder {
	b.log = log
	return b
}

// Build creates a fabric with no node attached.
func (b Builder) Build(name string) *Fabric {
	log := b.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("node", name)

	if b.engine == nil {
		log.Panic("fabric without an engine")
	}

	if !b.config.Cache.Validate() {
		log.WithField("cache", b.config.Cache).Panic("invalid cache geometry")
	}

	f := &Fabric{
		config: b.config,
		log:    log,
	}
	f.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, f)

	return f
}
