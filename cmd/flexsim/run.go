package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/CyberSME/flexus/emu"
	"github.com/CyberSME/flexus/timing/core"
	"github.com/CyberSME/flexus/timing/fabric"
	"github.com/CyberSME/flexus/timing/frontend"
	"github.com/CyberSME/flexus/timing/tracker"
	"github.com/CyberSME/flexus/timing/uarch"
)

type runConfig struct {
	cores         int
	workload      string
	iterations    int
	optionsPath   string
	robSize       int
	consistency   string
	dispatchWidth int
	threads       int
	maxCycles     uint64
	traceDB       string
}

var runFlags = runConfig{
	cores:         2,
	workload:      "stream",
	iterations:    64,
	dispatchWidth: 4,
	maxCycles:     10_000_000,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic workload and print statistics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd, runFlags)
		if err != nil {
			return err
		}

		s, err := newSimulation(runFlags, opts)
		if err != nil {
			return err
		}

		if err := s.run(); err != nil {
			return err
		}

		s.report(cmd.OutOrStdout())

		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.cores, "cores", runFlags.cores, "Number of cores.")
	f.StringVar(&runFlags.workload, "workload", runFlags.workload,
		"Synthetic workload ("+strings.Join(frontend.Workloads, ", ")+").")
	f.IntVar(&runFlags.iterations, "iterations", runFlags.iterations,
		"Loop iterations per core.")
	f.StringVar(&runFlags.optionsPath, "options", "",
		"Core options JSON file. Flags below override it.")
	f.IntVar(&runFlags.robSize, "rob-size", 0, "Reorder buffer size.")
	f.StringVar(&runFlags.consistency, "consistency", "",
		"Memory consistency model (SC, TSO, RMO).")
	f.IntVar(&runFlags.dispatchWidth, "dispatch-width", runFlags.dispatchWidth,
		"Instructions dispatched per cycle.")
	f.IntVar(&runFlags.threads, "round-robin", 0,
		"Interleave cores that share issue slots among this many threads.")
	f.Uint64Var(&runFlags.maxCycles, "max-cycles", runFlags.maxCycles,
		"Stop each core after this many cycles. 0 means no limit.")
	f.StringVar(&runFlags.traceDB, "trace-db", "",
		"Record memory transactions into this SQLite database.")
}

func loadOptions(cmd *cobra.Command, cfg runConfig) (*uarch.Options, error) {
	opts := uarch.DefaultOptions()

	if cfg.optionsPath != "" {
		var err error

		opts, err = uarch.LoadOptions(cfg.optionsPath)
		if err != nil {
			return nil, err
		}
	}

	if cmd != nil && cmd.Flags().Changed("rob-size") {
		opts.ROBSize = cfg.robSize
	}

	if cmd != nil && cmd.Flags().Changed("consistency") {
		opts.ConsistencyModel = uarch.ConsistencyModel(cfg.consistency)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core options: %w", err)
	}

	return opts, nil
}

type simulation struct {
	engine   *sim.SerialEngine
	fabric   *fabric.Fabric
	cores    []*core.Core
	memory   *emu.Memory
	recorder *tracker.SQLiteRecorder
}

func newSimulation(cfg runConfig, opts *uarch.Options) (*simulation, error) {
	if cfg.cores <= 0 {
		return nil, fmt.Errorf("at least one core is required")
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	s := &simulation{
		engine: sim.NewSerialEngine(),
		memory: emu.NewMemory(),
	}

	fc := fabric.DefaultConfig()
	fc.Cache.BlockSize = int(opts.CoherenceUnit)
	s.fabric = fabric.MakeBuilder().
		WithEngine(s.engine).
		WithConfig(fc).
		WithLogger(log).
		Build("Fabric")

	var scheduler core.Scheduler = core.AlwaysRun{}
	if cfg.threads > 1 {
		scheduler = core.RoundRobin{Threads: cfg.threads}
	}

	builder := core.MakeBuilder().
		WithEngine(s.engine).
		WithOptions(opts).
		WithScheduler(scheduler).
		WithFabric(s.fabric).
		WithDispatchWidth(cfg.dispatchWidth).
		WithMaxCycles(cfg.maxCycles).
		WithLogger(log)

	if cfg.traceDB != "" {
		s.recorder = tracker.NewSQLiteRecorder(cfg.traceDB)
		if err := s.recorder.Init(); err != nil {
			return nil, err
		}

		builder = builder.WithRecorder(s.recorder)
	}

	for i := 0; i < cfg.cores; i++ {
		program, ok := frontend.Workload(cfg.workload, i, cfg.iterations)
		if !ok {
			return nil, fmt.Errorf("unknown workload %q", cfg.workload)
		}

		c := builder.Build(fmt.Sprintf("Core[%d]", i), i, program, s.memory)
		s.cores = append(s.cores, c)
	}

	return s, nil
}

func (s *simulation) run() error {
	for _, c := range s.cores {
		c.TickLater()
	}

	if err := s.engine.Run(); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	for _, c := range s.cores {
		c.Trackers().Close()
	}

	return nil
}

func (s *simulation) report(w io.Writer) {
	for _, c := range s.cores {
		stats := c.Stats()
		u := c.MicroArch().Stats()
		bp := c.Frontend().Predictor().Stats()

		status := "halted"
		if c.TimedOut() {
			status = "timed out"
		}

		fmt.Fprintf(w, "%s (%s)\n", c.Name(), status)
		fmt.Fprintf(w, "  Cycles:            %d\n", stats.Cycles)
		fmt.Fprintf(w, "  Instructions:      %d\n", stats.Instructions)
		fmt.Fprintf(w, "  CPI:               %.2f\n", stats.CPI())
		fmt.Fprintf(w, "  Retire stalls:     %d\n", stats.Stalls)
		fmt.Fprintf(w, "  Loads issued:      %d\n", u.LoadsIssued)
		fmt.Fprintf(w, "  Stores issued:     %d\n", u.StoresIssued)
		fmt.Fprintf(w, "  Atomics issued:    %d\n", u.AtomicsIssued)
		fmt.Fprintf(w, "  Forwarded loads:   %d\n", u.ForwardedLoads)
		fmt.Fprintf(w, "  Rollbacks:         %d\n", u.Rollbacks)
		fmt.Fprintf(w, "  Branch accuracy:   %.1f%%\n", bp.Accuracy())

		for i, n := range u.Squashes {
			fmt.Fprintf(w, "  Squashes %-18s %d\n", uarch.SquashCause(i).String()+":", n)
		}
	}

	fs := s.fabric.Stats()
	fmt.Fprintf(w, "Fabric\n")
	fmt.Fprintf(w, "  Requests:          %d\n", fs.Requests)
	fmt.Fprintf(w, "  Hits:              %d\n", fs.Hits)
	fmt.Fprintf(w, "  Misses:            %d\n", fs.Misses)
	fmt.Fprintf(w, "  Upgrades:          %d\n", fs.Upgrades)
	fmt.Fprintf(w, "  Invalidations:     %d\n", fs.Invalidations)
	fmt.Fprintf(w, "  Downgrades:        %d\n", fs.Downgrades)
}
