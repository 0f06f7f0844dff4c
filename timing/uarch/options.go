package uarch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ConsistencyModel selects the memory ordering rules of the core.
type ConsistencyModel string

// Supported consistency models.
const (
	SC  ConsistencyModel = "SC"
	TSO ConsistencyModel = "TSO"
	RMO ConsistencyModel = "RMO"
)

// UnitOptions describe one operation class of a functional unit.
type UnitOptions struct {
	// Latency is the number of cycles from issue to result.
	Latency uint64 `json:"latency"`

	// ResetTime is the number of cycles before the unit accepts another
	// operation. 1 means fully pipelined.
	ResetTime uint64 `json:"reset_time"`
}

// Options configure a core.
type Options struct {
	// ROBSize bounds the number of in-flight instructions.
	ROBSize int `json:"rob_size"`

	// SBSize bounds the number of retired stores waiting for their reply.
	SBSize int `json:"sb_size"`

	// NAWBypassSB lets non-allocating stores retire without a store buffer
	// slot.
	NAWBypassSB bool `json:"naw_bypass_sb"`

	// RetireWidth is the maximum number of instructions retired per cycle.
	RetireWidth int `json:"retire_width"`

	// MemoryPorts is the number of memory requests issued per cycle.
	MemoryPorts int `json:"memory_ports"`

	// SnoopPorts is the number of snoop replies sent per cycle.
	SnoopPorts int `json:"snoop_ports"`

	// StorePrefetches bounds the outstanding store prefetches.
	StorePrefetches int `json:"store_prefetches"`

	// PrefetchEarly prefetches a store as soon as its address resolves.
	// Otherwise only stores waiting in the store buffer are prefetched.
	PrefetchEarly bool `json:"prefetch_early"`

	ConsistencyModel ConsistencyModel `json:"consistency_model"`

	// CoherenceUnit is the coherence block size in bytes.
	CoherenceUnit uint64 `json:"coherence_unit"`

	// SpeculativeOrder lets loads perform past older incomplete memory
	// operations under SC and TSO, covered by checkpoints.
	SpeculativeOrder bool `json:"speculative_order"`

	// SpeculateOnAtomicValue preloads the value of an atomic when its
	// address resolves and lets dependants run on it.
	SpeculateOnAtomicValue bool `json:"speculate_on_atomic_value"`

	// SpeculativeCheckpoints bounds the number of live checkpoints.
	SpeculativeCheckpoints int `json:"speculative_checkpoints"`

	// CheckpointThreshold is the minimum number of instructions between
	// checkpoints.
	CheckpointThreshold int `json:"checkpoint_threshold"`

	InOrderMemory  bool `json:"in_order_memory"`
	InOrderExecute bool `json:"in_order_execute"`

	NumIntAlu  int `json:"num_int_alu"`
	NumIntMult int `json:"num_int_mult"`
	NumFpAlu   int `json:"num_fp_alu"`
	NumFpMult  int `json:"num_fp_mult"`

	IntAlu  UnitOptions `json:"int_alu"`
	IntMult UnitOptions `json:"int_mult"`
	IntDiv  UnitOptions `json:"int_div"`
	FpAdd   UnitOptions `json:"fp_add"`
	FpCmp   UnitOptions `json:"fp_cmp"`
	FpCvt   UnitOptions `json:"fp_cvt"`
	FpMult  UnitOptions `json:"fp_mult"`
	FpDiv   UnitOptions `json:"fp_div"`
	FpSqrt  UnitOptions `json:"fp_sqrt"`
}

// DefaultOptions returns the options of a wide server-class core.
func DefaultOptions() *Options {
	return &Options{
		ROBSize:                256,
		SBSize:                 32,
		NAWBypassSB:            false,
		RetireWidth:            8,
		MemoryPorts:            4,
		SnoopPorts:             1,
		StorePrefetches:        16,
		PrefetchEarly:          true,
		ConsistencyModel:       TSO,
		CoherenceUnit:          64,
		SpeculativeOrder:       true,
		SpeculateOnAtomicValue: false,
		SpeculativeCheckpoints: 4,
		CheckpointThreshold:    64,
		InOrderMemory:          false,
		InOrderExecute:         false,

		NumIntAlu:  4,
		NumIntMult: 1,
		NumFpAlu:   2,
		NumFpMult:  1,

		IntAlu:  UnitOptions{Latency: 1, ResetTime: 1},
		IntMult: UnitOptions{Latency: 3, ResetTime: 1},
		IntDiv:  UnitOptions{Latency: 20, ResetTime: 19},
		FpAdd:   UnitOptions{Latency: 4, ResetTime: 1},
		FpCmp:   UnitOptions{Latency: 4, ResetTime: 1},
		FpCvt:   UnitOptions{Latency: 4, ResetTime: 1},
		FpMult:  UnitOptions{Latency: 4, ResetTime: 1},
		FpDiv:   UnitOptions{Latency: 12, ResetTime: 12},
		FpSqrt:  UnitOptions{Latency: 24, ResetTime: 24},
	}
}

// LoadOptions loads Options from a JSON file. Fields absent from the file
// keep their default values.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read core options file: %w", err)
	}

	opts := DefaultOptions()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse core options: %w", err)
	}

	return opts, nil
}

// SaveOptions writes the options to a JSON file.
func (o *Options) SaveOptions(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize core options: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write core options file: %w", err)
	}

	return nil
}

// Validate checks that the options describe a buildable core.
func (o *Options) Validate() error {
	if o.ROBSize <= 0 {
		return fmt.Errorf("rob_size must be > 0")
	}
	if o.SBSize <= 0 {
		return fmt.Errorf("sb_size must be > 0")
	}
	if o.RetireWidth <= 0 {
		return fmt.Errorf("retire_width must be > 0")
	}
	if o.MemoryPorts <= 0 {
		return fmt.Errorf("memory_ports must be > 0")
	}
	if o.SnoopPorts <= 0 {
		return fmt.Errorf("snoop_ports must be > 0")
	}
	if o.StorePrefetches < 0 {
		return fmt.Errorf("store_prefetches must be >= 0")
	}

	switch ConsistencyModel(strings.ToUpper(string(o.ConsistencyModel))) {
	case SC, TSO, RMO:
	default:
		return fmt.Errorf("unknown consistency_model %q", o.ConsistencyModel)
	}

	if o.CoherenceUnit == 0 || o.CoherenceUnit&(o.CoherenceUnit-1) != 0 {
		return fmt.Errorf("coherence_unit must be a power of 2")
	}
	if o.SpeculativeOrder && o.SpeculativeCheckpoints <= 0 {
		return fmt.Errorf("speculative_order requires speculative_checkpoints > 0")
	}
	if o.CheckpointThreshold <= 0 {
		return fmt.Errorf("checkpoint_threshold must be > 0")
	}

	if o.NumIntAlu <= 0 || o.NumIntMult <= 0 || o.NumFpAlu <= 0 || o.NumFpMult <= 0 {
		return fmt.Errorf("every functional unit pool needs at least one unit")
	}

	units := map[string]UnitOptions{
		"int_alu":  o.IntAlu,
		"int_mult": o.IntMult,
		"int_div":  o.IntDiv,
		"fp_add":   o.FpAdd,
		"fp_cmp":   o.FpCmp,
		"fp_cvt":   o.FpCvt,
		"fp_mult":  o.FpMult,
		"fp_div":   o.FpDiv,
		"fp_sqrt":  o.FpSqrt,
	}
	for name, u := range units {
		if u.Latency == 0 {
			return fmt.Errorf("%s latency must be > 0", name)
		}
		if u.ResetTime == 0 || u.ResetTime > u.Latency {
			return fmt.Errorf("%s reset_time must be in [1, latency]", name)
		}
	}

	return nil
}

// Clone returns a copy of the options.
func (o *Options) Clone() *Options {
	c := *o
	return &c
}

func (o *Options) model() ConsistencyModel {
	return ConsistencyModel(strings.ToUpper(string(o.ConsistencyModel)))
}
