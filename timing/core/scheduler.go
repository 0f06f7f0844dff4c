package core

// Scheduler decides on every cycle whether a core runs or skips it.
type Scheduler interface {
	Run(core int, cycle uint64) bool
}

// AlwaysRun gives every cycle to every core.
type AlwaysRun struct{}

// Run always returns true.
func (AlwaysRun) Run(int, uint64) bool {
	return true
}

// RoundRobin interleaves cores that share issue slots. Core i runs on the
// cycles where cycle mod Threads equals i mod Threads.
type RoundRobin struct {
	Threads int
}

// Run reports whether the core owns the cycle.
func (r RoundRobin) Run(core int, cycle uint64) bool {
	if r.Threads <= 1 {
		return true
	}

	n := uint64(r.Threads)

	return cycle%n == uint64(core)%n
}
