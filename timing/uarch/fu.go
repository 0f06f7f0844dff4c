package uarch

import "github.com/CyberSME/flexus/timing/semantic"

type fuRequest struct {
	action semantic.ActionID
	class  semantic.FUClass
}

type fuResult struct {
	action semantic.ActionID
	due    uint64
}

// fuPool is a group of identical units that serve several operation
// classes.
type fuPool struct {
	name      string
	nextIssue []uint64
	queue     []fuRequest
}

type functionalUnits struct {
	pools    [4]*fuPool
	poolOf   [semantic.NumFUClasses]int
	timing   [semantic.NumFUClasses]UnitOptions
	inflight []fuResult
}

func newFunctionalUnits(o *Options) *functionalUnits {
	f := &functionalUnits{}

	f.pools[0] = &fuPool{name: "IntAlu", nextIssue: make([]uint64, o.NumIntAlu)}
	f.pools[1] = &fuPool{name: "IntMult", nextIssue: make([]uint64, o.NumIntMult)}
	f.pools[2] = &fuPool{name: "FpAlu", nextIssue: make([]uint64, o.NumFpAlu)}
	f.pools[3] = &fuPool{name: "FpMult", nextIssue: make([]uint64, o.NumFpMult)}

	f.assign(semantic.FUIntAlu, 0, o.IntAlu)
	f.assign(semantic.FUIntMult, 1, o.IntMult)
	f.assign(semantic.FUIntDiv, 1, o.IntDiv)
	f.assign(semantic.FUFpAdd, 2, o.FpAdd)
	f.assign(semantic.FUFpCmp, 2, o.FpCmp)
	f.assign(semantic.FUFpCvt, 2, o.FpCvt)
	f.assign(semantic.FUFpMult, 3, o.FpMult)
	f.assign(semantic.FUFpDiv, 3, o.FpDiv)
	f.assign(semantic.FUFpSqrt, 3, o.FpSqrt)

	return f
}

func (f *functionalUnits) assign(c semantic.FUClass, pool int, t UnitOptions) {
	f.poolOf[c] = pool
	f.timing[c] = t
}

func (f *functionalUnits) request(a semantic.ActionID, c semantic.FUClass) {
	p := f.pools[f.poolOf[c]]
	p.queue = append(p.queue, fuRequest{action: a, class: c})
}

// issue starts queued operations on free units. Operations of released
// actions are dropped.
func (f *functionalUnits) issue(now uint64, alive func(semantic.ActionID) bool) {
	for _, p := range f.pools {
		kept := p.queue[:0]

		for _, req := range p.queue {
			if !alive(req.action) {
				continue
			}

			unit := p.freeUnit(now)
			if unit < 0 {
				kept = append(kept, req)
				continue
			}

			t := f.timing[req.class]
			p.nextIssue[unit] = now + t.ResetTime
			f.inflight = append(f.inflight, fuResult{
				action: req.action,
				due:    now + t.Latency,
			})
		}

		p.queue = kept
	}
}

// due removes and returns the operations whose result is due by now.
func (f *functionalUnits) due(now uint64) []semantic.ActionID {
	var done []semantic.ActionID

	kept := f.inflight[:0]
	for _, r := range f.inflight {
		if r.due <= now {
			done = append(done, r.action)
			continue
		}

		kept = append(kept, r)
	}
	f.inflight = kept

	return done
}

func (f *functionalUnits) busy() bool {
	if len(f.inflight) > 0 {
		return true
	}

	for _, p := range f.pools {
		if len(p.queue) > 0 {
			return true
		}
	}

	return false
}

func (p *fuPool) freeUnit(now uint64) int {
	for i, next := range p.nextIssue {
		if next <= now {
			return i
		}
	}

	return -1
}
