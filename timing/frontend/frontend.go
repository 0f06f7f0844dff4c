// Package frontend feeds cores with decoded instructions. It follows a
// static program, predicts branches and steers fetch by the redirects and
// branch feedback the core reports.
package frontend

import (
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/uarch"
)

// Stats counts the work of a front end.
type Stats struct {
	Fetched   uint64
	Branches  uint64
	Redirects uint64
}

// Frontend fetches from a program along the predicted path.
type Frontend struct {
	program   *Program
	predictor *Predictor
	log       *logrus.Entry

	pc    uint64
	stats Stats
}

// New creates a front end that starts at the entry of the program.
func New(program *Program, predictor *Predictor, log *logrus.Entry) *Frontend {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if predictor == nil {
		predictor = NewPredictor(DefaultPredictorConfig())
	}

	return &Frontend{
		program:   program,
		predictor: predictor,
		log:       log,
		pc:        program.Entry(),
	}
}

// PC returns the next fetch address.
func (f *Frontend) PC() uint64 {
	return f.pc
}

// Predictor returns the branch predictor.
func (f *Frontend) Predictor() *Predictor {
	return f.predictor
}

// Stats returns the fetch counters.
func (f *Frontend) Stats() Stats {
	return f.stats
}

// Done reports whether fetch has left the program.
func (f *Frontend) Done() bool {
	_, ok := f.program.At(f.pc)
	return !ok
}

// Next returns the instruction at the fetch address and moves along the
// predicted path. It returns false when fetch is outside the program.
func (f *Frontend) Next() (uarch.DecodedInstruction, bool) {
	d, ok := f.program.At(f.pc)
	if !ok {
		return d, false
	}

	d.NextPC = d.FallThrough()

	if d.Class == uarch.ClassBranch {
		f.stats.Branches++

		pred := f.predictor.Predict(d.PC)
		if pred.Taken && pred.TargetKnown {
			d.NextPC = pred.Target
		}
	}

	f.pc = d.NextPC
	f.stats.Fetched++

	return d, true
}

// Redirect moves fetch to the address the core asks for.
func (f *Frontend) Redirect(r uarch.Redirect) {
	f.log.WithFields(logrus.Fields{
		"pc":   r.PC,
		"next": r.NextPC,
	}).Debug("redirect")

	f.pc = r.NextPC
	f.stats.Redirects++
}

// Feedback trains the predictor with a resolved branch.
func (f *Frontend) Feedback(fb uarch.BranchFeedback) {
	f.predictor.Update(fb.PC, fb.Taken, fb.Target, fb.Mispredicted)
}

// Apply consumes the signals drained from a core. Redirects are applied in
// order, so the last one decides where fetch continues.
func (f *Frontend) Apply(s uarch.Signals) {
	for _, fb := range s.Feedback {
		f.Feedback(fb)
	}

	for _, r := range s.Redirects {
		f.Redirect(r)
	}
}
