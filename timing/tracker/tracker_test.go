package tracker_test

import (
	"database/sql"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/tracing"
	"go.uber.org/mock/gomock"

	"github.com/CyberSME/flexus/timing/tracker"
)

type taskHook struct {
	starts, steps, ends []tracing.Task
}

func (h *taskHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(tracing.Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case tracing.HookPosTaskStart:
		h.starts = append(h.starts, task)
	case tracing.HookPosTaskStep:
		h.steps = append(h.steps, task)
	case tracing.HookPosTaskEnd:
		h.ends = append(h.ends, task)
	}
}

type memRecorder struct {
	recorded []*tracker.Tracker
	flushes  int
}

func (r *memRecorder) Record(t *tracker.Tracker) { r.recorded = append(r.recorded, t) }
func (r *memRecorder) Flush() { r.flushes++ }

var _ = Describe("Tracker", func() {
	var (
		mockCtrl *gomock.Controller
		clock    *MockClock
		cycle    uint64
		ctx      *tracker.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clock = NewMockClock(mockCtrl)
		cycle = 10
		clock.EXPECT().CurrentCycle().DoAndReturn(func() uint64 {
			return cycle
		}).AnyTimes()
		ctx = tracker.NewContext("Core[0].Trackers", clock)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should assign unique ids and the start cycle", func() {
		a := ctx.NewTracker()
		b := ctx.NewTracker()

		Expect(a.ID()).NotTo(Equal(b.ID()))
		Expect(a.StartCycle()).To(Equal(uint64(10)))
		Expect(ctx.Outstanding()).To(Equal(2))
	})

	It("should leave all optional fields absent", func() {
		t := ctx.NewTracker()

		_, ok := t.Address()
		Expect(ok).To(BeFalse())
		_, ok = t.Initiator()
		Expect(ok).To(BeFalse())
		_, ok = t.CompletionCycle()
		Expect(ok).To(BeFalse())
		_, ok = t.CriticalPath()
		Expect(ok).To(BeFalse())
		Expect(t.WasCounted()).To(BeFalse())
	})

	It("should keep filled fields", func() {
		t := ctx.NewTracker()
		t.SetAddress(0x1000)
		t.SetInitiator(3)
		t.SetSource("uArch")
		t.SetOS(false)
		t.SetFillLevel(tracker.FillL2)

		addr, _ := t.Address()
		Expect(addr).To(Equal(uint64(0x1000)))
		node, _ := t.Initiator()
		Expect(node).To(Equal(3))
		src, _ := t.Source()
		Expect(src).To(Equal("uArch"))
		os, ok := t.OS()
		Expect(ok).To(BeTrue())
		Expect(os).To(BeFalse())
		level, _ := t.FillLevel()
		Expect(level).To(Equal(tracker.FillL2))
	})

	It("should accept the same address twice", func() {
		t := ctx.NewTracker()
		t.SetAddress(0x40)

		Expect(func() { t.SetAddress(0x40) }).NotTo(Panic())
	})

	It("should refuse to change the address", func() {
		t := ctx.NewTracker()
		t.SetAddress(0x40)

		Expect(func() { t.SetAddress(0x80) }).To(Panic())
	})

	It("should set the completion cycle only once", func() {
		t := ctx.NewTracker()

		cycle = 25
		t.Complete()
		cycle = 40
		t.Complete()

		done, ok := t.CompletionCycle()
		Expect(ok).To(BeTrue())
		Expect(done).To(Equal(uint64(25)))
		lat, _ := t.Latency()
		Expect(lat).To(Equal(uint64(15)))
		Expect(ctx.Outstanding()).To(Equal(0))
	})

	It("should never complete before it started", func() {
		t := ctx.NewTracker()

		cycle = 5
		t.Complete()

		done, _ := t.CompletionCycle()
		Expect(done).To(BeNumerically(">=", t.StartCycle()))
	})

	It("should report completed trackers to the recorder", func() {
		rec := &memRecorder{}
		ctx.WithRecorder(rec)
		t := ctx.NewTracker()
		t.Complete()
		t.Complete()
		ctx.Close()

		Expect(rec.recorded).To(ConsistOf(t))
		Expect(rec.flushes).To(Equal(1))
	})

	It("should not create trackers after close", func() {
		ctx.Close()

		Expect(func() { ctx.NewTracker() }).To(Panic())
	})

	It("should trace a task per tracker", func() {
		hook := &taskHook{}
		ctx.AcceptHook(hook)

		t := ctx.NewTracker()
		t.SetDelayCause("Fabric", "Miss")
		t.Complete()

		Expect(hook.starts).To(HaveLen(1))
		Expect(hook.starts[0].ID).To(Equal(t.TaskID()))
		Expect(hook.steps).To(HaveLen(1))
		Expect(hook.ends).To(HaveLen(1))
		Expect(hook.ends[0].ID).To(Equal(t.TaskID()))

		component, cause, ok := t.DelayCause()
		Expect(ok).To(BeTrue())
		Expect(component).To(Equal("Fabric"))
		Expect(cause).To(Equal("Miss"))
	})
})

var _ = Describe("SQLiteRecorder", func() {
	It("should write completed trackers", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trans")
		rec := tracker.NewSQLiteRecorder(path)
		Expect(rec.Init()).To(Succeed())

		ctx := tracker.NewContext("Core[0].Trackers", nil).WithRecorder(rec)
		t := ctx.NewTracker()
		t.SetAddress(0x2000)
		t.Complete()
		ctx.NewTracker().Complete()
		ctx.Close()

		db, err := sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var count int
		Expect(db.QueryRow("SELECT COUNT(*) FROM trans").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(2))

		var addr sql.NullInt64
		Expect(db.QueryRow(
			"SELECT address FROM trans WHERE id = ?", t.ID(),
		).Scan(&addr)).To(Succeed())
		Expect(addr.Valid).To(BeTrue())
		Expect(addr.Int64).To(Equal(int64(0x2000)))
	})

	It("should keep trackers of different contexts apart", func() {
		path := filepath.Join(GinkgoT().TempDir(), "shared")
		rec := tracker.NewSQLiteRecorder(path)
		Expect(rec.Init()).To(Succeed())

		for _, name := range []string{"Core[0].Trackers", "Core[1].Trackers"} {
			ctx := tracker.NewContext(name, nil).WithRecorder(rec)
			ctx.NewTracker().Complete()
		}
		rec.Flush()

		db, err := sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var count int
		Expect(db.QueryRow(
			"SELECT COUNT(DISTINCT context) FROM trans WHERE id = 1",
		).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(2))
	})

	It("should refuse to overwrite an existing database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trans")
		Expect(tracker.NewSQLiteRecorder(path).Init()).To(Succeed())

		Expect(tracker.NewSQLiteRecorder(path).Init()).NotTo(Succeed())
	})
})
