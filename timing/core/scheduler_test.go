package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CyberSME/flexus/timing/core"
)

var _ = Describe("Scheduler", func() {
	It("should always run", func() {
		s := core.AlwaysRun{}

		for cycle := uint64(0); cycle < 4; cycle++ {
			Expect(s.Run(3, cycle)).To(BeTrue())
		}
	})

	It("should interleave cores round robin", func() {
		s := core.RoundRobin{Threads: 2}

		Expect(s.Run(0, 0)).To(BeTrue())
		Expect(s.Run(1, 0)).To(BeFalse())
		Expect(s.Run(0, 1)).To(BeFalse())
		Expect(s.Run(1, 1)).To(BeTrue())
		Expect(s.Run(2, 4)).To(BeTrue())
	})

	It("should run a single thread every cycle", func() {
		s := core.RoundRobin{Threads: 1}

		Expect(s.Run(5, 7)).To(BeTrue())
	})
})
