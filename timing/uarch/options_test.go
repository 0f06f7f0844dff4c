package uarch_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CyberSME/flexus/timing/uarch"
)

var _ = Describe("Options", func() {
	It("should accept the defaults", func() {
		Expect(uarch.DefaultOptions().Validate()).To(Succeed())
	})

	It("should accept a lower case consistency model", func() {
		o := uarch.DefaultOptions()
		o.ConsistencyModel = "rmo"

		Expect(o.Validate()).To(Succeed())
	})

	DescribeTable("should reject",
		func(mutate func(o *uarch.Options), msg string) {
			o := uarch.DefaultOptions()
			mutate(o)

			err := o.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("an empty window",
			func(o *uarch.Options) { o.ROBSize = 0 }, "rob_size"),
		Entry("an empty store buffer",
			func(o *uarch.Options) { o.SBSize = 0 }, "sb_size"),
		Entry("an unknown model",
			func(o *uarch.Options) { o.ConsistencyModel = "PSO" }, "consistency_model"),
		Entry("a coherence unit that is not a power of 2",
			func(o *uarch.Options) { o.CoherenceUnit = 48 }, "coherence_unit"),
		Entry("speculation without checkpoints",
			func(o *uarch.Options) { o.SpeculativeCheckpoints = 0 }, "speculative_checkpoints"),
		Entry("a reset time longer than the latency",
			func(o *uarch.Options) { o.IntDiv = uarch.UnitOptions{Latency: 4, ResetTime: 5} },
			"int_div"),
		Entry("a pool without units",
			func(o *uarch.Options) { o.NumFpMult = 0 }, "functional unit"),
	)

	It("should save and load options", func() {
		path := filepath.Join(GinkgoT().TempDir(), "core.json")

		o := uarch.DefaultOptions()
		o.ROBSize = 64
		o.ConsistencyModel = uarch.SC
		o.FpDiv = uarch.UnitOptions{Latency: 30, ResetTime: 30}
		Expect(o.SaveOptions(path)).To(Succeed())

		loaded, err := uarch.LoadOptions(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(o))
	})

	It("should keep defaults for fields absent from the file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "core.json")
		Expect(os.WriteFile(path, []byte(`{"rob_size": 32}`), 0644)).To(Succeed())

		loaded, err := uarch.LoadOptions(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.ROBSize).To(Equal(32))
		Expect(loaded.SBSize).To(Equal(uarch.DefaultOptions().SBSize))
	})

	It("should fail on a missing file", func() {
		_, err := uarch.LoadOptions(filepath.Join(GinkgoT().TempDir(), "none.json"))
		Expect(err).To(HaveOccurred())
	})

	It("should fail on malformed JSON", func() {
		path := filepath.Join(GinkgoT().TempDir(), "core.json")
		Expect(os.WriteFile(path, []byte(`{"rob_size":`), 0644)).To(Succeed())

		_, err := uarch.LoadOptions(path)
		Expect(err).To(HaveOccurred())
	})

	It("should clone independently", func() {
		o := uarch.DefaultOptions()
		c := o.Clone()
		c.ROBSize = 1

		Expect(o.ROBSize).To(Equal(256))
	})
})
