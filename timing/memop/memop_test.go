package memop_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/tracker"
)

var _ = Describe("Size", func() {
	DescribeTable("shaping a loaded value",
		func(size memop.Size, value uint64, signExtend bool, expected uint64) {
			Expect(size.Shape(value, signExtend)).To(Equal(expected))
		},
		Entry("byte, zero extend", memop.Byte, uint64(0xFF), false, uint64(0xFF)),
		Entry("byte, sign extend", memop.Byte, uint64(0xFF), true, uint64(0xFFFFFFFFFFFFFFFF)),
		Entry("byte, positive", memop.Byte, uint64(0x17F), true, uint64(0x7F)),
		Entry("half word, sign extend", memop.HalfWord, uint64(0x12348000), true, uint64(0xFFFFFFFFFFFF8000)),
		Entry("half word, zero extend", memop.HalfWord, uint64(0x12348000), false, uint64(0x8000)),
		Entry("word, sign extend", memop.Word, uint64(0xAB80000000), true, uint64(0xFFFFFFFF80000000)),
		Entry("word, positive", memop.Word, uint64(0xAB7FFFFFFF), true, uint64(0x7FFFFFFF)),
		Entry("double word", memop.DoubleWord, uint64(0x8000000000000001), true, uint64(0x8000000000000001)),
	)

	It("should match the two's complement value of the low bits", func() {
		values := []uint64{0, 1, 0x7F, 0x80, 0xFF, 0x1234_5678_9ABC_DEF0, ^uint64(0)}
		for _, v := range values {
			Expect(memop.Byte.Shape(v, true)).To(Equal(uint64(int64(int8(v)))))
			Expect(memop.HalfWord.Shape(v, true)).To(Equal(uint64(int64(int16(v)))))
			Expect(memop.Word.Shape(v, true)).To(Equal(uint64(int64(int32(v)))))
			Expect(memop.Byte.Shape(v, false)).To(Equal(uint64(uint8(v))))
			Expect(memop.HalfWord.Shape(v, false)).To(Equal(uint64(uint16(v))))
			Expect(memop.Word.Shape(v, false)).To(Equal(uint64(uint32(v))))
			Expect(memop.DoubleWord.Shape(v, true)).To(Equal(v))
		}
	})

	It("should only accept the four widths", func() {
		Expect(memop.Word.Valid()).To(BeTrue())
		Expect(memop.Size(3).Valid()).To(BeFalse())
	})
})

var _ = Describe("Kind", func() {
	It("should classify replies and snoops", func() {
		Expect(memop.LoadReply.IsReply()).To(BeTrue())
		Expect(memop.CASReply.IsReply()).To(BeTrue())
		Expect(memop.Invalidate.IsReply()).To(BeFalse())
		Expect(memop.Invalidate.IsSnoop()).To(BeTrue())
		Expect(memop.ReturnReq.IsSnoop()).To(BeTrue())
		Expect(memop.Load.IsSnoop()).To(BeFalse())
	})

	It("should name kinds", func() {
		Expect(memop.StorePrefetchReply.String()).To(Equal("StorePrefetchReply"))
		Expect(memop.Kind(200).String()).To(Equal("Kind(200)"))
	})
})

var _ = Describe("MemOp", func() {
	It("should create a tracker only once", func() {
		ctx := tracker.NewContext("Core[0].Trackers", nil)
		op := &memop.MemOp{Kind: memop.Load, Address: 0x100, Size: memop.Word}

		t, created := op.EnsureTracker(ctx)
		Expect(created).To(BeTrue())
		again, created := op.EnsureTracker(ctx)
		Expect(created).To(BeFalse())
		Expect(again).To(BeIdenticalTo(t))
	})
})
