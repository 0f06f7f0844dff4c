package emu

import (
	"math"
	"math/bits"
)

// Compute operations take their operands in the order the core gathers
// them: the three source registers, then the immediate. Unused sources
// read as 0.
const (
	rs1 = iota
	rs2
	rs3
	imm
)

// Add computes rs1 + rs2 + imm, covering both the register and the
// immediate form.
func Add(in []uint64) uint64 {
	return in[rs1] + in[rs2] + in[imm]
}

// Sub computes rs1 - rs2 - imm.
func Sub(in []uint64) uint64 {
	return in[rs1] - in[rs2] - in[imm]
}

// And computes rs1 & rs2.
func And(in []uint64) uint64 {
	return in[rs1] & in[rs2]
}

// AndImm computes rs1 & imm.
func AndImm(in []uint64) uint64 {
	return in[rs1] & in[imm]
}

// Orr computes rs1 | rs2 | imm.
func Orr(in []uint64) uint64 {
	return in[rs1] | in[rs2] | in[imm]
}

// Eor computes rs1 ^ rs2 ^ imm.
func Eor(in []uint64) uint64 {
	return in[rs1] ^ in[rs2] ^ in[imm]
}

// Lsl shifts rs1 left by (rs2 + imm) mod 64.
func Lsl(in []uint64) uint64 {
	return in[rs1] << ((in[rs2] + in[imm]) & 63)
}

// Lsr shifts rs1 right by (rs2 + imm) mod 64.
func Lsr(in []uint64) uint64 {
	return in[rs1] >> ((in[rs2] + in[imm]) & 63)
}

// Mul computes the low 64 bits of rs1 * rs2.
func Mul(in []uint64) uint64 {
	return in[rs1] * in[rs2]
}

// Madd computes rs1 * rs2 + rs3.
func Madd(in []uint64) uint64 {
	return in[rs1]*in[rs2] + in[rs3]
}

// Umulh computes the high 64 bits of rs1 * rs2.
func Umulh(in []uint64) uint64 {
	hi, _ := bits.Mul64(in[rs1], in[rs2])
	return hi
}

// UDiv divides rs1 by rs2. Division by zero yields 0.
func UDiv(in []uint64) uint64 {
	if in[rs2] == 0 {
		return 0
	}

	return in[rs1] / in[rs2]
}

// SDiv divides rs1 by rs2 as signed values. Division by zero yields 0 and
// the most negative value divided by -1 yields itself.
func SDiv(in []uint64) uint64 {
	n, d := int64(in[rs1]), int64(in[rs2])

	switch {
	case d == 0:
		return 0
	case n == math.MinInt64 && d == -1:
		return uint64(n)
	}

	return uint64(n / d)
}

func fp(v uint64) float64 {
	return math.Float64frombits(v)
}

func bitsOf(f float64) uint64 {
	return math.Float64bits(f)
}

// FAdd adds two double precision values.
func FAdd(in []uint64) uint64 {
	return bitsOf(fp(in[rs1]) + fp(in[rs2]))
}

// FSub subtracts two double precision values.
func FSub(in []uint64) uint64 {
	return bitsOf(fp(in[rs1]) - fp(in[rs2]))
}

// FMul multiplies two double precision values.
func FMul(in []uint64) uint64 {
	return bitsOf(fp(in[rs1]) * fp(in[rs2]))
}

// FDiv divides two double precision values.
func FDiv(in []uint64) uint64 {
	return bitsOf(fp(in[rs1]) / fp(in[rs2]))
}

// FSqrt takes the square root of a double precision value.
func FSqrt(in []uint64) uint64 {
	return bitsOf(math.Sqrt(fp(in[rs1])))
}

// SCvtF converts a signed integer to double precision.
func SCvtF(in []uint64) uint64 {
	return bitsOf(float64(int64(in[rs1])))
}
