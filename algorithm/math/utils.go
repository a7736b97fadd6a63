// Package math 提供定价算法共享的数值工具：广播、网格与有限性检查。
package math

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// BroadcastLen 计算若干数组长度的公共广播长度。
// 长度 0 表示未提供，长度 1 视为标量；其余长度必须一致。全部为标量或未提供时返回 1。
func BroadcastLen(lens ...int) (int, bool) {
	n := 1
	for _, l := range lens {
		switch {
		case l <= 1:
			continue
		case n == 1:
			n = l
		case l != n:
			return 0, false
		}
	}
	return n, true
}

// At 按广播规则取第 i 个元素：标量数组总是返回唯一元素。
func At(xs []float64, i int) float64 {
	if len(xs) == 1 {
		return xs[0]
	}
	return xs[i]
}

// Linspace 返回 [lo, hi] 上 n 个等距点（包含端点）。
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// MaxAbsDiff 返回两个等长数组的最大绝对差（L∞ 距离）。
func MaxAbsDiff(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// FirstNonFinite 返回第一个 NaN/Inf 元素的下标，全部有限时返回 -1。
func FirstNonFinite(xs []float64) int {
	for i, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// FirstNonFiniteComplex 返回第一个实部或虚部非有限的元素下标，全部有限时返回 -1。
func FirstNonFiniteComplex(zs []complex128) int {
	for i, z := range zs {
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return i
		}
	}
	return -1
}
