package cos

import (
	"math"
	"math/cmplx"

	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
)

// series 是单个期限下特征函数的余弦系数，在所有行权水平间共享。
type series struct {
	a, b float64
	// coef[k] = (2/(b-a))·Re[φ(u_k)·e^{-i·u_k·a}]，coef[0] 已乘 1/2。
	coef []float64
}

// newSeries 在截断区间 [a, b] 上计算长度为n的余弦系数。
func newSeries(m charfun.Model, t charfun.Term, n int, l float64) (*series, error) {
	a, b, err := charfun.TruncationRange(m, t, l)
	if err != nil {
		return nil, err
	}
	width := b - a
	u := make([]float64, n)
	for k := range u {
		u[k] = float64(k) * math.Pi / width
	}
	phi := make([]complex128, n)
	if err := charfun.Evaluate(m, u, t, phi); err != nil {
		return nil, err
	}

	coef := make([]float64, n)
	for k := range coef {
		coef[k] = 2 / width * real(phi[k]*cmplx.Exp(complex(0, -u[k]*a)))
	}
	coef[0] *= 0.5
	return &series{a: a, b: b, coef: coef}, nil
}

// putValue 返回单位行权价、未折现的看跌期望收益 Σ' A_k·V_k。
//
// 收益在对数行权轴 y = x + X 上积分，区间为 [x+a, x+b]，因此 A_k 与 x 无关，
// χ、ψ 在 [x+a, min(0, x+b)] 上取闭式值。看跌收益有界，截断与级数误差不会被放大；
// 看涨价格由平价关系得到，见 Engine.PriceN。
func (s *series) putValue(x float64) float64 {
	lo, hi := x+s.a, x+s.b
	c, d := lo, math.Min(0, hi)
	if !(c < d) {
		return 0
	}

	width := hi - lo
	ec, ed := math.Exp(c), math.Exp(d)
	sum := 0.0
	for k, ak := range s.coef {
		chi, psi := chiPsi(k, width, c-lo, d-lo, ec, ed)
		sum += ak * (chi - psi)
	}
	return -sum
}

// chiPsi 计算 χ_k(c,d) = ∫_c^d e^y cos(ω(y-lo)) dy 与 ψ_k(c,d) = ∫_c^d cos(ω(y-lo)) dy，
// ω = kπ/width；cOff、dOff 为 c、d 相对区间左端点的偏移。
func chiPsi(k int, width, cOff, dOff, ec, ed float64) (chi, psi float64) {
	if k == 0 {
		return ed - ec, dOff - cOff
	}
	w := float64(k) * math.Pi / width
	sinD, cosD := math.Sincos(w * dOff)
	sinC, cosC := math.Sincos(w * cOff)
	chi = (cosD*ed - cosC*ec + w*(sinD*ed-sinC*ec)) / (1 + w*w)
	psi = (sinD - sinC) / w
	return chi, psi
}
