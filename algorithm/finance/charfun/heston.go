package charfun

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/integrate/quad"
)

// HestonParams Heston 随机波动率模型参数。
type HestonParams struct {
	Kappa float64 `validate:"gt=0,finite"`         // 均值回复速度
	Theta float64 `validate:"gt=0,finite"`         // 长期方差
	Eta   float64 `validate:"gt=0,finite"`         // 波动率的波动率
	Rho   float64 `validate:"gte=-1,lte=1,finite"` // 价格与方差冲击的相关系数
	V0    float64 `validate:"gt=0,finite"`         // 初始方差
}

// Heston 随机波动率模型，特征函数为 Riccati 方程的指数仿射解。
type Heston struct {
	base
	params HestonParams
}

// NewHeston 创建 Heston 模型。
func NewHeston(params HestonParams, terms Terms) (*Heston, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	b, err := newBase(terms)
	if err != nil {
		return nil, err
	}
	return &Heston{base: b, params: params}, nil
}

// Name 实现 Model。
func (m *Heston) Name() string { return "heston" }

// Params 返回模型参数。
func (m *Heston) Params() HestonParams { return m.params }

// Key 实现 Keyed。
func (m *Heston) Key() string { return paramKey(m.Name(), m.params) }

// CharFunc 实现 Model：exp(iurT + C(u,T) + D(u,T)·v0)。
func (m *Heston) CharFunc(u []float64, t Term, dst []complex128) {
	for i, x := range u {
		c, d := m.riccati(x, t.Maturity)
		dst[i] = cmplx.Exp(complex(0, x*t.Riskfree*t.Maturity) + c + d*complex(m.params.V0, 0))
	}
}

// riccati 返回 Riccati 方程解的 C、D 系数。
//
// cmplx.Sqrt 取主值，Re(d) ≥ 0，于是 |g·e^{-dT}| < 1。采用 g = (β-d)/(β+d)、e^{-dT} 衰减的写法；
// 另一种 g' = 1/g、e^{+dT} 的写法在长期限或高 vol-of-vol 下会让
// log((1-g·e^{-dT})/(1-g)) 的辐角跨越主值分支切割，使 φ(u) 出现跳变。
func (m *Heston) riccati(u, maturity float64) (c, d complex128) {
	p := m.params
	eta2 := p.Eta * p.Eta
	beta := complex(p.Kappa, -p.Rho*p.Eta*u)
	disc := cmplx.Sqrt(beta*beta + complex(eta2*u*u, eta2*u))
	g := (beta - disc) / (beta + disc)
	e := cmplx.Exp(-disc * complex(maturity, 0))

	c = complex(p.Kappa*p.Theta/eta2, 0) *
		((beta-disc)*complex(maturity, 0) - 2*cmplx.Log((1-g*e)/(1-g)))
	d = (beta - disc) / complex(eta2, 0) * (1 - e) / (1 - g*e)
	return c, d
}

const (
	// κT 低于该值时闭式方差项相互抵消，改用数值积分。
	hestonSmallKappaT = 1.0
	hestonQuadNodes   = 32
)

// Cumulants 实现 Model。
//
// 记积分方差 I = ∫v dt，则 X = rT + (ρκ/η - 1/2)·I + (ρ/η)·(v_T - v0 - κθT) + sqrt(1-ρ²)·M，
// 其中 M 在给定方差路径时服从 N(0, I)。c2 由 E[I]、Var(I)、Cov(I, v_T)、Var(v_T) 组合得到；
// c4 由矩方程积分得到，用于拓宽强偏斜下的截断区间。
func (m *Heston) Cumulants(t Term) (Cumulants, error) {
	p := m.params
	k, th, eta, rho, v0, T := p.Kappa, p.Theta, p.Eta, p.Rho, p.V0, t.Maturity

	meanI := th*T + (v0-th)*T*phi1(k*T)
	c1 := t.Riskfree*T - 0.5*meanI

	var varI, covIV, varV float64
	if k*T < hestonSmallKappaT {
		varI, covIV, varV = m.varianceMomentsQuad(T)
	} else {
		varI, covIV, varV = m.varianceMomentsClosed(T)
	}

	a := rho*k/eta - 0.5
	b := rho / eta
	c2 := (1-rho*rho)*meanI + a*a*varI + 2*a*b*covIV + b*b*varV

	return Cumulants{C1: c1, C2: c2, C4: math.Max(0, m.fourthCumulant(T))}, nil
}

// varianceMomentsClosed 返回 Var(I)、Cov(I, v_T)、Var(v_T) 的闭式值，要求 κT 不太小。
func (m *Heston) varianceMomentsClosed(T float64) (varI, covIV, varV float64) {
	p := m.params
	k, th, v0 := p.Kappa, p.Theta, p.V0
	e := math.Exp(-k * T)
	eta2 := p.Eta * p.Eta

	// Var(v_s) = A·e^{-κs} + B·e^{-2κs} + C
	A := eta2 * (v0 - th) / k
	B := eta2 * (th/2 - v0) / k
	C := th * eta2 / (2 * k)

	intVar := A*(1-e)/k + B*(1-e*e)/(2*k) + C*T
	covIV = A*T*e + B*e*(1-e)/k + C*(1-e)/k
	varI = 2 / k * (intVar - covIV)
	varV = v0*eta2/k*(e-e*e) + C*(1-e)*(1-e)
	return varI, covIV, varV
}

// varianceMomentsQuad 对 Var(v_u) 的无抵消形式做 Gauss-Legendre 积分：
//
//	Cov(I, v_T) = ∫ e^{-κ(T-u)}·Var(v_u) du
//	Var(I)      = 2∫ (T-u)·φ1(κ(T-u))·Var(v_u) du
//
// 其中 φ1(x) = (1-e^{-x})/x，κT 小时被积函数接近多项式。
func (m *Heston) varianceMomentsQuad(T float64) (varI, covIV, varV float64) {
	k := m.params.Kappa
	covIV = quad.Fixed(func(u float64) float64 {
		return math.Exp(-k*(T-u)) * m.varianceAt(u)
	}, 0, T, hestonQuadNodes, quad.Legendre{}, 0)
	varI = 2 * quad.Fixed(func(u float64) float64 {
		return (T - u) * phi1(k*(T-u)) * m.varianceAt(u)
	}, 0, T, hestonQuadNodes, quad.Legendre{}, 0)
	return varI, covIV, m.varianceAt(T)
}

// varianceAt 返回 Var(v_u) = η²·u·φ1(κu)·(v0·e^{-κu} + θ(1-e^{-κu})/2)。
func (m *Heston) varianceAt(u float64) float64 {
	p := m.params
	e := math.Exp(-p.Kappa * u)
	return p.Eta * p.Eta * u * phi1(p.Kappa*u) * (p.V0*e + 0.5*p.Theta*(1-e))
}

// fourthCumulant 积分 D(w, t) = Σ d_n(t)·wⁿ（w = iu）的系数方程并返回 c4。
//
// Riccati 方程 D' = (w²-w)/2 - (κ-ρηw)·D + η²D²/2 按 w 的幂展开为三角形线性方程组，
// C = κθ∫D dt，c_n = n!·(κθ∫d_n + v0·d_n(T))。方程为实系数且不含 1/κ，κ → 0 时同样稳定。
func (m *Heston) fourthCumulant(T float64) float64 {
	p := m.params
	k, re, eta2 := p.Kappa, p.Rho*p.Eta, p.Eta*p.Eta
	deriv := func(y [8]float64) [8]float64 {
		d1, d2, d3, d4 := y[0], y[1], y[2], y[3]
		return [8]float64{
			-0.5 - k*d1,
			0.5 - k*d2 + re*d1 + 0.5*eta2*d1*d1,
			-k*d3 + re*d2 + eta2*d1*d2,
			-k*d4 + re*d3 + eta2*(d1*d3+0.5*d2*d2),
			d1, d2, d3, d4,
		}
	}

	steps := max(64, int(math.Ceil(4*k*T)))
	h := T / float64(steps)
	var y [8]float64
	axpy := func(y, dy [8]float64, s float64) [8]float64 {
		for i := range y {
			y[i] += s * dy[i]
		}
		return y
	}
	for range steps {
		k1 := deriv(y)
		k2 := deriv(axpy(y, k1, h/2))
		k3 := deriv(axpy(y, k2, h/2))
		k4 := deriv(axpy(y, k3, h))
		for i := range y {
			y[i] += h / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
		}
	}
	return 24 * (k*p.Theta*y[7] + p.V0*y[3])
}

// phi1 返回 (1-e^{-x})/x，x → 0 时取极限 1。
func phi1(x float64) float64 {
	if x == 0 {
		return 1
	}
	return -math.Expm1(-x) / x
}
