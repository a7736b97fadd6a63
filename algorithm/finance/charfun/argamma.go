package charfun

import (
	"math"
	"math/cmplx"
	"strings"

	"github.com/wyfcoding/cosmethod/xerrors"
)

// StepPolicy 决定非整数步数的期限如何映射到离散步数。
type StepPolicy int

const (
	// StepNearest 四舍五入到最近的整数步（默认）。
	StepNearest StepPolicy = iota
	// StepFloor 向下取整。
	StepFloor
	// StepCeil 向上取整。
	StepCeil
)

// stepEpsilon 吸收 T·StepsPerYear 的浮点误差，例如 30/365*365。
const stepEpsilon = 1e-9

// DefaultStepsPerYear 日频采样。
const DefaultStepsPerYear = 365.0

// ParseStepPolicy 解析配置中的步数策略名称，空字符串为 nearest。
func ParseStepPolicy(s string) (StepPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest":
		return StepNearest, nil
	case "floor":
		return StepFloor, nil
	case "ceil":
		return StepCeil, nil
	default:
		return 0, xerrors.ErrInvalidConfig.WithDetail("unknown step policy %q", s)
	}
}

func (p StepPolicy) String() string {
	switch p {
	case StepFloor:
		return "floor"
	case StepCeil:
		return "ceil"
	default:
		return "nearest"
	}
}

// Steps 把期限（年）换算为步数。
func (p StepPolicy) Steps(maturity, stepsPerYear float64) int {
	x := maturity * stepsPerYear
	switch p {
	case StepFloor:
		return int(math.Floor(x + stepEpsilon))
	case StepCeil:
		return int(math.Ceil(x - stepEpsilon))
	default:
		return int(math.Round(x))
	}
}

// ARGParams 自回归伽马（ARG）方差过程参数，方差以每步为单位。
//
// 给定 v_t，v_{t+1} ~ Gamma(Delta + Z, Scale)，Z ~ Poisson(Rho·v_t/Scale)，
// 因此 E[v_{t+1}|v_t] = Rho·v_t + Delta·Scale。
type ARGParams struct {
	Rho          float64    `validate:"gte=0,lt=1,finite"` // 持续性
	Delta        float64    `validate:"gt=0,finite"`       // 形状（自由度）
	Scale        float64    `validate:"gt=0,finite"`       // 尺度
	Var0         float64    `validate:"gt=0,finite"`       // 当前每步方差
	StepsPerYear float64    `validate:"gte=0,finite"`      // 每年步数，0 取 DefaultStepsPerYear
	StepPolicy   StepPolicy `validate:"gte=0,lte=2"`
}

// WithStepPolicy 返回按配置名称（nearest、floor、ceil）设置了步数策略的参数副本。
func (p ARGParams) WithStepPolicy(name string) (ARGParams, error) {
	policy, err := ParseStepPolicy(name)
	if err != nil {
		return p, err
	}
	p.StepPolicy = policy
	return p, nil
}

// ARG 离散时间仿射模型：每步收益 r·T/n - v/2 + sqrt(v)·ε，v 服从 ARG 过程。
type ARG struct {
	base
	params ARGParams
}

// NewARG 创建 ARG 模型。期限对应的步数必须至少为 1。
func NewARG(params ARGParams, terms Terms) (*ARG, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if params.StepsPerYear == 0 {
		params.StepsPerYear = DefaultStepsPerYear
	}
	b, err := newBase(terms)
	if err != nil {
		return nil, err
	}
	for _, T := range b.terms.Maturity {
		if n := params.StepPolicy.Steps(T, params.StepsPerYear); n < 1 {
			return nil, xerrors.ErrInvalidParameter.WithDetail(
				"maturity %g maps to %d steps under %s policy at %g steps per year", T, n, params.StepPolicy, params.StepsPerYear)
		}
	}
	return &ARG{base: b, params: params}, nil
}

// Name 实现 Model。
func (m *ARG) Name() string { return "arg" }

// Params 返回模型参数（StepsPerYear 已填充默认值）。
func (m *ARG) Params() ARGParams { return m.params }

// Key 实现 Keyed。
func (m *ARG) Key() string { return paramKey(m.Name(), m.params) }

// Steps 返回期限对应的递推深度。
func (m *ARG) Steps(maturity float64) int {
	return m.params.StepPolicy.Steps(maturity, m.params.StepsPerYear)
}

// CharFunc 实现 Model。
//
// 反向递推 f_{k+1} = -a(w0 - f_k)，B_{k+1} = B_k - b(w0 - f_k)，其中
// a(z) = ρz/(1+cz)，b(z) = δ·Log(1+cz)，w0 = u²/2 + iu/2。
// Re(w0) ≥ 0 且 Re(a(z)) ≥ 0 对 Re(z) ≥ 0 成立，于是每一步 Re(w0 - f_k) ≥ 0：
// 1+cz 远离分支切割，递推中不做重复的复数幂运算，不会溢出。
func (m *ARG) CharFunc(u []float64, t Term, dst []complex128) {
	p := m.params
	n := m.Steps(t.Maturity)
	rho, c, delta := complex(p.Rho, 0), complex(p.Scale, 0), complex(p.Delta, 0)
	for i, x := range u {
		w0 := complex(0.5*x*x, 0.5*x)
		var f, b complex128
		for range n {
			z := w0 - f
			one := 1 + c*z
			f = -rho * z / one
			b -= delta * cmplx.Log(one)
		}
		dst[i] = cmplx.Exp(complex(0, x*t.Riskfree*t.Maturity) + f*complex(p.Var0, 0) + b)
	}
}

// Cumulants 实现 Model：n 步累计收益的精确均值与方差，O(n)。
func (m *ARG) Cumulants(t Term) (Cumulants, error) {
	p := m.params
	n := m.Steps(t.Maturity)
	if n < 1 {
		return Cumulants{}, xerrors.ErrInvalidParameter.WithDetail("maturity %g maps to %d steps", t.Maturity, n)
	}
	rho, c, delta := p.Rho, p.Scale, p.Delta

	// mean/vr 为 v_j 的条件均值与方差，cross 为 Σ_{i<j} ρ^{j-i}·Var(v_i)。
	mean, vr, cross := p.Var0, 0.0, 0.0
	var sumMean, sumVar, sumCov float64
	for j := 1; j <= n; j++ {
		if j > 1 {
			cross = rho * (cross + vr)
		}
		vr = rho*rho*vr + 2*c*rho*mean + delta*c*c
		mean = rho*mean + delta*c
		sumMean += mean
		sumVar += vr
		sumCov += cross
	}
	varSum := sumVar + 2*sumCov

	return Cumulants{
		C1: t.Riskfree*t.Maturity - 0.5*sumMean,
		C2: sumMean + 0.25*varSum,
	}, nil
}
