package charfun

import (
	"math"
	"math/cmplx"

	"github.com/wyfcoding/cosmethod/xerrors"
)

// VarGammaParams 方差伽马过程参数。
type VarGammaParams struct {
	Theta float64 `validate:"finite"`      // 漂移（偏度）
	Nu    float64 `validate:"gt=0,finite"` // 伽马时钟方差率（峰度）
	Sigma float64 `validate:"gt=0,finite"` // 布朗部分波动率
}

// VarGamma 纯跳跃无限活跃度模型（方差伽马）。
type VarGamma struct {
	base
	params VarGammaParams
	omega  float64 // 鞅修正
}

// NewVarGamma 创建方差伽马模型。要求 1 - θν - σ²ν/2 > 0，否则鞅修正不存在。
func NewVarGamma(params VarGammaParams, terms Terms) (*VarGamma, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	arg := 1 - params.Theta*params.Nu - 0.5*params.Sigma*params.Sigma*params.Nu
	if !(arg > 0) {
		return nil, xerrors.ErrInvalidParameter.WithDetail("variance gamma requires 1 - theta*nu - sigma^2*nu/2 > 0, got %g", arg)
	}
	b, err := newBase(terms)
	if err != nil {
		return nil, err
	}
	return &VarGamma{base: b, params: params, omega: math.Log(arg) / params.Nu}, nil
}

// Name 实现 Model。
func (m *VarGamma) Name() string { return "vargamma" }

// Params 返回模型参数。
func (m *VarGamma) Params() VarGammaParams { return m.params }

// Key 实现 Keyed。
func (m *VarGamma) Key() string { return paramKey(m.Name(), m.params) }

// CharFunc 实现 Model：
// exp(iu(r+ω)T) · (1 - iθνu + σ²νu²/2)^(-T/ν)。
// 底数实部 1 + σ²νu²/2 ≥ 1，主值对数不会跨越分支切割，因此幂写成 exp(-T/ν·Log(·))。
func (m *VarGamma) CharFunc(u []float64, t Term, dst []complex128) {
	p := m.params
	drift := (t.Riskfree + m.omega) * t.Maturity
	power := complex(-t.Maturity/p.Nu, 0)
	for i, x := range u {
		z := complex(1+0.5*p.Sigma*p.Sigma*p.Nu*x*x, -p.Theta*p.Nu*x)
		dst[i] = cmplx.Exp(complex(0, x*drift) + power*cmplx.Log(z))
	}
}

// Cumulants 实现 Model。
func (m *VarGamma) Cumulants(t Term) (Cumulants, error) {
	p := m.params
	s2 := p.Sigma * p.Sigma
	th2 := p.Theta * p.Theta
	return Cumulants{
		C1: (t.Riskfree + m.omega + p.Theta) * t.Maturity,
		C2: (s2 + p.Nu*th2) * t.Maturity,
		C4: 3 * (s2*s2*p.Nu + 2*th2*th2*p.Nu*p.Nu*p.Nu + 4*s2*th2*p.Nu*p.Nu) * t.Maturity,
	}, nil
}
