package charfun

import (
	"math/cmplx"
)

// GBMParams 几何布朗运动参数。
type GBMParams struct {
	Sigma float64 `validate:"gt=0,finite"` // 年化波动率
}

// GBM 对数正态扩散模型。
type GBM struct {
	base
	params GBMParams
}

// NewGBM 创建几何布朗运动模型。
func NewGBM(params GBMParams, terms Terms) (*GBM, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	b, err := newBase(terms)
	if err != nil {
		return nil, err
	}
	return &GBM{base: b, params: params}, nil
}

// Name 实现 Model。
func (m *GBM) Name() string { return "gbm" }

// Params 返回模型参数。
func (m *GBM) Params() GBMParams { return m.params }

// Key 实现 Keyed。
func (m *GBM) Key() string { return paramKey(m.Name(), m.params) }

// CharFunc 实现 Model：exp(iu(r - σ²/2)T - u²σ²T/2)。
func (m *GBM) CharFunc(u []float64, t Term, dst []complex128) {
	s2 := m.params.Sigma * m.params.Sigma
	drift := (t.Riskfree - 0.5*s2) * t.Maturity
	for i, x := range u {
		dst[i] = cmplx.Exp(complex(-0.5*x*x*s2*t.Maturity, x*drift))
	}
}

// Cumulants 实现 Model。
func (m *GBM) Cumulants(t Term) (Cumulants, error) {
	s2 := m.params.Sigma * m.params.Sigma
	return Cumulants{
		C1: (t.Riskfree - 0.5*s2) * t.Maturity,
		C2: s2 * t.Maturity,
	}, nil
}
