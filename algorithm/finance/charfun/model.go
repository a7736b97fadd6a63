// Package charfun 定义随机过程模型的特征函数族与基于累积量的截断区间估计。
//
// 所有模型描述终端对数收益 X = log(S_T/S_0) 在风险中性测度下的分布，
// 特征函数 φ(u) = E[exp(iuX)] 已包含利率漂移与凸性修正。模型构造后不可变，
// 可在多个 goroutine 间共享。
package charfun

import (
	"fmt"
	"math"

	algomath "github.com/wyfcoding/cosmethod/algorithm/math"
	"github.com/wyfcoding/cosmethod/validator"
	"github.com/wyfcoding/cosmethod/xerrors"
)

// DefaultTruncation 是截断乘子 L 的默认值。
const DefaultTruncation = 10.0

// Term 是一个求值点：年化无风险利率与到期期限（年）。
type Term struct {
	Riskfree float64
	Maturity float64
}

// Terms 是模型携带的期限结构，每个字段为标量（长度 1）或数组。
type Terms struct {
	Riskfree []float64
	Maturity []float64
}

// At 构造标量期限。
func At(riskfree, maturity float64) Terms {
	return Terms{Riskfree: []float64{riskfree}, Maturity: []float64{maturity}}
}

// Len 返回广播后的长度。
func (t Terms) Len() (int, bool) {
	if len(t.Riskfree) == 0 || len(t.Maturity) == 0 {
		return 0, false
	}
	return algomath.BroadcastLen(len(t.Riskfree), len(t.Maturity))
}

// Term 返回广播后的第 i 个求值点。
func (t Terms) Term(i int) Term {
	return Term{Riskfree: algomath.At(t.Riskfree, i), Maturity: algomath.At(t.Maturity, i)}
}

// Expand 把期限结构展开为求值点列表。
func (t Terms) Expand() ([]Term, error) {
	n, ok := t.Len()
	if !ok {
		return nil, xerrors.ErrShapeMismatch.WithDetail("riskfree len %d, maturity len %d", len(t.Riskfree), len(t.Maturity))
	}
	out := make([]Term, n)
	for i := range out {
		out[i] = t.Term(i)
	}
	return out, nil
}

func (t Terms) validate() error {
	if _, ok := t.Len(); !ok {
		return xerrors.ErrShapeMismatch.WithDetail("riskfree len %d, maturity len %d", len(t.Riskfree), len(t.Maturity))
	}
	if !validator.IsFinite(t.Riskfree...) {
		return xerrors.ErrInvalidParameter.WithDetail("riskfree must be finite")
	}
	if !validator.IsPositive(t.Maturity...) {
		return xerrors.ErrInvalidParameter.WithDetail("maturity must be positive and finite")
	}
	return nil
}

// Cumulants 是对数收益的累积量：均值、方差与四阶累积量（未知时为 0）。
type Cumulants struct {
	C1 float64
	C2 float64
	C4 float64
}

// Model 是 COS 引擎消费的模型能力接口。
type Model interface {
	// Name 返回模型名，用于日志与指标维度。
	Name() string
	// Terms 返回构造时给定的期限结构。
	Terms() Terms
	// CharFunc 在期限 t 下对频率向量 u 求特征函数值，写入 dst（len(dst) == len(u)）。
	CharFunc(u []float64, t Term, dst []complex128)
	// Cumulants 返回期限 t 下对数收益的累积量。
	Cumulants(t Term) (Cumulants, error)
}

// Keyed 由模型实现：参数相同则 Key 相同、特征函数相同。
// 引擎以 Key 与期限、N、L 组合作为余弦系数的缓存键；未实现的模型不参与缓存。
type Keyed interface {
	Key() string
}

func paramKey(name string, params any) string {
	return fmt.Sprintf("%s%+v", name, params)
}

// TruncationRange 根据累积量给出积分区间
// [c1 - L·sqrt(c2 + sqrt(c4)), c1 + L·sqrt(c2 + sqrt(c4))]。
func TruncationRange(m Model, t Term, l float64) (a, b float64, err error) {
	if !(l > 0) {
		return 0, 0, xerrors.ErrInvalidConfig.WithDetail("truncation multiplier %g", l)
	}
	c, err := m.Cumulants(t)
	if err != nil {
		return 0, 0, err
	}
	width := l * math.Sqrt(c.C2+math.Sqrt(c.C4))
	a, b = c.C1-width, c.C1+width
	if c.C2 < 0 || c.C4 < 0 || !validator.IsFinite(a, b) || !(a < b) {
		return 0, 0, xerrors.ErrDegenerateRange.
			WithDetail("model %s: a=%g b=%g (c1=%g c2=%g c4=%g)", m.Name(), a, b, c.C1, c.C2, c.C4).
			WithContext("model", m.Name())
	}
	return a, b, nil
}

// Func 是绑定到单一期限的向量化特征函数。
type Func func(u []float64) []complex128

// Bind 把模型绑定到其唯一期限，得到 Func；期限为数组时返回 ErrShapeMismatch。
func Bind(m Model) (Func, error) {
	terms, err := m.Terms().Expand()
	if err != nil {
		return nil, err
	}
	if len(terms) != 1 {
		return nil, xerrors.ErrShapeMismatch.WithDetail("model %s has %d terms, bind needs one", m.Name(), len(terms))
	}
	t := terms[0]
	return func(u []float64) []complex128 {
		dst := make([]complex128, len(u))
		m.CharFunc(u, t, dst)
		return dst
	}, nil
}

// Evaluate 对模型在期限 t 下求值，并拒绝 NaN/Inf。
func Evaluate(m Model, u []float64, t Term, dst []complex128) error {
	m.CharFunc(u, t, dst)
	if i := algomath.FirstNonFiniteComplex(dst); i >= 0 {
		return xerrors.ErrNonFiniteResult.
			WithDetail("model %s: phi(%g) = %v at r=%g T=%g", m.Name(), u[i], dst[i], t.Riskfree, t.Maturity).
			WithContext("model", m.Name())
	}
	return nil
}

// base 提供各模型共享的期限存储。
type base struct {
	terms Terms
}

func newBase(terms Terms) (base, error) {
	if err := terms.validate(); err != nil {
		return base{}, err
	}
	return base{terms: Terms{
		Riskfree: append([]float64(nil), terms.Riskfree...),
		Maturity: append([]float64(nil), terms.Maturity...),
	}}, nil
}

// Terms 返回期限结构的副本。
func (b base) Terms() Terms {
	return Terms{
		Riskfree: append([]float64(nil), b.terms.Riskfree...),
		Maturity: append([]float64(nil), b.terms.Maturity...),
	}
}

// validateParams 对参数结构体执行标签校验。
func validateParams(p any) error {
	return validator.Struct(p, xerrors.ErrInvalidParameter)
}
