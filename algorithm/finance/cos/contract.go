package cos

import (
	"math"

	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	algomath "github.com/wyfcoding/cosmethod/algorithm/math"
	"github.com/wyfcoding/cosmethod/algorithm/types"
	"github.com/wyfcoding/cosmethod/validator"
	"github.com/wyfcoding/cosmethod/xerrors"
)

// Contract 描述一组欧式期权合约。每个数组字段可以是标量（长度 1）或公共长度的数组。
//
// 行权水平二选一：Moneyness = log(S/K)（结果为单位行权价的权利金），
// 或 Price 与 Strike（结果乘以行权价）。Maturity 与 Riskfree 为空时沿用模型的期限结构，
// 给出时用于覆盖模型期限。
type Contract struct {
	Moneyness []float64
	Price     []float64
	Strike    []float64
	Maturity  []float64
	Riskfree  []float64
	Type      types.OptionType
}

// Call 构造标量价格与行权价的看涨合约。
func Call(price, strike float64) Contract {
	return Contract{Price: []float64{price}, Strike: []float64{strike}, Type: types.OptionTypeCall}
}

// Put 构造标量价格与行权价的看跌合约。
func Put(price, strike float64) Contract {
	return Contract{Price: []float64{price}, Strike: []float64{strike}, Type: types.OptionTypePut}
}

// point 是广播后的单个合约：对数行权水平 x、缩放系数与期限。
type point struct {
	x     float64
	scale float64
	spot  float64
	term  charfun.Term
}

// normalize 在计算开始前把所有输入统一成等长的合约点。
func (c Contract) normalize(terms charfun.Terms) ([]point, error) {
	if !c.Type.Valid() {
		return nil, xerrors.ErrInvalidOptionType.WithDetail("got %q", c.Type)
	}
	hasMoneyness := len(c.Moneyness) > 0
	hasPrice, hasStrike := len(c.Price) > 0, len(c.Strike) > 0
	switch {
	case hasMoneyness && (hasPrice || hasStrike):
		return nil, xerrors.ErrInvalidInput.WithDetail("moneyness and price/strike are mutually exclusive")
	case !hasMoneyness && !(hasPrice && hasStrike):
		return nil, xerrors.ErrInvalidInput.WithDetail("either moneyness or both price and strike are required")
	}

	maturity, riskfree := c.Maturity, c.Riskfree
	if len(maturity) == 0 {
		maturity = terms.Maturity
	}
	if len(riskfree) == 0 {
		riskfree = terms.Riskfree
	}
	if len(maturity) == 0 || len(riskfree) == 0 {
		return nil, xerrors.ErrInvalidInput.WithDetail("maturity and riskfree are required")
	}

	n, ok := algomath.BroadcastLen(len(c.Moneyness), len(c.Price), len(c.Strike), len(maturity), len(riskfree))
	if !ok {
		return nil, xerrors.ErrShapeMismatch.WithDetail(
			"moneyness %d, price %d, strike %d, maturity %d, riskfree %d",
			len(c.Moneyness), len(c.Price), len(c.Strike), len(maturity), len(riskfree))
	}

	if !validator.IsFinite(c.Moneyness...) || !validator.IsFinite(riskfree...) {
		return nil, xerrors.ErrInvalidInput.WithDetail("moneyness and riskfree must be finite")
	}
	if !validator.IsPositive(c.Price...) || !validator.IsPositive(c.Strike...) || !validator.IsPositive(maturity...) {
		return nil, xerrors.ErrInvalidInput.WithDetail("price, strike and maturity must be positive")
	}

	points := make([]point, n)
	for i := range points {
		p := point{term: charfun.Term{
			Riskfree: algomath.At(riskfree, i),
			Maturity: algomath.At(maturity, i),
		}}
		if hasMoneyness {
			p.x = algomath.At(c.Moneyness, i)
			p.scale = 1
			p.spot = math.Exp(p.x)
		} else {
			p.spot = algomath.At(c.Price, i)
			p.scale = algomath.At(c.Strike, i)
			p.x = math.Log(p.spot / p.scale)
		}
		points[i] = p
	}
	return points, nil
}
