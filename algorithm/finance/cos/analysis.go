package cos

import (
	"math"

	"github.com/wyfcoding/cosmethod/algorithm/finance"
	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	"github.com/wyfcoding/cosmethod/algorithm/types"
)

// ParityGap 返回 call - put - (S - K·e^{-rT}) 的逐合约偏差，用于检验级数与截断误差。
// c.Type 被忽略。
func (e *Engine) ParityGap(m charfun.Model, c Contract) ([]float64, error) {
	call, put := c, c
	call.Type, put.Type = types.OptionTypeCall, types.OptionTypePut
	cp, err := e.Price(m, call)
	if err != nil {
		return nil, err
	}
	pp, err := e.Price(m, put)
	if err != nil {
		return nil, err
	}
	points, err := call.normalize(m.Terms())
	if err != nil {
		return nil, err
	}
	gap := make([]float64, len(points))
	for i, p := range points {
		fwd := p.spot - p.scale*math.Exp(-p.term.Riskfree*p.term.Maturity)
		gap[i] = cp[i] - pp[i] - fwd
	}
	return gap, nil
}

// ImpliedVols 把 COS 价格换算为 Black-Scholes 隐含波动率（波动率微笑）。
// 使用 moneyness 输入时按单位行权价、S = e^x 换算。
func (e *Engine) ImpliedVols(m charfun.Model, c Contract) ([]float64, error) {
	prices, err := e.Price(m, c)
	if err != nil {
		return nil, err
	}
	points, err := c.normalize(m.Terms())
	if err != nil {
		return nil, err
	}
	vols := make([]float64, len(points))
	for i, p := range points {
		iv, err := finance.ImpliedVolatility(c.Type, p.spot, p.scale, p.term.Maturity, p.term.Riskfree, 0, prices[i])
		if err != nil {
			return nil, err
		}
		vols[i] = iv
	}
	return vols, nil
}
