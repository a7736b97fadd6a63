// Package finance - 欧式期权闭式定价（Black-Scholes 模型）与隐含波动率。
//
// 这里的闭式解作为 COS 方法在扩散模型下的参照值，同时用于把 COS 价格换算成隐含波动率。
package finance

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/cosmethod/algorithm/types"
	"github.com/wyfcoding/cosmethod/xerrors"
	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholes 计算欧式期权价格（连续股息率 div）。
func BlackScholes(optionType types.OptionType, spot, strike, expiry, rate, vol, div float64) (float64, error) {
	if !(spot > 0) || !(strike > 0) || !(expiry > 0) || !(vol > 0) {
		return 0, xerrors.ErrInvalidInput.WithDetail("spot=%g strike=%g expiry=%g vol=%g", spot, strike, expiry, vol)
	}
	sqrtT := math.Sqrt(expiry)
	d1 := (math.Log(spot/strike) + (rate-div+0.5*vol*vol)*expiry) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	expRT := math.Exp(-rate * expiry)
	expQT := math.Exp(-div * expiry)

	switch optionType {
	case types.OptionTypeCall:
		return spot*expQT*normCDF(d1) - strike*expRT*normCDF(d2), nil
	case types.OptionTypePut:
		return strike*expRT*normCDF(-d2) - spot*expQT*normCDF(-d1), nil
	default:
		return 0, xerrors.ErrInvalidOptionType
	}
}

// Vega 返回 ∂价格/∂波动率（未缩放）。
func Vega(spot, strike, expiry, rate, vol, div float64) float64 {
	sqrtT := math.Sqrt(expiry)
	d1 := (math.Log(spot/strike) + (rate-div+0.5*vol*vol)*expiry) / (vol * sqrtT)
	return spot * math.Exp(-div*expiry) * normPDF(d1) * sqrtT
}

// 隐含波动率搜索区间与精度。
const (
	ivLower     = 1e-6
	ivUpper     = 5.0
	ivTolerance = 1e-10
	ivMaxIter   = 200
)

// ImpliedVolatility 由价格反解 Black-Scholes 隐含波动率。
// Newton 迭代，步长越出当前区间时退回二分，保证收敛。
func ImpliedVolatility(optionType types.OptionType, spot, strike, expiry, rate, div, price float64) (float64, error) {
	if !optionType.Valid() {
		return 0, xerrors.ErrInvalidOptionType
	}
	if !(spot > 0) || !(strike > 0) || !(expiry > 0) {
		return 0, xerrors.ErrInvalidInput.WithDetail("spot=%g strike=%g expiry=%g", spot, strike, expiry)
	}

	fwdS := spot * math.Exp(-div*expiry)
	fwdK := strike * math.Exp(-rate*expiry)
	lowerBound := math.Max(0, optionType.Sign()*(fwdS-fwdK))
	upperBound := fwdS
	if optionType == types.OptionTypePut {
		upperBound = fwdK
	}
	if !(price > lowerBound) || !(price < upperBound) {
		return 0, xerrors.ErrInvalidInput.WithDetail("price %g outside no-arbitrage bounds (%g, %g)", price, lowerBound, upperBound)
	}

	lo, hi := ivLower, ivUpper
	sigma := 0.3
	for range ivMaxIter {
		p, _ := BlackScholes(optionType, spot, strike, expiry, rate, sigma, div)
		diff := p - price
		if math.Abs(diff) < ivTolerance {
			return sigma, nil
		}
		if diff > 0 {
			hi = sigma
		} else {
			lo = sigma
		}
		next := sigma
		if v := Vega(spot, strike, expiry, rate, sigma, div); v > 0 {
			next = sigma - diff/v
		}
		if !(next > lo && next < hi) {
			next = 0.5 * (lo + hi)
		}
		if hi-lo < ivTolerance {
			return next, nil
		}
		sigma = next
	}
	return sigma, xerrors.ErrNotConverged.WithDetail("implied volatility after %d iterations", ivMaxIter)
}

// BlackScholesCalculator Black-Scholes 期权定价计算器（decimal 接口）。
type BlackScholesCalculator struct{}

// NewBlackScholesCalculator 创建 Black-Scholes 计算器。
func NewBlackScholesCalculator() *BlackScholesCalculator {
	return &BlackScholesCalculator{}
}

// CalculatePrice 计算期权价格。
func (bsc *BlackScholesCalculator) CalculatePrice(optionType types.OptionType, spot, strike, expiry, rate, vol, div decimal.Decimal) (decimal.Decimal, error) {
	p, err := BlackScholes(optionType,
		spot.InexactFloat64(), strike.InexactFloat64(), expiry.InexactFloat64(),
		rate.InexactFloat64(), vol.InexactFloat64(), div.InexactFloat64())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(p), nil
}

// CalculateImpliedVolatility 计算隐含波动率。
func (bsc *BlackScholesCalculator) CalculateImpliedVolatility(optionType types.OptionType, spot, strike, expiry, rate, div, marketPrice decimal.Decimal) (decimal.Decimal, error) {
	iv, err := ImpliedVolatility(optionType,
		spot.InexactFloat64(), strike.InexactFloat64(), expiry.InexactFloat64(),
		rate.InexactFloat64(), div.InexactFloat64(), marketPrice.InexactFloat64())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(iv), nil
}

var unitNormal = distuv.UnitNormal

func normCDF(x float64) float64 {
	return unitNormal.CDF(x)
}

func normPDF(x float64) float64 {
	return unitNormal.Prob(x)
}
