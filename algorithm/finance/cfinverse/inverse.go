// Package cfinverse 通过直接傅里叶反演由特征函数恢复概率密度，用于诊断与测试。
package cfinverse

import (
	"math"
	"math/cmplx"

	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	algomath "github.com/wyfcoding/cosmethod/algorithm/math"
	"github.com/wyfcoding/cosmethod/xerrors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Invert 在 [lower, upper) 上 points 个等距网格点处计算 f(x) = (1/2π)∫φ(u)e^{-iux}du。
//
// 网格步长 λ = (upper-lower)/points，频率步长 η = 2π/(points·λ)，
// 频率覆盖 |u| ≤ π/λ；网格越密，频率范围越宽。积分用一次 FFT 完成。
func Invert(fn charfun.Func, points int, lower, upper float64) (grid, density []float64, err error) {
	if fn == nil {
		return nil, nil, xerrors.ErrInvalidInput.WithDetail("nil characteristic function")
	}
	if points < 2 {
		return nil, nil, xerrors.ErrInvalidInput.WithDetail("points %d < 2", points)
	}
	if !(lower < upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return nil, nil, xerrors.ErrInvalidInput.WithDetail("limits [%g, %g]", lower, upper)
	}

	lambda := (upper - lower) / float64(points)
	eta := 2 * math.Pi / (float64(points) * lambda)
	half := points / 2

	u := make([]float64, points)
	for j := range u {
		u[j] = float64(j-half) * eta
	}
	phi := fn(u)
	if len(phi) != points {
		return nil, nil, xerrors.ErrShapeMismatch.WithDetail("charfun returned %d values for %d frequencies", len(phi), points)
	}
	if i := algomath.FirstNonFiniteComplex(phi); i >= 0 {
		return nil, nil, xerrors.ErrNonFiniteResult.WithDetail("phi(%g) = %v", u[i], phi[i])
	}

	// u_j·x_k = u_j·lower + 2πjk/N - 2π·half·k/N
	seq := make([]complex128, points)
	for j := range seq {
		seq[j] = phi[j] * cmplx.Exp(complex(0, -u[j]*lower))
	}
	fft := fourier.NewCmplxFFT(points)
	coef := fft.Coefficients(nil, seq)

	grid = algomath.Linspace(lower, upper-lambda, points)
	density = make([]float64, points)
	scale := eta / (2 * math.Pi)
	for k := range grid {
		shift := cmplx.Exp(complex(0, 2*math.Pi*float64(half*k%points)/float64(points)))
		density[k] = scale * real(coef[k]*shift)
	}
	return grid, density, nil
}
