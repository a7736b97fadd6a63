// Package cos 实现 Fang-Oosterlee 傅里叶余弦（COS）欧式期权定价引擎。
//
// 引擎从模型取截断区间与特征函数，把特征函数的余弦系数与收益的闭式余弦系数相乘求和，
// 并对 moneyness / (price, strike) / maturity / riskfree 的任意标量、数组组合广播。
// 引擎无状态，可并发使用。
package cos

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	algomath "github.com/wyfcoding/cosmethod/algorithm/math"
	"github.com/wyfcoding/cosmethod/algorithm/types"
	"github.com/wyfcoding/cosmethod/async"
	"github.com/wyfcoding/cosmethod/cache"
	"github.com/wyfcoding/cosmethod/config"
	"github.com/wyfcoding/cosmethod/tracing"
	"github.com/wyfcoding/cosmethod/xerrors"
)

// pointChunk 是并发计算合约价格时每个任务处理的合约数。
const pointChunk = 256

// Engine COS 定价引擎。
type Engine struct {
	opts *engineOptions
}

// NewEngine 创建定价引擎。
func NewEngine(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.finish(); err != nil {
		return nil, err
	}
	return &Engine{opts: o}, nil
}

// NewEngineFromConfig 由配置创建引擎，额外选项覆盖配置值。
func NewEngineFromConfig(cfg config.PricingConfig, opts ...Option) (*Engine, error) {
	base := []Option{
		WithSeriesLength(cfg.SeriesLength),
		WithMaxSeriesLength(cfg.MaxSeriesLength),
		WithTruncation(cfg.Truncation),
		WithTolerance(cfg.Tolerance),
		WithWorkers(cfg.Workers),
	}
	return NewEngine(append(base, opts...)...)
}

// SeriesLength 返回默认级数项数。
func (e *Engine) SeriesLength() int { return e.opts.SeriesLength }

// Truncation 返回截断乘子。
func (e *Engine) Truncation() float64 { return e.opts.Truncation }

// PriceOption 使用默认引擎（可附加选项）定价，是 Engine.Price 的快捷方式。
func PriceOption(m charfun.Model, c Contract, opts ...Option) ([]float64, error) {
	e, err := NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	return e.Price(m, c)
}

// Price 返回广播形状的权利金；所有输入为标量时长度为 1。
// 失败时不返回部分结果。
func (e *Engine) Price(m charfun.Model, c Contract) ([]float64, error) {
	return e.PriceN(context.Background(), m, c, e.opts.SeriesLength)
}

// PriceContext 与 Price 相同，并在 ctx 所在链路上记录 span。
func (e *Engine) PriceContext(ctx context.Context, m charfun.Model, c Contract) ([]float64, error) {
	return e.PriceN(ctx, m, c, e.opts.SeriesLength)
}

// PriceN 以指定级数项数 n 定价。ctx 取消时在期限求值之间、合约分块之间中止。
func (e *Engine) PriceN(ctx context.Context, m charfun.Model, c Contract, n int) (out []float64, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "cos.Price")
	defer func() {
		e.observe(ctx, m, n, len(out), start, err)
		tracing.SetError(ctx, err)
		span.End()
	}()
	tracing.AddTag(ctx, "cos.series_length", n)

	if m == nil {
		return nil, xerrors.ErrInvalidInput.WithDetail("nil model")
	}
	tracing.AddTag(ctx, "cos.model", m.Name())
	if n < 2 {
		return nil, xerrors.ErrInvalidConfig.WithDetail("series length %d < 2", n)
	}
	points, err := c.normalize(m.Terms())
	if err != nil {
		return nil, err
	}
	tracing.AddTag(ctx, "cos.contracts", len(points))

	// 相同期限只求一次特征函数。
	index := make(map[charfun.Term]int)
	var terms []charfun.Term
	for _, p := range points {
		if _, ok := index[p.term]; !ok {
			index[p.term] = len(terms)
			terms = append(terms, p.term)
		}
	}

	coeffs := make([]*series, len(terms))
	err = async.ForEach(len(terms), e.opts.Workers, e.opts.Logger.Logger, func(i int) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		s, serr := e.series(m, terms[i], n)
		if serr != nil {
			return serr
		}
		coeffs[i] = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	out = make([]float64, len(points))
	chunks := (len(points) + pointChunk - 1) / pointChunk
	err = async.ForEach(chunks, e.opts.Workers, e.opts.Logger.Logger, func(ci int) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		lo := ci * pointChunk
		hi := min(lo+pointChunk, len(points))
		for i := lo; i < hi; i++ {
			p := points[i]
			s := coeffs[index[p.term]]
			disc := math.Exp(-p.term.Riskfree * p.term.Maturity)
			v := p.scale * disc * s.putValue(p.x)
			if c.Type == types.OptionTypeCall {
				// C = P + S - K·e^{-rT}
				v += p.spot - p.scale*disc
			}
			out[i] = v
		}
		if j := algomath.FirstNonFinite(out[lo:hi]); j >= 0 {
			i := lo + j
			p := points[i]
			return xerrors.ErrNonFiniteResult.
				WithDetail("model %s: premium %g at index %d (x=%g, T=%g)", m.Name(), out[i], i, p.x, p.term.Maturity).
				WithContext("index", i)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// series 返回期限 t 下的余弦系数，模型可缓存时先查缓存。
func (e *Engine) series(m charfun.Model, t charfun.Term, n int) (*series, error) {
	keyed, ok := m.(charfun.Keyed)
	if !ok || e.opts.Cache == nil {
		e.countEvaluation(m)
		return newSeries(m, t, n, e.opts.Truncation)
	}

	key := fmt.Sprintf("%s|r=%v|T=%v|N=%d|L=%v", keyed.Key(), t.Riskfree, t.Maturity, n, e.opts.Truncation)
	if hit, found := e.opts.Cache.Get(key); found && len(hit.Coef) == n {
		e.countLookup(m, "hit")
		return &series{a: hit.A, b: hit.B, coef: hit.Coef}, nil
	}
	e.countLookup(m, "miss")
	e.countEvaluation(m)

	s, err := newSeries(m, t, n, e.opts.Truncation)
	if err != nil {
		return nil, err
	}
	if err := e.opts.Cache.Set(key, cache.Series{A: s.a, B: s.b, Coef: s.coef}); err != nil {
		e.opts.Logger.Warn("cos series cache set failed", "model", m.Name(), "error", err)
	}
	return s, nil
}

func (e *Engine) countEvaluation(m charfun.Model) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.CharFuncEvaluations.WithLabelValues(m.Name()).Inc()
	}
}

func (e *Engine) countLookup(m charfun.Model, result string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.SeriesCacheLookups.WithLabelValues(m.Name(), result).Inc()
	}
}

// PriceAdaptive 从默认 N 开始加倍，直到相邻两次价格的最大绝对差小于容差。
// 返回价格与最终使用的 N；超过最大 N 仍未收敛时返回 ErrNotConverged。
func (e *Engine) PriceAdaptive(ctx context.Context, m charfun.Model, c Contract) ([]float64, int, error) {
	n := e.opts.SeriesLength
	prev, err := e.PriceN(ctx, m, c, n)
	if err != nil {
		return nil, 0, err
	}
	diff := math.Inf(1)
	for 2*n <= e.opts.MaxSeriesLength {
		n *= 2
		cur, err := e.PriceN(ctx, m, c, n)
		if err != nil {
			return nil, 0, err
		}
		diff = algomath.MaxAbsDiff(prev, cur)
		if diff < e.opts.Tolerance {
			return cur, n, nil
		}
		prev = cur
	}
	return nil, 0, xerrors.ErrNotConverged.
		WithDetail("model %s: last change %g >= tolerance %g at N=%d", m.Name(), diff, e.opts.Tolerance, n)
}

func (e *Engine) observe(ctx context.Context, m charfun.Model, n, count int, start time.Time, err error) {
	name := "unknown"
	if m != nil {
		name = m.Name()
	}
	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
		e.opts.Logger.WarnContext(ctx, "cos pricing failed", "model", name, "series_length", n, "error", err)
	} else {
		e.opts.Logger.DebugContext(ctx, "cos pricing finished", "model", name, "series_length", n, "contracts", count, "duration", elapsed)
	}

	mt := e.opts.Metrics
	if mt == nil {
		return
	}
	mt.PricingRequestsTotal.WithLabelValues(name, status).Inc()
	mt.PricingDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	mt.SeriesLength.WithLabelValues(name).Set(float64(n))
	if err == nil {
		mt.PricedContractsTotal.WithLabelValues(name).Add(float64(count))
	}
}

// String 便于日志输出。
func (e *Engine) String() string {
	return fmt.Sprintf("cos.Engine{N=%d, L=%g, workers=%d}", e.opts.SeriesLength, e.opts.Truncation, e.opts.Workers)
}
