package cos

import (
	"runtime"

	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	"github.com/wyfcoding/cosmethod/cache"
	"github.com/wyfcoding/cosmethod/config"
	"github.com/wyfcoding/cosmethod/logging"
	"github.com/wyfcoding/cosmethod/metrics"
	"github.com/wyfcoding/cosmethod/xerrors"
)

type engineOptions struct {
	Logger          *logging.Logger
	Metrics         *metrics.Metrics
	Cache           *cache.SeriesCache
	SeriesLength    int
	MaxSeriesLength int
	Truncation      float64
	Tolerance       float64
	Workers         int
}

// Option 定义引擎配置选项。
type Option func(*engineOptions)

// WithSeriesLength 设置级数项数 N。N 越大越精确，代价线性增长。
func WithSeriesLength(n int) Option {
	return func(o *engineOptions) {
		o.SeriesLength = n
	}
}

// WithMaxSeriesLength 设置自适应定价允许的最大 N。
func WithMaxSeriesLength(n int) Option {
	return func(o *engineOptions) {
		o.MaxSeriesLength = n
	}
}

// WithTruncation 设置截断乘子 L。L 过小会截掉概率质量造成偏差。
func WithTruncation(l float64) Option {
	return func(o *engineOptions) {
		o.Truncation = l
	}
}

// WithTolerance 设置自适应定价的收敛容差（N 加倍前后价格的最大绝对差）。
func WithTolerance(tol float64) Option {
	return func(o *engineOptions) {
		o.Tolerance = tol
	}
}

// WithWorkers 设置并发度，<= 0 使用 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(o *engineOptions) {
		o.Workers = n
	}
}

// WithLogger 注入日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(o *engineOptions) {
		o.Logger = l
	}
}

// WithMetrics 注入指标采集器。
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) {
		o.Metrics = m
	}
}

// WithSeriesCache 启用余弦系数缓存，仅对实现 charfun.Keyed 的模型生效。
func WithSeriesCache(c *cache.SeriesCache) Option {
	return func(o *engineOptions) {
		o.Cache = c
	}
}

func defaultOptions() *engineOptions {
	return &engineOptions{
		SeriesLength:    config.DefaultSeriesLength,
		MaxSeriesLength: config.DefaultMaxSeriesLength,
		Truncation:      charfun.DefaultTruncation,
		Tolerance:       config.DefaultTolerance,
	}
}

func (o *engineOptions) finish() error {
	if o.SeriesLength < 2 {
		return xerrors.ErrInvalidConfig.WithDetail("series length %d < 2", o.SeriesLength)
	}
	if o.MaxSeriesLength < o.SeriesLength {
		o.MaxSeriesLength = o.SeriesLength
	}
	if !(o.Truncation > 0) {
		return xerrors.ErrInvalidConfig.WithDetail("truncation %g must be positive", o.Truncation)
	}
	if !(o.Tolerance > 0) {
		return xerrors.ErrInvalidConfig.WithDetail("tolerance %g must be positive", o.Tolerance)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return nil
}
