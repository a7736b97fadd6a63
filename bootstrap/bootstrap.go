// Package bootstrap 按全局配置组装定价运行时：日志、指标、链路追踪、余弦系数缓存与 COS 引擎。
//
// 配置热更新时按新的 pricing 节重建引擎，已注入的日志、指标与缓存保持不变。
package bootstrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	"github.com/wyfcoding/cosmethod/algorithm/finance/cos"
	"github.com/wyfcoding/cosmethod/cache"
	"github.com/wyfcoding/cosmethod/config"
	"github.com/wyfcoding/cosmethod/logging"
	"github.com/wyfcoding/cosmethod/metrics"
	"github.com/wyfcoding/cosmethod/tracing"
)

// Runtime 持有由配置构建的基础设施与当前引擎。
type Runtime struct {
	Logger  *logging.Logger
	Metrics *metrics.Metrics // metrics.enabled 为 false 时为 nil
	Cache   *cache.SeriesCache

	// MetricsAddr 是指标 HTTP 服务的实际监听地址，未暴露时为空。
	MetricsAddr string

	engine     atomic.Pointer[cos.Engine]
	stepPolicy atomic.Value // charfun.StepPolicy

	mu      sync.Mutex
	closers []func(context.Context) error
}

// New 按 cfg 构建运行时。失败时已创建的资源会被释放。
func New(cfg *config.Config) (*Runtime, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	service := cfg.Tracing.ServiceName
	if service == "" {
		service = "cosmethod"
	}

	r := &Runtime{
		Logger: logging.NewFromConfig(logging.Config{
			Service:    service,
			Module:     "cos",
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}),
	}

	if err := r.setup(cfg, service); err != nil {
		_ = r.Close(context.Background())
		return nil, err
	}
	config.Print(cfg, r.Logger.Logger)
	return r, nil
}

func (r *Runtime) setup(cfg *config.Config, service string) error {
	if cfg.Metrics.Enabled {
		r.Metrics = metrics.NewMetrics(service)
		r.Metrics.RegisterBuildInfo(service, cfg.Version)
		if cfg.Metrics.Port != "" {
			addr, stop, err := r.Metrics.ExposeHttp(cfg.Metrics.Port, cfg.Metrics.Path)
			if err != nil {
				return err
			}
			r.MetricsAddr = addr
			r.onClose(func(context.Context) error { stop(); return nil })
		}
	}

	shutdown, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	r.onClose(shutdown)

	if cfg.Cache.Enabled {
		c, err := cache.NewFromConfig(cfg.Cache)
		if err != nil {
			return err
		}
		r.Cache = c
		r.onClose(func(context.Context) error { return c.Close() })
	}

	return r.Apply(cfg.Pricing)
}

// Load 读取配置文件并构建运行时；watch 为 true 时文件变更会重建引擎。
func Load(path string, watch bool) (*Runtime, error) {
	cfg := config.Default()
	if _, err := config.Load(path, cfg, watch); err != nil {
		return nil, err
	}
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if watch {
		config.RegisterReloadHook(func(next *config.Config) {
			if err := r.Apply(next.Pricing); err != nil {
				r.Logger.Error("apply reloaded pricing config failed", "error", err)
			}
		})
	}
	return r, nil
}

// Apply 按 pricing 配置重建引擎并更新 ARG 步数策略。失败时保留原引擎。
func (r *Runtime) Apply(pc config.PricingConfig) error {
	policy, err := charfun.ParseStepPolicy(pc.StepPolicy)
	if err != nil {
		return err
	}
	opts := []cos.Option{cos.WithLogger(r.Logger)}
	if r.Metrics != nil {
		opts = append(opts, cos.WithMetrics(r.Metrics))
	}
	if r.Cache != nil {
		opts = append(opts, cos.WithSeriesCache(r.Cache))
	}
	e, err := cos.NewEngineFromConfig(pc, opts...)
	if err != nil {
		return err
	}
	r.engine.Store(e)
	r.stepPolicy.Store(policy)
	r.Logger.Info("pricing engine ready", "engine", e.String(), "step_policy", policy.String())
	return nil
}

// Engine 返回当前引擎。
func (r *Runtime) Engine() *cos.Engine {
	return r.engine.Load()
}

// StepPolicy 返回配置的 ARG 步数策略。
func (r *Runtime) StepPolicy() charfun.StepPolicy {
	p, _ := r.stepPolicy.Load().(charfun.StepPolicy)
	return p
}

// NewARG 以配置的步数策略创建 ARG 模型，覆盖 params.StepPolicy。
func (r *Runtime) NewARG(params charfun.ARGParams, terms charfun.Terms) (*charfun.ARG, error) {
	params.StepPolicy = r.StepPolicy()
	return charfun.NewARG(params, terms)
}

// Close 按创建的逆序释放资源。
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) onClose(fn func(context.Context) error) {
	r.mu.Lock()
	r.closers = append(r.closers, fn)
	r.mu.Unlock()
}
