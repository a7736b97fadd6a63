// Package metrics 封装基于 Prometheus 的指标注册表及定价相关的标准指标。
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 封装了独立的 Prometheus 注册表及预定义的定价指标。
type Metrics struct {
	registry *prometheus.Registry

	PricingRequestsTotal *prometheus.CounterVec   // 定价调用总量 (维度: model, status)
	PricingDuration      *prometheus.HistogramVec // 定价耗时分布 (维度: model)
	PricedContractsTotal *prometheus.CounterVec   // 已定价合约数量 (维度: model)
	CharFuncEvaluations  *prometheus.CounterVec   // 特征函数求值次数 (维度: model)
	SeriesLength         *prometheus.GaugeVec     // 最近一次使用的级数长度 (维度: model)
	SeriesCacheLookups   *prometheus.CounterVec   // 余弦系数缓存查询 (维度: model, result)
	BuildInfo            *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器，并注册 Go 运行时与进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.PricingRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "cos_pricing_requests_total",
		Help: "Total number of COS pricing calls",
	}, []string{"model", "status"})

	m.PricingDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cos_pricing_duration_seconds",
		Help:    "COS pricing latency in seconds",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
	}, []string{"model"})

	m.PricedContractsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "cos_priced_contracts_total",
		Help: "Total number of contracts priced",
	}, []string{"model"})

	m.CharFuncEvaluations = m.NewCounterVec(prometheus.CounterOpts{
		Name: "cos_charfunc_evaluations_total",
		Help: "Total number of characteristic function vector evaluations",
	}, []string{"model"})

	m.SeriesLength = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cos_series_length",
		Help: "Series length used by the last pricing call",
	}, []string{"model"})

	m.SeriesCacheLookups = m.NewCounterVec(prometheus.CounterOpts{
		Name: "cos_series_cache_lookups_total",
		Help: "Cosine coefficient cache lookups by result (hit, miss)",
	}, []string{"model", "result"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry 返回底层注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHttp 在指定端口启动一个独立的 HTTP 服务器，在 path（默认 /metrics）上暴露指标。
// 端口监听失败时立即返回错误；返回实际监听地址与优雅关闭函数。
func (m *Metrics) ExposeHttp(port, path string) (string, func(), error) {
	if path == "" {
		path = "/metrics"
	}
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listen on %q: %w", port, err)
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}, nil
}
