package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBuildInfo 注册 build_info 指标（值恒为 1），重复调用只保留第一次的标签。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	labels := []string{serviceName, version, runtime.Version()}
	for i, v := range labels {
		if v == "" {
			labels[i] = "unknown"
		}
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build information of the pricing runtime",
	}, []string{"service", "version", "go_version"})
	m.BuildInfo.WithLabelValues(labels...).Set(1)
}
