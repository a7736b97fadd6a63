package metrics

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics("cos-test")
	m.RegisterBuildInfo("cos-test", "v0.1.0")
	m.RegisterBuildInfo("ignored", "twice")
	m.PricingRequestsTotal.WithLabelValues("gbm", "ok").Inc()
	m.PricingDuration.WithLabelValues("gbm").Observe(0.002)
	m.SeriesLength.WithLabelValues("gbm").Set(1024)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingRequestsTotal.WithLabelValues("gbm", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, fmt.Sprintf(`build_info{go_version=%q,service="cos-test",version="v0.1.0"} 1`, runtime.Version()))
	assert.Contains(t, text, `cos_pricing_requests_total{model="gbm",status="ok"} 1`)
	assert.Contains(t, text, `cos_series_length{model="gbm"} 1024`)
	assert.Contains(t, text, "cos_pricing_duration_seconds_bucket")
	assert.NotContains(t, text, "ignored")
}

func TestExposeHttp(t *testing.T) {
	m := NewMetrics("cos-test")
	m.SeriesLength.WithLabelValues("heston").Set(2048)

	addr, stop, err := m.ExposeHttp("0", "/prom")
	require.NoError(t, err)
	t.Cleanup(stop)
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	resp, err := http.Get("http://127.0.0.1:" + port + "/prom")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cos_series_length{model="heston"} 2048`)

	_, _, err = m.ExposeHttp("not-a-port", "")
	assert.Error(t, err)
}
