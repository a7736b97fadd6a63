package bootstrap

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/cosmethod/algorithm/finance/charfun"
	"github.com/wyfcoding/cosmethod/algorithm/finance/cos"
	"github.com/wyfcoding/cosmethod/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Version = "v1.0.0"
	cfg.Log.File = filepath.Join(t.TempDir(), "cos.log")
	cfg.Metrics = config.MetricsConfig{Enabled: true, Port: "0", Path: "/metrics"}
	cfg.Cache.Enabled = true
	cfg.Pricing.StepPolicy = "ceil"
	return cfg
}

func newRuntime(t *testing.T, cfg *config.Config) *Runtime {
	t.Helper()
	r, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, r.Close(context.Background())) })
	return r
}

func TestNewWiresConfiguredComponents(t *testing.T) {
	r := newRuntime(t, testConfig(t))
	require.NotNil(t, r.Engine())
	require.NotNil(t, r.Cache)
	require.NotNil(t, r.Metrics)
	assert.Equal(t, config.DefaultSeriesLength, r.Engine().SeriesLength())
	assert.Equal(t, charfun.StepCeil, r.StepPolicy())

	m, err := charfun.NewGBM(charfun.GBMParams{Sigma: 0.2}, charfun.At(0.05, 1))
	require.NoError(t, err)
	first, err := r.Engine().Price(m, cos.Call(100, 100))
	require.NoError(t, err)
	second, err := r.Engine().Price(m, cos.Call(100, 100))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.SeriesCacheLookups.WithLabelValues("gbm", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.CharFuncEvaluations.WithLabelValues("gbm")))

	_, port, err := net.SplitHostPort(r.MetricsAddr)
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `version="v1.0.0"`)
	assert.Contains(t, string(body), `cos_priced_contracts_total{model="gbm"} 2`)
}

func TestNewARGUsesConfiguredStepPolicy(t *testing.T) {
	r := newRuntime(t, testConfig(t))
	params := charfun.ARGParams{Rho: 0.9, Delta: 1, Scale: 1e-5, Var0: 1e-4, StepPolicy: charfun.StepFloor}

	m, err := r.NewARG(params, charfun.At(0.01, 2.2/365))
	require.NoError(t, err)
	assert.Equal(t, charfun.StepCeil, m.Params().StepPolicy)
	assert.Equal(t, 3, m.Steps(2.2/365))

	require.NoError(t, r.Apply(config.PricingConfig{
		SeriesLength: 512, MaxSeriesLength: 4096, Truncation: 10, Tolerance: 1e-8, StepPolicy: "floor",
	}))
	m, err = r.NewARG(params, charfun.At(0.01, 2.2/365))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Steps(2.2/365))
	assert.Equal(t, 512, r.Engine().SeriesLength())
}

func TestApplyKeepsEngineOnError(t *testing.T) {
	r := newRuntime(t, testConfig(t))
	before := r.Engine()

	bad := config.DefaultPricing()
	bad.StepPolicy = "sideways"
	assert.Error(t, r.Apply(bad))

	bad = config.DefaultPricing()
	bad.Truncation = -1
	assert.Error(t, r.Apply(bad))

	assert.Same(t, before, r.Engine())
	assert.Equal(t, charfun.StepCeil, r.StepPolicy())
}

func TestOptionalComponentsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	cfg.Cache.Enabled = false
	r := newRuntime(t, cfg)
	assert.Nil(t, r.Metrics)
	assert.Nil(t, r.Cache)
	assert.Empty(t, r.MetricsAddr)

	m, err := charfun.NewGBM(charfun.GBMParams{Sigma: 0.2}, charfun.At(0.05, 1))
	require.NoError(t, err)
	got, err := r.Engine().Price(m, cos.Call(100, 100))
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, got[0], 1e-8)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tracing.SamplerRatio = 3
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Metrics.Port = "not-a-port"
	_, err = New(cfg)
	assert.Error(t, err)
}

const fileConfig = `
[log]
file = "%s"

[pricing]
series_length = 1024
max_series_length = 8192
truncation = 10.0
tolerance = 1e-8
step_policy = "nearest"
`

func TestLoadReloadsEngine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Replace(fileConfig, "%s", filepath.Join(dir, "cos.log"), 1)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	r, err := Load(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	assert.Equal(t, 1024, r.Engine().SeriesLength())
	assert.Equal(t, charfun.StepNearest, r.StepPolicy())

	body = strings.Replace(body, "series_length = 1024", "series_length = 2048", 1)
	body = strings.Replace(body, `step_policy = "nearest"`, `step_policy = "floor"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	assert.Eventually(t, func() bool {
		return r.Engine().SeriesLength() == 2048 && r.StepPolicy() == charfun.StepFloor
	}, 5*time.Second, 50*time.Millisecond)
}
