// Package config 提供统一的配置加载与管理能力（TOML + 环境变量 + 热更新）。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wyfcoding/cosmethod/logging"
)

// Config 全局顶级配置结构.
type Config struct {
	Version string        `mapstructure:"version" toml:"version"`
	Log     LogConfig     `mapstructure:"log"     toml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" toml:"tracing"`
	Cache   CacheConfig   `mapstructure:"cache"   toml:"cache"`
	Pricing PricingConfig `mapstructure:"pricing" toml:"pricing"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`        // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"` // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`     // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 链路追踪（OpenTelemetry OTLP）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// CacheConfig 余弦系数本地缓存配置.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"      toml:"ttl"`
	MaxMB   int           `mapstructure:"max_mb"   toml:"max_mb"   validate:"min=0"`
	Shards  int           `mapstructure:"shards"   toml:"shards"   validate:"omitempty,min=1"`
	Enabled bool          `mapstructure:"enabled"  toml:"enabled"`
}

// PricingConfig 定义 COS 定价的数值旋钮。
//
// Truncation 是截断乘子 L：过小会截掉概率质量造成偏差；SeriesLength 是级数项数 N：
// 过小会留下级数收敛误差。Tolerance 与 MaxSeriesLength 用于自适应加倍 N。
type PricingConfig struct {
	SeriesLength    int     `mapstructure:"series_length"     toml:"series_length"     validate:"min=2"`
	MaxSeriesLength int     `mapstructure:"max_series_length" toml:"max_series_length" validate:"gtefield=SeriesLength"`
	Truncation      float64 `mapstructure:"truncation"        toml:"truncation"        validate:"gt=0"`
	Tolerance       float64 `mapstructure:"tolerance"         toml:"tolerance"         validate:"gt=0"`
	Workers         int     `mapstructure:"workers"           toml:"workers"           validate:"min=0"`
	StepPolicy      string  `mapstructure:"step_policy"       toml:"step_policy"       validate:"omitempty,oneof=nearest floor ceil"`
}

// 默认值。
const (
	DefaultSeriesLength    = 1 << 10
	DefaultMaxSeriesLength = 1 << 16
	DefaultTruncation      = 10.0
	DefaultTolerance       = 1e-8
)

// Default 返回带默认值的配置.
func Default() *Config {
	return &Config{
		Version: "dev",
		Log:     LogConfig{Level: "info"},
		Tracing: TracingConfig{ServiceName: "cosmethod", SamplerRatio: 1},
		Cache:   CacheConfig{TTL: 10 * time.Minute, MaxMB: 64},
		Pricing: DefaultPricing(),
	}
}

// DefaultPricing 返回默认的定价配置.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		SeriesLength:    DefaultSeriesLength,
		MaxSeriesLength: DefaultMaxSeriesLength,
		Truncation:      DefaultTruncation,
		Tolerance:       DefaultTolerance,
		StepPolicy:      "nearest",
	}
}

var (
	mu       sync.Mutex
	onReload []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Validate 校验配置结构体.
func Validate(conf *Config) error {
	if err := validator.New().Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Load 读取 TOML 配置文件到 conf，未出现的键保留 conf 中已有的值。
// 环境变量以 APP_ 为前缀覆盖，例如 APP_PRICING_SERIES_LENGTH。
// watch 为 true 时监听文件变化并在校验通过后热更新。
func Load(path string, conf *Config, watch bool) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := Validate(conf); err != nil {
		return nil, err
	}
	logging.SetLevel(conf.Log.Level)

	if !watch {
		return v, nil
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := *conf
		if err := v.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(&next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		*conf = next
		logging.SetLevel(conf.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		mu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()
		for _, hook := range hooks {
			hook(conf)
		}
	})
	v.WatchConfig()

	return v, nil
}

// Print 以 info 级别输出当前生效配置.
func Print(conf *Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := json.Marshal(conf)
	if err != nil {
		logger.Error("failed to marshal config for printing", "error", err)
		return
	}
	logger.Info("current effective configuration", "config", string(data))
}
