// Package cache 提供余弦系数的本地缓存，底层为 allegro/bigcache。
//
// 同一模型参数、期限、N 与 L 下的余弦系数是确定的，重复定价（如行情刷新时的同一曲面）
// 可以直接复用，省去特征函数求值。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/wyfcoding/cosmethod/config"
)

// Series 是一个期限下的截断区间与余弦系数。
type Series struct {
	A    float64   `json:"a"`
	B    float64   `json:"b"`
	Coef []float64 `json:"coef"`
}

// SeriesCache 以字符串键缓存 Series。并发安全。
type SeriesCache struct {
	cache *bigcache.BigCache
}

// NewSeriesCache 创建缓存。ttl 为全局过期时间，maxMB 为容量上限（0 表示不限）。
func NewSeriesCache(ttl time.Duration, maxMB int) (*SeriesCache, error) {
	return NewFromConfig(config.CacheConfig{TTL: ttl, MaxMB: maxMB})
}

// NewFromConfig 由配置创建缓存。
func NewFromConfig(cfg config.CacheConfig) (*SeriesCache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	conf := bigcache.DefaultConfig(ttl)
	conf.HardMaxCacheSize = cfg.MaxMB
	conf.CleanWindow = time.Minute
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	conf.Verbose = false

	c, err := bigcache.New(context.Background(), conf)
	if err != nil {
		return nil, fmt.Errorf("初始化 bigcache 失败: %w", err)
	}
	return &SeriesCache{cache: c}, nil
}

// Get 读取键对应的系数；未命中或数据损坏时返回 false。
func (c *SeriesCache) Get(key string) (Series, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return Series{}, false
	}
	var s Series
	if err := json.Unmarshal(data, &s); err != nil {
		return Series{}, false
	}
	return s, true
}

// Set 写入系数。
func (c *SeriesCache) Set(key string, s Series) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.cache.Set(key, data)
}

// Delete 删除键，键不存在不视为错误。
func (c *SeriesCache) Delete(keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Len 返回当前条目数。
func (c *SeriesCache) Len() int {
	return c.cache.Len()
}

// Reset 清空缓存。
func (c *SeriesCache) Reset() error {
	return c.cache.Reset()
}

// Close 释放后台清理协程。
func (c *SeriesCache) Close() error {
	return c.cache.Close()
}
