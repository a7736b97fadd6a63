// Package async 提供带 panic 恢复的有界并发执行工具。
package async

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/sourcegraph/conc/pool"
)

var (
	// ErrPanicRecovered 表示异步任务中恢复的 panic。
	ErrPanicRecovered = errors.New("async task panic recovered")
)

// RunGroup 类似于 errgroup，但限制并发数并把 panic 转换为错误。
type RunGroup struct {
	p      *pool.ErrorPool
	logger *slog.Logger
}

// NewRunGroup 创建任务组。limit <= 0 表示不限制并发数。
func NewRunGroup(limit int, logger *slog.Logger) *RunGroup {
	p := pool.New().WithErrors().WithFirstError()
	if limit > 0 {
		p = p.WithMaxGoroutines(limit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunGroup{p: p, logger: logger}
}

// Go 在组中启动一个任务。
func (g *RunGroup) Go(fn func() error) {
	g.p.Go(func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("%w: %v", ErrPanicRecovered, rec)
				g.logger.Error("Async task panic recovered", "error", err, "stack", string(debug.Stack()))
			}
		}()
		return fn()
	})
}

// Wait 等待所有任务完成，并返回第一个错误（如果有）。
func (g *RunGroup) Wait() error {
	return g.p.Wait()
}

// ForEach 以至多 limit 个并发执行 fn(0..n-1)，返回第一个错误。
// n 为 1 或 limit 为 1 时在调用方 goroutine 内顺序执行。
func ForEach(n, limit int, logger *slog.Logger, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if n == 1 || limit == 1 {
		for i := range n {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	g := NewRunGroup(limit, logger)
	for i := range n {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
