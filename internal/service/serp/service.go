package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/param"
	"golang.org/x/time/rate"
)

// ProgressFunc 每行开始和结束时各调用一次, 可能在多个goroutine中被调用
type ProgressFunc func(model.Progress)

type SerpService interface {
	// Run 依次处理所有查询, 单行失败只记录占位结果, ctx取消时返回已完成的结果和ctx错误
	Run(ctx context.Context, run *model.Run, queries []entity.Query, params *param.Extract, onProgress ProgressFunc) ([]*model.SerpResult, error)
}

// RunStore 保存运行记录和逐行结果
type RunStore interface {
	CreateRun(ctx context.Context, run *model.Run) error
	SaveResult(ctx context.Context, runID string, r *model.SerpResult) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, processed int, finishedAt time.Time) error
}

// QuestionIndexer 运行结束后把问题写入检索索引
type QuestionIndexer interface {
	IndexResults(ctx context.Context, runID string, results []*model.SerpResult) error
}

type options struct {
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
	now   func() time.Time
	// limiter 并发模式下控制查询开始的间隔
	limiter func(delay time.Duration) *rate.Limiter
}

type Option func(*options)

// WithSleep 替换等待函数, 测试中使用
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithRand 替换[0,1)随机数来源
func WithRand(rand func() float64) Option {
	return func(o *options) { o.rand = rand }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLimiter(limiter func(delay time.Duration) *rate.Limiter) Option {
	return func(o *options) { o.limiter = limiter }
}

func everyDelay(delay time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(delay), 1)
}

func newOptions(opts []Option) *options {
	o := &options{
		sleep: sleepContext,
		rand:  rand.Float64,
		now:   time.Now,

		limiter: everyDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// uniform 返回[lo, hi]区间内的随机时长
func (o *options) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(o.rand()*float64(hi-lo))
}

type nopStore struct{}

func (nopStore) CreateRun(context.Context, *model.Run) error { return nil }
func (nopStore) SaveResult(context.Context, string, *model.SerpResult) error { return nil }
func (nopStore) FinishRun(context.Context, string, model.RunStatus, int, time.Time) error {
	return nil
}
