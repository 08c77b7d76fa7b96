package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/parallel"
	"github.com/LouYuanbo1/serpagent/param"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// parallelService 浏览器池并发处理, 查询的开始时间由共享的限流器隔开
type parallelService struct {
	runner
	pool parallel.BrowserPool
}

func InitParallelService(
	pool parallel.BrowserPool,
	store RunStore,
	indexer QuestionIndexer,
	logger *zap.Logger,
	opts ...Option,
) SerpService {
	return &parallelService{
		runner: newRunner(store, indexer, logger, opts),
		pool:   pool,
	}
}

type job struct {
	index int
	query entity.Query
}

func (ps *parallelService) Run(ctx context.Context, run *model.Run, queries []entity.Query, p *param.Extract, onProgress ProgressFunc) ([]*model.SerpResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if onProgress == nil {
		onProgress = noProgress
	}
	total := len(queries)
	ps.begin(ctx, run, total)

	jobCh := make(chan job, total)
	for i, q := range queries {
		jobCh <- job{index: i, query: q}
	}
	close(jobCh)

	limiter := ps.opts.limiter(p.Delay)
	slots := make([]*model.SerpResult, total)
	var (
		started atomic.Int64
		done    atomic.Int64
		mu      sync.Mutex
	)
	report := func(pr model.Progress) {
		mu.Lock()
		defer mu.Unlock()
		onProgress(pr)
	}

	g, gctx := errgroup.WithContext(ctx)
	for workerID := range min(ps.pool.Size(), total) {
		g.Go(func() error {
			for j := range jobCh {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
				jitter := time.Duration(ps.opts.rand() * float64(p.DelayJitter))
				if err := ps.opts.sleep(gctx, jitter); err != nil {
					return err
				}
				msg := progressMessage(int(started.Add(1)), total, j.query)
				report(model.Progress{RunID: run.ID, Index: int(done.Load()), Total: total, Message: msg})

				res, err := ps.extractWith(gctx, j.query, p)
				if err != nil {
					return err
				}
				slots[j.index] = res
				ps.save(gctx, run.ID, res)
				report(model.Progress{RunID: run.ID, Index: int(done.Add(1)), Total: total, Message: msg, Result: res})
				ps.logger.Debug("worker完成一行", zap.Int("worker", workerID), zap.Int("row", j.query.Row))
			}
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	// 按输入顺序返回, 取消时只保留已完成的行
	results := make([]*model.SerpResult, 0, total)
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	ps.finish(ctx, run, results, runErr)
	return results, runErr
}

func (ps *parallelService) extractWith(ctx context.Context, q entity.Query, p *param.Extract) (*model.SerpResult, error) {
	crawler, release, err := ps.pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ps.logger.Warn("获取浏览器失败", zap.Error(err))
		return ps.extractor.errorResult(q, p, err), nil
	}
	defer release()
	return ps.extractor.ExtractOne(ctx, crawler, q, p)
}
