package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"go.uber.org/zap"
)

// runner 两种服务共用的运行记录、保存与索引逻辑
type runner struct {
	store     RunStore
	indexer   QuestionIndexer
	extractor *Extractor
	opts      *options
	logger    *zap.Logger
}

func newRunner(store RunStore, indexer QuestionIndexer, logger *zap.Logger, opts []Option) runner {
	if store == nil {
		store = nopStore{}
	}
	o := newOptions(opts)
	return runner{
		store:     store,
		indexer:   indexer,
		extractor: &Extractor{opts: o, logger: logger},
		opts:      o,
		logger:    logger,
	}
}

func (r *runner) begin(ctx context.Context, run *model.Run, total int) {
	run.Total = total
	run.Processed = 0
	run.Status = model.RunRunning
	run.FinishedAt = nil
	if run.StartedAt.IsZero() {
		run.StartedAt = r.opts.now()
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		r.logger.Warn("保存运行记录失败", zap.String("run_id", run.ID), zap.Error(err))
	}
	r.logger.Info("开始提取", zap.String("run_id", run.ID), zap.Int("total", total))
}

func (r *runner) save(ctx context.Context, runID string, res *model.SerpResult) {
	if err := r.store.SaveResult(ctx, runID, res); err != nil {
		r.logger.Warn("保存结果失败", zap.String("run_id", runID), zap.String("keyword", res.Keyword), zap.Error(err))
	}
}

// finish ctx可能已取消, 收尾写入使用不随之取消的ctx
func (r *runner) finish(ctx context.Context, run *model.Run, results []*model.SerpResult, runErr error) {
	ctx = context.WithoutCancel(ctx)
	now := r.opts.now()
	run.FinishedAt = &now
	run.Processed = len(results)
	switch {
	case runErr == nil:
		run.Status = model.RunDone
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		run.Status = model.RunCancelled
	default:
		run.Status = model.RunFailed
	}
	if err := r.store.FinishRun(ctx, run.ID, run.Status, run.Processed, now); err != nil {
		r.logger.Warn("更新运行记录失败", zap.String("run_id", run.ID), zap.Error(err))
	}
	if r.indexer != nil && len(results) > 0 {
		if err := r.indexer.IndexResults(ctx, run.ID, results); err != nil {
			r.logger.Warn("索引问题失败", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	r.logger.Info("提取结束",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("processed", run.Processed),
		zap.Int("total", run.Total),
	)
}

func progressMessage(n, total int, q entity.Query) string {
	country := strings.ToUpper(strings.TrimSpace(q.Country))
	if country == "" {
		country = "US"
	}
	return fmt.Sprintf("Processing %d/%d: %s (%s)", n, total, q.Keyword, country)
}

func noProgress(model.Progress) {}
