package service

import (
	"context"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/param"
	"go.uber.org/zap"
)

// serpService 单个浏览器会话,逐行处理
type serpService struct {
	runner
	crawler chrome.ChromeCrawler
}

// InitSerpService store和indexer可以为nil
func InitSerpService(
	crawler chrome.ChromeCrawler,
	store RunStore,
	indexer QuestionIndexer,
	logger *zap.Logger,
	opts ...Option,
) SerpService {
	return &serpService{
		runner:  newRunner(store, indexer, logger, opts),
		crawler: crawler,
	}
}

func (ss *serpService) Run(ctx context.Context, run *model.Run, queries []entity.Query, p *param.Extract, onProgress ProgressFunc) ([]*model.SerpResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if onProgress == nil {
		onProgress = noProgress
	}
	total := len(queries)
	ss.begin(ctx, run, total)

	results := make([]*model.SerpResult, 0, total)
	var runErr error
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		msg := progressMessage(i+1, total, q)
		onProgress(model.Progress{RunID: run.ID, Index: i, Total: total, Message: msg})

		res, err := ss.extractor.ExtractOne(ctx, ss.crawler, q, p)
		if err != nil {
			runErr = err
			break
		}
		results = append(results, res)
		ss.save(ctx, run.ID, res)
		onProgress(model.Progress{RunID: run.ID, Index: i + 1, Total: total, Message: msg, Result: res})

		if i < total-1 {
			wait := p.Delay + time.Duration(ss.opts.rand()*float64(p.DelayJitter))
			if err := ss.opts.sleep(ctx, wait); err != nil {
				runErr = err
				break
			}
		}
	}
	ss.finish(ctx, run, results, runErr)
	return results, runErr
}
