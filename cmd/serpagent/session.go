package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/parallel"
	"github.com/LouYuanbo1/serpagent/internal/infra/embedding"
	"github.com/LouYuanbo1/serpagent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/serpagent/internal/infra/persistence/sqlite"
	service "github.com/LouYuanbo1/serpagent/internal/service/serp"
	"go.uber.org/zap"
)

var (
	errNoStorage       = errors.New("storage.dir 未配置, 没有运行历史")
	errNoIndex         = errors.New("需要同时启用 elasticsearch 和 embedder")
	errNoElasticsearch = errors.New("elasticsearch 未启用")
)

// initCrawler 根据配置的驱动创建单个浏览器会话
func initCrawler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chrome.ChromeCrawler, error) {
	switch cfg.Extract.Driver {
	case config.DriverRod:
		return chrome.InitRodCrawler(cfg, logger)
	case config.DriverColly:
		return collector.InitCollyCrawler(cfg, logger)
	default:
		return chrome.InitChromedpCrawler(ctx, cfg, logger)
	}
}

// newSession 创建一次运行使用的服务, closeFn关闭浏览器
func newSession(ctx context.Context, cfg *config.Config, store service.RunStore, indexer service.QuestionIndexer, logger *zap.Logger) (service.SerpService, func(), error) {
	if cfg.Extract.Parallel > 1 {
		pool, err := parallel.InitRodBrowserPool(cfg, cfg.Extract.Parallel, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("初始化浏览器池失败: %w", err)
		}
		return service.InitParallelService(pool, store, indexer, logger), pool.Close, nil
	}
	crawler, err := initCrawler(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化%s驱动失败: %w", cfg.Extract.Driver, err)
	}
	return service.InitSerpService(crawler, store, indexer, logger), crawler.Close, nil
}

// openStore 未配置storage.dir时返回nil
func openStore(cfg *config.Config) (*sqlite.Store, error) {
	if cfg.Storage.Dir == "" {
		return nil, nil
	}
	store, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("打开运行历史失败: %w", err)
	}
	return store, nil
}

// openQuestionIndex 未启用elasticsearch时返回nil
func openQuestionIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.QuestionIndex, error) {
	if !cfg.Elasticsearch.Enabled {
		return nil, nil
	}
	//运行前确保es服务启动完成
	client, err := es.InitTypedEsClient[*model.QuestionDoc](cfg, model.QuestionTypeMapping(cfg.Elasticsearch.Dims), logger)
	if err != nil {
		return nil, fmt.Errorf("初始化Elasticsearch客户端失败: %w", err)
	}
	var embedder embedding.Embedder
	if cfg.Embedder.Enabled {
		embedder, err = embedding.InitEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("初始化Embedder失败: %w", err)
		}
	}
	return service.InitQuestionIndex(client, embedder, logger), nil
}

// backends 可选的存储和索引, 没有配置的保持为nil接口
type backends struct {
	sqlite  *sqlite.Store
	store   service.RunStore
	indexer service.QuestionIndexer
}

func (a *app) openBackends(ctx context.Context) (*backends, error) {
	b := &backends{}
	store, err := openStore(a.cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		b.sqlite = store
		b.store = store
	}
	index, err := openQuestionIndex(ctx, a.cfg, a.logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	if index != nil {
		b.indexer = index
	}
	return b, nil
}

func (b *backends) Close() {
	if b.sqlite != nil {
		_ = b.sqlite.Close()
	}
}
