package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"github.com/elastic/go-elasticsearch/v9/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"go.uber.org/zap"
)

type typedEsClient[D model.Document] struct {
	client  *elasticsearch.TypedClient
	index   string
	mapping *types.TypeMapping
	logger  *zap.Logger
}

// InitTypedEsClient 索引名来自配置, mapping为nil时按默认mapping创建索引
func InitTypedEsClient[D model.Document](cfg *config.Config, mapping *types.TypeMapping, logger *zap.Logger) (TypedEsClient[D], error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username: cfg.Elasticsearch.Username,
		Password: cfg.Elasticsearch.Password,
		Addresses: []string{
			cfg.Elasticsearch.Address,
		},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 跳过TLS验证（仅在开发环境中使用）
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化Elasticsearch客户端失败: %w", err)
	}
	return &typedEsClient[D]{
		client:  typedClient,
		index:   cfg.Elasticsearch.IndexName,
		mapping: mapping,
		logger:  logger,
	}, nil
}

func (tec *typedEsClient[D]) IndexName() string {
	return tec.index
}

func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	exists, err := tec.client.Indices.Exists(tec.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("检查索引是否存在失败: %w", err)
	}
	if exists {
		tec.logger.Debug("索引已存在,跳过创建", zap.String("index", tec.index))
		return nil
	}

	if tec.mapping == nil {
		_, err = tec.client.Indices.Create(tec.index).Do(ctx)
	} else {
		_, err = tec.client.Indices.Create(tec.index).Mappings(tec.mapping).Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("创建索引失败: %w", err)
	}
	tec.logger.Info("索引已创建", zap.String("index", tec.index))
	return nil
}

// DeleteIndex 索引不存在时视为已删除
func (tec *typedEsClient[D]) DeleteIndex(ctx context.Context) error {
	if _, err := tec.client.Indices.Delete(tec.index).Do(ctx); err != nil {
		var esErr *types.ElasticsearchError
		if errors.As(err, &esErr) && esErr.Status == http.StatusNotFound {
			tec.logger.Debug("索引不存在,无需删除", zap.String("index", tec.index))
			return nil
		}
		return fmt.Errorf("删除索引失败: %w", err)
	}
	tec.logger.Info("索引已删除", zap.String("index", tec.index))
	return nil
}

func (tec *typedEsClient[D]) BulkIndexDocsWithID(ctx context.Context, docs []D) error {
	if len(docs) == 0 {
		return nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         tec.index,
		Client:        tec.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024,
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			tec.logger.Warn("批量索引器错误", zap.Error(err))
		},
	})
	if err != nil {
		return fmt.Errorf("创建批量索引器失败: %w", err)
	}

	var failed atomic.Int64
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			tec.logger.Warn("序列化文档失败", zap.String("id", doc.GetID()), zap.Error(err))
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.GetID(),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					tec.logger.Warn("索引文档失败", zap.String("id", item.DocumentID), zap.Error(err))
				} else {
					tec.logger.Warn("索引文档失败", zap.String("id", item.DocumentID), zap.String("reason", res.Error.Reason))
				}
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return fmt.Errorf("添加文档到批量索引器失败: %w", err)
		}
	}

	// 刷新并关闭批量索引器（确保所有文档都被处理）
	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("关闭批量索引器失败: %w", err)
	}
	stats := bi.Stats()
	tec.logger.Info("批量索引完成",
		zap.String("index", tec.index),
		zap.Uint64("indexed", stats.NumIndexed),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d 个文档索引失败", n)
	}
	return nil
}

func (tec *typedEsClient[D]) GetDoc(ctx context.Context, id string) (D, error) {
	resp, err := tec.client.Get(tec.index, id).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取文档失败: %w", err)
	}
	if !resp.Found {
		return nil, nil
	}
	var doc D
	if err := json.Unmarshal(resp.Source_, &doc); err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}
	return doc, nil
}

func (tec *typedEsClient[D]) CountDocs(ctx context.Context) (int64, error) {
	resp, err := tec.client.Count().Index(tec.index).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("统计文档数量失败: %w", err)
	}
	return resp.Count, nil
}

// KnnSearch 在embedding字段上做近似最近邻检索
func (tec *typedEsClient[D]) KnnSearch(ctx context.Context, vector []float32, k int) ([]Hit[D], error) {
	numCandidates := max(k*20, 100)
	resp, err := tec.client.Search().Index(tec.index).
		Request(&search.Request{
			Knn: []types.KnnSearch{
				{
					Field:         "embedding",
					QueryVector:   vector,
					K:             &k,
					NumCandidates: &numCandidates,
				},
			},
			Size: &k,
		}).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("kNN检索失败: %w", err)
	}

	hits := make([]Hit[D], 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var doc D
		if err := json.Unmarshal(hit.Source_, &doc); err != nil {
			tec.logger.Debug("跳过无法解析的命中", zap.Error(err))
			continue
		}
		var score float64
		if hit.Score_ != nil {
			score = float64(*hit.Score_)
		}
		hits = append(hits, Hit[D]{Doc: doc, Score: score})
	}
	return hits, nil
}
