package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/embedding"
	"github.com/LouYuanbo1/serpagent/internal/infra/persistence/es"
	"go.uber.org/zap"
)

var (
	ErrNoEmbedder       = errors.New("embedder not configured")
	ErrQuestionNotFound = errors.New("question not found")
)

// QuestionIndex 把PAA/PASF文本写入Elasticsearch, 并支持按语义检索
type QuestionIndex struct {
	typedEsClient es.TypedEsClient[*model.QuestionDoc]
	embedder      embedding.Embedder
	logger        *zap.Logger
}

// InitQuestionIndex embedder为nil时只写入文本, 不生成向量
func InitQuestionIndex(
	typedEsClient es.TypedEsClient[*model.QuestionDoc],
	embedder embedding.Embedder,
	logger *zap.Logger,
) *QuestionIndex {
	return &QuestionIndex{
		typedEsClient: typedEsClient,
		embedder:      embedder,
		logger:        logger,
	}
}

func (qi *QuestionIndex) IndexResults(ctx context.Context, runID string, results []*model.SerpResult) error {
	var docs []*model.QuestionDoc
	for _, r := range results {
		if r.Status != model.StatusOK {
			continue
		}
		docs = append(docs, model.QuestionDocs(runID, r)...)
	}
	if len(docs) == 0 {
		return nil
	}
	if err := qi.typedEsClient.CreateIndexWithMapping(ctx); err != nil {
		return err
	}
	if qi.embedder != nil {
		if err := qi.embedDocs(ctx, docs); err != nil {
			return err
		}
	}
	if err := qi.typedEsClient.BulkIndexDocsWithID(ctx, docs); err != nil {
		return fmt.Errorf("写入问题索引失败: %w", err)
	}
	qi.logger.Info("问题已写入索引", zap.String("run_id", runID), zap.Int("docs", len(docs)))
	return nil
}

func (qi *QuestionIndex) embedDocs(ctx context.Context, docs []*model.QuestionDoc) error {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.GetEmbeddingString())
	}
	vectors, err := embedding.EmbedAll(ctx, qi.embedder, texts)
	if err != nil {
		return fmt.Errorf("生成问题向量失败: %w", err)
	}
	for i, v := range vectors {
		docs[i].SetEmbedding(v)
	}
	return nil
}

// Search 对query生成向量后做kNN检索
func (qi *QuestionIndex) Search(ctx context.Context, query string, k int) ([]es.Hit[*model.QuestionDoc], error) {
	if qi.embedder == nil {
		return nil, ErrNoEmbedder
	}
	vectors, err := qi.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询向量失败: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("生成查询向量失败: 返回为空")
	}
	return qi.typedEsClient.KnnSearch(ctx, vectors[0], k)
}

// IndexStats 索引名和当前文档数
type IndexStats struct {
	Index string
	Docs  int64
}

func (qi *QuestionIndex) Stats(ctx context.Context) (IndexStats, error) {
	n, err := qi.typedEsClient.CountDocs(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{Index: qi.typedEsClient.IndexName(), Docs: n}, nil
}

// Reset 删除索引后按当前mapping重建, 维度变化后需要重建
func (qi *QuestionIndex) Reset(ctx context.Context) error {
	if err := qi.typedEsClient.DeleteIndex(ctx); err != nil {
		return err
	}
	if err := qi.typedEsClient.CreateIndexWithMapping(ctx); err != nil {
		return err
	}
	qi.logger.Info("问题索引已重建", zap.String("index", qi.typedEsClient.IndexName()))
	return nil
}

// Get 按文档ID读取, 不存在时返回ErrQuestionNotFound
func (qi *QuestionIndex) Get(ctx context.Context, id string) (*model.QuestionDoc, error) {
	doc, err := qi.typedEsClient.GetDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return doc, nil
}
