package es

import (
	"context"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
)

// Hit kNN检索命中的文档及其得分
type Hit[D model.Document] struct {
	Doc   D
	Score float64
}

type TypedEsClient[D model.Document] interface {
	IndexName() string
	CreateIndexWithMapping(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	BulkIndexDocsWithID(ctx context.Context, docs []D) error
	GetDoc(ctx context.Context, id string) (D, error)
	CountDocs(ctx context.Context) (int64, error)
	KnnSearch(ctx context.Context, vector []float32, k int) ([]Hit[D], error)
}
