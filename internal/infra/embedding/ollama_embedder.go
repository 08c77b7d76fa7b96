package embedding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/cloudwego/eino-ext/components/embedding/ollama"
)

type ollamaEmbedder struct {
	model     *ollama.Embedder
	batchSize int
}

// InitEmbedder 初始化ollama嵌入模型, host未带协议时默认http
func InitEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	host := cfg.Embedder.Host
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	model, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: host + ":" + strconv.Itoa(cfg.Embedder.Port),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化ollama嵌入模型失败: %w", err)
	}
	return &ollamaEmbedder{model: model, batchSize: cfg.Embedder.BatchSize}, nil
}

func (e *ollamaEmbedder) BatchSize() int {
	return e.batchSize
}

func (e *ollamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.model.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("生成向量失败: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("向量数量 %d 与文本数量 %d 不一致", len(vectors), len(texts))
	}
	// EmbedStrings返回[][]float64, ES的dense_vector使用float32
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		f32 := make([]float32, len(v))
		for j, f := range v {
			f32[j] = float32(f)
		}
		out[i] = f32
	}
	return out, nil
}
