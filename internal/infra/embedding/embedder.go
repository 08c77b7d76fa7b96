package embedding

import "context"

// Embedder 把文本转换为向量
type Embedder interface {
	BatchSize() int
	Embed(ctx context.Context, strings []string) ([][]float32, error)
}

// EmbedAll 按BatchSize分批调用Embed,返回与texts一一对应的向量
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	batch := max(e.BatchSize(), 1)
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batch {
		end := min(i+batch, len(texts))
		vs, err := e.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vs...)
	}
	return vectors, nil
}
