package model

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

type Document interface {
	*QuestionDoc
	GetID() string
	GetEmbeddingString() string
	SetEmbedding(embedding []float32)
	GetEmbedding() []float32
}

type QuestionKind string

const (
	KindPAA  QuestionKind = "paa"
	KindPASF QuestionKind = "pasf"
)

// QuestionDoc 单条PAA问题或PASF相关搜索词,用于写入Elasticsearch
type QuestionDoc struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	Keyword     string       `json:"keyword"`
	Country     string       `json:"country"`
	Kind        QuestionKind `json:"kind"`
	Text        string       `json:"text"`
	Position    int          `json:"position"`
	ExtractedAt time.Time    `json:"extracted_at"`
	Embedding   []float32    `json:"embedding,omitempty"`
}

// GetID 同一国家/关键词/类型下的同一文本只保留一份
func (d *QuestionDoc) GetID() string {
	if d.ID != "" {
		return d.ID
	}
	key := strings.Join([]string{d.Country, strings.ToLower(d.Keyword), string(d.Kind), strings.ToLower(d.Text)}, "\x00")
	sum := sha1.Sum([]byte(key))
	d.ID = hex.EncodeToString(sum[:])
	return d.ID
}

func (d *QuestionDoc) GetEmbeddingString() string {
	return d.Text
}

func (d *QuestionDoc) SetEmbedding(embedding []float32) {
	d.Embedding = embedding
}

func (d *QuestionDoc) GetEmbedding() []float32 {
	return d.Embedding
}

// QuestionTypeMapping 问题索引的mapping, dims为向量维度
func QuestionTypeMapping(dims int) *types.TypeMapping {
	indexed := true
	embedding := types.NewDenseVectorProperty()
	embedding.Dims = &dims
	embedding.Index = &indexed

	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"id":           types.NewKeywordProperty(),
			"run_id":       types.NewKeywordProperty(),
			"keyword":      types.NewKeywordProperty(),
			"country":      types.NewKeywordProperty(),
			"kind":         types.NewKeywordProperty(),
			"text":         types.NewTextProperty(),
			"position":     types.NewIntegerNumberProperty(),
			"extracted_at": types.NewDateProperty(),
			"embedding":    embedding,
		},
	}
}

// QuestionDocs 把一行结果拆成问题文档
func QuestionDocs(runID string, r *SerpResult) []*QuestionDoc {
	docs := make([]*QuestionDoc, 0, len(r.PeopleAlsoAsk)+len(r.PeopleAlsoSearchFor))
	add := func(kind QuestionKind, items []string) {
		for i, text := range items {
			docs = append(docs, &QuestionDoc{
				RunID:       runID,
				Keyword:     r.Keyword,
				Country:     strings.ToLower(r.Country),
				Kind:        kind,
				Text:        text,
				Position:    i + 1,
				ExtractedAt: r.ExtractedAt,
			})
		}
	}
	add(KindPAA, r.PeopleAlsoAsk)
	add(KindPASF, r.PeopleAlsoSearchFor)
	return docs
}
