package service

import (
	"context"
	"testing"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleResults() []*model.SerpResult {
	return []*model.SerpResult{
		{Keyword: "golang", Country: "US", Status: model.StatusOK,
			PeopleAlsoAsk: []string{"What is Go?", "Is Go fast?"}, PeopleAlsoSearchFor: []string{"go tutorial"}},
		{Keyword: "slow", Country: "US", Status: model.StatusTimeout},
	}
}

func TestQuestionIndex_IndexResults(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, fakeEmbedder{}, zap.NewNop())

	require.NoError(t, qi.IndexResults(context.Background(), "run-1", sampleResults()))
	assert.True(t, client.created)
	require.Len(t, client.indexed, 3)
	assert.Equal(t, model.KindPAA, client.indexed[0].Kind)
	assert.Equal(t, model.KindPASF, client.indexed[2].Kind)
	assert.Equal(t, "us", client.indexed[0].Country)
	assert.Equal(t, []float32{11, 1}, client.indexed[0].Embedding)
}

func TestQuestionIndex_NoEmbedder(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, nil, zap.NewNop())
	require.NoError(t, qi.IndexResults(context.Background(), "run-1", sampleResults()))
	require.Len(t, client.indexed, 3)
	assert.Nil(t, client.indexed[0].Embedding)

	_, err := qi.Search(context.Background(), "go", 3)
	assert.ErrorIs(t, err, ErrNoEmbedder)
}

func TestQuestionIndex_EmbedError(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, fakeEmbedder{fail: true}, zap.NewNop())
	assert.Error(t, qi.IndexResults(context.Background(), "run-1", sampleResults()))
	assert.Empty(t, client.indexed)
}

func TestQuestionIndex_Search(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, fakeEmbedder{}, zap.NewNop())
	require.NoError(t, qi.IndexResults(context.Background(), "run-1", sampleResults()))

	hits, err := qi.Search(context.Background(), "golang", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, 2, client.knnK)
	assert.Equal(t, []float32{6, 1}, client.knnVec)
}

func TestQuestionIndex_NothingToIndex(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, fakeEmbedder{}, zap.NewNop())
	require.NoError(t, qi.IndexResults(context.Background(), "r", sampleResults()[1:]))
	assert.False(t, client.created)
}

func TestQuestionIndex_StatsAndGet(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, nil, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, qi.IndexResults(ctx, "run-1", sampleResults()))

	stats, err := qi.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, IndexStats{Index: "serp_questions", Docs: 3}, stats)

	id := client.indexed[1].GetID()
	doc, err := qi.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Is Go fast?", doc.Text)

	_, err = qi.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionIndex_Reset(t *testing.T) {
	client := &fakeEsClient{}
	qi := InitQuestionIndex(client, nil, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, qi.IndexResults(ctx, "run-1", sampleResults()))
	client.calls = nil

	require.NoError(t, qi.Reset(ctx))
	assert.Equal(t, []string{"delete", "create"}, client.calls)
	stats, err := qi.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Docs)
}
