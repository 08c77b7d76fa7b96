package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) TypedEsClient[*model.QuestionDoc] {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Elasticsearch.Address = srv.URL
	client, err := InitTypedEsClient[*model.QuestionDoc](cfg, model.QuestionTypeMapping(4), zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestCountDocs(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/serp_questions/_count", r.URL.Path)
		_, _ = io.WriteString(w, `{"count":42,"_shards":{"total":1,"successful":1,"skipped":0,"failed":0}}`)
	})
	n, err := client.CountDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "serp_questions", client.IndexName())
}

func TestKnnSearch(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/serp_questions/_search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		knn := body["knn"].([]any)[0].(map[string]any)
		assert.Equal(t, "embedding", knn["field"])
		assert.EqualValues(t, 3, knn["k"])

		_, _ = io.WriteString(w, `{
			"took": 1, "timed_out": false,
			"_shards": {"total":1,"successful":1,"skipped":0,"failed":0},
			"hits": {
				"total": {"value": 1, "relation": "eq"},
				"max_score": 0.9,
				"hits": [
					{"_index":"serp_questions","_id":"a1","_score":0.9,
					 "_source":{"id":"a1","keyword":"golang","country":"us","kind":"paa","text":"Is Go fast?","position":1}}
				]
			}
		}`)
	})
	hits, err := client.KnnSearch(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Is Go fast?", hits[0].Doc.Text)
	assert.Equal(t, model.KindPAA, hits[0].Doc.Kind)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)
}

func TestCreateIndexWithMapping_Exists(t *testing.T) {
	var methods []string
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.CreateIndexWithMapping(context.Background()))
	assert.Equal(t, []string{http.MethodHead}, methods)
}

func TestCreateIndexWithMapping_Creates(t *testing.T) {
	var created string
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			b, _ := io.ReadAll(r.Body)
			created = string(b)
			_, _ = io.WriteString(w, `{"acknowledged":true,"shards_acknowledged":true,"index":"serp_questions"}`)
		}
	})
	require.NoError(t, client.CreateIndexWithMapping(context.Background()))
	assert.True(t, strings.Contains(created, `"dense_vector"`))
}

func TestDeleteIndex_Missing(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/serp_questions", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index [serp_questions]"},"status":404}`)
	})
	assert.NoError(t, client.DeleteIndex(context.Background()))
}

func TestDeleteIndex_Error(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"type":"security_exception","reason":"action unauthorized"},"status":403}`)
	})
	assert.Error(t, client.DeleteIndex(context.Background()))
}

func TestGetDoc(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/serp_questions/_doc/a1":
			_, _ = io.WriteString(w, `{"_index":"serp_questions","_id":"a1","found":true,
				"_source":{"id":"a1","keyword":"golang","country":"us","kind":"pasf","text":"go jobs","position":2}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"_index":"serp_questions","_id":"zz","found":false}`)
		}
	})
	doc, err := client.GetDoc(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "go jobs", doc.Text)
	assert.Equal(t, model.KindPASF, doc.Kind)
	assert.Equal(t, 2, doc.Position)

	doc, err = client.GetDoc(context.Background(), "zz")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
