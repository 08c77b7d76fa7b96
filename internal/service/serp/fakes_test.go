package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/internal/infra/persistence/es"
)

type fakeCrawler struct {
	mu          sync.Mutex
	navigateErr map[string]error
	texts       map[string][]string
	textsErr    map[string]error
	tabErr      error
	visited     []string
	tabs        []string
	closed      bool
}

func (f *fakeCrawler) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited = append(f.visited, url)
	for kw, err := range f.navigateErr {
		if containsQuery(url, kw) {
			return err
		}
	}
	return nil
}

func containsQuery(url, kw string) bool {
	return kw != "" && strings.Contains(url, "q="+kw+"&")
}

func (f *fakeCrawler) Texts(ctx context.Context, selector string) ([]string, error) {
	if err := f.textsErr[selector]; err != nil {
		return nil, err
	}
	return f.texts[selector], nil
}

func (f *fakeCrawler) OpenTab(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tabErr != nil {
		return f.tabErr
	}
	f.tabs = append(f.tabs, url)
	return nil
}

func (f *fakeCrawler) Close() { f.closed = true }

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	// onSleep 第n次等待时调用, 可用于在测试中取消ctx
	onSleep func(n int)
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	s.mu.Unlock()
	if s.onSleep != nil {
		s.onSleep(n)
	}
	return ctx.Err()
}

type fakeStore struct {
	mu       sync.Mutex
	created  []*model.Run
	saved    map[string][]*model.SerpResult
	finished map[string]model.RunStatus
	count    map[string]int
	at       map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		saved:    map[string][]*model.SerpResult{},
		finished: map[string]model.RunStatus{},
		count:    map[string]int{},
		at:       map[string]time.Time{},
	}
}

func (s *fakeStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.created = append(s.created, &cp)
	return nil
}

func (s *fakeStore) SaveResult(ctx context.Context, runID string, r *model.SerpResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[runID] = append(s.saved[runID], r)
	return nil
}

func (s *fakeStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, processed int, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[runID] = status
	s.count[runID] = processed
	s.at[runID] = finishedAt
	return nil
}

type fakeIndexer struct {
	runID   string
	results []*model.SerpResult
}

func (f *fakeIndexer) IndexResults(ctx context.Context, runID string, results []*model.SerpResult) error {
	f.runID = runID
	f.results = results
	return nil
}

type fakePool struct {
	size     int
	mu       sync.Mutex
	crawlers []*fakeCrawler
	acquired int
	released int
	build    func() *fakeCrawler
	err      error
}

func (p *fakePool) Size() int { return p.size }

func (p *fakePool) Acquire(ctx context.Context) (chrome.ChromeCrawler, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.build()
	p.crawlers = append(p.crawlers, c)
	p.acquired++
	return c, func() {
		p.mu.Lock()
		p.released++
		p.mu.Unlock()
	}, nil
}

func (p *fakePool) Close() {}

type fakeEsClient struct {
	created bool
	deleted bool
	calls   []string
	indexed []*model.QuestionDoc
	knnK    int
	knnVec  []float32
}

func (f *fakeEsClient) IndexName() string { return "serp_questions" }
func (f *fakeEsClient) CreateIndexWithMapping(ctx context.Context) error {
	f.created = true
	f.calls = append(f.calls, "create")
	return nil
}
func (f *fakeEsClient) DeleteIndex(ctx context.Context) error {
	f.deleted = true
	f.calls = append(f.calls, "delete")
	f.indexed = nil
	return nil
}
func (f *fakeEsClient) BulkIndexDocsWithID(ctx context.Context, docs []*model.QuestionDoc) error {
	f.indexed = append(f.indexed, docs...)
	return nil
}
func (f *fakeEsClient) GetDoc(ctx context.Context, id string) (*model.QuestionDoc, error) {
	for _, d := range f.indexed {
		if d.GetID() == id {
			return d, nil
		}
	}
	return nil, nil
}
func (f *fakeEsClient) CountDocs(ctx context.Context) (int64, error) {
	return int64(len(f.indexed)), nil
}
func (f *fakeEsClient) KnnSearch(ctx context.Context, vector []float32, k int) ([]es.Hit[*model.QuestionDoc], error) {
	f.knnVec, f.knnK = vector, k
	hits := make([]es.Hit[*model.QuestionDoc], 0, len(f.indexed))
	for i, d := range f.indexed {
		if i >= k {
			break
		}
		hits = append(hits, es.Hit[*model.QuestionDoc]{Doc: d, Score: 1})
	}
	return hits, nil
}

type fakeEmbedder struct{ fail bool }

func (fakeEmbedder) BatchSize() int { return 2 }

func (f fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("ollama down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}
