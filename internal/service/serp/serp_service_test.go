package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	paaSel  = ".related-question-pair span"
	pasfSel = "a.ggLgoc"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testParams(t *testing.T) *param.Extract {
	t.Helper()
	cfg, err := config.ParseConfig([]byte(`{}`))
	require.NoError(t, err)
	return param.FromConfig(cfg)
}

func newSerpCrawler() *fakeCrawler {
	return &fakeCrawler{
		texts: map[string][]string{
			paaSel:  {"What is Go?", "  What   is Go? ", "", "Is Go fast?", "Who made Go?", "Why Go?", "How to learn Go?"},
			pasfSel: {"go tutorial", "go jobs", "go tutorial"},
		},
	}
}

// half 让随机数固定为0.5
func half() float64 { return 0.5 }

func testOptions(rec *sleepRecorder) []Option {
	return []Option{
		WithSleep(rec.sleep),
		WithRand(half),
		WithClock(func() time.Time { return fixedNow }),
		WithLimiter(func(time.Duration) *rate.Limiter { return rate.NewLimiter(rate.Inf, 1) }),
	}
}

func TestExtractOne_OK(t *testing.T) {
	rec := &sleepRecorder{}
	crawler := newSerpCrawler()
	p := testParams(t)
	p.MaxPAA = 3

	res, err := NewExtractor(zap.NewNop(), testOptions(rec)...).
		ExtractOne(context.Background(), crawler, entity.Query{Row: 4, Keyword: "golang", Country: "PK"}, p)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Row)
	assert.Equal(t, "PK", res.Country)
	assert.Equal(t, "https://www.google.com/search?q=golang&gl=pk&hl=en&num=20&pws=0", res.URL)
	assert.Equal(t, []string{"What is Go?", "Is Go fast?", "Who made Go?"}, res.PeopleAlsoAsk)
	assert.Equal(t, []string{"go tutorial", "go jobs"}, res.PeopleAlsoSearchFor)
	assert.Equal(t, 3, res.PAACount)
	assert.Equal(t, 2, res.PASFCount)
	assert.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, fixedNow, res.ExtractedAt)
	assert.Equal(t, "What is Go? • Is Go fast? • Who made Go?", res.PAAText())

	// settle等待: 3s + 0.5*(6s-3s)
	assert.Equal(t, []time.Duration{4500 * time.Millisecond}, rec.waits)
	assert.Empty(t, crawler.tabs)
}

func TestExtractOne_DefaultCountry(t *testing.T) {
	res, err := NewExtractor(zap.NewNop(), testOptions(&sleepRecorder{})...).
		ExtractOne(context.Background(), newSerpCrawler(), entity.Query{Keyword: "golang"}, testParams(t))
	require.NoError(t, err)
	assert.Equal(t, "US", res.Country)
	assert.Contains(t, res.URL, "&gl=us&")
}

func TestExtractOne_NotFound(t *testing.T) {
	crawler := &fakeCrawler{
		textsErr: map[string]error{pasfSel: errors.New("js error")},
	}
	res, err := NewExtractor(zap.NewNop(), testOptions(&sleepRecorder{})...).
		ExtractOne(context.Background(), crawler, entity.Query{Keyword: "x", Country: "us"}, testParams(t))
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, "(not found with .related-question-pair span)", res.PAAText())
	assert.Equal(t, "(not found with a.ggLgoc)", res.PASFText())
	assert.Zero(t, res.PAACount)
}

func TestExtractOne_Timeout(t *testing.T) {
	crawler := &fakeCrawler{navigateErr: map[string]error{"slow": fmt.Errorf("等待body失败: %w", chrome.ErrTimeout)}}
	rec := &sleepRecorder{}
	res, err := NewExtractor(zap.NewNop(), testOptions(rec)...).
		ExtractOne(context.Background(), crawler, entity.Query{Keyword: "slow", Country: "us"}, testParams(t))
	require.NoError(t, err)
	assert.Equal(t, model.StatusTimeout, res.Status)
	assert.Equal(t, "(timeout)", res.PAAText())
	assert.Equal(t, "(timeout)", res.PASFText())
	assert.Equal(t, []string{"slow", "US", res.URL, "(timeout)", "(timeout)", "0", "0"}, res.Record())
	assert.Empty(t, rec.waits, "no settle wait after a failed load")
}

func TestExtractOne_Error(t *testing.T) {
	long := errors.New(strings.Repeat("x", 120))
	crawler := &fakeCrawler{navigateErr: map[string]error{"broken": long}}
	res, err := NewExtractor(zap.NewNop(), testOptions(&sleepRecorder{})...).
		ExtractOne(context.Background(), crawler, entity.Query{Keyword: "broken", Country: "de"}, testParams(t))
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "(error: "+strings.Repeat("x", 80)+")", res.PAAText())
	assert.Equal(t, "(error)", res.PASFText())
}

func TestExtractOne_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	crawler := &fakeCrawler{navigateErr: map[string]error{"k": context.Canceled}}
	_, err := NewExtractor(zap.NewNop(), testOptions(&sleepRecorder{})...).
		ExtractOne(ctx, crawler, entity.Query{Keyword: "k"}, testParams(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractOne_OpenTabs(t *testing.T) {
	rec := &sleepRecorder{}
	crawler := newSerpCrawler()
	p := testParams(t)
	p.OpenTabs = true

	res, err := NewExtractor(zap.NewNop(), testOptions(rec)...).
		ExtractOne(context.Background(), crawler, entity.Query{Keyword: "golang", Country: "us"}, p)
	require.NoError(t, err)
	require.Len(t, res.PeopleAlsoAsk, 5)
	require.Len(t, crawler.tabs, 4)
	assert.Equal(t, "https://www.google.com/search?q=What+is+Go%3F&gl=us", crawler.tabs[0])
	// 1次settle + 4次标签页间隔
	require.Len(t, rec.waits, 5)
	for _, w := range rec.waits[1:] {
		assert.Equal(t, 800*time.Millisecond, w)
	}
}

func TestExtractOne_OpenTabsUnsupported(t *testing.T) {
	crawler := newSerpCrawler()
	crawler.tabErr = fmt.Errorf("colly: %w", chrome.ErrUnsupported)
	p := testParams(t)
	p.OpenTabs = true
	res, err := NewExtractor(zap.NewNop(), testOptions(&sleepRecorder{})...).
		ExtractOne(context.Background(), crawler, entity.Query{Keyword: "golang"}, p)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, res.Status)
}

func queries(keywords ...string) []entity.Query {
	qs := make([]entity.Query, 0, len(keywords))
	for i, kw := range keywords {
		qs = append(qs, entity.Query{Row: i, Keyword: kw, Country: "us"})
	}
	return qs
}

func TestSerpService_Run(t *testing.T) {
	rec := &sleepRecorder{}
	store := newFakeStore()
	indexer := &fakeIndexer{}
	crawler := newSerpCrawler()
	crawler.navigateErr = map[string]error{"slow": chrome.ErrTimeout}
	svc := InitSerpService(crawler, store, indexer, zap.NewNop(), testOptions(rec)...)

	var events []model.Progress
	run := &model.Run{ID: "run-1", Source: "kw.csv"}
	results, err := svc.Run(context.Background(), run, queries("golang", "slow", "rust"), testParams(t), func(p model.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, model.StatusTimeout, results[1].Status)

	require.Len(t, events, 6)
	assert.Equal(t, "Processing 1/3: golang (US)", events[0].Message)
	assert.Nil(t, events[0].Result)
	assert.Equal(t, 1, events[1].Index)
	assert.NotNil(t, events[1].Result)
	assert.Equal(t, 1.0, events[5].Fraction())

	// 两次行间等待: 6s + 0.5*2s; 最后一行之后不等待
	var rowWaits int
	for _, w := range rec.waits {
		if w == 7*time.Second {
			rowWaits++
		}
	}
	assert.Equal(t, 2, rowWaits)

	assert.Equal(t, model.RunDone, run.Status)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 3, run.Total)
	require.NotNil(t, run.FinishedAt)
	assert.Len(t, store.saved["run-1"], 3)
	assert.Equal(t, model.RunDone, store.finished["run-1"])
	assert.Equal(t, *run.FinishedAt, store.at["run-1"], "stored finish time must match the run")
	assert.Equal(t, fixedNow, store.at["run-1"])
	assert.Equal(t, "run-1", indexer.runID)
	assert.Len(t, indexer.results, 3)
}

func TestSerpService_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 第2次等待是第一行之后的行间等待
	rec := &sleepRecorder{onSleep: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	store := newFakeStore()
	svc := InitSerpService(newSerpCrawler(), store, nil, zap.NewNop(), testOptions(rec)...)

	run := &model.Run{ID: "run-2"}
	results, err := svc.Run(ctx, run, queries("a", "b", "c"), testParams(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
	assert.Equal(t, model.RunCancelled, run.Status)
	assert.Equal(t, model.RunCancelled, store.finished["run-2"])
	assert.Equal(t, 1, store.count["run-2"])
}

func TestSerpService_InvalidParams(t *testing.T) {
	svc := InitSerpService(newSerpCrawler(), nil, nil, zap.NewNop())
	p := testParams(t)
	p.MaxPAA = 50
	_, err := svc.Run(context.Background(), &model.Run{ID: "x"}, queries("a"), p, nil)
	assert.ErrorIs(t, err, param.ErrInvalidParams)
}

func TestParallelService_Run(t *testing.T) {
	store := newFakeStore()
	pool := &fakePool{size: 2, build: newSerpCrawler}
	svc := InitParallelService(pool, store, nil, zap.NewNop(), testOptions(&sleepRecorder{})...)

	var events []model.Progress
	run := &model.Run{ID: "run-p"}
	kws := []string{"a", "b", "c", "d", "e"}
	results, err := svc.Run(context.Background(), run, queries(kws...), testParams(t), func(p model.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, kws[i], r.Keyword, "results keep input order")
	}
	assert.Len(t, events, 10)
	assert.Equal(t, 5, pool.acquired)
	assert.Equal(t, 5, pool.released)
	assert.Len(t, store.saved["run-p"], 5)
	assert.Equal(t, model.RunDone, run.Status)
}

func TestParallelService_AcquireError(t *testing.T) {
	pool := &fakePool{size: 2, err: errors.New("browser gone")}
	svc := InitParallelService(pool, nil, nil, zap.NewNop(), testOptions(&sleepRecorder{})...)
	results, err := svc.Run(context.Background(), &model.Run{ID: "r"}, queries("a", "b"), testParams(t), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.StatusError, results[0].Status)
	assert.Equal(t, "(error: browser gone)", results[0].PAAText())
}

// blockingCrawler 对blocked中的关键词阻塞到ctx取消
type blockingCrawler struct {
	*fakeCrawler
	blocked map[string]bool
}

func (b *blockingCrawler) Navigate(ctx context.Context, url string) error {
	for kw := range b.blocked {
		if containsQuery(url, kw) {
			<-ctx.Done()
			return ctx.Err()
		}
	}
	return b.fakeCrawler.Navigate(ctx, url)
}

type blockingPool struct {
	fakePool
	blocked map[string]bool
}

func (p *blockingPool) Acquire(ctx context.Context) (chrome.ChromeCrawler, func(), error) {
	c, release, err := p.fakePool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &blockingCrawler{fakeCrawler: c.(*fakeCrawler), blocked: p.blocked}, release, nil
}

func TestParallelService_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newFakeStore()
	pool := &blockingPool{
		fakePool: fakePool{size: 2, build: newSerpCrawler},
		blocked:  map[string]bool{"c": true, "d": true, "e": true},
	}
	svc := InitParallelService(pool, store, nil, zap.NewNop(), testOptions(&sleepRecorder{})...)

	completed := 0
	run := &model.Run{ID: "run-pc"}
	results, err := svc.Run(ctx, run, queries("a", "b", "c", "d", "e"), testParams(t), func(p model.Progress) {
		if p.Result == nil {
			return
		}
		if completed++; completed == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Keyword)
	assert.Equal(t, "b", results[1].Keyword)
	assert.Equal(t, model.RunCancelled, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, model.RunCancelled, store.finished["run-pc"])
	assert.Equal(t, 2, store.count["run-pc"])

	pool.mu.Lock()
	defer pool.mu.Unlock()
	assert.Equal(t, pool.acquired, pool.released, "every acquired browser is released")
}
