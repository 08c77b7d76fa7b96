package service

import (
	"context"
	"errors"
	"strings"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/internal/serp"
	"github.com/LouYuanbo1/serpagent/param"
	"go.uber.org/zap"
)

// Extractor 处理单个关键词/国家组合
type Extractor struct {
	opts   *options
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger, opts ...Option) *Extractor {
	return &Extractor{opts: newOptions(opts), logger: logger}
}

// ExtractOne 加载搜索结果页并读取PAA和PASF.
// 页面错误记录在结果的Status中, 返回的error只表示ctx已取消
func (e *Extractor) ExtractOne(ctx context.Context, crawler chrome.ChromeCrawler, q entity.Query, p *param.Extract) (*model.SerpResult, error) {
	result, country := newResult(q, p)
	url := result.URL
	log := e.logger.With(zap.String("keyword", q.Keyword), zap.String("country", country))

	if err := crawler.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.ExtractedAt = e.opts.now()
		if errors.Is(err, chrome.ErrTimeout) {
			log.Warn("页面加载超时", zap.Error(err))
			result.Status = model.StatusTimeout
			return result, nil
		}
		log.Warn("页面加载失败", zap.Error(err))
		result.Status = model.StatusError
		result.Error = serp.ErrorMessage(err)
		return result, nil
	}

	// 等待动态内容渲染
	if err := e.opts.sleep(ctx, e.opts.uniform(p.SettleMin, p.SettleMax)); err != nil {
		return nil, err
	}

	filter := p.Filter
	filter.Keyword = q.Keyword
	result.PeopleAlsoAsk = serp.Collect(e.texts(ctx, crawler, p.PAASelectors, log), p.MaxPAA, filter)
	result.PeopleAlsoSearchFor = serp.Collect(e.texts(ctx, crawler, p.PASFSelectors, log), p.MaxPASF, filter)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result.PAACount = len(result.PeopleAlsoAsk)
	result.PASFCount = len(result.PeopleAlsoSearchFor)

	if p.OpenTabs && len(result.PeopleAlsoAsk) > 0 {
		if err := e.openTabs(ctx, crawler, result.PeopleAlsoAsk, country, p, log); err != nil {
			return nil, err
		}
	}

	result.ExtractedAt = e.opts.now()
	log.Info("提取完成", zap.Int("paa", result.PAACount), zap.Int("pasf", result.PASFCount))
	return result, nil
}

func newResult(q entity.Query, p *param.Extract) (*model.SerpResult, string) {
	country := strings.ToLower(strings.TrimSpace(q.Country))
	if country == "" {
		country = "us"
	}
	return &model.SerpResult{
		Row:                 q.Row,
		Keyword:             q.Keyword,
		Country:             strings.ToUpper(country),
		URL:                 serp.BuildSearchURL(p.BaseURL, q.Keyword, country, p.Language),
		PeopleAlsoAsk:       []string{},
		PeopleAlsoSearchFor: []string{},
		Status:              model.StatusOK,
		PAASelectors:        p.PAASelectors,
		PASFSelectors:       p.PASFSelectors,
	}, country
}

// errorResult 没有加载页面就失败的行
func (e *Extractor) errorResult(q entity.Query, p *param.Extract, err error) *model.SerpResult {
	result, _ := newResult(q, p)
	result.Status = model.StatusError
	result.Error = serp.ErrorMessage(err)
	result.ExtractedAt = e.opts.now()
	return result
}

// texts 依次查询每个选择器, 查询失败按没有匹配处理
func (e *Extractor) texts(ctx context.Context, crawler chrome.ChromeCrawler, selectors []string, log *zap.Logger) []string {
	var all []string
	for _, sel := range selectors {
		texts, err := crawler.Texts(ctx, sel)
		if err != nil {
			log.Debug("查询选择器失败", zap.String("selector", sel), zap.Error(err))
			continue
		}
		all = append(all, texts...)
	}
	return all
}

func (e *Extractor) openTabs(ctx context.Context, crawler chrome.ChromeCrawler, questions []string, country string, p *param.Extract, log *zap.Logger) error {
	n := min(p.OpenTabsLimit, len(questions))
	for _, question := range questions[:n] {
		err := crawler.OpenTab(ctx, serp.BuildQuestionURL(p.BaseURL, question, country))
		if errors.Is(err, chrome.ErrUnsupported) {
			log.Info("当前驱动不支持打开标签页,已跳过")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("打开标签页失败", zap.String("question", question), zap.Error(err))
		}
		if err := e.opts.sleep(ctx, p.TabInterval); err != nil {
			return err
		}
	}
	return nil
}
