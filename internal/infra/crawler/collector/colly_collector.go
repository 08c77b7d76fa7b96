package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http/cookiejar"
	"sync"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/types"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// collyCrawler 不执行JavaScript,直接请求HTML,适合没有Chrome的环境
type collyCrawler struct {
	colly    *colly.Collector
	options  RequestOptions
	timeouts types.Timeouts
	logger   *zap.Logger

	mu  sync.Mutex
	url string
	doc *goquery.Document
}

func InitCollyCrawler(cfg *config.Config, logger *zap.Logger) (chrome.ChromeCrawler, error) {
	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
	}
	if cfg.Colly.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.Colly.UserAgent))
	}
	if cfg.Colly.IgnoreRobotsTxt {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}
	c := colly.NewCollector(opts...)
	timeouts := types.TimeoutsFromConfig(cfg)
	c.SetRequestTimeout(timeouts.PageLoad)
	if cfg.Colly.EnableCookieJar {
		jar, err := cookiejar.New(cfg.Colly.CookieJarOptions)
		if err != nil {
			return nil, fmt.Errorf("创建cookie jar失败: %w", err)
		}
		c.SetCookieJar(jar)
	}
	logger.Info("colly爬取器已初始化", zap.Bool("cookie_jar", cfg.Colly.EnableCookieJar))
	return &collyCrawler{
		colly: c,
		options: RequestOptions{
			UserAgent: cfg.Colly.UserAgent,
			Headers:   cfg.Colly.Headers,
		},
		timeouts: timeouts,
		logger:   logger,
	}, nil
}

func (cc *collyCrawler) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Clone共享cookie jar与HTTP后端,但不带回调,避免回调在多次导航间累积
	c := cc.colly.Clone()
	// 请求随ctx取消, 不必等到页面加载超时
	colly.StdlibContext(ctx)(c)
	c.OnRequest(func(r *colly.Request) {
		if cc.options.UserAgent != "" {
			r.Headers.Set("User-Agent", cc.options.UserAgent)
		}
		for k, v := range cc.options.Headers {
			r.Headers.Set(k, v)
		}
	})
	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isTimeout(err) {
			return fmt.Errorf("导航失败: %w: %s", chrome.ErrTimeout, url)
		}
		return fmt.Errorf("访问URL失败: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("解析HTML失败: %w", err)
	}
	cc.mu.Lock()
	cc.url, cc.doc = url, doc
	cc.mu.Unlock()
	cc.logger.Debug("页面加载完成", zap.String("url", url), zap.Int("bytes", len(body)))
	return nil
}

func (cc *collyCrawler) Texts(ctx context.Context, selector string) ([]string, error) {
	cc.mu.Lock()
	doc := cc.doc
	cc.mu.Unlock()
	if doc == nil {
		return nil, errors.New("尚未加载页面")
	}
	var texts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts, nil
}

func (cc *collyCrawler) OpenTab(ctx context.Context, url string) error {
	return fmt.Errorf("colly: %w", chrome.ErrUnsupported)
}

func (cc *collyCrawler) Close() {}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
