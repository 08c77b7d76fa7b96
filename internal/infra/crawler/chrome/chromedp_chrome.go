package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/types"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type chromedpCrawler struct {
	allocCtxFuc    context.CancelFunc
	pageCtx        context.Context
	pageCtxFuc     context.CancelFunc
	lifetimeCtxFuc context.CancelFunc
	timeouts       types.Timeouts
	logger         *zap.Logger
}

func InitChromedpCrawler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChromeCrawler, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Chromedp.Headless),
		chromedp.Flag("incognito", cfg.Chromedp.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Chromedp.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
		chromedp.WindowSize(cfg.Chromedp.WindowWidth, cfg.Chromedp.WindowHeight),
	)
	if cfg.Chromedp.DisableBlinkFeatures != "" {
		opts = append(opts, chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures))
	}
	if cfg.Chromedp.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Chromedp.UserDataDir))
	}
	if cfg.Chromedp.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Chromedp.UserAgent))
	}

	// LifeTime为0时浏览器随调用方的ctx结束
	var lifetimeCtx context.Context
	var cancelLifetime context.CancelFunc
	if cfg.Chromedp.LifeTime > 0 {
		lifetimeCtx, cancelLifetime = context.WithTimeout(ctx, time.Duration(cfg.Chromedp.LifeTime)*time.Second)
	} else {
		lifetimeCtx, cancelLifetime = context.WithCancel(ctx)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(lifetimeCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	cc := &chromedpCrawler{
		allocCtxFuc:    cancelAlloc,
		pageCtx:        pageCtx,
		pageCtxFuc:     cancelPage,
		lifetimeCtxFuc: cancelLifetime,
		timeouts:       types.TimeoutsFromConfig(cfg),
		logger:         logger,
	}
	// 第一次Run才会真正启动浏览器
	if err := chromedp.Run(pageCtx, network.Enable()); err != nil {
		cc.Close()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	logger.Info("chromedp浏览器已启动", zap.Bool("headless", cfg.Chromedp.Headless))
	return cc, nil
}

func (cc *chromedpCrawler) Close() {
	cc.pageCtxFuc()
	cc.allocCtxFuc()
	cc.lifetimeCtxFuc()
}

// bind 基于页面上下文创建带超时的子上下文,并在调用方ctx取消时一并取消
func (cc *chromedpCrawler) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(cc.pageCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (cc *chromedpCrawler) Navigate(ctx context.Context, url string) error {
	loadCtx, cancelLoad := cc.bind(ctx, cc.timeouts.PageLoad)
	defer cancelLoad()
	if err := chromedp.Run(loadCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("导航失败: %w", wrapTimeout(ctx, loadCtx, err, url))
	}

	waitCtx, cancelWait := cc.bind(ctx, cc.timeouts.BodyWait)
	defer cancelWait()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("等待body失败: %w", wrapTimeout(ctx, waitCtx, err, url))
	}
	cc.logger.Debug("页面加载完成", zap.String("url", url))
	return nil
}

func (cc *chromedpCrawler) Texts(ctx context.Context, selector string) ([]string, error) {
	arg, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	queryCtx, cancel := cc.bind(ctx, cc.timeouts.BodyWait)
	defer cancel()

	var texts []string
	js := fmt.Sprintf("(%s)(%s)", textsJS, arg)
	if err := chromedp.Run(queryCtx, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, fmt.Errorf("查询选择器 %s 失败: %w", selector, err)
	}
	return texts, nil
}

func (cc *chromedpCrawler) OpenTab(ctx context.Context, url string) error {
	arg, err := json.Marshal(url)
	if err != nil {
		return err
	}
	tabCtx, cancel := cc.bind(ctx, cc.timeouts.BodyWait)
	defer cancel()
	// void 避免把Window对象按值序列化
	js := fmt.Sprintf(`void window.open(%s, "_blank")`, arg)
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("打开标签页失败: %w", err)
	}
	return nil
}
