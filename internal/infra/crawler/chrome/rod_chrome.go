package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/options"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/types"
	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

type rodCrawler struct {
	browser     *rod.Browser
	page        *rod.Page
	ownsBrowser bool
	timeouts    types.Timeouts
	logger      *zap.Logger
}

// LauncherOptions 把配置转换为启动器选项, 浏览器池也使用同一组选项
func LauncherOptions(cfg *config.Config, userDataDir string, port int) []options.LauncherOption {
	return []options.LauncherOption{
		options.WithBin(cfg.Rod.Bin),
		options.WithUserDataDir(userDataDir),
		options.WithHeadless(cfg.Rod.Headless),
		options.WithDisableBlinkFeatures(cfg.Rod.DisableBlinkFeatures),
		options.WithIncognito(cfg.Rod.Incognito),
		options.WithDisableDevShmUsage(cfg.Rod.DisableDevShmUsage),
		options.WithNoSandbox(cfg.Rod.NoSandbox),
		options.WithUserAgent(cfg.Rod.UserAgent),
		options.WithLeakless(cfg.Rod.Leakless),
		options.WithDisableBackgroundNetworking(cfg.Rod.DisableBackgroundNetworking),
		options.WithDisableBackgroundTimerThrottling(cfg.Rod.DisableBackgroundTimerThrottling),
		options.WithRemoteDebuggingPort(port),
		options.WithWindowSize(cfg.Chromedp.WindowWidth, cfg.Chromedp.WindowHeight),
	}
}

// InitRodCrawler 启动一个独立的浏览器
func InitRodCrawler(cfg *config.Config, logger *zap.Logger) (ChromeCrawler, error) {
	l := options.CreateLauncher(cfg.Rod.UserMode,
		LauncherOptions(cfg, cfg.Rod.UserDataDir, cfg.Rod.BasicRemoteDebuggingPort)...,
	)
	url, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	logger.Info("rod浏览器已启动", zap.String("control_url", url))

	browser := rod.New().ControlURL(url).Trace(cfg.Rod.Trace)
	if err := browser.Connect(); err != nil {
		// 未连接的浏览器不会随Close退出
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	crawler, err := NewRodCrawler(browser, types.TimeoutsFromConfig(cfg), logger, true)
	if err != nil {
		_ = browser.Close()
		return nil, err
	}
	return crawler, nil
}

// NewRodCrawler 在已连接的浏览器上创建一个stealth页面.
// ownsBrowser为false时Close只关闭页面,浏览器由调用方(例如浏览器池)管理
func NewRodCrawler(browser *rod.Browser, timeouts types.Timeouts, logger *zap.Logger, ownsBrowser bool) (ChromeCrawler, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	return &rodCrawler{
		browser:     browser,
		page:        page,
		ownsBrowser: ownsBrowser,
		timeouts:    timeouts,
		logger:      logger,
	}, nil
}

func (rc *rodCrawler) Close() {
	if err := rc.page.Close(); err != nil {
		rc.logger.Debug("关闭页面失败", zap.Error(err))
	}
	if rc.ownsBrowser {
		if err := rc.browser.Close(); err != nil {
			rc.logger.Warn("关闭浏览器失败", zap.Error(err))
		}
	}
}

func (rc *rodCrawler) bind(ctx context.Context, timeout time.Duration) (context.Context, *rod.Page, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	return opCtx, rc.page.Context(opCtx), cancel
}

func (rc *rodCrawler) Navigate(ctx context.Context, url string) error {
	loadCtx, page, cancelLoad := rc.bind(ctx, rc.timeouts.PageLoad)
	defer cancelLoad()
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("导航失败: %w", wrapTimeout(ctx, loadCtx, err, url))
	}

	waitCtx, page, cancelWait := rc.bind(ctx, rc.timeouts.BodyWait)
	defer cancelWait()
	if _, err := page.Element("body"); err != nil {
		return fmt.Errorf("等待body失败: %w", wrapTimeout(ctx, waitCtx, err, url))
	}
	rc.logger.Debug("页面加载完成", zap.String("url", url))
	return nil
}

func (rc *rodCrawler) Texts(ctx context.Context, selector string) ([]string, error) {
	_, page, cancel := rc.bind(ctx, rc.timeouts.BodyWait)
	defer cancel()

	res, err := page.Eval(textsJS, selector)
	if err != nil {
		return nil, fmt.Errorf("查询选择器 %s 失败: %w", selector, err)
	}
	values := res.Value.Arr()
	texts := make([]string, 0, len(values))
	for _, v := range values {
		texts = append(texts, v.Str())
	}
	return texts, nil
}

func (rc *rodCrawler) OpenTab(ctx context.Context, url string) error {
	_, page, cancel := rc.bind(ctx, rc.timeouts.BodyWait)
	defer cancel()
	if _, err := page.Eval(`(u) => { window.open(u, "_blank") }`, url); err != nil {
		return fmt.Errorf("打开标签页失败: %w", err)
	}
	return nil
}
