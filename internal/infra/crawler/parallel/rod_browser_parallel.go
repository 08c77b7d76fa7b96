package parallel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/options"
	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/types"
	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

type rodBrowserPool struct {
	browserPool   rod.Pool[rod.Browser]
	createBrowser func() (*rod.Browser, error)
	mu            sync.Mutex

	// pending 已启动但还没有连接的浏览器进程, 以控制URL为键
	pending  map[string]process
	size     int
	timeouts types.Timeouts
	logger   *zap.Logger
}

// process 已启动的浏览器进程, *launcher.Launcher满足该接口
type process interface {
	Kill()
}

// launchFunc 启动第instanceID个浏览器, 返回进程和控制URL
type launchFunc func(instanceID int) (process, string, error)

func rodLaunch(cfg *config.Config) launchFunc {
	return func(instanceID int) (process, string, error) {
		instanceDataDir := ""
		if cfg.Rod.UserDataDir != "" {
			instanceDataDir = filepath.Join(cfg.Rod.UserDataDir, fmt.Sprintf("instance_%d", instanceID))
			if err := os.MkdirAll(instanceDataDir, 0o755); err != nil {
				return nil, "", fmt.Errorf("创建实例数据目录失败: %w", err)
			}
		}
		port := 0
		if cfg.Rod.BasicRemoteDebuggingPort > 0 {
			port = cfg.Rod.BasicRemoteDebuggingPort + instanceID
		}
		l := options.CreateLauncher(cfg.Rod.UserMode, chrome.LauncherOptions(cfg, instanceDataDir, port)...)
		urlStr, err := l.Launch()
		if err != nil {
			l.Kill()
			return nil, "", err
		}
		return l, urlStr, nil
	}
}

// InitRodBrowserPool 预先启动browserPoolSize个浏览器,每个实例使用独立的用户目录和调试端口
func InitRodBrowserPool(cfg *config.Config, browserPoolSize int, logger *zap.Logger) (BrowserPool, error) {
	return newRodBrowserPool(cfg, browserPoolSize, rodLaunch(cfg), logger)
}

func newRodBrowserPool(cfg *config.Config, browserPoolSize int, launch launchFunc, logger *zap.Logger) (*rodBrowserPool, error) {
	if browserPoolSize <= 0 {
		return nil, fmt.Errorf("浏览器池大小必须大于0: %d", browserPoolSize)
	}
	rbp := &rodBrowserPool{
		browserPool: rod.NewBrowserPool(browserPoolSize),
		pending:     make(map[string]process, browserPoolSize),
		size:        browserPoolSize,
		timeouts:    types.TimeoutsFromConfig(cfg),
		logger:      logger,
	}
	controlURLCh := make(chan string, browserPoolSize)
	for instanceID := range browserPoolSize {
		proc, urlStr, err := launch(instanceID)
		if err != nil {
			// 已启动的实例不会再被使用
			rbp.killPending()
			return nil, fmt.Errorf("启动浏览器 %d 失败: %w", instanceID, err)
		}
		rbp.pending[urlStr] = proc
		logger.Info("浏览器已启动", zap.Int("instance", instanceID), zap.String("control_url", urlStr))
		controlURLCh <- urlStr
	}
	close(controlURLCh)

	rbp.createBrowser = func() (*rod.Browser, error) {
		urlStr, ok := <-controlURLCh
		if !ok {
			return nil, errors.New("没有可用的浏览器实例")
		}
		proc := rbp.take(urlStr)
		browser := rod.New().ControlURL(urlStr).Trace(cfg.Rod.Trace)
		if err := browser.Connect(); err != nil {
			if proc != nil {
				proc.Kill()
			}
			return nil, fmt.Errorf("连接浏览器失败: %w", err)
		}
		return browser, nil
	}
	return rbp, nil
}

// take 取出控制URL对应的进程, 之后由rod.Browser负责关闭
func (rbp *rodBrowserPool) take(urlStr string) process {
	rbp.mu.Lock()
	defer rbp.mu.Unlock()
	proc := rbp.pending[urlStr]
	delete(rbp.pending, urlStr)
	return proc
}

func (rbp *rodBrowserPool) killPending() {
	rbp.mu.Lock()
	defer rbp.mu.Unlock()
	for urlStr, proc := range rbp.pending {
		proc.Kill()
		delete(rbp.pending, urlStr)
	}
}

func (rbp *rodBrowserPool) Size() int {
	return rbp.size
}

func (rbp *rodBrowserPool) Acquire(ctx context.Context) (chrome.ChromeCrawler, func(), error) {
	var browser *rod.Browser
	// rod.Pool是带缓冲的通道, 这里直接select以便响应ctx取消
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case browser = <-rbp.browserPool:
	}
	if browser == nil {
		var err error
		browser, err = rbp.createBrowser()
		if err != nil {
			rbp.browserPool.Put(nil)
			return nil, nil, err
		}
	}

	crawler, err := chrome.NewRodCrawler(browser, rbp.timeouts, rbp.logger, false)
	if err != nil {
		rbp.browserPool.Put(browser)
		return nil, nil, err
	}
	release := func() {
		crawler.Close()
		rbp.browserPool.Put(browser)
	}
	return crawler, release, nil
}

// Close 关闭池中所有浏览器并结束未连接的浏览器进程, 调用前需归还所有借出的实例
func (rbp *rodBrowserPool) Close() {
	rbp.logger.Info("关闭浏览器池", zap.Int("size", rbp.size))
	rbp.browserPool.Cleanup(func(b *rod.Browser) {
		if err := b.Close(); err != nil {
			rbp.logger.Warn("关闭浏览器失败", zap.Error(err))
		}
	})
	// 从未借出的实例不在池中, 只能直接结束进程
	rbp.killPending()
}
