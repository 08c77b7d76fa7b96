package parallel

import (
	"context"

	"github.com/LouYuanbo1/serpagent/internal/infra/crawler/chrome"
)

// BrowserPool 多个浏览器实例,每次借出一个页面
type BrowserPool interface {
	Size() int
	// Acquire 阻塞直到有空闲浏览器或ctx结束, release把浏览器放回池中
	Acquire(ctx context.Context) (crawler chrome.ChromeCrawler, release func(), err error)
	Close()
}
