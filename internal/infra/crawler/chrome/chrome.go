package chrome

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout 页面加载或等待body超时
	ErrTimeout = errors.New("page load timeout")
	// ErrUnsupported 当前驱动不支持该操作
	ErrUnsupported = errors.New("operation not supported by driver")
)

// ChromeCrawler 浏览器爬取器,负责加载搜索结果页并按选择器读取文本
type ChromeCrawler interface {
	// Navigate 加载页面并等待body出现,超时返回ErrTimeout
	Navigate(ctx context.Context, url string) error
	// Texts 返回选择器匹配到的所有元素的可见文本
	Texts(ctx context.Context, selector string) ([]string, error)
	// OpenTab 在新标签页中打开url
	OpenTab(ctx context.Context, url string) error
	Close()
}

// wrapTimeout 把截止时间错误统一转换为ErrTimeout,调用方取消时返回调用方的错误
func wrapTimeout(parent, op context.Context, err error, url string) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(op.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	return err
}

// textsJS 在页面中执行,返回匹配元素的innerText
const textsJS = `(sel) => Array.from(document.querySelectorAll(sel)).map(e => e.innerText || e.textContent || "")`
