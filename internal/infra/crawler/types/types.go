package types

import (
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
)

// Timeouts 页面加载与等待body的超时
type Timeouts struct {
	PageLoad time.Duration
	BodyWait time.Duration
}

func TimeoutsFromConfig(cfg *config.Config) Timeouts {
	return Timeouts{
		PageLoad: time.Duration(cfg.Extract.PageLoadTimeout) * time.Second,
		BodyWait: time.Duration(cfg.Extract.BodyWaitTimeout) * time.Second,
	}
}
