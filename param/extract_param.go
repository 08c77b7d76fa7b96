package param

import (
	"errors"
	"fmt"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/serp"
)

var ErrInvalidParams = errors.New("invalid extract params")

// 界面与命令行允许的取值范围
const (
	MinDelay      = 3 * time.Second
	MaxDelay      = 12 * time.Second
	MinPAA        = 3
	MaxPAA        = 20
	MinPASF       = 3
	MaxPASF       = 15
	OpenTabsLimit = 4
	TabInterval   = 800 * time.Millisecond
)

// Extract 一次批量提取的参数
type Extract struct {
	BaseURL  string `json:"base_url"`
	Language string `json:"language"`

	// Delay 两行之间的固定等待, 实际等待为 Delay + [0, DelayJitter)
	Delay       time.Duration `json:"delay"`
	DelayJitter time.Duration `json:"delay_jitter"`
	// SettleMin/SettleMax 页面加载后、读取DOM前的随机等待区间
	SettleMin time.Duration `json:"settle_min"`
	SettleMax time.Duration `json:"settle_max"`

	MaxPAA  int `json:"max_paa"`
	MaxPASF int `json:"max_pasf"`

	OpenTabs      bool          `json:"open_tabs"`
	OpenTabsLimit int           `json:"open_tabs_limit"`
	TabInterval   time.Duration `json:"tab_interval"`

	PAASelectors  []string    `json:"paa_selectors"`
	PASFSelectors []string    `json:"pasf_selectors"`
	Filter        serp.Filter `json:"filter"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// FromConfig 用配置中的extract段构造参数
func FromConfig(cfg *config.Config) *Extract {
	ex := cfg.Extract
	return &Extract{
		BaseURL:       ex.BaseURL,
		Language:      ex.Language,
		Delay:         seconds(ex.DelaySeconds),
		DelayJitter:   seconds(ex.DelayJitterSeconds),
		SettleMin:     seconds(ex.SettleMinSeconds),
		SettleMax:     seconds(ex.SettleMaxSeconds),
		MaxPAA:        ex.MaxPAA,
		MaxPASF:       ex.MaxPASF,
		OpenTabs:      ex.OpenTabs,
		OpenTabsLimit: OpenTabsLimit,
		TabInterval:   TabInterval,
		PAASelectors:  append([]string(nil), ex.PAASelectors...),
		PASFSelectors: append([]string(nil), ex.PASFSelectors...),
		Filter: serp.Filter{
			MinChars:      ex.Filter.MinChars,
			MaxChars:      ex.Filter.MaxChars,
			QuestionsOnly: ex.Filter.QuestionsOnly,
			Exclude:       append([]string(nil), ex.Filter.Exclude...),
			DropKeyword:   ex.Filter.DropKeyword,
		},
	}
}

// SetDelaySeconds 界面和命令行以秒为单位传入
func (p *Extract) SetDelaySeconds(s float64) {
	p.Delay = seconds(s)
}

func (p *Extract) Validate() error {
	if p.Delay < MinDelay || p.Delay > MaxDelay {
		return fmt.Errorf("%w: delay %v 超出范围 [%v, %v]", ErrInvalidParams, p.Delay, MinDelay, MaxDelay)
	}
	if p.DelayJitter < 0 {
		return fmt.Errorf("%w: delay_jitter 不能为负数", ErrInvalidParams)
	}
	if p.SettleMin < 0 || p.SettleMax < p.SettleMin {
		return fmt.Errorf("%w: settle区间无效 [%v, %v]", ErrInvalidParams, p.SettleMin, p.SettleMax)
	}
	if p.MaxPAA < MinPAA || p.MaxPAA > MaxPAA {
		return fmt.Errorf("%w: max_paa %d 超出范围 [%d, %d]", ErrInvalidParams, p.MaxPAA, MinPAA, MaxPAA)
	}
	if p.MaxPASF < MinPASF || p.MaxPASF > MaxPASF {
		return fmt.Errorf("%w: max_pasf %d 超出范围 [%d, %d]", ErrInvalidParams, p.MaxPASF, MinPASF, MaxPASF)
	}
	if len(p.PAASelectors) == 0 || len(p.PASFSelectors) == 0 {
		return fmt.Errorf("%w: 选择器不能为空", ErrInvalidParams)
	}
	return nil
}
