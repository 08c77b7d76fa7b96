package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := json.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// ParseYAMLConfig 与ParseConfig相同,但输入为YAML
func ParseYAMLConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(byteConfig, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// LoadFile 根据扩展名选择JSON或YAML解析
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAMLConfig(data)
	default:
		return ParseConfig(data)
	}
}

func finish(cfg *Config) (*Config, error) {
	// 空路径交给浏览器使用临时目录,不能转成当前目录
	for _, dir := range []*string{&cfg.Chromedp.UserDataDir, &cfg.Rod.UserDataDir} {
		if *dir == "" {
			continue
		}
		absPath, err := filepath.Abs(*dir)
		if err != nil {
			return nil, err
		}
		*dir = absPath
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults 填充未设置的字段
func ApplyDefaults(cfg *Config) {
	ex := &cfg.Extract
	if ex.Driver == "" {
		ex.Driver = DriverChromedp
	}
	if ex.Parallel <= 0 {
		ex.Parallel = 1
	}
	if ex.BaseURL == "" {
		ex.BaseURL = "https://www.google.com"
	}
	if ex.Language == "" {
		ex.Language = "en"
	}
	if ex.DelaySeconds == 0 {
		ex.DelaySeconds = 6
	}
	if ex.DelayJitterSeconds == 0 {
		ex.DelayJitterSeconds = 2
	}
	if ex.SettleMinSeconds == 0 && ex.SettleMaxSeconds == 0 {
		ex.SettleMinSeconds, ex.SettleMaxSeconds = 3, 6
	}
	if ex.PageLoadTimeout <= 0 {
		ex.PageLoadTimeout = 45
	}
	if ex.BodyWaitTimeout <= 0 {
		ex.BodyWaitTimeout = 20
	}
	if ex.MaxPAA == 0 {
		ex.MaxPAA = 10
	}
	if ex.MaxPASF == 0 {
		ex.MaxPASF = 8
	}
	if len(ex.PAASelectors) == 0 {
		ex.PAASelectors = []string{".related-question-pair span"}
	}
	if len(ex.PASFSelectors) == 0 {
		ex.PASFSelectors = []string{"a.ggLgoc"}
	}
	if ex.Filter.MinChars <= 0 {
		ex.Filter.MinChars = 1
	}

	if cfg.Chromedp.WindowWidth == 0 || cfg.Chromedp.WindowHeight == 0 {
		cfg.Chromedp.WindowWidth, cfg.Chromedp.WindowHeight = 1920, 1080
	}
	if cfg.Elasticsearch.IndexName == "" {
		cfg.Elasticsearch.IndexName = "serp_questions"
	}
	if cfg.Elasticsearch.Dims == 0 {
		cfg.Elasticsearch.Dims = 768
	}
	if cfg.Embedder.BatchSize <= 0 {
		cfg.Embedder.BatchSize = 16
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8501"
	}
	if cfg.Server.MaxUploadSize <= 0 {
		cfg.Server.MaxUploadSize = 10 << 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func Validate(cfg *Config) error {
	switch cfg.Extract.Driver {
	case DriverChromedp, DriverRod, DriverColly:
	default:
		return fmt.Errorf("%w: 未知驱动 %q", ErrInvalidConfig, cfg.Extract.Driver)
	}
	if cfg.Extract.Parallel > 1 && cfg.Extract.Driver != DriverRod {
		return fmt.Errorf("%w: 并发模式只支持rod驱动", ErrInvalidConfig)
	}
	if cfg.Extract.SettleMinSeconds < 0 || cfg.Extract.SettleMaxSeconds < cfg.Extract.SettleMinSeconds {
		return fmt.Errorf("%w: settle区间无效 [%v, %v]", ErrInvalidConfig, cfg.Extract.SettleMinSeconds, cfg.Extract.SettleMaxSeconds)
	}
	if cfg.Embedder.Enabled && !cfg.Elasticsearch.Enabled {
		return fmt.Errorf("%w: 启用embedder需要同时启用elasticsearch", ErrInvalidConfig)
	}
	return nil
}
