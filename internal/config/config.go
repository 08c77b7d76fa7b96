package config

import "net/http/cookiejar"

// Driver 浏览器驱动类型
type Driver string

const (
	DriverChromedp Driver = "chromedp"
	DriverRod      Driver = "rod"
	DriverColly    Driver = "colly"
)

type Config struct {
	Elasticsearch struct {
		Enabled   bool   `json:"enabled" yaml:"enabled"`
		Username  string `json:"username" yaml:"username"`
		Password  string `json:"password" yaml:"password"`
		Address   string `json:"address" yaml:"address"`
		IndexName string `json:"index_name" yaml:"index_name"`
		Dims      int    `json:"dims" yaml:"dims"`
	} `json:"elasticsearch" yaml:"elasticsearch"`

	Rod struct {
		UserMode                         bool   `json:"user_mode" yaml:"user_mode"`
		UserDataDir                      string `json:"user_data_dir" yaml:"user_data_dir"`
		Headless                         bool   `json:"headless" yaml:"headless"`
		DisableBlinkFeatures             string `json:"disable_blink_features" yaml:"disable_blink_features"`
		Incognito                        bool   `json:"incognito" yaml:"incognito"`
		DisableDevShmUsage               bool   `json:"disable_dev_shm_usage" yaml:"disable_dev_shm_usage"`
		NoSandbox                        bool   `json:"no_sandbox" yaml:"no_sandbox"`
		UserAgent                        string `json:"user_agent" yaml:"user_agent"`
		Leakless                         bool   `json:"leakless" yaml:"leakless"`
		Bin                              string `json:"bin" yaml:"bin"`
		Trace                            bool   `json:"trace" yaml:"trace"`
		DisableBackgroundNetworking      bool   `json:"disable_background_networking" yaml:"disable_background_networking"`
		DisableBackgroundTimerThrottling bool   `json:"disable_background_timer_throttling" yaml:"disable_background_timer_throttling"`
		BasicRemoteDebuggingPort         int    `json:"basic_remote_debugging_port" yaml:"basic_remote_debugging_port"`
	} `json:"rod" yaml:"rod"`

	Chromedp struct {
		// LifeTime 浏览器会话的最长存活时间(秒), 0 表示不限制
		LifeTime             int    `json:"life_time" yaml:"life_time"`
		UserDataDir          string `json:"user_data_dir" yaml:"user_data_dir"`
		Headless             bool   `json:"headless" yaml:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features" yaml:"disable_blink_features"`
		Incognito            bool   `json:"incognito" yaml:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage" yaml:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox" yaml:"no_sandbox"`
		UserAgent            string `json:"user_agent" yaml:"user_agent"`
		WindowWidth          int    `json:"window_width" yaml:"window_width"`
		WindowHeight         int    `json:"window_height" yaml:"window_height"`
	} `json:"chromedp" yaml:"chromedp"`

	Colly struct {
		UserAgent        string             `json:"user_agent" yaml:"user_agent"`
		IgnoreRobotsTxt  bool               `json:"ignore_robots_txt" yaml:"ignore_robots_txt"`
		EnableCookieJar  bool               `json:"enable_cookie_jar" yaml:"enable_cookie_jar"`
		CookieJarOptions *cookiejar.Options `json:"cookie_jar_options" yaml:"-"`
		Headers          map[string]string  `json:"headers" yaml:"headers"`
	} `json:"colly" yaml:"colly"`

	Embedder struct {
		Enabled   bool   `json:"enabled" yaml:"enabled"`
		Host      string `json:"host" yaml:"host"`
		Port      int    `json:"port" yaml:"port"`
		Model     string `json:"model" yaml:"model"`
		BatchSize int    `json:"batch_size" yaml:"batch_size"`
	} `json:"embedder" yaml:"embedder"`

	Extract struct {
		Driver Driver `json:"driver" yaml:"driver"`
		// Parallel 大于1时使用rod浏览器池并发处理
		Parallel           int      `json:"parallel" yaml:"parallel"`
		BaseURL            string   `json:"base_url" yaml:"base_url"`
		Language           string   `json:"language" yaml:"language"`
		DelaySeconds       float64  `json:"delay_seconds" yaml:"delay_seconds"`
		DelayJitterSeconds float64  `json:"delay_jitter_seconds" yaml:"delay_jitter_seconds"`
		SettleMinSeconds   float64  `json:"settle_min_seconds" yaml:"settle_min_seconds"`
		SettleMaxSeconds   float64  `json:"settle_max_seconds" yaml:"settle_max_seconds"`
		PageLoadTimeout    int      `json:"page_load_timeout" yaml:"page_load_timeout"`
		BodyWaitTimeout    int      `json:"body_wait_timeout" yaml:"body_wait_timeout"`
		MaxPAA             int      `json:"max_paa" yaml:"max_paa"`
		MaxPASF            int      `json:"max_pasf" yaml:"max_pasf"`
		OpenTabs           bool     `json:"open_tabs" yaml:"open_tabs"`
		PAASelectors       []string `json:"paa_selectors" yaml:"paa_selectors"`
		PASFSelectors      []string `json:"pasf_selectors" yaml:"pasf_selectors"`
		Filter             struct {
			MinChars      int      `json:"min_chars" yaml:"min_chars"`
			MaxChars      int      `json:"max_chars" yaml:"max_chars"`
			QuestionsOnly bool     `json:"questions_only" yaml:"questions_only"`
			Exclude       []string `json:"exclude" yaml:"exclude"`
			DropKeyword   bool     `json:"drop_keyword" yaml:"drop_keyword"`
		} `json:"filter" yaml:"filter"`
	} `json:"extract" yaml:"extract"`

	Storage struct {
		// Dir 为空时不保存历史记录
		Dir string `json:"dir" yaml:"dir"`
	} `json:"storage" yaml:"storage"`

	Server struct {
		Addr          string `json:"addr" yaml:"addr"`
		MaxUploadSize int64  `json:"max_upload_size" yaml:"max_upload_size"`
	} `json:"server" yaml:"server"`

	Log struct {
		Level       string `json:"level" yaml:"level"`
		Development bool   `json:"development" yaml:"development"`
	} `json:"log" yaml:"log"`
}
