package main

import (
	"fmt"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app 各子命令共享的配置和日志器, 在PersistentPreRunE中填充
type app struct {
	defaultConfig []byte
	configPath    string
	verbose       bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(defaultConfig []byte) *cobra.Command {
	a := &app{defaultConfig: defaultConfig}
	root := &cobra.Command{
		Use:   "serpagent",
		Short: "Extract Google People Also Ask and People Also Search For",
		Long: `serpagent 为表格中的每个关键词/国家组合打开Google搜索结果页,
读取 People Also Ask 问题和 People Also Search For 相关搜索, 输出结果表。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "配置文件路径(JSON或YAML), 默认使用内置配置")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出debug日志")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
		newSearchCmd(a),
		newIndexCmd(a),
	)
	return root
}

func (a *app) load() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.ParseConfig(a.defaultConfig)
	}
	if err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	l, err := logger.New(cfg, a.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = l
	return nil
}
