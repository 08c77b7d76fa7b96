package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/export"
	"github.com/LouYuanbo1/serpagent/internal/infra/input"
	"github.com/LouYuanbo1/serpagent/param"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	input      string
	keywordCol string
	countryCol string
	output     string
	format     string
	driver     string
	parallel   int
	delay      float64
	maxPAA     int
	maxPASF    int
	openTabs   bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "从CSV/XLSX读取关键词并提取PAA和PASF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "输入文件(.csv或.xlsx)")
	fl.StringVar(&f.keywordCol, "keyword-col", "", "关键词列名, 默认自动识别")
	fl.StringVar(&f.countryCol, "country-col", "", "国家列名, 默认自动识别")
	fl.StringVarP(&f.output, "output", "o", "", "输出文件, 默认 "+export.DefaultBaseName+".<format>")
	fl.StringVarP(&f.format, "format", "f", "", "输出格式 csv|xlsx|json|md, 默认按输出文件扩展名")
	fl.StringVar(&f.driver, "driver", "", "浏览器驱动 chromedp|rod|colly")
	fl.IntVar(&f.parallel, "parallel", 0, "rod浏览器池大小")
	fl.Float64Var(&f.delay, "delay", 0, "两行之间的等待秒数 [3, 12]")
	fl.IntVar(&f.maxPAA, "max-paa", 0, "每个关键词最多保留的PAA问题数 [3, 20]")
	fl.IntVar(&f.maxPASF, "max-pasf", 0, "每个关键词最多保留的PASF数 [3, 15]")
	fl.BoolVar(&f.openTabs, "open-tabs", false, "为前4个PAA问题打开新标签页")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// params 命令行参数覆盖配置文件中的extract段
func (f *runFlags) params(cmd *cobra.Command, cfg *config.Config) (*param.Extract, error) {
	if f.driver != "" {
		cfg.Extract.Driver = config.Driver(strings.ToLower(f.driver))
	}
	if f.parallel > 0 {
		cfg.Extract.Parallel = f.parallel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	p := param.FromConfig(cfg)
	fl := cmd.Flags()
	if fl.Changed("delay") {
		p.SetDelaySeconds(f.delay)
	}
	if fl.Changed("max-paa") {
		p.MaxPAA = f.maxPAA
	}
	if fl.Changed("max-pasf") {
		p.MaxPASF = f.maxPASF
	}
	if fl.Changed("open-tabs") {
		p.OpenTabs = f.openTabs
	}
	return p, p.Validate()
}

// writer 优先使用--format, 否则按输出文件扩展名选择
func (f *runFlags) writer() (export.Writer, string, error) {
	format := f.format
	if format == "" && f.output != "" {
		format = filepath.Ext(f.output)
	}
	w, err := export.ForFormat(format)
	if err != nil {
		return nil, "", err
	}
	out := f.output
	if out == "" {
		out = export.FileName("", w)
	}
	return w, out, nil
}

func (a *app) run(cmd *cobra.Command, f *runFlags) error {
	ctx := cmd.Context()
	p, err := f.params(cmd, a.cfg)
	if err != nil {
		return err
	}
	w, out, err := f.writer()
	if err != nil {
		return err
	}

	file, err := os.Open(f.input)
	if err != nil {
		return err
	}
	table, err := input.Read(f.input, file)
	file.Close()
	if err != nil {
		return err
	}
	kwCol, ccCol := table.DetectColumns()
	if f.keywordCol != "" {
		kwCol = f.keywordCol
	}
	if f.countryCol != "" {
		ccCol = f.countryCol
	}
	queries, unknown, err := table.Queries(kwCol, ccCol)
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		a.logger.Warn("存在无法识别的国家代码", zap.Strings("codes", unknown))
	}
	a.logger.Info("读取输入文件完成",
		zap.String("input", f.input),
		zap.String("keyword_column", kwCol),
		zap.String("country_column", ccCol),
		zap.Int("queries", len(queries)),
	)

	b, err := a.openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	svc, closeFn, err := newSession(ctx, a.cfg, b.store, b.indexer, a.logger)
	if err != nil {
		return err
	}
	run := &model.Run{ID: uuid.NewString(), Source: filepath.Base(f.input)}
	results, runErr := svc.Run(ctx, run, queries, p, func(pr model.Progress) {
		if pr.Result == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), pr.Message)
		}
	})
	closeFn()

	// 取消时仍然写出已完成的行
	if len(results) > 0 || runErr == nil {
		if err := writeFile(out, w, results); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d rows written to %s (run %s)\n", len(results), len(queries), out, run.ID)
	}
	return runErr
}

func writeFile(path string, w export.Writer, results []*model.SerpResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.Write(file, results); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
