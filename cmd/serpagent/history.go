package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/export"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "列出最近的运行, 或输出某次运行的结果",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errNoStorage
			}
			defer store.Close()

			ctx := cmd.Context()
			if runID != "" {
				if _, err := store.GetRun(ctx, runID); err != nil {
					return err
				}
				results, err := store.Results(ctx, runID)
				if err != nil {
					return err
				}
				return export.MarkdownWriter{}.Write(cmd.OutOrStdout(), results)
			}
			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多列出的运行数")
	cmd.Flags().StringVar(&runID, "run", "", "输出指定运行的结果")
	return cmd
}

func writeRuns(w io.Writer, runs []*model.Run) error {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := ""
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			r.ID,
			r.Source,
			string(r.Status),
			strconv.Itoa(r.Processed) + "/" + strconv.Itoa(r.Total),
			r.StartedAt.Local().Format(time.DateTime),
			finished,
		})
	}
	md := markdown.NewMarkdown(w)
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Source", "Status", "Processed", "Started", "Finished"},
		Rows:   rows,
	})
	if err := md.Build(); err != nil {
		return fmt.Errorf("输出运行列表失败: %w", err)
	}
	return nil
}
