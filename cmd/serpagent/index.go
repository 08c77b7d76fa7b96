package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		reset bool
		docID string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "查看问题索引的文档数, 读取单个文档或重建索引",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Elasticsearch.Enabled {
				return errNoElasticsearch
			}
			ctx := cmd.Context()
			index, err := openQuestionIndex(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if docID != "" {
				doc, err := index.Get(ctx, docID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s (%s)\t#%d\t%s\n",
					doc.GetID(), doc.Kind, doc.Keyword, strings.ToUpper(doc.Country), doc.Position, doc.Text)
				return nil
			}
			if reset {
				if err := index.Reset(ctx); err != nil {
					return err
				}
			}
			stats, err := index.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%d\n", stats.Index, stats.Docs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "删除并按当前维度重建索引")
	cmd.Flags().StringVar(&docID, "get", "", "按ID输出单个文档")
	cmd.MarkFlagsMutuallyExclusive("reset", "get")
	return cmd
}
