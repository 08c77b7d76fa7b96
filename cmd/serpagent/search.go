package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "在已索引的PAA/PASF中按语义检索",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Elasticsearch.Enabled || !a.cfg.Embedder.Enabled {
				return errNoIndex
			}
			ctx := cmd.Context()
			index, err := openQuestionIndex(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			hits, err := index.Search(ctx, strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range hits {
				fmt.Fprintf(out, "%.4f\t%s\t%s (%s)\t%s\n",
					h.Score, h.Doc.Kind, h.Doc.Keyword, strings.ToUpper(h.Doc.Country), h.Doc.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 10, "返回的结果数")
	return cmd
}
