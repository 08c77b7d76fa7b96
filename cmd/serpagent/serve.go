package main

import (
	"context"

	service "github.com/LouYuanbo1/serpagent/internal/service/serp"
	"github.com/LouYuanbo1/serpagent/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动网页界面",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址, 默认使用配置中的server.addr")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	b, err := a.openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	// 每次运行创建新的浏览器会话, 运行结束后关闭
	factory := func(ctx context.Context) (service.SerpService, func(), error) {
		return newSession(ctx, a.cfg, b.store, b.indexer, a.logger)
	}
	manager := web.NewRunManager(ctx, factory, a.logger)

	var history web.HistoryStore
	if b.sqlite != nil {
		history = b.sqlite
	}
	srv, err := web.NewServer(a.cfg, manager, history, a.logger)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
