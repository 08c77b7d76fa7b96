package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"
)

//使用go:embed嵌入appconfig.json文件
//下方注释重要,不能删除
//未通过--config指定配置文件时使用嵌入的默认配置

//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	// Ctrl+C时取消当前运行, 已完成的行仍会写入输出文件
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(appConfig).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
