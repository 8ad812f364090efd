package main

import (
	"context"
	"os"

	"ssrhost/internal/config"
	"ssrhost/internal/logger"
	"ssrhost/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		logger.New("ssrhost", config.Default().Log, os.Stderr).Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	log := logger.New("ssrhost", cfg.Log, os.Stderr)
	server.ConfigureGin(cfg, log, os.Stderr)

	// サーバーを作成
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("サーバーの作成に失敗しました", "error", err)
		os.Exit(1)
	}

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		log.Error("サーバーの起動に失敗しました", "error", err)
		os.Exit(1)
	}
}
