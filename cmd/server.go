// Package main は ssrhost サーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ssrhost/internal/config"
	"ssrhost/internal/logger"
	"ssrhost/internal/server"

	"github.com/hashicorp/go-hclog"
)

func main() {
	// コマンドラインオプション
	var (
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 3000)")
		env        = flag.String("env", "", "環境ラベル (デフォルト: development)")
		configFile = flag.String("config", "", "設定ファイル (.yaml / .toml)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("ssrhost")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	bootstrap := hclog.New(&hclog.LoggerOptions{Name: "ssrhost", Output: os.Stderr})

	// 設定を読み込む
	path := *configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		bootstrap.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *env != "" {
		cfg.Environment = *env
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("コマンドラインオプションが不正です", "error", err)
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
	log.Info("ssrhost サーバーを起動します", "addr", cfg.ServerAddress(), "rules", srv.Rules())
	if err := srv.Start(context.Background()); err != nil {
		log.Error("サーバーの起動に失敗しました", "error", err)
		os.Exit(1)
	}
}
