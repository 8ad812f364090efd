package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ssrhost/internal/api"
	"ssrhost/internal/config"
	"ssrhost/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// ConfigureGin は環境に応じて gin の動作モードと出力先を設定する
func ConfigureGin(cfg *config.Config, log hclog.Logger, out io.Writer) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if !logger.IsTerminal(out) {
		gin.DisableConsoleColor()
	}
	gin.DefaultWriter = logger.Writer(log.Named("gin"), hclog.Debug)
	gin.DefaultErrorWriter = logger.Writer(log.Named("gin"), hclog.Error)
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	logger     hclog.Logger
	engine     *gin.Engine
	dispatcher *Dispatcher
	httpServer *http.Server
	listener   net.Listener
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, log hclog.Logger) (*Server, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	doc, err := api.LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}

	environment := func() string {
		return config.Environment(cfg.Environment)
	}
	handlers, err := NewHandlers(time.Now, environment, doc)
	if err != nil {
		return nil, err
	}

	site := BuildFS(cfg.Assets.BuildDir)
	rules, err := buildRules(cfg, handlers, site, log)
	if err != nil {
		return nil, fmt.Errorf("ルールの構築に失敗: %w", err)
	}

	dispatcher, err := NewDispatcher(log.Named("dispatcher"), rules...)
	if err != nil {
		return nil, fmt.Errorf("ディスパッチャの作成に失敗: %w", err)
	}

	engine := newEngine(cfg, dispatcher, log)

	return &Server{
		config:     cfg,
		logger:     log,
		engine:     engine,
		dispatcher: dispatcher,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout.Std(),
			WriteTimeout: cfg.Server.WriteTimeout.Std(),
			IdleTimeout:  cfg.Server.IdleTimeout.Std(),
			ErrorLog:     log.Named("http").StandardLogger(&hclog.StandardLoggerOptions{ForceLevel: hclog.Warn}),
		},
	}, nil
}

// Handler はサーバーの http.Handler を返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Rules は評価順のルール名を返す
func (s *Server) Rules() []string {
	return s.dispatcher.Names()
}

// Listen はアドレスをバインドする
// バインドに失敗した場合はエラーを返す
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("アドレスのバインドに失敗 (%s): %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr はリッスン中のアドレスを返す
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Start はサーバーを起動する
// コンテキストのキャンセルか SIGINT/SIGTERM でグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", "addr", s.Addr(), "environment", s.config.Environment)
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
