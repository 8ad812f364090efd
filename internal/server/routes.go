package server

import (
	"io/fs"
	"net/http"
	"strings"

	"ssrhost/internal/config"
	"ssrhost/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// buildRules は評価順にルールを組み立てる
// 静的ファイル(またはライブリロード) → API → フォールバックの順
func buildRules(cfg *config.Config, h *Handlers, site fs.FS, log hclog.Logger) ([]Rule, error) {
	var rules []Rule

	if cfg.LiveReload() {
		rule, err := devServerRule(cfg.DevServer, log)
		if err != nil {
			return nil, err
		}
		log.Info("開発サーバーへアセットを委譲します", "url", cfg.DevServer.URL, "paths", cfg.DevServer.Paths)
		rules = append(rules, rule)
	} else {
		rules = append(rules, staticRules(cfg.Assets, site, log)...)
	}

	rules = append(rules,
		Route(http.MethodGet, "/api/users", h.Users),
		Route(http.MethodGet, "/api/status", h.Status),
		Route(http.MethodGet, "/api/openapi.json", h.OpenAPI),
		Route(http.MethodGet, "/health", h.Health),
	)

	renderer, err := NewRenderer(cfg.Renderer, site, log)
	if err != nil {
		return nil, err
	}
	rules = append(rules, Fallback("renderer", renderer))

	return rules, nil
}

// staticRules はフィンガープリント付きアセットとビルド出力の2つの静的ルートを作成する
func staticRules(cfg config.AssetsConfig, site fs.FS, log hclog.Logger) []Rule {
	if site == nil {
		log.Warn("ビルド出力が見つかりません。静的ファイルは配信しません", "build_dir", cfg.BuildDir)
		return nil
	}

	var rules []Rule
	if assets := subFS(site, strings.Trim(cfg.Prefix, "/")); assets != nil {
		rules = append(rules, Static(&StaticRoot{
			Name:   "assets",
			Prefix: cfg.Prefix,
			FS:     assets,
			Policy: CachePolicy{MaxAge: cfg.ImmutableMaxAge.Std(), Immutable: true},
		}))
	}
	rules = append(rules, Static(&StaticRoot{
		Name:   "build",
		Prefix: "/",
		FS:     site,
		Policy: CachePolicy{MaxAge: cfg.PublicMaxAge.Std()},
	}))

	return rules
}

// newEngine はミドルウェアとディスパッチャを登録した gin エンジンを作成する
func newEngine(cfg *config.Config, d *Dispatcher, log hclog.Logger) *gin.Engine {
	engine := gin.New()
	// すべてのリクエストをディスパッチャが受け取る
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	_ = engine.SetTrustedProxies(nil)

	engine.Use(
		Recovery(logger.Writer(log, hclog.Error)),
		RequestID(),
		AccessLog(logger.Writer(log.Named("http"), hclog.Info), cfg.Assets.LogHits),
	)
	if cfg.Server.Compression {
		engine.Use(Compression())
	}

	engine.Any("/*path", d.Handle)
	engine.NoRoute(d.Handle)

	return engine
}
