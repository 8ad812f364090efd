package server

import (
	"io/fs"
	"net/http"

	"ssrhost/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// NewRenderer はフォールバックレンダラを作成する
// renderer.url が設定されていればSSRアップストリームへ転送し、
// そうでなければビルド出力のHTMLシェルを返す
func NewRenderer(cfg config.RendererConfig, site fs.FS, log hclog.Logger) (gin.HandlerFunc, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	if cfg.URL != "" {
		log.Info("SSRアップストリームへ転送します", "url", cfg.URL)
		return newReverseProxy(cfg.URL, log.Named("renderer"))
	}

	log.Info("HTMLシェルを返します", "index_file", cfg.IndexFile)
	return shellHandler(site, cfg.IndexFile), nil
}

// shellHandler はリクエストごとに index ファイルを読み込んで返す
func shellHandler(site fs.FS, indexFile string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
		default:
			c.Header("Allow", "GET, HEAD")
			c.Status(http.StatusMethodNotAllowed)
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "text/html; charset=utf-8", readIndex(site, indexFile))
	}
}
