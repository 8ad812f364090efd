package server

import (
	"ssrhost/internal/config"

	"github.com/hashicorp/go-hclog"
)

// devServerRule は開発サーバーへアセット要求を委譲するルールを作成する
// WebSocket のアップグレードもそのまま転送される
func devServerRule(cfg config.DevServerConfig, log hclog.Logger) (Rule, error) {
	proxy, err := newReverseProxy(cfg.URL, log.Named("devserver"))
	if err != nil {
		return Rule{}, err
	}
	return Prefixed("devserver", cfg.Paths, proxy), nil
}
