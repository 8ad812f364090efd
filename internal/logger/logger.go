// Package logger は hclog を使ったアプリケーションロガーを構築します。
//
// HTTPサーバーのエラーログ、アクセスログ、リバースプロキシのログも
// 同じロガーを経由して出力されます。
package logger

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"

	"ssrhost/internal/config"
)

// New は設定に従ってロガーを作成する
// out が nil の場合は標準エラー出力を使う
func New(name string, cfg config.LogConfig, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}

	color := hclog.ColorOff
	if !cfg.JSON && IsTerminal(out) {
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(cfg.Level),
		Output:     out,
		JSONFormat: cfg.JSON,
		Color:      color,
	})
}

// Writer は1行を1ログとして指定レベルで出力する io.Writer を返す
// gin のロガーやリカバリの出力先に使う
func Writer(l hclog.Logger, level hclog.Level) io.Writer {
	return l.StandardWriter(&hclog.StandardLoggerOptions{ForceLevel: level})
}

// IsTerminal は出力先が端末かどうかを返す
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
