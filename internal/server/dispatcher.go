package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// ディスパッチャ構築時のエラー
var (
	ErrNoFallback      = errors.New("フォールバックルールがありません")
	ErrFallbackNotLast = errors.New("フォールバックルールは最後に登録する必要があります")
)

// コンテキストに保存するキー
const (
	// RuleKey は一致したルール名
	RuleKey = "ssrhost.rule"
	// StaticHitKey は静的ファイルで応答したかどうか
	StaticHitKey = "ssrhost.static"
)

// ruleKind はルールの種類
type ruleKind int

const (
	kindRoute ruleKind = iota
	kindStatic
	kindPrefix
	kindFallback
)

// MatchFunc はリクエストがルールに一致するかを判定する
type MatchFunc func(r *http.Request) bool

// Rule は照合条件とハンドラの組
type Rule struct {
	Name    string
	Method  string // Route のみ
	Path    string // Route のみ
	Match   MatchFunc
	Handler gin.HandlerFunc

	kind     ruleKind
	root     *StaticRoot
	prefixes []string
}

// Route はメソッドとパスが一致するリクエストを処理するルールを作成する
// パスの比較は大文字小文字を区別せず、末尾のスラッシュ1つを許容する
// GET のルールは HEAD にも応答する
func Route(method, path string, h gin.HandlerFunc) Rule {
	return Rule{
		Name:   method + " " + path,
		Method: method,
		Path:   path,
		Match: func(r *http.Request) bool {
			return methodMatches(method, r.Method) && pathMatches(path, r.URL.Path)
		},
		Handler: h,
		kind:    kindRoute,
	}
}

// Static は静的ルートにファイルが存在する場合だけ一致するルールを作成する
func Static(root *StaticRoot) Rule {
	return Rule{
		Name:    "static:" + root.Name,
		Match:   root.Match,
		Handler: root.Serve,
		kind:    kindStatic,
		root:    root,
	}
}

// Prefixed はパスがいずれかのプレフィックスで始まる場合に一致するルールを作成する
func Prefixed(name string, prefixes []string, h gin.HandlerFunc) Rule {
	prefixes = append([]string(nil), prefixes...)
	return Rule{
		Name: name,
		Match: func(r *http.Request) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					return true
				}
			}
			return false
		},
		Handler:  h,
		kind:     kindPrefix,
		prefixes: prefixes,
	}
}

// Fallback はすべてのリクエストに一致するルールを作成する
func Fallback(name string, h gin.HandlerFunc) Rule {
	return Rule{
		Name:    name,
		Match:   func(*http.Request) bool { return true },
		Handler: h,
		kind:    kindFallback,
	}
}

// Dispatcher は登録順にルールを評価し、最初に一致したルールを実行する
type Dispatcher struct {
	rules  []Rule
	logger hclog.Logger
}

// NewDispatcher はルール一覧からディスパッチャを作成する
func NewDispatcher(logger hclog.Logger, rules ...Rule) (*Dispatcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	if len(rules) == 0 || rules[len(rules)-1].kind != kindFallback {
		return nil, ErrNoFallback
	}
	for i, rule := range rules[:len(rules)-1] {
		if rule.kind == kindFallback {
			return nil, fmt.Errorf("%w: %q (位置 %d)", ErrFallbackNotLast, rule.Name, i)
		}
	}

	d := &Dispatcher{
		rules:  append([]Rule(nil), rules...),
		logger: logger,
	}
	d.checkConflicts()

	return d, nil
}

// checkConflicts は到達できないルールや静的ファイルによる隠蔽を警告する
func (d *Dispatcher) checkConflicts() {
	seen := make(map[string]string)
	var roots []*StaticRoot
	var prefixed []Rule

	for _, rule := range d.rules {
		switch rule.kind {
		case kindStatic:
			roots = append(roots, rule.root)
		case kindPrefix:
			prefixed = append(prefixed, rule)
		case kindRoute:
			key := rule.Method + " " + strings.ToLower(strings.TrimSuffix(rule.Path, "/"))
			if first, ok := seen[key]; ok {
				d.logger.Warn("到達できないルールがあります", "rule", rule.Name, "shadowed_by", first)
				continue
			}
			seen[key] = rule.Name

			for _, root := range roots {
				if root.Shadows(rule.Path) {
					d.logger.Warn("静的ファイルがルートを隠しています", "rule", rule.Name, "root", root.Name)
				}
			}
			for _, p := range prefixed {
				if prefix, ok := p.covers(rule.Path); ok {
					d.logger.Warn("プレフィックスがルートを隠しています", "rule", rule.Name, "shadowed_by", p.Name, "prefix", prefix)
				}
			}
		}
	}
}

// Resolve はリクエストに一致する最初のルールを返す
func (d *Dispatcher) Resolve(r *http.Request) Rule {
	for _, rule := range d.rules {
		if rule.Match(r) {
			return rule
		}
	}
	// 最後のルールは常に一致する
	return d.rules[len(d.rules)-1]
}

// Handle は gin のハンドラとしてリクエストを振り分ける
// 静的ルールは一致した後にファイルが消えていた場合、次のルールへ進む
func (d *Dispatcher) Handle(c *gin.Context) {
	for _, rule := range d.rules {
		if !rule.Match(c.Request) {
			continue
		}

		if d.logger.IsTrace() {
			d.logger.Trace("ルールに一致しました", "rule", rule.Name, "method", c.Request.Method, "path", c.Request.URL.Path)
		}

		if rule.kind == kindStatic {
			if !rule.root.TryServe(c) {
				continue
			}
			c.Set(RuleKey, rule.Name)
			c.Set(StaticHitKey, true)
			return
		}

		c.Set(RuleKey, rule.Name)
		rule.Handler(c)
		return
	}
}

// covers はプレフィックスのいずれかがパスを含む場合、そのプレフィックスを返す
func (r Rule) covers(urlPath string) (string, bool) {
	for _, p := range r.prefixes {
		if strings.HasPrefix(urlPath, p) || strings.HasPrefix(urlPath+"/", p) {
			return p, true
		}
	}
	return "", false
}

// Names は評価順のルール名を返す
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.rules))
	for i, rule := range d.rules {
		names[i] = rule.Name
	}
	return names
}

func methodMatches(want, got string) bool {
	return want == got || (want == http.MethodGet && got == http.MethodHead)
}

func pathMatches(want, got string) bool {
	if len(got) > 1 {
		got = strings.TrimSuffix(got, "/")
	}
	if len(want) > 1 {
		want = strings.TrimSuffix(want, "/")
	}
	return strings.EqualFold(want, got)
}
