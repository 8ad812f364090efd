package server

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// CachePolicy は Cache-Control ヘッダの内容
type CachePolicy struct {
	MaxAge    time.Duration
	Immutable bool
}

// String は Cache-Control ヘッダの値を返す
func (p CachePolicy) String() string {
	v := "public, max-age=" + strconv.FormatInt(int64(p.MaxAge/time.Second), 10)
	if p.Immutable {
		v += ", immutable"
	}
	return v
}

// StaticRoot は URL プレフィックス配下にファイルシステムを公開する
type StaticRoot struct {
	Name   string
	Prefix string
	FS     fs.FS
	Policy CachePolicy
}

// Match はリクエストに対応するファイルが存在するかを返す
// GET と HEAD 以外は常に一致しない
func (s *StaticRoot) Match(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	_, ok := s.resolve(r.URL.Path)
	return ok
}

// Shadows は指定したURLパスにファイルが存在するかを返す
func (s *StaticRoot) Shadows(urlPath string) bool {
	_, ok := s.resolve(urlPath)
	return ok
}

// Serve はファイルをキャッシュヘッダ付きで返す
// ファイルが無い場合は 404 を返す
func (s *StaticRoot) Serve(c *gin.Context) {
	if !s.TryServe(c) {
		c.Status(http.StatusNotFound)
	}
}

// TryServe はファイルを返し、応答したかどうかを返す
// ファイルが見つからない場合は何も書き込まずに false を返す
func (s *StaticRoot) TryServe(c *gin.Context) bool {
	name, ok := s.resolve(c.Request.URL.Path)
	if !ok {
		return false
	}

	f, err := s.FS.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	content, err := readSeeker(f)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return true
	}

	header := c.Writer.Header()
	header.Set("Cache-Control", s.Policy.String())
	header.Set("ETag", fmt.Sprintf(`W/"%x-%x"`, info.Size(), info.ModTime().UnixMilli()))

	if mime.TypeByExtension(path.Ext(name)) == "" {
		// 拡張子から判定できない場合は内容から判定する
		if mt, err := mimetype.DetectReader(content); err == nil {
			header.Set("Content-Type", mt.String())
		}
		if _, err := content.Seek(0, io.SeekStart); err != nil {
			_ = c.Error(err)
			c.Status(http.StatusInternalServerError)
			return true
		}
	}

	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), content)
	return true
}

// resolve はURLパスをルート内のファイル名に変換する
// ディレクトリの場合は index.html を探す
func (s *StaticRoot) resolve(urlPath string) (string, bool) {
	rel, ok := s.relative(urlPath)
	if !ok {
		return "", false
	}

	info, err := fs.Stat(s.FS, rel)
	if err != nil {
		return "", false
	}

	if info.IsDir() {
		index := path.Join(rel, "index.html")
		info, err = fs.Stat(s.FS, index)
		if err != nil || !info.Mode().IsRegular() {
			return "", false
		}
		return index, true
	}

	if !info.Mode().IsRegular() {
		return "", false
	}
	return rel, true
}

// relative はプレフィックスを取り除いた相対パスを返す
func (s *StaticRoot) relative(urlPath string) (string, bool) {
	if s.FS == nil {
		return "", false
	}

	prefix := strings.TrimSuffix(s.Prefix, "/")
	if prefix != "" {
		if urlPath != prefix && !strings.HasPrefix(urlPath, prefix+"/") {
			return "", false
		}
		urlPath = strings.TrimPrefix(urlPath, prefix)
	}

	// ルートより上には出られない
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if rel == "" {
		return ".", true
	}

	// ドットファイルは公開しない
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}

	if !fs.ValidPath(rel) {
		return "", false
	}
	return rel, true
}

// readSeeker はファイルをシーク可能なリーダーとして返す
func readSeeker(f fs.File) (io.ReadSeeker, error) {
	if rs, ok := f.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
