package server

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// 圧縮方式
const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// minCompressSize 未満の応答は圧縮しない
const minCompressSize = 1024

const brotliLevel = 4

type encoder interface {
	io.WriteCloser
	Flush() error
	Reset(w io.Writer)
}

var encoderPools = map[string]*sync.Pool{
	encodingGzip: {New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	}},
	encodingBrotli: {New: func() any {
		return brotli.NewWriterLevel(io.Discard, brotliLevel)
	}},
}

// Compression は Accept-Encoding に応じて gzip または brotli で応答を圧縮するミドルウェア
func Compression() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Accept-Encoding")

		if c.Request.Method == http.MethodHead || c.GetHeader("Upgrade") != "" {
			c.Next()
			return
		}

		encoding := negotiateEncoding(c.GetHeader("Accept-Encoding"))
		if encoding == "" {
			c.Next()
			return
		}

		w := &compressWriter{ResponseWriter: c.Writer, encoding: encoding}
		c.Writer = w

		completed := false
		defer func() {
			// パニック時はバッファを捨て、リカバリが元のライターで応答できるようにする
			if !completed {
				w.abandon()
			}
			c.Writer = w.ResponseWriter
		}()

		c.Next()
		w.finish()
		completed = true
	}
}

// negotiateEncoding は q値を考慮して br か gzip を選ぶ。同順位なら br を優先する
func negotiateEncoding(header string) string {
	if header == "" {
		return ""
	}

	q := map[string]float64{}
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		weight := 1.0
		for _, param := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				f = 0
			}
			weight = f
		}
		q[name] = weight
	}

	weight := func(name string) float64 {
		if w, ok := q[name]; ok {
			return w
		}
		return q["*"]
	}

	br, gz := weight(encodingBrotli), weight(encodingGzip)
	switch {
	case br <= 0 && gz <= 0:
		return ""
	case br >= gz:
		return encodingBrotli
	default:
		return encodingGzip
	}
}

type writeMode int

const (
	modeUndecided writeMode = iota
	modeIdentity
	modeEncoded
)

// compressWriter は最初の書き込み時に圧縮するかを決める
// Content-Length が無い場合は minCompressSize までバッファする
type compressWriter struct {
	gin.ResponseWriter

	encoding string
	enc      encoder
	mode     writeMode
	buf      []byte
}

func (w *compressWriter) Write(p []byte) (int, error) {
	if w.mode == modeUndecided {
		if !w.eligible() {
			if err := w.useIdentity(); err != nil {
				return 0, err
			}
		} else if cl := w.Header().Get("Content-Length"); cl != "" {
			n, err := strconv.Atoi(cl)
			if err == nil && n < minCompressSize {
				if err := w.useIdentity(); err != nil {
					return 0, err
				}
			} else if err := w.useEncoding(); err != nil {
				return 0, err
			}
		} else {
			w.buf = append(w.buf, p...)
			if len(w.buf) < minCompressSize {
				return len(p), nil
			}
			if err := w.useEncoding(); err != nil {
				return 0, err
			}
			return len(p), nil
		}
	}

	if w.mode == modeEncoded {
		return w.enc.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *compressWriter) WriteHeaderNow() {
	if w.mode == modeUndecided {
		_ = w.useIdentity()
	}
	w.ResponseWriter.WriteHeaderNow()
}

// Flush はストリーミング応答のために未決定なら圧縮を開始する
func (w *compressWriter) Flush() {
	if w.mode == modeUndecided {
		if w.eligible() && !w.smallContentLength() {
			_ = w.useEncoding()
		} else {
			_ = w.useIdentity()
		}
	}
	if w.mode == modeEncoded {
		_ = w.enc.Flush()
	}
	w.ResponseWriter.Flush()
}

// finish は残りのバッファを書き出し、エンコーダをプールに戻す
func (w *compressWriter) finish() {
	switch w.mode {
	case modeUndecided:
		if len(w.buf) > 0 {
			_ = w.useIdentity()
		}
	case modeEncoded:
		_ = w.enc.Close()
		w.enc.Reset(io.Discard)
		encoderPools[w.encoding].Put(w.enc)
		w.enc = nil
	}
}

// abandon は書き出していないバッファを破棄し、エンコーダをプールに戻す
func (w *compressWriter) abandon() {
	w.buf = nil
	if w.enc != nil {
		w.enc.Reset(io.Discard)
		encoderPools[w.encoding].Put(w.enc)
		w.enc = nil
	}
	w.mode = modeIdentity
}

func (w *compressWriter) useIdentity() error {
	w.mode = modeIdentity
	return w.drain(w.ResponseWriter)
}

func (w *compressWriter) useEncoding() error {
	h := w.Header()
	h.Set("Content-Encoding", w.encoding)
	h.Del("Content-Length")
	h.Del("Accept-Ranges")
	if etag := h.Get("ETag"); etag != "" && !strings.HasPrefix(etag, "W/") {
		h.Set("ETag", "W/"+etag)
	}

	w.enc = encoderPools[w.encoding].Get().(encoder)
	w.enc.Reset(w.ResponseWriter)
	w.mode = modeEncoded
	return w.drain(w.enc)
}

func (w *compressWriter) drain(dst io.Writer) error {
	if len(w.buf) == 0 {
		return nil
	}
	buf := w.buf
	w.buf = nil
	_, err := dst.Write(buf)
	return err
}

func (w *compressWriter) smallContentLength() bool {
	cl := w.Header().Get("Content-Length")
	if cl == "" {
		return false
	}
	n, err := strconv.Atoi(cl)
	return err == nil && n < minCompressSize
}

// eligible はヘッダとステータスから圧縮対象かどうかを判定する
func (w *compressWriter) eligible() bool {
	switch status := w.Status(); {
	case status < http.StatusOK,
		status == http.StatusNoContent,
		status == http.StatusPartialContent,
		status == http.StatusNotModified:
		return false
	}

	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if strings.Contains(strings.ToLower(h.Get("Cache-Control")), "no-transform") {
		return false
	}
	return compressible(h.Get("Content-Type"))
}

// compressible は圧縮して効果のあるコンテンツタイプかどうかを返す
func compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch {
	case strings.HasPrefix(mediaType, "text/"),
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"):
		return true
	}

	switch mediaType {
	case "application/json",
		"application/javascript",
		"application/xml",
		"application/wasm",
		"application/manifest+json",
		"image/svg+xml",
		"image/x-icon",
		"font/ttf",
		"font/otf":
		return true
	}
	return false
}
