package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// リクエストIDのヘッダとコンテキストキー
const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "ssrhost.request_id"
)

// RequestID はリクエストIDを付与するミドルウェア
// 受信したIDがUUIDとして正しい場合はそれを使う
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog は "METHOD URL STATUS BYTES - LATENCY ms" 形式でアクセスログを出力する
// logStatic が false の場合、静的ファイルで応答したリクエストは出力しない
func AccessLog(out io.Writer, logStatic bool) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: tinyFormatter,
		Output:    out,
		Skip: func(c *gin.Context) bool {
			return !logStatic && c.GetBool(StaticHitKey)
		},
	})
}

func tinyFormatter(p gin.LogFormatterParams) string {
	size := "-"
	if p.BodySize >= 0 {
		size = fmt.Sprint(p.BodySize)
	}
	return fmt.Sprintf("%s %s %d %s - %.3f ms\n",
		p.Method,
		p.Path,
		p.StatusCode,
		size,
		float64(p.Latency.Microseconds())/1000,
	)
}

// Recovery はパニックを記録して 500 を返すミドルウェア
// http.ErrAbortHandler は応答を中断するために投げ直す
func Recovery(out io.Writer) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(out, func(c *gin.Context, recovered any) {
		if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			panic(recovered)
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
