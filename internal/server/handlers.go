package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ssrhost/internal/api"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

// Handlers は固定ペイロードを返すエンドポイントの実装
type Handlers struct {
	now         func() time.Time
	environment func() string
	openapiJSON []byte
}

// NewHandlers はハンドラを作成する
// now と environment は応答のたびに呼び出される
func NewHandlers(now func() time.Time, environment func() string, doc *openapi3.T) (*Handlers, error) {
	if now == nil {
		now = time.Now
	}

	openapiJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("OpenAPI文書のエンコードに失敗: %w", err)
	}

	return &Handlers{
		now:         now,
		environment: environment,
		openapiJSON: openapiJSON,
	}, nil
}

// Users はユーザー一覧エンドポイントの実装
func (h *Handlers) Users(c *gin.Context) {
	c.JSON(http.StatusOK, api.NewUsersResponse(h.now(), api.Users()))
}

// Status はサーバー状態エンドポイントの実装
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, api.NewStatusResponse(h.now(), h.environment()))
}

// Health はヘルスチェックエンドポイントの実装
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.NewHealthResponse(h.now()))
}

// OpenAPI は埋め込みのAPI定義を返す
func (h *Handlers) OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", h.openapiJSON)
}
