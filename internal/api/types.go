package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// TimestampFormat はレスポンスに含める時刻の書式
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// サーバーの状態とバージョン
const (
	StatusOnline = "online"
	Version      = "1.0.0"
)

// Role はユーザーの役割
type Role string

// Role の定数定義
const (
	RoleAdmin     Role = "Admin"
	RoleUser      Role = "User"
	RoleEditor    Role = "Editor"
	RoleModerator Role = "Moderator"
)

// User はユーザーレコード
type User struct {
	ID    int                 `json:"id"`
	Name  string              `json:"name"`
	Email openapi_types.Email `json:"email"`
	Role  Role                `json:"role"`
}

// UsersResponse はユーザー一覧のレスポンスエンベロープ
// Count は常に len(Data) と一致する
type UsersResponse struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
	Data      []User `json:"data"`
}

// StatusResponse はサーバー状態の文書
type StatusResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	ServerTime  string `json:"serverTime"`
	Environment string `json:"environment"`
}

// HealthResponse はヘルスチェックの応答
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Timestamp は時刻をレスポンス用の文字列に変換する
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// NewUsersResponse は構築時刻を記録したエンベロープを作成する
func NewUsersResponse(now time.Time, users []User) UsersResponse {
	if users == nil {
		users = []User{}
	}
	return UsersResponse{
		Success:   true,
		Timestamp: Timestamp(now),
		Count:     len(users),
		Data:      users,
	}
}

// NewStatusResponse はステータス文書を作成する
func NewStatusResponse(now time.Time, environment string) StatusResponse {
	return StatusResponse{
		Status:      StatusOnline,
		Version:     Version,
		ServerTime:  Timestamp(now),
		Environment: environment,
	}
}

// NewHealthResponse はヘルスチェック応答を作成する
func NewHealthResponse(now time.Time) HealthResponse {
	return HealthResponse{
		Status:    "healthy",
		Timestamp: Timestamp(now),
	}
}
