package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
)

// 本番環境を表す環境ラベル
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// ErrInvalidConfig は設定値が不正な場合に返される
var ErrInvalidConfig = errors.New("invalid configuration")

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	// 環境ラベル (production / development など)
	Environment string `yaml:"environment" toml:"environment" validate:"required"`

	Server    ServerConfig    `yaml:"server" toml:"server"`
	Assets    AssetsConfig    `yaml:"assets" toml:"assets"`
	DevServer DevServerConfig `yaml:"dev_server" toml:"dev_server"`
	Renderer  RendererConfig  `yaml:"renderer" toml:"renderer"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`                                  // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"min=1,max=65535"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout" validate:"min=0"`
	WriteTimeout    Duration `yaml:"write_timeout" toml:"write_timeout" validate:"min=0"` // SSRのストリーミングのため0(無効)が既定
	IdleTimeout     Duration `yaml:"idle_timeout" toml:"idle_timeout" validate:"min=0"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gt=0"`

	// レスポンス圧縮の有効/無効
	Compression bool `yaml:"compression" toml:"compression"`
}

// AssetsConfig は静的ファイル配信の設定
type AssetsConfig struct {
	// フロントエンドのビルド出力 (例: build/client)
	BuildDir string `yaml:"build_dir" toml:"build_dir" validate:"required"`
	// フィンガープリント付きアセットのURLプレフィックス
	Prefix string `yaml:"prefix" toml:"prefix" validate:"required,startswith=/"`

	ImmutableMaxAge Duration `yaml:"immutable_max_age" toml:"immutable_max_age" validate:"min=0"`
	PublicMaxAge    Duration `yaml:"public_max_age" toml:"public_max_age" validate:"min=0"`

	// 静的ファイルのヒットもアクセスログに出す
	LogHits bool `yaml:"log_hits" toml:"log_hits"`
}

// DevServerConfig は開発用ライブリロードサーバーの設定
type DevServerConfig struct {
	URL   string   `yaml:"url" toml:"url" validate:"omitempty,url"`
	Paths []string `yaml:"paths" toml:"paths" validate:"dive,startswith=/"`
}

// RendererConfig はフォールバックレンダラの設定
type RendererConfig struct {
	// SSRアップストリーム。空の場合はHTMLシェルを返す
	URL       string `yaml:"url" toml:"url" validate:"omitempty,url"`
	IndexFile string `yaml:"index_file" toml:"index_file" validate:"required"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error off"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    0,
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			Compression:     true,
		},
		Assets: AssetsConfig{
			BuildDir:        "build/client",
			Prefix:          "/assets",
			ImmutableMaxAge: Duration(365 * 24 * time.Hour),
			PublicMaxAge:    Duration(time.Hour),
		},
		DevServer: DevServerConfig{
			Paths: []string{"/@", "/app/", "/node_modules/", "/assets/"},
		},
		Renderer: RendererConfig{
			IndexFile: "index.html",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load は設定を読み込む
// 優先順位: デフォルト < 設定ファイル < 環境変数(.envを含む)
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile は指定した設定ファイルを起点に設定を読み込む
// path が空の場合は設定ファイルを使わない
func LoadFile(path string) (*Config, error) {
	// .env は存在する場合のみ読み込む。既存の環境変数は上書きしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	cfg := Default()

	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() error {
	c.Environment = getEnvOrDefault("APP_ENV", c.Environment)
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)

	port, err := getEnvAsIntOrDefault("PORT", c.Server.Port)
	if err != nil {
		return err
	}
	c.Server.Port = port

	compression, err := getEnvAsBoolOrDefault("COMPRESSION", c.Server.Compression)
	if err != nil {
		return err
	}
	c.Server.Compression = compression

	c.Assets.BuildDir = getEnvOrDefault("BUILD_DIR", c.Assets.BuildDir)
	c.Assets.Prefix = getEnvOrDefault("ASSETS_PREFIX", c.Assets.Prefix)
	c.DevServer.URL = getEnvOrDefault("DEV_SERVER_URL", c.DevServer.URL)
	c.Renderer.URL = getEnvOrDefault("RENDERER_URL", c.Renderer.URL)
	c.Log.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", c.Log.Level))

	logJSON, err := getEnvAsBoolOrDefault("LOG_JSON", c.Log.JSON)
	if err != nil {
		return err
	}
	c.Log.JSON = logJSON

	return nil
}

var validate = validator.New()

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Assets.Prefix == "/" {
		return fmt.Errorf("%w: assets.prefix はルート以外である必要があります", ErrInvalidConfig)
	}

	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		return fmt.Errorf("%w: 無効なログレベル: %q", ErrInvalidConfig, c.Log.Level)
	}

	for _, raw := range []string{c.DevServer.URL, c.Renderer.URL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: 無効なアップストリームURL: %q", ErrInvalidConfig, raw)
		}
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction は本番モードかどうかを返す
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// LiveReload は開発サーバーへのアセット委譲が有効かどうかを返す
// 開発モードかつ開発サーバーのURLが設定されている場合のみ有効
func (c *Config) LiveReload() bool {
	return !c.IsProduction() && c.DevServer.URL != ""
}

// Environment はリクエスト時点の環境ラベルを返す
// APP_ENV が未設定の場合は fallback を返す
func Environment(fallback string) string {
	return getEnvOrDefault("APP_ENV", fallback)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	intVal, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s は整数である必要があります: %q", ErrInvalidConfig, key, value)
	}
	return intVal, nil
}

// getEnvAsBoolOrDefault は環境変数を真偽値として取得する
func getEnvAsBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%w: %s は真偽値である必要があります: %q", ErrInvalidConfig, key, value)
	}
	return b, nil
}
