package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv はテスト中に参照する環境変数を未設定にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "APP_ENV", "SERVER_HOST", "PORT", "COMPRESSION",
		"BUILD_DIR", "ASSETS_PREFIX", "DEV_SERVER_URL", "RENDERER_URL",
		"LOG_LEVEL", "LOG_JSON",
	} {
		t.Setenv(key, "")
	}
}

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("サーバーホストが既定値ではありません: %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("ポート番号が既定値ではありません: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Std() != 10*time.Second {
		t.Errorf("読み込みタイムアウトが既定値ではありません: %v", cfg.Server.ReadTimeout.Std())
	}
	// WriteTimeout は 0（無効）が既定
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("書き込みタイムアウトが0ではありません: %v", cfg.Server.WriteTimeout.Std())
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("環境ラベルが既定値ではありません: %s", cfg.Environment)
	}
	if cfg.IsProduction() {
		t.Error("既定では本番モードであってはいけません")
	}
	if cfg.LiveReload() {
		t.Error("開発サーバー未設定ではライブリロードは無効であるべきです")
	}
	if cfg.Assets.ImmutableMaxAge.Std() != 365*24*time.Hour {
		t.Errorf("不変アセットのmax-ageが1年ではありません: %v", cfg.Assets.ImmutableMaxAge.Std())
	}
	if cfg.Assets.PublicMaxAge.Std() != time.Hour {
		t.Errorf("公開ファイルのmax-ageが1時間ではありません: %v", cfg.Assets.PublicMaxAge.Std())
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{
			name:      "正常な設定",
			mutate:    func(c *Config) {},
			expectErr: false,
		},
		{
			name:      "無効なポート番号",
			mutate:    func(c *Config) { c.Server.Port = 99999 },
			expectErr: true,
		},
		{
			name:      "ポート番号0",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			expectErr: true,
		},
		{
			name:      "環境ラベルなし",
			mutate:    func(c *Config) { c.Environment = "" },
			expectErr: true,
		},
		{
			name:      "ビルドディレクトリなし",
			mutate:    func(c *Config) { c.Assets.BuildDir = "" },
			expectErr: true,
		},
		{
			name:      "スラッシュで始まらないプレフィックス",
			mutate:    func(c *Config) { c.Assets.Prefix = "assets" },
			expectErr: true,
		},
		{
			name:      "ルートのプレフィックス",
			mutate:    func(c *Config) { c.Assets.Prefix = "/" },
			expectErr: true,
		},
		{
			name:      "無効なログレベル",
			mutate:    func(c *Config) { c.Log.Level = "verbose" },
			expectErr: true,
		},
		{
			name:      "無効なレンダラURL",
			mutate:    func(c *Config) { c.Renderer.URL = "ftp://example.com" },
			expectErr: true,
		},
		{
			name:      "有効なレンダラURL",
			mutate:    func(c *Config) { c.Renderer.URL = "http://127.0.0.1:3001" },
			expectErr: false,
		},
		{
			name:      "シャットダウンタイムアウト0",
			mutate:    func(c *Config) { c.Server.ShutdownTimeout = 0 },
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ErrInvalidConfig でラップされていません: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
func TestEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("APP_ENV", "production")
	t.Setenv("COMPRESSION", "false")
	t.Setenv("RENDERER_URL", "http://localhost:3001")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if !cfg.IsProduction() {
		t.Error("APP_ENV=production が反映されていません")
	}
	if cfg.Server.Compression {
		t.Error("COMPRESSION=false が反映されていません")
	}
	if cfg.Renderer.URL != "http://localhost:3001" {
		t.Errorf("RENDERER_URL が反映されていません: %s", cfg.Renderer.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("LOG_LEVEL が小文字化されていません: %s", cfg.Log.Level)
	}
}

// TestMalformedPort は数値でないポートが起動時エラーになることをテストする
func TestMalformedPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "http")

	_, err := Load()
	if err == nil {
		t.Fatal("数値でないポートでエラーが発生しませんでした")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ErrInvalidConfig でラップされていません: %v", err)
	}
}

// TestLiveReload はライブリロードの有効条件をテストする
func TestLiveReload(t *testing.T) {
	testCases := []struct {
		name string
		env  string
		url  string
		want bool
	}{
		{"開発モードかつURLあり", EnvDevelopment, "http://localhost:5173", true},
		{"開発モードでURLなし", EnvDevelopment, "", false},
		{"本番モードではURLがあっても無効", EnvProduction, "http://localhost:5173", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Environment = tc.env
			cfg.DevServer.URL = tc.url
			if got := cfg.LiveReload(); got != tc.want {
				t.Errorf("LiveReload() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestEnvironment はリクエスト時点の環境ラベル解決をテストする
func TestEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := Environment(EnvDevelopment); got != EnvDevelopment {
		t.Errorf("未設定時は既定値を返すべきです: got %s", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := Environment(EnvDevelopment); got != "staging" {
		t.Errorf("APP_ENV が反映されていません: got %s", got)
	}
}

// TestLoadFile は設定ファイルの読み込みをテストする
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlBody := `environment: production
server:
  port: 8088
  read_timeout: 3s
assets:
  build_dir: dist/client
renderer:
  url: http://127.0.0.1:3001
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	tomlPath := filepath.Join(dir, "config.toml")
	tomlBody := `environment = "staging"

[server]
port = 8089
shutdown_timeout = "2s"

[log]
level = "warn"
json = true
`
	if err := os.WriteFile(tomlPath, []byte(tomlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("YAML", func(t *testing.T) {
		clearEnv(t)
		cfg, err := LoadFile(yamlPath)
		if err != nil {
			t.Fatalf("YAMLの読み込みに失敗しました: %v", err)
		}
		if !cfg.IsProduction() || cfg.Server.Port != 8088 {
			t.Errorf("YAMLの値が反映されていません: %+v", cfg)
		}
		if cfg.Server.ReadTimeout.Std() != 3*time.Second {
			t.Errorf("read_timeout が反映されていません: %v", cfg.Server.ReadTimeout.Std())
		}
		if cfg.Assets.BuildDir != "dist/client" {
			t.Errorf("build_dir が反映されていません: %s", cfg.Assets.BuildDir)
		}
		// ファイルに無い値は既定値のまま
		if cfg.Assets.Prefix != "/assets" {
			t.Errorf("既定値が失われています: %s", cfg.Assets.Prefix)
		}
	})

	t.Run("TOML", func(t *testing.T) {
		clearEnv(t)
		cfg, err := LoadFile(tomlPath)
		if err != nil {
			t.Fatalf("TOMLの読み込みに失敗しました: %v", err)
		}
		if cfg.Environment != "staging" || cfg.Server.Port != 8089 {
			t.Errorf("TOMLの値が反映されていません: %+v", cfg)
		}
		if cfg.Server.ShutdownTimeout.Std() != 2*time.Second {
			t.Errorf("shutdown_timeout が反映されていません: %v", cfg.Server.ShutdownTimeout.Std())
		}
		if cfg.Log.Level != "warn" || !cfg.Log.JSON {
			t.Errorf("log 設定が反映されていません: %+v", cfg.Log)
		}
	})

	t.Run("環境変数がファイルより優先", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "7000")
		cfg, err := LoadFile(yamlPath)
		if err != nil {
			t.Fatalf("読み込みに失敗しました: %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("環境変数が優先されていません: %d", cfg.Server.Port)
		}
	})

	t.Run("未対応の拡張子", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(dir, "config.ini")
		if err := os.WriteFile(path, []byte("port=1"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("ErrInvalidConfig が期待されました: %v", err)
		}
	})

	t.Run("無効な時間指定", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("server:\n  read_timeout: soon\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("無効な時間指定でエラーが発生しませんでした")
		}
	})

	t.Run("存在しないファイル", func(t *testing.T) {
		clearEnv(t)
		if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
			t.Error("存在しないファイルでエラーが発生しませんでした")
		}
	})
}
