package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("パスが空の場合は既定値になること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), *cfg)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ファイルが存在しない場合は既定値になること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	})

	t.Run("YAMLの値が既定値を上書きすること", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
server:
  port: "9000"
  allowed_origins: ["https://app.example.com"]
backend:
  url: https://notification.example.com
  timeout: 3s
poll:
  interval: 30s
  preserve_optimistic_reads: false
tombstones:
  limit: 200
notifications:
  success_ttl: 2500ms
storage:
  path: /var/lib/alertfeed/feed.db
log:
  level: debug
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		assert.Equal(t, "9000", cfg.Server.Port)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, "https://notification.example.com", cfg.Backend.URL)
		assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
		assert.Equal(t, 50, cfg.Poll.FetchLimit)
		assert.False(t, cfg.Poll.PreserveOptimisticReads)
		assert.Equal(t, 200, cfg.Tombstones.Limit)
		assert.Equal(t, 2500*time.Millisecond, cfg.Notifications.SuccessTTL)
		assert.Equal(t, "/var/lib/alertfeed/feed.db", cfg.Storage.Path)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "dev-secret-key", cfg.Auth.JWTSecret)
	})

	t.Run("ゼロ値は既定値で補われること", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
poll:
  interval: 0s
  fetch_limit: 0
tombstones:
  limit: 0
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
		assert.Equal(t, 50, cfg.Poll.FetchLimit)
		assert.Equal(t, 1000, cfg.Tombstones.Limit)
	})

	t.Run("不正なYAMLはエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeConfig(t, "poll: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("不正な期間はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeConfig(t, "poll:\n  interval: soon\n"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "ポートが数値でない", modify: func(c *Config) { c.Server.Port = "http" }},
		{name: "ポートが範囲外", modify: func(c *Config) { c.Server.Port = "70000" }},
		{name: "バックエンドURLにスキームが無い", modify: func(c *Config) { c.Backend.URL = "localhost:8086" }},
		{name: "バックエンドURLがftp", modify: func(c *Config) { c.Backend.URL = "ftp://example.com" }},
		{name: "ポーリング間隔が短すぎる", modify: func(c *Config) { c.Poll.Interval = 100 * time.Millisecond }},
		{name: "取得件数が多すぎる", modify: func(c *Config) { c.Poll.FetchLimit = 5000 }},
		{name: "トゥームストーン上限が負", modify: func(c *Config) { c.Tombstones.Limit = -1 }},
		{name: "JWTシークレットが空", modify: func(c *Config) { c.Auth.JWTSecret = "" }},
		{name: "ログレベルが不正", modify: func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name+"場合はエラーになること", func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
