// Package config は通知フィードサービスの設定の読み込みと検証を行う。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config はサービス全体の設定。
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Poll          PollConfig          `yaml:"poll"`
	Tombstones    TombstoneConfig     `yaml:"tombstones"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	// Port はリッスンポート。
	Port string `yaml:"port"`
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BackendConfig は通知サービスへの接続設定。
type BackendConfig struct {
	// URL は通知サービスのベースURL。
	URL string `yaml:"url"`
	// Timeout は1リクエストのタイムアウト。
	Timeout time.Duration `yaml:"timeout"`
}

// PollConfig はポーリングの設定。
type PollConfig struct {
	// Interval はポーリング間隔。
	Interval time.Duration `yaml:"interval"`
	// FetchLimit は1回の取得件数の上限。
	FetchLimit int `yaml:"fetch_limit"`
	// PreserveOptimisticReads はポーリング時に手元の既読を維持するかどうか。
	PreserveOptimisticReads bool `yaml:"preserve_optimistic_reads"`
}

// TombstoneConfig はトゥームストーンの設定。
type TombstoneConfig struct {
	// Limit はユーザーごとに保持するIDの上限。
	Limit int `yaml:"limit"`
}

// NotificationsConfig はローカル通知の設定。
type NotificationsConfig struct {
	// SuccessTTL はsuccess通知が自動で消えるまでの時間。
	SuccessTTL time.Duration `yaml:"success_ttl"`
}

// StorageConfig は永続化の設定。
type StorageConfig struct {
	// Path はSQLiteファイルのパス。空の場合はメモリ上のみで保持する。
	Path string `yaml:"path"`
}

// AuthConfig は認証の設定。
type AuthConfig struct {
	// JWTSecret はJWTの署名検証に使うシークレット。
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	// Level はログレベル（debug, info, warn, error）。
	Level string `yaml:"level"`
	// File はログの出力先ファイル。空の場合は標準エラー出力。
	File string `yaml:"file"`
}

// DefaultConfig は既定値の設定を返す。
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8090",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Backend: BackendConfig{
			URL:     "http://localhost:8086",
			Timeout: 10 * time.Second,
		},
		Poll: PollConfig{
			Interval:                15 * time.Second,
			FetchLimit:              50,
			PreserveOptimisticReads: true,
		},
		Tombstones: TombstoneConfig{
			Limit: 1000,
		},
		Notifications: NotificationsConfig{
			SuccessTTL: 5 * time.Second,
		},
		Storage: StorageConfig{
			Path: "",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-key",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load はpathのYAMLファイルを既定値に重ねて読み込む。
// pathが空またはファイルが存在しない場合は既定値を返す。検証は呼び出し側がValidateで行う。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
			}
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults はゼロ値の項目に既定値を設定する。
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = defaults.Backend.Timeout
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = defaults.Poll.Interval
	}
	if c.Poll.FetchLimit == 0 {
		c.Poll.FetchLimit = defaults.Poll.FetchLimit
	}
	if c.Tombstones.Limit == 0 {
		c.Tombstones.Limit = defaults.Tombstones.Limit
	}
	if c.Notifications.SuccessTTL == 0 {
		c.Notifications.SuccessTTL = defaults.Notifications.SuccessTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Validate は設定が有効かを検証する。
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port が不正です: %q", c.Server.Port)
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.url が不正です: %q", c.Backend.URL)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout は0以上である必要があります")
	}

	if c.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval は1秒以上である必要があります: %s", c.Poll.Interval)
	}
	if c.Poll.FetchLimit < 1 || c.Poll.FetchLimit > 1000 {
		return fmt.Errorf("poll.fetch_limit は1から1000の範囲である必要があります: %d", c.Poll.FetchLimit)
	}

	if c.Tombstones.Limit < 1 {
		return fmt.Errorf("tombstones.limit は1以上である必要があります: %d", c.Tombstones.Limit)
	}
	if c.Notifications.SuccessTTL < 0 {
		return fmt.Errorf("notifications.success_ttl は0以上である必要があります")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret が空です")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level が不正です: %q", c.Log.Level)
	}

	return nil
}
