// 通知フィードサービスのエントリポイント。
// 認証済みユーザーごとに通知フィードを保持し、リモートの通知サービスと
// 定期的に突き合わせた結果をJSON APIとしてUIに公開する。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nao1215/alertfeed/internal/backend"
	"github.com/nao1215/alertfeed/internal/config"
	"github.com/nao1215/alertfeed/internal/feed"
	"github.com/nao1215/alertfeed/internal/logging"
	"github.com/nao1215/alertfeed/internal/server"
	"github.com/nao1215/alertfeed/internal/storage"
	"github.com/nao1215/alertfeed/pkg/middleware"
)

// version はビルド時に -ldflags で埋め込まれる。
var version = "dev"

// flags はコマンドラインフラグの値。
type flags struct {
	configPath  string
	port        string
	jwtSecret   string
	backendURL  string
	storagePath string
	logLevel    string
	logFile     string
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// newApp はCLIのルートコマンドを組み立てる。
func newApp(stdout io.Writer) *cli.Command {
	var (
		f         flags
		cfg       *config.Config
		logCloser func()
	)

	return &cli.Command{
		Name:    "alertfeed",
		Usage:   "在庫・売上・決済の通知フィードを提供する",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "設定ファイルのパス",
				Sources:     cli.EnvVars("ALERTFEED_CONFIG"),
				Destination: &f.configPath,
			},
			&cli.StringFlag{
				Name:        "port",
				Usage:       "リッスンポート",
				Sources:     cli.EnvVars("PORT"),
				Destination: &f.port,
			},
			&cli.StringFlag{
				Name:        "jwt-secret",
				Usage:       "JWTの署名検証に使うシークレット",
				Sources:     cli.EnvVars("JWT_SECRET"),
				Destination: &f.jwtSecret,
			},
			&cli.StringFlag{
				Name:        "backend-url",
				Usage:       "通知サービスのベースURL",
				Sources:     cli.EnvVars("NOTIFICATION_URL"),
				Destination: &f.backendURL,
			},
			&cli.StringFlag{
				Name:        "storage-path",
				Usage:       "トゥームストーンを保存するSQLiteファイルのパス（空の場合はメモリ上のみ）",
				Sources:     cli.EnvVars("ALERTFEED_STORAGE_PATH"),
				Destination: &f.storagePath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "ログレベル (debug, info, warn, error)",
				Sources:     cli.EnvVars("ALERTFEED_LOG_LEVEL"),
				Destination: &f.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "ログの出力先ファイル",
				Sources:     cli.EnvVars("ALERTFEED_LOG_FILE"),
				Destination: &f.logFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			loaded, err := config.Load(f.configPath)
			if err != nil {
				return ctx, err
			}
			f.apply(c, loaded)
			if err := loaded.Validate(); err != nil {
				return ctx, fmt.Errorf("設定が不正です: %w", err)
			}
			cfg = loaded

			logger, closer, err := logging.New(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				return ctx, fmt.Errorf("ロガーの初期化に失敗: %w", err)
			}
			log.Logger = logger
			logCloser = closer
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "HTTPサーバーを起動する",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return serve(ctx, cfg)
				},
			},
			{
				Name:  "token",
				Usage: "開発用のJWTを発行する",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "ユーザーID", Required: true},
					&cli.StringFlag{Name: "email", Usage: "メールアドレス"},
					&cli.DurationFlag{Name: "ttl", Usage: "有効期間", Value: middleware.DefaultTokenTTL},
				},
				Action: func(_ context.Context, c *cli.Command) error {
					token, err := middleware.GenerateJWT(cfg.Auth.JWTSecret, c.String("user"), c.String("email"), c.Duration("ttl"))
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.Root().Writer, token)
					return err
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() > 0 {
				return fmt.Errorf("不明なコマンド %q。'alertfeed --help' で使い方を確認してください", c.Args().First())
			}
			return serve(ctx, cfg)
		},
	}
}

// apply は明示的に指定されたフラグで設定を上書きする。
func (f *flags) apply(c *cli.Command, cfg *config.Config) {
	if c.IsSet("port") {
		cfg.Server.Port = f.port
	}
	if c.IsSet("jwt-secret") {
		cfg.Auth.JWTSecret = f.jwtSecret
	}
	if c.IsSet("backend-url") {
		cfg.Backend.URL = f.backendURL
	}
	if c.IsSet("storage-path") {
		cfg.Storage.Path = f.storagePath
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if c.IsSet("log-file") {
		cfg.Log.File = f.logFile
	}
}

// serve は設定に従ってストレージと通知サービスのクライアントを組み立て、サーバーを起動する。
func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var kv storage.KV = storage.NewMemoryKV()
	if cfg.Storage.Path != "" {
		db, err := storage.OpenSQLite(ctx, cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("ストレージの初期化に失敗: %w", err)
		}
		kv = db
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error().Err(err).Msg("ストレージのクローズに失敗")
		}
	}()

	feedLogger := logging.Component("feed")
	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		Feed: feed.Config{
			PollInterval:        cfg.Poll.Interval,
			FetchLimit:          cfg.Poll.FetchLimit,
			PreserveReadsOnPoll: cfg.Poll.PreserveOptimisticReads,
			TombstoneLimit:      cfg.Tombstones.Limit,
			SuccessTTL:          cfg.Notifications.SuccessTTL,
			Logger:              &feedLogger,
		},
		Backend:   backend.New(cfg.Backend.URL, cfg.Backend.Timeout),
		Persister: storage.NewTombstoneRepository(kv),
		Logger:    logging.Component("server"),
	})

	log.Info().
		Str("backend", cfg.Backend.URL).
		Dur("poll_interval", cfg.Poll.Interval).
		Bool("persistent", cfg.Storage.Path != "").
		Msg("設定を読み込みました")

	return srv.Run(ctx)
}
