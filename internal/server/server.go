// Package server は通知フィードをJSON APIとしてUIに公開するHTTPサーバーを提供する。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nao1215/alertfeed/internal/feed"
	"github.com/nao1215/alertfeed/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Options はServerの構成。
type Options struct {
	// Port はリッスンポート。
	Port string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// JWTSecret はJWTの署名検証に使うシークレット。
	JWTSecret string
	// Feed はユーザーごとに生成するFeedの設定。
	Feed feed.Config
	// Backend は通知サービスのクライアント。
	Backend feed.Backend
	// Persister はトゥームストーンの永続化先。
	Persister feed.Persister
	// Logger はサーバーのロガー。
	Logger zerolog.Logger
}

// Server は通知フィードのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// feeds はユーザーごとのFeed。
	feeds *Registry
	// log はサーバーのロガー。
	log zerolog.Logger
}

// New は新しいサーバーを生成する。
func New(opts Options) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router: router,
		port:   opts.Port,
		feeds: NewRegistry(func() *feed.Feed {
			return feed.New(opts.Feed, opts.Backend, opts.Persister)
		}),
		log: opts.Logger,
	}
	s.setupRoutes(middleware.JWTAuth(opts.JWTSecret))

	return s
}

// Handler はHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("通知フィードサービスを起動します")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.feeds.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.feeds.Close()
	if err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}

// Close はすべてのFeedを停止する。
func (s *Server) Close() {
	s.feeds.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	api := s.router.Group("/api/v1")
	api.Use(auth)
	{
		notifications := api.Group("/notifications")
		{
			// 表示中の通知一覧取得
			notifications.GET("", s.handleList())
			// ローカル通知の追加
			notifications.POST("", s.handleAdd())
			// すべて消去
			notifications.DELETE("", s.handleClearAll())
			// 通知サービスから読み込み直す
			notifications.POST("/load", s.handleLoad())
			// 通知サービスと突き合わせる
			notifications.POST("/refresh", s.handleRefresh())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			// 展開状態を切り替える
			notifications.PUT("/:id/expand", s.handleToggleExpand())
			// 通知を消す
			notifications.DELETE("/:id", s.handleRemove())
		}

		// 業務イベントの取り込み
		api.POST("/events", s.handleIngest())
		// ログアウト
		api.DELETE("/session", s.handleEndSession())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "alertfeed", "active_feeds": s.feeds.Len()})
	})
}
