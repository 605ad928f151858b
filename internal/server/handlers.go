package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/alertfeed/internal/feed"
	"github.com/nao1215/alertfeed/pkg/event"
	"github.com/nao1215/alertfeed/pkg/middleware"
)

// listResponse は通知一覧のJSONレスポンス構造。
type listResponse struct {
	// Notifications は表示中の通知（新しい順）。
	Notifications []feed.Notification `json:"notifications"`
	// UnreadCount は未読の通知数。
	UnreadCount int `json:"unread_count"`
	// Loading は取得処理が進行中かどうか。
	Loading bool `json:"loading"`
	// Polling はポーリングの状態（RUNNING / STOPPED）。
	Polling string `json:"polling"`
	// LastError は直近の取得失敗の内容。
	LastError string `json:"last_error,omitempty"`
}

// addRequest はローカル通知追加リクエストのJSON構造。
type addRequest struct {
	// Type は通知の種類（info, success, warning, error）。
	Type feed.Type `json:"type"`
	// Priority は通知の優先度（low, medium, high）。
	Priority feed.Priority `json:"priority"`
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Message は通知本文。
	Message string `json:"message"`
	// Data は通知に付随する任意のキー・バリュー。
	Data map[string]any `json:"data"`
}

// ingestRequest は業務イベント取り込みリクエストのJSON構造。
type ingestRequest struct {
	// EventType はイベントの種類。
	EventType event.Type `json:"event_type" binding:"required"`
	// Data はイベント固有のデータ。
	Data json.RawMessage `json:"data" binding:"required"`
}

// feedFor は認証済みユーザーのFeedを返す。認証情報が無い場合は401を返してfalseになる。
func (s *Server) feedFor(c *gin.Context) (*feed.Feed, bool) {
	sess := feed.Session{UserID: middleware.GetUserID(c), Token: middleware.GetToken(c)}
	if !sess.Valid() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
		return nil, false
	}
	return s.feeds.Acquire(sess), true
}

// snapshot はFeedの現在の状態をレスポンスに変換する。
func snapshot(f *feed.Feed) listResponse {
	resp := listResponse{
		Notifications: f.Notifications(),
		UnreadCount:   f.UnreadCount(),
		Loading:       f.IsLoading(),
		Polling:       f.State().String(),
	}
	if resp.Notifications == nil {
		resp.Notifications = []feed.Notification{}
	}
	if err := f.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return resp
}

// handleList は表示中の通知一覧を返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, snapshot(f))
	}
}

// handleAdd はローカル通知を追加するハンドラ。
func (s *Server) handleAdd() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		f, ok := s.feedFor(c)
		if !ok {
			return
		}

		n, err := f.AddNotification(feed.Input{
			Type:     req.Type,
			Priority: req.Priority,
			Title:    req.Title,
			Message:  req.Message,
			Data:     req.Data,
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "フィードは終了しています"})
			return
		}
		c.JSON(http.StatusCreated, n)
	}
}

// handleMarkAsRead は通知を既読にするハンドラ。通知サービスへの反映は待たない。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		f.MarkAsRead(c.Param("id"))
		c.JSON(http.StatusAccepted, gin.H{"message": "通知を既読にしました", "unread_count": f.UnreadCount()})
	}
}

// handleMarkAllAsRead はすべての通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		f.MarkAllAsRead()
		c.JSON(http.StatusAccepted, gin.H{"message": "全通知を既読にしました", "unread_count": f.UnreadCount()})
	}
}

// handleToggleExpand は通知の展開状態を切り替えるハンドラ。
func (s *Server) handleToggleExpand() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}

		id := c.Param("id")
		if !f.ToggleExpand(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		for _, n := range f.Notifications() {
			if n.ID == id {
				c.JSON(http.StatusOK, n)
				return
			}
		}
		// 切り替え直後にポーリングで消えた場合
		c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
	}
}

// handleRemove は通知を消してトゥームストーンに加えるハンドラ。
func (s *Server) handleRemove() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		f.RemoveNotification(c.Param("id"))
		c.Status(http.StatusNoContent)
	}
}

// handleClearAll は表示中の通知をすべて消すハンドラ。
func (s *Server) handleClearAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		f.ClearAll()
		c.Status(http.StatusNoContent)
	}
}

// handleLoad は通知サービスから読み込み直すハンドラ。手元の既読は維持しない。
func (s *Server) handleLoad() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		s.respondRefresh(c, f, f.LoadNotifications(c.Request.Context()))
	}
}

// handleRefresh は通知サービスと突き合わせるハンドラ。
// クエリパラメータ preserve_reads で手元の既読を維持するかを指定する（既定はfalse）。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		preserve := false
		if v := c.Query("preserve_reads"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "preserve_reads は真偽値で指定してください"})
				return
			}
			preserve = b
		}

		f, ok := s.feedFor(c)
		if !ok {
			return
		}
		s.respondRefresh(c, f, f.RefreshNotifications(c.Request.Context(), preserve))
	}
}

// respondRefresh は取得結果をHTTPステータスに変換して返す。
// 取得に失敗しても直前の通知一覧は維持されているため、一覧を添えて返す。
func (s *Server) respondRefresh(c *gin.Context, f *feed.Feed, err error) {
	var te *feed.TransportError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, snapshot(f))
	case errors.Is(err, feed.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "通知サービスの認証が必要です"})
	case errors.Is(err, feed.ErrSnapshotInvalid):
		c.JSON(http.StatusBadGateway, gin.H{"error": "通知サービスの応答が不正です", "feed": snapshot(f)})
	case errors.As(err, &te):
		c.JSON(http.StatusBadGateway, gin.H{"error": "通知サービスに接続できません", "feed": snapshot(f)})
	case errors.Is(err, feed.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "フィードは終了しています"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "通知の取得が中断されました"})
	default:
		s.log.Error().Err(err).Msg("通知の取得で想定外のエラー")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
	}
}

// handleIngest は業務イベントをローカル通知として取り込むハンドラ。
func (s *Server) handleIngest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		e, err := event.New(req.EventType, req.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		f, ok := s.feedFor(c)
		if !ok {
			return
		}

		n, err := f.Ingest(e)
		switch {
		case errors.Is(err, feed.ErrClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "フィードは終了しています"})
			return
		case err != nil:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, n)
	}
}

// handleEndSession はユーザーのセッションを終了しFeedを破棄するハンドラ。
func (s *Server) handleEndSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}
		s.feeds.Drop(userID)
		c.Status(http.StatusNoContent)
	}
}
