// Package backend はリモートの通知サービスを呼び出すfeed.Backendの実装を提供する。
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/alertfeed/internal/feed"
	"github.com/nao1215/alertfeed/pkg/httpclient"
)

// Client は通知サービスのHTTPクライアント。
type Client struct {
	// http は通知サービスへのHTTPクライアント。
	http *httpclient.Client
}

var _ feed.Backend = (*Client)(nil)

// New は新しいClientを生成する。
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{http: httpclient.New(baseURL, timeout)}
}

// ackResponse は更新系APIの応答。
type ackResponse struct {
	// Success は処理結果。省略された場合は成功とみなす。
	Success *bool `json:"success"`
	// Message はサーバーからのメッセージ。
	Message string `json:"message"`
	// Error はサーバーからのエラーメッセージ。
	Error string `json:"error"`
}

// FetchNotifications は通知一覧を取得し、レスポンスボディをそのまま返す。
func (c *Client) FetchNotifications(ctx context.Context, limit int) ([]byte, error) {
	ctx, err := authorize(ctx)
	if err != nil {
		return nil, err
	}

	path := "/api/v1/notifications"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	body, err := c.http.Get(ctx, path)
	if err != nil {
		return nil, classify("fetch", err)
	}
	return body, nil
}

// MarkRead はidの通知を既読にする。
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.put(ctx, "mark_read", "/api/v1/notifications/"+url.PathEscape(id)+"/read")
}

// MarkAllRead はすべての通知を既読にする。
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.put(ctx, "mark_all_read", "/api/v1/notifications/read-all")
}

func (c *Client) put(ctx context.Context, op, path string) error {
	ctx, err := authorize(ctx)
	if err != nil {
		return err
	}

	var ack ackResponse
	if err := c.http.PutJSON(ctx, path, nil, &ack); err != nil {
		return classify(op, err)
	}
	if ack.Success != nil && !*ack.Success {
		msg := ack.Error
		if msg == "" {
			msg = ack.Message
		}
		return &feed.TransportError{Op: op, Err: fmt.Errorf("通知サービスが失敗を返しました: %s", msg)}
	}
	return nil
}

// authorize はcontextのセッションをHTTPクライアントの認証情報に載せ替える。
func authorize(ctx context.Context) (context.Context, error) {
	sess, ok := feed.SessionFromContext(ctx)
	if !ok {
		return nil, feed.ErrAuthRequired
	}
	ctx = httpclient.WithToken(ctx, sess.Token)
	return httpclient.WithUserID(ctx, sess.UserID), nil
}

// classify はHTTPクライアントのエラーをフィードのエラーに変換する。
func classify(op string, err error) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w", op, feed.ErrAuthRequired)
	}
	// 呼び出し元のキャンセルは通信障害として扱わない
	if errors.Is(err, context.Canceled) {
		return err
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &feed.TransportError{Op: op, Err: fmt.Errorf("応答を解釈できません: %w", err)}
	}
	return &feed.TransportError{Op: op, Err: err}
}
