package feed

import "context"

// DefaultFetchLimit は1回のポーリングで取得する通知の最大件数。
const DefaultFetchLimit = 50

// Backend はリモートの通知サービス。
//
// FetchNotificationsはレスポンスボディを解釈せずにそのまま返す。
// 形式の検証はReconcileが行う。認証情報はWithSessionでcontextに載せて渡す。
type Backend interface {
	FetchNotifications(ctx context.Context, limit int) ([]byte, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

type sessionKey struct{}

// WithSession はcontextにセッションを設定する。
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext はcontextからセッションを取り出す。
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.Valid()
}
