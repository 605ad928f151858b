package feed

import (
	"maps"
	"time"
)

// Type は通知の種類を表す。
type Type string

const (
	// TypeInfo は情報通知。
	TypeInfo Type = "info"
	// TypeSuccess は成功通知。一定時間後に自動で消える。
	TypeSuccess Type = "success"
	// TypeWarning は警告通知（在庫アラートなど）。
	TypeWarning Type = "warning"
	// TypeError はエラー通知。
	TypeError Type = "error"
)

// Priority は通知の優先度を表す。
type Priority string

const (
	// PriorityLow は低優先度。
	PriorityLow Priority = "low"
	// PriorityMedium は通常の優先度。
	PriorityMedium Priority = "medium"
	// PriorityHigh は高優先度。
	PriorityHigh Priority = "high"
)

// Origin は通知の発生元を表す。
type Origin string

const (
	// OriginRemote は通知サービスから取得した通知。
	OriginRemote Origin = "remote"
	// OriginLocal はクライアント側で生成した一時的な通知。
	OriginLocal Origin = "local"
)

// Notification はフィードに表示される1件の通知。
type Notification struct {
	// ID は通知の一意識別子。リモート通知はサーバーが採番し、ローカル通知は手元で生成する。
	ID string `json:"id"`
	// Type は通知の種類。
	Type Type `json:"type"`
	// Priority は通知の優先度。
	Priority Priority `json:"priority"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知本文。
	Message string `json:"message"`
	// Timestamp は通知の発生日時。
	Timestamp time.Time `json:"timestamp"`
	// Read は既読状態。
	Read bool `json:"read"`
	// Expanded はUI上の展開状態。永続化も同期もしない。
	Expanded bool `json:"expanded"`
	// Data は通知に付随する任意のキー・バリュー。
	Data map[string]any `json:"data,omitempty"`
	// Origin は通知の発生元。
	Origin Origin `json:"origin"`
}

// clone はDataマップを複製したコピーを返す。
func (n Notification) clone() Notification {
	if n.Data != nil {
		n.Data = maps.Clone(n.Data)
	}
	return n
}

// Input はローカル通知を追加するときの入力。
type Input struct {
	// Type は通知の種類。空の場合はinfoになる。
	Type Type `json:"type"`
	// Priority は通知の優先度。空の場合はmediumになる。
	Priority Priority `json:"priority"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知本文。
	Message string `json:"message"`
	// Data は通知に付随する任意のキー・バリュー。
	Data map[string]any `json:"data,omitempty"`
}

// Session は通知フィードを利用する認証済みユーザーのハンドル。
type Session struct {
	// UserID は認証済みユーザーの一意識別子。
	UserID string
	// Token は通知サービスに提示するBearerトークン。
	Token string
}

// Valid はセッションが通知の取得に使えるかどうかを返す。
func (s Session) Valid() bool {
	return s.UserID != "" && s.Token != ""
}
