package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrSnapshotInvalid はリモートのスナップショットが通知レコードの配列として
	// 解釈できないことを表す。呼び出し側は直前のストアを維持しなければならない。
	ErrSnapshotInvalid = errors.New("スナップショットの形式が不正")
	// ErrAuthRequired は有効なセッションが存在しないことを表す。想定内の状態であり、ログ出力しない。
	ErrAuthRequired = errors.New("有効なセッションがありません")
	// ErrPersistence は永続化層の読み書きに失敗したことを表す。
	ErrPersistence = errors.New("永続化に失敗")
)

// TransportError は通知サービスとの通信失敗を表す。
// 次回のポーリングが再試行の役割を担うため、即時リトライは行わない。
type TransportError struct {
	// Op は失敗した操作名（fetch, mark_read, mark_all_read）。
	Op string
	// Err は元のエラー。
	Err error
}

// Error はエラーメッセージを返す。
func (e *TransportError) Error() string {
	return fmt.Sprintf("通知サービスとの通信に失敗 (op=%s): %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}
