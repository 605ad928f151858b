package storage

import (
	"context"
	"errors"
)

// ErrNotFound はキーが存在しないことを表す。
var ErrNotFound = errors.New("キーが見つかりません")

// KV はJSONの値を保存するキー・バリューストア。
type KV interface {
	// Get はkeyの値をdestにデシリアライズする。存在しない場合はErrNotFoundを返す。
	Get(ctx context.Context, key string, dest any) error
	// Set はvalueをシリアライズしてkeyに保存する。既存の値は上書きする。
	Set(ctx context.Context, key string, value any) error
	// Delete はkeyを削除する。存在しない場合も成功する。
	Delete(ctx context.Context, key string) error
	// Has はkeyが存在するかを返す。
	Has(ctx context.Context, key string) (bool, error)
	// Close はストアを閉じる。
	Close() error
}
