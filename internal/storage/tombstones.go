package storage

import (
	"context"
	"errors"

	"github.com/nao1215/alertfeed/internal/feed"
)

// tombstonePrefix はトゥームストーンのキーの接頭辞。
const tombstonePrefix = "tombstones:"

// TombstoneRepository はユーザーごとのトゥームストーンをKVに保存する。
type TombstoneRepository struct {
	kv KV
}

var _ feed.Persister = (*TombstoneRepository)(nil)

// NewTombstoneRepository は新しいTombstoneRepositoryを生成する。
func NewTombstoneRepository(kv KV) *TombstoneRepository {
	return &TombstoneRepository{kv: kv}
}

// TombstoneKey はuserIDのトゥームストーンを保存するキーを返す。
func TombstoneKey(userID string) string {
	return tombstonePrefix + userID
}

// LoadTombstones はuserIDのトゥームストーンを追加順で返す。保存されていない場合は空を返す。
func (r *TombstoneRepository) LoadTombstones(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := r.kv.Get(ctx, TombstoneKey(userID), &ids); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// SaveTombstones はuserIDのトゥームストーンを丸ごと保存する。
func (r *TombstoneRepository) SaveTombstones(ctx context.Context, userID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return r.kv.Set(ctx, TombstoneKey(userID), ids)
}
