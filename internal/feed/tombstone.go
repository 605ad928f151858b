package feed

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// DefaultTombstoneLimit はトゥームストーンとして保持するIDの上限。
const DefaultTombstoneLimit = 1000

// Persister はユーザーごとのトゥームストーンを永続化する。
// IDは追加された順（古いものが先頭）で保存する。
type Persister interface {
	LoadTombstones(ctx context.Context, userID string) ([]string, error)
	SaveTombstones(ctx context.Context, userID string, ids []string) error
}

// TombstoneSet はユーザーが明示的に消した通知IDの集合。
//
// 追加順を保持し、上限を超えた場合は追加が古いものから捨てる（参照の新しさは考慮しない）。
// 永続化に失敗しても集合はメモリ上で動作し続ける。
type TombstoneSet struct {
	// userID は集合の持ち主。空の場合は永続化しない。
	userID string
	// ids は追加順のID列。
	ids []string
	// index はidsの存在確認用インデックス。
	index map[string]struct{}
	// limit は保持するIDの上限。
	limit int
	// detached は読み込みに失敗したことを表す。次に読み込みが成功するまで保存しない。
	detached  bool
	persister Persister
	log       zerolog.Logger
}

// NewTombstoneSet は空のトゥームストーン集合を生成する。
// limitが0以下の場合はDefaultTombstoneLimitを使う。persisterがnilの場合はメモリ上のみで保持する。
func NewTombstoneSet(persister Persister, limit int, logger zerolog.Logger) *TombstoneSet {
	if limit <= 0 {
		limit = DefaultTombstoneLimit
	}
	return &TombstoneSet{
		index:     make(map[string]struct{}),
		limit:     limit,
		persister: persister,
		log:       logger,
	}
}

// Load はuserIDの集合を永続化層から読み直す。
// 初めてのユーザーは空集合になる。読み込みに失敗した場合は空集合のままメモリ上のみで続行し、
// 保存済みの集合を上書きしないよう次に読み込みが成功するまで保存を止める。
func (t *TombstoneSet) Load(ctx context.Context, userID string) error {
	t.userID = userID
	t.ids = nil
	t.index = make(map[string]struct{})
	t.detached = false

	if userID == "" || t.persister == nil {
		return nil
	}

	ids, err := t.persister.LoadTombstones(ctx, userID)
	if err != nil {
		t.log.Error().Err(err).Str("user_id", userID).Msg("トゥームストーンの読み込みに失敗、メモリ上のみで続行します")
		t.detached = true
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for _, id := range ids {
		t.insert(id)
	}
	t.trim()
	return nil
}

// UserID は現在の集合の持ち主を返す。
func (t *TombstoneSet) UserID() string {
	return t.userID
}

// Add はidを追加して保存する。既に含まれている場合は何もしない。
func (t *TombstoneSet) Add(ctx context.Context, id string) error {
	if !t.insert(id) {
		return nil
	}
	return t.save(ctx)
}

// AddAll は複数のIDをまとめて追加し、1回だけ保存する。
func (t *TombstoneSet) AddAll(ctx context.Context, ids []string) error {
	added := false
	for _, id := range ids {
		if t.insert(id) {
			added = true
		}
	}
	if !added {
		return nil
	}
	return t.save(ctx)
}

// Contains はidが集合に含まれるかを返す。
func (t *TombstoneSet) Contains(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Len は集合の要素数を返す。
func (t *TombstoneSet) Len() int {
	return len(t.ids)
}

// IDs は追加順のIDのコピーを返す。
func (t *TombstoneSet) IDs() []string {
	return slices.Clone(t.ids)
}

func (t *TombstoneSet) insert(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := t.index[id]; ok {
		return false
	}
	t.index[id] = struct{}{}
	t.ids = append(t.ids, id)
	return true
}

// save は集合を保存し、上限を超えていれば古いものを捨てて保存し直す。
func (t *TombstoneSet) save(ctx context.Context) error {
	err := t.persist(ctx)
	if t.trim() {
		if rerr := t.persist(ctx); err == nil {
			err = rerr
		}
	}
	return err
}

// trim は上限を超えた分を追加が古い順に捨てる。捨てた場合にtrueを返す。
func (t *TombstoneSet) trim() bool {
	over := len(t.ids) - t.limit
	if over <= 0 {
		return false
	}
	for _, id := range t.ids[:over] {
		delete(t.index, id)
	}
	t.ids = slices.Clone(t.ids[over:])
	return true
}

func (t *TombstoneSet) persist(ctx context.Context) error {
	if t.userID == "" || t.persister == nil || t.detached {
		return nil
	}
	if err := t.persister.SaveTombstones(ctx, t.userID, slices.Clone(t.ids)); err != nil {
		t.log.Error().Err(err).Str("user_id", t.userID).Int("count", len(t.ids)).Msg("トゥームストーンの保存に失敗")
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
