package feed

import (
	"sort"
	"time"
)

// Lookup はIDがトゥームストーンに含まれるかを判定する。
type Lookup interface {
	Contains(id string) bool
}

// IDSet は固定のID集合。
type IDSet map[string]struct{}

// NewIDSet は与えられたIDからIDSetを生成する。
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains はidが集合に含まれるかを返す。
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// ReconcileOptions はReconcileの動作を指定する。
type ReconcileOptions struct {
	// PreserveOptimisticReads が真の場合、現在のストアで既読のIDは
	// スナップショットが未読を返しても既読のまま維持する（バックエンドの反映遅れとみなす）。
	PreserveOptimisticReads bool
	// Now は作成日時が解釈できないレコードに割り当てる時刻。
	Now time.Time
}

// Reconcile は現在のストアとリモートのスナップショットから次のストアを組み立てる。
//
// 副作用を持たない純粋関数であり、同じ入力には常に同じ順序の出力を返す。
// スナップショットが不正な場合はErrSnapshotInvalidを返し、呼び出し側は現在のストアを維持する。
// ストアは差分ではなく丸ごと作り直されるため、スナップショットに無い通知は消える。
func Reconcile(current []Notification, raw []byte, tombstones Lookup, opts ReconcileOptions) ([]Notification, error) {
	records, err := decodeSnapshot(raw)
	if err != nil {
		return nil, err
	}

	prior := make(map[string]Notification, len(current))
	for _, n := range current {
		prior[n.ID] = n
	}

	seen := make(map[string]struct{}, len(records))
	next := make([]Notification, 0, len(records))
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}

		n, ok := normalizeRecord(rec, opts.Now)
		if !ok {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}

		// 一度消したIDはトゥームストーンが残る限り二度と表示しない
		if tombstones != nil && tombstones.Contains(n.ID) {
			continue
		}

		if p, ok := prior[n.ID]; ok {
			if opts.PreserveOptimisticReads && p.Read {
				n.Read = true
			}
			n.Expanded = p.Expanded
		}
		next = append(next, n)
	}

	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Timestamp.After(next[j].Timestamp)
	})
	return next, nil
}
