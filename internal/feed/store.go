package feed

// Store はUIに表示する通知の順序付きコレクション。
//
// 新しい通知が先頭に来る。IDはストア内で一意。Storeはロックを持たず、
// Feedのオーナーゴルーチンからのみ操作される。変更はChangesで合流して通知される。
type Store struct {
	items   []Notification
	changes chan struct{}
}

// NewStore は空のストアを生成する。
func NewStore() *Store {
	return &Store{
		changes: make(chan struct{}, 1),
	}
}

// Changes はストアが変更されたときに合図を受け取るチャネルを返す。
// 連続した変更は1つの合図にまとめられる。受信後はSnapshotで最新の内容を読む。
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Replace はストアの内容を丸ごと置き換える。
func (s *Store) Replace(items []Notification) {
	s.items = items
	s.notify()
}

// Prepend は通知を先頭に追加する。同じIDが既にあれば置き換える。
func (s *Store) Prepend(n Notification) {
	s.removeIndex(s.indexOf(n.ID))
	s.items = append([]Notification{n}, s.items...)
	s.notify()
}

// Remove はidの通知を取り除く。存在した場合にtrueを返す。
func (s *Store) Remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.removeIndex(i)
	s.notify()
	return true
}

// Update はidの通知にfnを適用する。存在した場合にtrueを返す。
func (s *Store) Update(id string, fn func(*Notification)) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	fn(&s.items[i])
	s.notify()
	return true
}

// UpdateAll はすべての通知にfnを適用する。
func (s *Store) UpdateAll(fn func(*Notification)) {
	for i := range s.items {
		fn(&s.items[i])
	}
	s.notify()
}

// Clear はストアを空にする。
func (s *Store) Clear() {
	s.items = nil
	s.notify()
}

// Get はidの通知のコピーを返す。
func (s *Store) Get(id string) (Notification, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Notification{}, false
	}
	return s.items[i].clone(), true
}

// Snapshot は現在の通知のコピーを返す。
func (s *Store) Snapshot() []Notification {
	out := make([]Notification, len(s.items))
	for i, n := range s.items {
		out[i] = n.clone()
	}
	return out
}

// IDs は表示中の通知IDを表示順に返す。
func (s *Store) IDs() []string {
	ids := make([]string, len(s.items))
	for i, n := range s.items {
		ids[i] = n.ID
	}
	return ids
}

// Len は通知数を返す。
func (s *Store) Len() int {
	return len(s.items)
}

// UnreadCount は未読の通知数を返す。
func (s *Store) UnreadCount() int {
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *Store) indexOf(id string) int {
	for i, n := range s.items {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeIndex(i int) {
	if i < 0 {
		return
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
}

// notify は合図を送る。既に合図が溜まっている場合は捨てる。
func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
