package server

import (
	"sync"

	"github.com/nao1215/alertfeed/internal/feed"
)

// Registry は認証済みユーザーごとのFeedを保持する。
type Registry struct {
	// newFeed はFeedを生成する関数。
	newFeed func() *feed.Feed

	mu    sync.Mutex
	feeds map[string]*feed.Feed
}

// NewRegistry は新しいRegistryを生成する。
func NewRegistry(newFeed func() *feed.Feed) *Registry {
	return &Registry{
		newFeed: newFeed,
		feeds:   make(map[string]*feed.Feed),
	}
}

// Acquire はセッションのユーザーのFeedを返す。初回は生成してポーリングを開始する。
// トークンが変わった場合は新しいトークンでセッションを張り直す。
func (r *Registry) Acquire(s feed.Session) *feed.Feed {
	r.mu.Lock()
	f, ok := r.feeds[s.UserID]
	if !ok {
		f = r.newFeed()
		r.feeds[s.UserID] = f
	}
	r.mu.Unlock()

	f.SetSession(s)
	return f
}

// Drop はユーザーのFeedのセッションを終了して破棄する。存在した場合にtrueを返す。
func (r *Registry) Drop(userID string) bool {
	r.mu.Lock()
	f, ok := r.feeds[userID]
	delete(r.feeds, userID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	f.EndSession()
	f.Close()
	return true
}

// Len は保持しているFeedの数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

// Close はすべてのFeedを停止する。
func (r *Registry) Close() {
	r.mu.Lock()
	feeds := r.feeds
	r.feeds = make(map[string]*feed.Feed)
	r.mu.Unlock()

	for _, f := range feeds {
		f.Close()
	}
}
