package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/alertfeed/internal/testutil"
)

var testStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// fakeBackend は呼び出しを記録する通知サービスのテスト実装。
type fakeBackend struct {
	mu       sync.Mutex
	snapshot []byte
	fetchErr error
	markErr  error
	// release がnilでなければ、FetchNotificationsは値を受け取るまで待つ。
	release chan struct{}

	fetches  int
	marked   []string
	markAll  int
	sessions []Session
}

func newFakeBackend(snapshot string) *fakeBackend {
	return &fakeBackend{snapshot: []byte(snapshot)}
}

func (b *fakeBackend) FetchNotifications(ctx context.Context, _ int) ([]byte, error) {
	b.mu.Lock()
	b.fetches++
	if s, ok := SessionFromContext(ctx); ok {
		b.sessions = append(b.sessions, s)
	}
	release := b.release
	b.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return slices.Clone(b.snapshot), nil
}

func (b *fakeBackend) MarkRead(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marked = append(b.marked, id)
	return b.markErr
}

func (b *fakeBackend) MarkAllRead(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markAll++
	return b.markErr
}

func (b *fakeBackend) setSnapshot(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = []byte(s)
}

func (b *fakeBackend) setFetchErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchErr = err
}

func (b *fakeBackend) setMarkErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markErr = err
}

func (b *fakeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func (b *fakeBackend) markedIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.marked)
}

func (b *fakeBackend) seenSessions() []Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.sessions)
}

func (b *fakeBackend) markAllCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.markAll
}

// memPersister はメモリ上のPersister。
type memPersister struct {
	mu      sync.Mutex
	data    map[string][]string
	loadErr error
	saveErr error
	saves   int
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]string)}
}

func (p *memPersister) LoadTombstones(_ context.Context, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return slices.Clone(p.data[userID]), nil
}

func (p *memPersister) SaveTombstones(_ context.Context, userID string, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.data[userID] = slices.Clone(ids)
	return nil
}

func (p *memPersister) stored(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.data[userID])
}

var errBackendDown = errors.New("connection refused")

type testFeed struct {
	*Feed
	backend   *fakeBackend
	persister *memPersister
	clock     *testutil.FakeClock
}

// newTestFeed はFakeClockとテスト用のバックエンドで動くFeedを生成する。
func newTestFeed(t *testing.T, snapshot string) *testFeed {
	t.Helper()

	backend := newFakeBackend(snapshot)
	persister := newMemPersister()
	clock := testutil.NewFakeClock(testStart)
	logger := zerolog.Nop()

	f := New(Config{
		PreserveReadsOnPoll: true,
		Clock:               clock,
		Logger:              &logger,
	}, backend, persister)
	t.Cleanup(f.Close)

	return &testFeed{Feed: f, backend: backend, persister: persister, clock: clock}
}

func ids(items []Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func find(items []Notification, id string) (Notification, bool) {
	for _, n := range items {
		if n.ID == id {
			return n, true
		}
	}
	return Notification{}, false
}

// addLocal はローカル通知を追加し、失敗しないことを確認する。
func addLocal(t *testing.T, f *testFeed, in Input) Notification {
	t.Helper()
	n, err := f.AddNotification(in)
	require.NoError(t, err)
	return n
}
