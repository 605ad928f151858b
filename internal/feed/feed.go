package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nao1215/alertfeed/internal/logging"
)

// DefaultSuccessTTL はsuccess通知が自動で消えるまでの時間。
const DefaultSuccessTTL = 5 * time.Second

// ErrClosed はClose済みのFeedを操作したことを表す。
var ErrClosed = errors.New("フィードは終了しています")

// Config はFeedの設定。ゼロ値の項目には既定値が使われる。
type Config struct {
	// PollInterval はポーリング間隔。
	PollInterval time.Duration
	// FetchLimit は1回の取得件数の上限。
	FetchLimit int
	// PreserveReadsOnPoll はポーリング時に楽観的な既読を維持するかどうか。
	PreserveReadsOnPoll bool
	// TombstoneLimit はトゥームストーンの上限件数。
	TombstoneLimit int
	// SuccessTTL はsuccess通知の表示時間。
	SuccessTTL time.Duration
	// Clock は時計。nilの場合はシステム時計。
	Clock Clock
	// Logger はロガー。nilの場合はコンポーネントロガーを使う。
	Logger *zerolog.Logger
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = DefaultFetchLimit
	}
	if c.TombstoneLimit <= 0 {
		c.TombstoneLimit = DefaultTombstoneLimit
	}
	if c.SuccessTTL <= 0 {
		c.SuccessTTL = DefaultSuccessTTL
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Logger == nil {
		l := logging.Component("feed")
		c.Logger = &l
	}
}

// Feed はUIに公開する通知フィードの操作窓口。
//
// ストアへの変更はすべて1つのオーナーゴルーチンで直列化される。
// 通知サービスへの呼び出しはバックグラウンドで実行され、呼び出し元を待たせない。
type Feed struct {
	cfg        Config
	backend    Backend
	clock      Clock
	log        zerolog.Logger
	store      *Store
	tombstones *TombstoneSet
	scheduler  *Scheduler

	// ctx はバックグラウンド処理の親context。Closeでキャンセルされる。
	ctx    context.Context
	cancel context.CancelFunc

	ops       chan func()
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	tasks     sync.WaitGroup
	// taskMu はclosedとtasksへの登録を保護する。
	taskMu sync.Mutex
	closed bool

	// 以下はオーナーゴルーチンからのみ触る。
	session    Session
	generation uint64
	loading    int
	lastErr    error
	expiry     map[string]func() bool
}

// New はFeedを生成し、オーナーゴルーチンを起動する。利用後はCloseを呼ぶこと。
// persisterがnilの場合、トゥームストーンはメモリ上のみで保持する。
func New(cfg Config, backend Backend, persister Persister) *Feed {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	f := &Feed{
		cfg:        cfg,
		backend:    backend,
		clock:      cfg.Clock,
		log:        *cfg.Logger,
		store:      NewStore(),
		tombstones: NewTombstoneSet(persister, cfg.TombstoneLimit, *cfg.Logger),
		ctx:        ctx,
		cancel:     cancel,
		ops:        make(chan func()),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		expiry:     make(map[string]func() bool),
	}
	f.scheduler = NewScheduler(cfg.PollInterval, cfg.Clock, f.onTick, *cfg.Logger)

	go f.run()
	return f
}

// Close はポーリングとオーナーゴルーチンを停止し、実行中のバックグラウンド処理を待つ。
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.taskMu.Lock()
		f.closed = true
		f.taskMu.Unlock()

		f.scheduler.Stop()
		close(f.quit)
		f.cancel()
		<-f.stopped
		f.tasks.Wait()
		f.cancelAllExpiry()
	})
}

func (f *Feed) run() {
	defer close(f.stopped)
	for {
		select {
		case op := <-f.ops:
			op()
		case <-f.quit:
			return
		}
	}
}

// exec はopをオーナーゴルーチンで実行し、完了まで待つ。Close済みの場合はfalseを返す。
func (f *Feed) exec(op func()) bool {
	done := make(chan struct{})
	select {
	case f.ops <- func() { op(); close(done) }:
	case <-f.quit:
		return false
	}
	select {
	case <-done:
		return true
	case <-f.quit:
		return false
	}
}

// goBackground はfnを追跡対象のゴルーチンで実行する。Close開始後は何もしない。
func (f *Feed) goBackground(fn func()) {
	f.taskMu.Lock()
	defer f.taskMu.Unlock()
	if f.closed {
		return
	}
	f.tasks.Add(1)
	go func() {
		defer f.tasks.Done()
		fn()
	}()
}

// SetSession はフィードを利用するセッションを設定する。
//
// 有効なセッションであれば、ユーザーが変わった場合にトゥームストーンを読み直し、
// ポーリングを開始する。無効なセッションはEndSessionと同じ扱いになる。
func (f *Feed) SetSession(s Session) {
	if !s.Valid() {
		f.EndSession()
		return
	}

	f.exec(func() {
		if f.session == s && f.scheduler.State() == StateRunning {
			return
		}
		if f.session.UserID != s.UserID {
			f.cancelAllExpiry()
			f.store.Clear()
			_ = f.tombstones.Load(f.ctx, s.UserID)
		}
		f.session = s
		f.generation++
		f.scheduler.Start()
	})
}

// EndSession はポーリングを止めてストアを空にする。
// 前のユーザーの通知が画面に残らないようにする。
func (f *Feed) EndSession() {
	f.exec(f.endSession)
}

// endSession はオーナーゴルーチンでセッションを破棄する。
func (f *Feed) endSession() {
	f.scheduler.Stop()
	f.session = Session{}
	f.generation++
	f.cancelAllExpiry()
	f.store.Clear()
}

// State はポーリングの状態を返す。
func (f *Feed) State() State {
	return f.scheduler.State()
}

// AddNotification はローカル通知を先頭に追加して返す。
// success通知はSuccessTTL経過後に自動で消える（先に手動で消された場合を除く）。
// Close済みの場合はErrClosedを返す。
func (f *Feed) AddNotification(in Input) (Notification, error) {
	n := Notification{
		Type:     parseType(string(in.Type)),
		Priority: parsePriority(string(in.Priority)),
		Title:    in.Title,
		Message:  in.Message,
		Data:     in.Data,
		Origin:   OriginLocal,
	}

	if !f.exec(func() {
		n.Timestamp = f.clock.Now()
		n.ID = newLocalID(n.Timestamp)
		f.store.Prepend(n)
		if n.Type == TypeSuccess {
			f.scheduleExpiry(n.ID)
		}
	}) {
		return Notification{}, ErrClosed
	}
	return n.clone(), nil
}

// RemoveNotification は通知を取り除き、二度と表示しないようトゥームストーンに加える。
func (f *Feed) RemoveNotification(id string) {
	f.exec(func() {
		f.cancelExpiry(id)
		f.store.Remove(id)
		_ = f.tombstones.Add(f.ctx, id)
	})
}

// ClearAll は表示中の通知をすべてトゥームストーンに加え、ストアを空にする。
// まだ既読が確定していない通知も対象になる。
func (f *Feed) ClearAll() {
	f.exec(func() {
		_ = f.tombstones.AddAll(f.ctx, f.store.IDs())
		f.cancelAllExpiry()
		f.store.Clear()
	})
}

// ToggleExpand はUI上の展開状態を反転する。通知が存在した場合にtrueを返す。
func (f *Feed) ToggleExpand(id string) bool {
	var ok bool
	f.exec(func() {
		ok = f.store.Update(id, func(n *Notification) { n.Expanded = !n.Expanded })
	})
	return ok
}

// LoadNotifications は通知を取得してストアを作り直す。楽観的な既読は維持しない。
func (f *Feed) LoadNotifications(ctx context.Context) error {
	return f.refresh(ctx, false)
}

// RefreshNotifications は通知を取得してストアを作り直す。
// preserveReadsが真の場合、手元で既読にした通知は既読のまま維持する。
func (f *Feed) RefreshNotifications(ctx context.Context, preserveReads bool) error {
	return f.refresh(ctx, preserveReads)
}

// RefreshNow はポーリング中であれば、次の周期を待たずに取得を1回行う。
func (f *Feed) RefreshNow() bool {
	return f.scheduler.Trigger()
}

// IsLoading は取得処理が進行中かどうかを返す。
func (f *Feed) IsLoading() bool {
	var loading bool
	f.exec(func() { loading = f.loading > 0 })
	return loading
}

// LastError は直近の取得が失敗していればそのエラーを返す。
func (f *Feed) LastError() error {
	var err error
	f.exec(func() { err = f.lastErr })
	return err
}

// Notifications は表示中の通知のコピーを返す。
func (f *Feed) Notifications() []Notification {
	var out []Notification
	f.exec(func() { out = f.store.Snapshot() })
	return out
}

// UnreadCount は未読の通知数を返す。
func (f *Feed) UnreadCount() int {
	var count int
	f.exec(func() { count = f.store.UnreadCount() })
	return count
}

// Changes はストアが変更されたときに合図を受け取るチャネルを返す。
func (f *Feed) Changes() <-chan struct{} {
	return f.store.Changes()
}

// Tombstoned はidがトゥームストーンに含まれるかを返す。
func (f *Feed) Tombstoned(id string) bool {
	var ok bool
	f.exec(func() { ok = f.tombstones.Contains(id) })
	return ok
}

func (f *Feed) onTick() {
	f.goBackground(func() {
		_ = f.refresh(f.ctx, f.cfg.PreserveReadsOnPoll)
	})
}

// refresh は取得・突き合わせ・反映を1回行う。
// 取得はオーナーゴルーチンの外で行い、結果の反映だけを直列化する。
func (f *Feed) refresh(ctx context.Context, preserveReads bool) error {
	var (
		sess Session
		gen  uint64
	)
	if !f.exec(func() {
		sess, gen = f.session, f.generation
		if sess.Valid() {
			f.loading++
		}
	}) {
		return ErrClosed
	}
	if !sess.Valid() {
		return ErrAuthRequired
	}

	raw, err := f.backend.FetchNotifications(WithSession(ctx, sess), f.cfg.FetchLimit)

	applied := f.exec(func() {
		f.loading--
		if gen != f.generation {
			// 終了済みまたは差し替えられたセッションの結果は捨てる
			err = nil
			return
		}
		if errors.Is(err, ErrAuthRequired) {
			// 通知サービスがセッションを拒否した。無効なトークンでポーリングを続けない
			f.lastErr = err
			f.endSession()
			return
		}
		if err != nil {
			f.lastErr = err
			f.logFailure("fetch", err)
			return
		}

		next, rerr := Reconcile(f.store.items, raw, f.tombstones, ReconcileOptions{
			PreserveOptimisticReads: preserveReads,
			Now:                     f.clock.Now(),
		})
		if rerr != nil {
			err = rerr
			f.lastErr = rerr
			f.logFailure("reconcile", rerr)
			return
		}

		f.store.Replace(next)
		f.lastErr = nil
		f.pruneExpiry()
	})
	if !applied {
		return ErrClosed
	}
	return err
}

// logFailure はエラーの種類に応じてログを出力する。認証切れは想定内のため出力しない。
func (f *Feed) logFailure(op string, err error) {
	switch {
	case err == nil, errors.Is(err, ErrAuthRequired), errors.Is(err, context.Canceled):
		return
	case errors.Is(err, ErrSnapshotInvalid):
		f.log.Warn().Err(err).Str("op", op).Msg("不正なスナップショットを受信したため現在の通知を維持します")
	default:
		f.log.Warn().Err(err).Str("op", op).Msg("通知サービスとの同期に失敗")
	}
}

func (f *Feed) scheduleExpiry(id string) {
	f.expiry[id] = f.clock.AfterFunc(f.cfg.SuccessTTL, func() {
		f.exec(func() { f.expire(id) })
	})
}

func (f *Feed) expire(id string) {
	if _, ok := f.expiry[id]; !ok {
		return
	}
	delete(f.expiry, id)
	f.store.Remove(id)
}

func (f *Feed) cancelExpiry(id string) {
	if stop, ok := f.expiry[id]; ok {
		stop()
		delete(f.expiry, id)
	}
}

func (f *Feed) cancelAllExpiry() {
	for id, stop := range f.expiry {
		stop()
		delete(f.expiry, id)
	}
}

// pruneExpiry はストアから消えた通知のタイマーを止める。
func (f *Feed) pruneExpiry() {
	for id := range f.expiry {
		if f.store.indexOf(id) < 0 {
			f.cancelExpiry(id)
		}
	}
}

// newLocalID は時刻とランダム成分からローカル通知のIDを生成する。
// 同一ミリ秒内の衝突をランダム成分で避ける。
func newLocalID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("local-%d-%s", now.UnixMilli(), random)
}
