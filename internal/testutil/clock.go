// Package testutil はテスト用の補助実装を提供する。
package testutil

import (
	"sort"
	"sync"
	"time"
)

// FakeClock はテストから時間を明示的に進められる時計。
//
// AfterFuncのコールバックはAdvanceを呼んだゴルーチン上で同期的に実行される。
// Tickerは実時間のtime.Tickerと同じく、受信側が遅れている場合はティックを捨てる。
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

type fakeTimer struct {
	at      time.Time
	fn      func()
	stopped bool
}

type fakeTicker struct {
	next    time.Time
	period  time.Duration
	c       chan time.Time
	stopped bool
}

// NewFakeClock はstartを現在時刻とするFakeClockを生成する。
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now は現在の仮想時刻を返す。
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc は仮想時刻でd経過後にfを実行するタイマーを登録する。
// 戻り値の関数はタイマーを停止し、発火前に停止できた場合にtrueを返す。
func (c *FakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, pending := range c.timers {
			if pending == t {
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
				t.stopped = true
				return true
			}
		}
		return false
	}
}

// NewTicker は仮想時刻でperiodごとに発火するティッカーを生成する。
func (c *FakeClock) NewTicker(period time.Duration) (<-chan time.Time, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tk := &fakeTicker{
		next:   c.now.Add(period),
		period: period,
		c:      make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, tk)

	return tk.c, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		tk.stopped = true
		for i, pending := range c.tickers {
			if pending == tk {
				c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
				return
			}
		}
	}
}

// Advance は仮想時刻をdだけ進め、期限の来たタイマーとティッカーを発火させる。
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*fakeTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.at.After(now) {
			due = append(due, t)
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining

	for _, tk := range c.tickers {
		for !tk.next.After(now) {
			select {
			case tk.c <- tk.next:
			default:
			}
			tk.next = tk.next.Add(tk.period)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// PendingTimers は未発火かつ未停止のタイマー数を返す。
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// ActiveTickers は停止されていないティッカー数を返す。
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}
