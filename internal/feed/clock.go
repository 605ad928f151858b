package feed

import "time"

// Clock はフィードが利用する時刻とタイマーの抽象。
// テストでは仮想時計に差し替える。
type Clock interface {
	Now() time.Time
	// AfterFunc はd経過後にfを別ゴルーチンで実行する。戻り値は停止関数。
	AfterFunc(d time.Duration, f func()) (stop func() bool)
	// NewTicker は周期dのティックを受け取るチャネルと停止関数を返す。
	NewTicker(d time.Duration) (c <-chan time.Time, stop func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

func (systemClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
