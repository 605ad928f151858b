package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval は通知サービスをポーリングする間隔。
const DefaultPollInterval = 15 * time.Second

// State はSchedulerの状態を表す。
type State int

const (
	// StateStopped は停止中。
	StateStopped State = iota
	// StateRunning はポーリング中。
	StateRunning
)

// String は状態名を返す。
func (s State) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "STOPPED"
}

// Scheduler は一定間隔でtickを呼び出すポーリングスケジューラ。
// 1つのインスタンスが同時に持つティッカーは常に高々1つ。
type Scheduler struct {
	// interval はポーリング間隔。
	interval time.Duration
	// clock はティッカーを生成する時計。
	clock Clock
	// tick は各ポーリングで呼ばれる関数。ブロックしてはならない。
	tick func()

	// mu は以下のフィールドを保護する。
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	log    zerolog.Logger
}

// NewScheduler は新しいSchedulerを生成する。
func NewScheduler(interval time.Duration, clock Clock, tick func(), logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Scheduler{
		interval: interval,
		clock:    clock,
		tick:     tick,
		log:      logger,
	}
}

// Start はポーリングを開始する。直ちに1回tickを呼び、その後interval毎に繰り返す。
// 既に動作中の場合は既存のティッカーを止めてから開始し直す。
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	ticks, stopTicker := s.clock.NewTicker(s.interval)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.state = StateRunning
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer stopTicker()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				s.tick()
			}
		}
	}()

	s.log.Debug().Dur("interval", s.interval).Msg("ポーリングを開始しました")
	s.tick()
}

// Stop はポーリングを停止する。停止中に呼んでも何もしない。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.log.Debug().Msg("ポーリングを停止しました")
	}
}

// Trigger は動作中であればその場で1回tickを呼ぶ。2つ目のティッカーは作らない。
// 停止中の場合はfalseを返す。
func (s *Scheduler) Trigger() bool {
	if s.State() != StateRunning {
		return false
	}
	s.tick()
	return true
}

// State は現在の状態を返す。
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.state = StateStopped
	return true
}
