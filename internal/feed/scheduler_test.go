package feed

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/alertfeed/internal/testutil"
)

func TestScheduler(t *testing.T) {
	t.Parallel()

	newScheduler := func(t *testing.T) (*Scheduler, *testutil.FakeClock, *atomic.Int32) {
		t.Helper()
		clock := testutil.NewFakeClock(testStart)
		var ticks atomic.Int32
		s := NewScheduler(DefaultPollInterval, clock, func() { ticks.Add(1) }, zerolog.Nop())
		t.Cleanup(s.Stop)
		return s, clock, &ticks
	}

	t.Run("開始直後に1回取得しその後は間隔ごとに取得すること", func(t *testing.T) {
		t.Parallel()

		s, clock, ticks := newScheduler(t)
		assert.Equal(t, StateStopped, s.State())

		s.Start()
		assert.Equal(t, StateRunning, s.State())
		assert.Equal(t, int32(1), ticks.Load())

		clock.Advance(DefaultPollInterval - time.Millisecond)
		assert.Never(t, func() bool { return ticks.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

		clock.Advance(time.Millisecond)
		require.Eventually(t, func() bool { return ticks.Load() == 2 }, time.Second, time.Millisecond)

		clock.Advance(DefaultPollInterval)
		require.Eventually(t, func() bool { return ticks.Load() == 3 }, time.Second, time.Millisecond)
	})

	t.Run("再開始してもティッカーは1つだけであること", func(t *testing.T) {
		t.Parallel()

		s, clock, ticks := newScheduler(t)
		s.Start()
		s.Start()
		s.Start()

		assert.Equal(t, 1, clock.ActiveTickers())
		assert.Equal(t, int32(3), ticks.Load())
	})

	t.Run("停止後はティックしないこと", func(t *testing.T) {
		t.Parallel()

		s, clock, ticks := newScheduler(t)
		s.Start()
		s.Stop()
		s.Stop()

		assert.Equal(t, StateStopped, s.State())
		assert.Equal(t, 0, clock.ActiveTickers())

		clock.Advance(3 * DefaultPollInterval)
		assert.Never(t, func() bool { return ticks.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("Triggerは動作中のみ即座にティックすること", func(t *testing.T) {
		t.Parallel()

		s, clock, ticks := newScheduler(t)
		assert.False(t, s.Trigger())
		assert.Equal(t, int32(0), ticks.Load())

		s.Start()
		assert.True(t, s.Trigger())
		assert.Equal(t, int32(2), ticks.Load())
		assert.Equal(t, 1, clock.ActiveTickers())
	})

	t.Run("状態名を返すこと", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "RUNNING", StateRunning.String())
		assert.Equal(t, "STOPPED", StateStopped.String())
	})
}
