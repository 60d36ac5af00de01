package player

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestSimulated_DurationUnknownUntilLoad(t *testing.T) {
	p := NewSimulated()
	assert.True(t, math.IsNaN(p.Duration()))

	p.Play()
	assert.False(t, p.Status().Playing, "cannot play without media")

	p.Load(120)
	assert.Equal(t, 120.0, p.Duration())
	assert.True(t, p.Status().Loaded)
}

func TestSimulated_LoadReportsMetadataFirst(t *testing.T) {
	p := NewSimulated()
	var order []string
	p.OnLoadedMetadata(func() { order = append(order, "meta") })
	p.OnTimeUpdate(func() { order = append(order, "time") })

	p.Load(60)
	p.Seek(10)
	p.flush()

	assert.Equal(t, []string{"meta", "time"}, order)
}

func TestSimulated_StepAdvancesWithRate(t *testing.T) {
	clock := newClock()
	p := NewSimulated(WithClock(clock.now))
	p.Load(100)

	updates := 0
	p.OnTimeUpdate(func() { updates++ })

	p.Play()
	clock.add(seconds(2))
	p.step()
	assert.InDelta(t, 2.0, p.CurrentTime(), 1e-9)

	p.SetRate(2)
	clock.add(seconds(1))
	p.step()
	assert.InDelta(t, 4.0, p.CurrentTime(), 1e-9)
	assert.Equal(t, 2, updates)

	p.Pause()
	clock.add(seconds(5))
	p.step()
	assert.InDelta(t, 4.0, p.CurrentTime(), 1e-9)
	assert.Equal(t, 2, updates, "paused players report nothing")
}

func TestSimulated_EndsAtDuration(t *testing.T) {
	clock := newClock()
	p := NewSimulated(WithClock(clock.now))
	p.Load(10)

	var last float64
	p.OnTimeUpdate(func() { last = p.CurrentTime() })

	p.Play()
	clock.add(seconds(15))
	p.step()

	st := p.Status()
	assert.Equal(t, 10.0, st.Position)
	assert.Equal(t, 10.0, last)
	assert.False(t, st.Playing)
	assert.True(t, st.Ended)

	p.Play()
	assert.Equal(t, 0.0, p.CurrentTime(), "play after end restarts")
}

func TestSimulated_SeekClamps(t *testing.T) {
	p := NewSimulated()
	p.Seek(5)
	assert.Equal(t, 0.0, p.CurrentTime(), "seek before load is ignored")

	p.Load(30)
	tests := []struct {
		seek float64
		want float64
	}{
		{12.5, 12.5},
		{-3, 0},
		{99, 30},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		p.Seek(tt.seek)
		assert.Equal(t, tt.want, p.CurrentTime())
	}
}

func TestSimulated_Unsubscribe(t *testing.T) {
	p := NewSimulated()
	calls := 0
	off := p.OnTimeUpdate(func() { calls++ })

	p.Load(30)
	p.Seek(1)
	p.flush()
	off()
	p.Seek(2)
	p.flush()

	assert.Equal(t, 1, calls)
}

func TestSimulated_RunDeliversCallbacks(t *testing.T) {
	p := NewSimulated(WithInterval(5 * time.Millisecond))
	var metas, ticks atomic.Int32
	p.OnLoadedMetadata(func() { metas.Add(1) })
	p.OnTimeUpdate(func() { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	p.Load(60)
	p.Play()

	require.Eventually(t, func() bool {
		return metas.Load() == 1 && ticks.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
