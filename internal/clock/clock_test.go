package clock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualSource struct {
	now float64
}

func (s *manualSource) Now() float64 { return s.now }

func TestClock_StoppedReturnsStoredValue(t *testing.T) {
	c := New()
	assert.Equal(t, 0.0, c.Now())
	assert.False(t, c.Running())

	require.NoError(t, c.Set(12.5))
	assert.Equal(t, 12.5, c.Now())
}

func TestClock_RunningFollowsSourceFromAnchor(t *testing.T) {
	src := &manualSource{now: 100}
	c := New()
	require.NoError(t, c.Set(4))

	c.Start(src)
	assert.True(t, c.Running())
	assert.Equal(t, 4.0, c.Now())

	src.now = 102.5
	assert.Equal(t, 6.5, c.Now())

	assert.ErrorIs(t, c.Set(0), ErrRunning)
	assert.Equal(t, 6.5, c.Now())
}

func TestClock_StopFreezesAtCurrentTime(t *testing.T) {
	src := &manualSource{now: 0}
	c := New()
	c.Start(src)
	src.now = 3

	assert.Equal(t, 3.0, c.Stop())
	src.now = 10
	assert.Equal(t, 3.0, c.Now())
	assert.False(t, c.Running())
}

func TestClock_ResumeAfterPauseHasNoDrift(t *testing.T) {
	first := &manualSource{now: 50}
	c := New()
	require.NoError(t, c.Set(7))

	c.Start(first)
	c.Stop()

	// A rebuilt source starts counting from zero
	second := &manualSource{now: 0}
	c.Start(second)
	assert.Equal(t, 7.0, c.Now())
	second.now = 1
	assert.Equal(t, 8.0, c.Now())
}

func TestClock_SetRejectsInvalidTimes(t *testing.T) {
	c := New()
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, c.Set(v), ErrInvalidTime)
	}
	c.Start(nil)
	assert.False(t, c.Running())
}
