package media

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func newTestBreaker(threshold int, reset time.Duration) (*Breaker, *manualClock) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	b := NewBreaker(threshold, reset)
	b.now = clock.Now
	return b, clock
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half_open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	toolErr := errors.New("segfault")

	for i := 1; i <= 2; i++ {
		assert.ErrorIs(t, b.Call(func() error { return toolErr }), toolErr)
		assert.Equal(t, BreakerClosed, b.State())
		assert.Equal(t, i, b.Failures())
	}

	assert.ErrorIs(t, b.Call(func() error { return toolErr }), toolErr)
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.CanAttempt())

	called := false
	err := b.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrToolUnavailable)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	_ = b.Call(func() error { return errors.New("boom") })
	_ = b.Call(func() error { return errors.New("boom") })
	assert.Equal(t, 2, b.Failures())

	assert.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_InputErrorsCountAsSuccess(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)

	for _, err := range []error{ErrFileNotFound, ErrInvalidFile, ErrUnsupportedFormat} {
		assert.ErrorIs(t, b.Call(func() error { return err }), err)
	}
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name      string
		trial     error
		wantState BreakerState
	}{
		{"trial succeeds", nil, BreakerClosed},
		{"trial fails", errors.New("still broken"), BreakerOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clock := newTestBreaker(1, 30*time.Second)

			_ = b.Call(func() error { return errors.New("boom") })
			assert.Equal(t, BreakerOpen, b.State())

			clock.now = clock.now.Add(29 * time.Second)
			assert.Equal(t, BreakerOpen, b.State())

			clock.now = clock.now.Add(time.Second)
			assert.Equal(t, BreakerHalfOpen, b.State())
			assert.True(t, b.CanAttempt())

			_ = b.Call(func() error { return tt.trial })
			assert.Equal(t, tt.wantState, b.State())
		})
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1, time.Hour)

	_ = b.Call(func() error { return errors.New("boom") })
	assert.Equal(t, BreakerOpen, b.State())

	b.Reset()
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.True(t, b.CanAttempt())
}

func TestNewBreaker_MinimumThreshold(t *testing.T) {
	b, _ := newTestBreaker(0, time.Minute)

	_ = b.Call(func() error { return errors.New("boom") })
	assert.Equal(t, BreakerOpen, b.State())
}
