// Package audio implements the audio output graph and the per-clip scheduler built on beep.
package audio

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Output is the root of the audio graph and the engine's hardware-synchronised clock.
// Its time advances only as samples are pulled from it, so whatever drives Stream
// (a device sink or the session pump) is the authority for playback time.
type Output struct {
	mu        sync.Mutex
	rate      beep.SampleRate
	mixer     *beep.Mixer
	position  int
	suspended bool
	closed    bool
	scratch   [][2]float64
}

// NewOutput creates a running output at the given sample rate
func NewOutput(rate beep.SampleRate) *Output {
	return &Output{
		rate:  rate,
		mixer: &beep.Mixer{},
	}
}

// SampleRate returns the output sample rate
func (o *Output) SampleRate() beep.SampleRate {
	return o.rate
}

// Now returns the number of seconds rendered since the output was created
func (o *Output) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return float64(o.position) / float64(o.rate)
}

// Suspend stops the clock; a suspended output renders silence without advancing
func (o *Output) Suspend() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.suspended = true
}

// Resume restarts a suspended clock
func (o *Output) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.suspended = false
}

// Suspended reports whether the clock is suspended
func (o *Output) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suspended
}

// Close tears the output down. Closing twice is a no-op.
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.mixer.Clear()
}

// Closed reports whether the output has been torn down
func (o *Output) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Add connects s to the root mixer
func (o *Output) Add(s beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutputClosed
	}
	o.mixer.Add(s)
	return nil
}

// Stream renders the mix of every connected bus into samples
func (o *Output) Stream(samples [][2]float64) (n int, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, false
	}

	if o.suspended {
		clear(samples)
		return len(samples), true
	}

	n = 0
	if o.mixer.Len() > 0 {
		n, _ = o.mixer.Stream(samples)
	}
	clear(samples[n:])

	o.position += len(samples)
	return len(samples), true
}

// Err always returns nil
func (o *Output) Err() error {
	return nil
}

// Advance pulls n samples through the graph, discarding them, and returns how many
// were rendered. It stands in for a device sink.
func (o *Output) Advance(n int) int {
	if n <= 0 {
		return 0
	}
	if cap(o.scratch) < n {
		o.scratch = make([][2]float64, n)
	}
	buf := o.scratch[:n]
	rendered, _ := o.Stream(buf)
	return rendered
}
