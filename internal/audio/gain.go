package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// GainUnit is a per-clip volume bus. Playback units are mixed into the bus and the
// bus is connected to exactly one Output at a time.
type GainUnit struct {
	mu       sync.Mutex
	gain     float64
	bus      *beep.Mixer
	volume   *effects.Volume
	output   *Output
	gen      uint64
	released bool
}

// NewGainUnit creates a disconnected gain unit. Invalid gains fall back to unity.
func NewGainUnit(gain float64) *GainUnit {
	if !validGain(gain) {
		gain = 1
	}
	return &GainUnit{gain: gain}
}

// Gain returns the linear gain
func (g *GainUnit) Gain() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gain
}

// SetGain changes the linear gain, taking effect on the next rendered block
func (g *GainUnit) SetGain(gain float64) error {
	if !validGain(gain) {
		return ErrInvalidGain
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.gain = gain
	g.applyGain()
	return nil
}

// Connect rebuilds the bus against out, dropping any previous connection.
// The gain value is preserved.
func (g *GainUnit) Connect(out *Output) error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return ErrGainReleased
	}
	g.disconnectLocked()
	g.bus = &beep.Mixer{}
	g.volume = &effects.Volume{Streamer: g.bus, Base: 2}
	g.applyGain()
	g.output = out
	tap := &busTap{unit: g, gen: g.gen}
	g.mu.Unlock()

	// out.mu is taken after g.mu is dropped; the render path locks in the opposite order
	if err := out.Add(tap); err != nil {
		g.Disconnect()
		return err
	}
	return nil
}

// Disconnect detaches the bus from its output; pending playback units are dropped
func (g *GainUnit) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnectLocked()
}

// Connected reports whether the bus is attached to an output
func (g *GainUnit) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.output != nil
}

// Release disconnects the unit for good. Releasing twice is a no-op.
func (g *GainUnit) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.disconnectLocked()
	g.released = true
	return nil
}

func (g *GainUnit) disconnectLocked() {
	g.gen++
	g.output = nil
	g.bus = nil
	g.volume = nil
}

func (g *GainUnit) applyGain() {
	if g.volume == nil {
		return
	}
	if g.gain <= 0 {
		g.volume.Silent = true
		g.volume.Volume = 0
		return
	}
	g.volume.Silent = false
	g.volume.Volume = math.Log2(g.gain)
}

// add mixes s into the bus
func (g *GainUnit) add(s beep.Streamer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bus == nil {
		return ErrBusDisconnected
	}
	g.bus.Add(s)
	return nil
}

// withLock runs f while the render path is excluded from the bus
func (g *GainUnit) withLock(f func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f()
}

func (g *GainUnit) stream(gen uint64, samples [][2]float64) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A stale tap belongs to an output this unit has left
	if gen != g.gen || g.bus == nil {
		return 0, false
	}

	n := 0
	if g.bus.Len() > 0 {
		n, _ = g.volume.Stream(samples)
	}
	clear(samples[n:])
	return len(samples), true
}

// busTap is the streamer an Output sees for one connection of a GainUnit
type busTap struct {
	unit *GainUnit
	gen  uint64
}

func (t *busTap) Stream(samples [][2]float64) (int, bool) {
	return t.unit.stream(t.gen, samples)
}

func (t *busTap) Err() error {
	return nil
}

func validGain(gain float64) bool {
	return !math.IsNaN(gain) && !math.IsInf(gain, 0) && gain >= 0
}
