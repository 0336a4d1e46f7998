package video

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/reel/internal/models"
)

type fakeElement struct {
	position float64
	duration float64
	ready    bool
	frame    image.Image
	frameErr error
	seekErr  error
	seeks    []float64
}

func (e *fakeElement) Position() float64 { return e.position }
func (e *fakeElement) SetPosition(t float64) error {
	e.seeks = append(e.seeks, t)
	if e.seekErr != nil {
		return e.seekErr
	}
	e.position = t
	return nil
}
func (e *fakeElement) Duration() float64 { return e.duration }
func (e *fakeElement) Play() error { return nil }
func (e *fakeElement) Pause() error { return nil }
func (e *fakeElement) Ready() bool { return e.ready }
func (e *fakeElement) Frame() (image.Image, error) {
	return e.frame, e.frameErr
}

type fakeLayer struct {
	placement models.Placement
	element   Element
}

func (l *fakeLayer) Placement() models.Placement { return l.placement }
func (l *fakeLayer) Element() Element { return l.element }

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func layer(start, duration float64, el Element) *fakeLayer {
	return &fakeLayer{
		placement: models.Placement{
			ID:               uuid.New(),
			OriginalDuration: duration,
			TimelineStart:    start,
			TimelineEnd:      start + duration,
			ClipDuration:     duration,
		},
		element: el,
	}
}

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
)

func newCompositor(t *testing.T, surface *Surface) *Compositor {
	t.Helper()
	c, err := NewCompositor(surface, Options{})
	require.NoError(t, err)
	return c
}

func TestNewCompositor_RejectsBadBackground(t *testing.T) {
	_, err := NewCompositor(NewSurface(), Options{Background: "not-a-colour"})
	assert.Error(t, err)

	_, err = NewCompositor(nil, Options{})
	assert.Error(t, err)
}

func TestCompositor_NoActiveClipClearsToBackground(t *testing.T) {
	surface := NewSurface()
	c, err := NewCompositor(surface, Options{Background: "#102030"})
	require.NoError(t, err)

	res, err := c.Render(5, 20, nil)
	require.NoError(t, err)
	assert.False(t, res.Drawn)
	assert.Equal(t, uuid.Nil, res.ClipID)

	w, h := surface.Size()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, surface.Snapshot().RGBAAt(10, 10))
}

func TestCompositor_DrawsActiveClipAtNativeSize(t *testing.T) {
	surface := NewSurface()
	c := newCompositor(t, surface)
	el := &fakeElement{ready: true, frame: solid(320, 180, red), duration: 10}
	l := layer(0, 10, el)

	res, err := c.Render(2, 10, []Layer{l})
	require.NoError(t, err)
	assert.True(t, res.Drawn)
	assert.Equal(t, l.placement.ID, res.ClipID)

	w, h := surface.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)
	assert.Equal(t, red, surface.Snapshot().RGBAAt(100, 100))
}

func TestCompositor_FixedSurfaceScalesFrame(t *testing.T) {
	surface := NewFixedSurface(64, 36)
	c := newCompositor(t, surface)
	el := &fakeElement{ready: true, frame: solid(320, 180, green), duration: 10}

	_, err := c.Render(1, 10, []Layer{layer(0, 10, el)})
	require.NoError(t, err)

	w, h := surface.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 36, h)
	assert.Equal(t, green, surface.Snapshot().RGBAAt(32, 18))
}

func TestCompositor_FirstLayerWins(t *testing.T) {
	surface := NewSurface()
	c := newCompositor(t, surface)
	first := layer(0, 10, &fakeElement{ready: true, frame: solid(8, 8, red), duration: 10})
	second := layer(5, 10, &fakeElement{ready: true, frame: solid(8, 8, green), duration: 10})

	res, err := c.Render(7, 15, []Layer{first, second})
	require.NoError(t, err)
	assert.Equal(t, first.placement.ID, res.ClipID)
	assert.Equal(t, red, surface.Snapshot().RGBAAt(1, 1))

	res, err = c.Render(12, 15, []Layer{first, second})
	require.NoError(t, err)
	assert.Equal(t, second.placement.ID, res.ClipID)
	assert.Equal(t, green, surface.Snapshot().RGBAAt(1, 1))
}

func TestCompositor_SeeksOnlyBeyondTolerance(t *testing.T) {
	c := newCompositor(t, NewSurface())
	el := &fakeElement{ready: true, frame: solid(4, 4, red), duration: 10, position: 2.03}
	l := layer(0, 10, el)

	_, err := c.Render(2, 10, []Layer{l})
	require.NoError(t, err)
	assert.Empty(t, el.seeks, "30ms drift is within tolerance")

	_, err = c.Render(2.5, 10, []Layer{l})
	require.NoError(t, err)
	require.Len(t, el.seeks, 1)
	assert.InDelta(t, 2.5, el.seeks[0], 1e-9)
}

func TestCompositor_LoopsContentTime(t *testing.T) {
	c := newCompositor(t, NewSurface())
	el := &fakeElement{ready: true, frame: solid(4, 4, red), duration: 4}
	l := layer(10, 4, el)
	l.placement.ClipStartOffset = 1
	l.placement.ClipDuration = 10
	l.placement.TimelineEnd = 20

	_, err := c.Render(15.5, 20, []Layer{l})
	require.NoError(t, err)
	require.Len(t, el.seeks, 1)
	assert.InDelta(t, 2.5, el.seeks[0], 1e-9)
}

func TestCompositor_NotReadyKeepsPreviousFrameOfSameClip(t *testing.T) {
	surface := NewSurface()
	c := newCompositor(t, surface)
	el := &fakeElement{ready: true, frame: solid(8, 8, red), duration: 10}
	l := layer(0, 10, el)

	_, err := c.Render(1, 10, []Layer{l})
	require.NoError(t, err)

	el.ready = false
	res, err := c.Render(1.1, 10, []Layer{l})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindMediaUnavailable))
	assert.False(t, res.Drawn)
	assert.Equal(t, red, surface.Snapshot().RGBAAt(1, 1))
}

func TestCompositor_UnavailableNewClipShowsBackground(t *testing.T) {
	surface := NewSurface()
	c := newCompositor(t, surface)
	first := layer(0, 5, &fakeElement{ready: true, frame: solid(8, 8, red), duration: 5})
	broken := layer(5, 5, &fakeElement{ready: true, frameErr: errors.New("corrupt"), duration: 5})

	_, err := c.Render(1, 10, []Layer{first, broken})
	require.NoError(t, err)

	_, err = c.Render(6, 10, []Layer{first, broken})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindMediaUnavailable))
	assert.Equal(t, black, surface.Snapshot().RGBAAt(1, 1))
}

func TestCompositor_SignalsEnd(t *testing.T) {
	surface := NewSurface()
	c := newCompositor(t, surface)
	el := &fakeElement{ready: true, frame: solid(8, 8, red), duration: 10}

	res, err := c.Render(10, 10, []Layer{layer(0, 10, el)})
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.False(t, res.Drawn)
	assert.True(t, surface.Empty())

	// An empty project never ends
	res, err = c.Render(0, 0, nil)
	require.NoError(t, err)
	assert.False(t, res.Ended)
}

func TestCompositor_SeekRefusalIsNotFatal(t *testing.T) {
	c := newCompositor(t, NewSurface())
	el := &fakeElement{ready: true, frame: solid(4, 4, red), duration: 10, seekErr: errors.New("busy")}

	res, err := c.Render(3, 10, []Layer{layer(0, 10, el)})
	require.NoError(t, err)
	assert.True(t, res.Drawn)
}
