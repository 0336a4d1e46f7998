package video

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
)

const (
	defaultBackground    = "#000000"
	defaultWidth         = 1280
	defaultHeight        = 720
	defaultSeekTolerance = 0.05
)

// Options configures a Compositor. Zero values take the defaults.
type Options struct {
	Background    string  // hex colour drawn when no clip is active
	Width         int     // background width
	Height        int     // background height
	SeekTolerance float64 // drift in seconds allowed before an element is re-seeked
}

// Result describes one render tick
type Result struct {
	Time   float64   // timeline time the tick was rendered at
	ClipID uuid.UUID // winning clip, uuid.Nil when the background was drawn
	Drawn  bool      // a fresh frame reached the surface
	Ended  bool      // the playhead reached the end of the project
}

// Compositor draws the single active video clip onto a Surface
type Compositor struct {
	surface    *Surface
	offscreen  *image.RGBA
	background color.RGBA
	width      int
	height     int
	tolerance  float64
	lastClip   uuid.UUID
}

// NewCompositor creates a compositor drawing onto surface
func NewCompositor(surface *Surface, opts Options) (*Compositor, error) {
	if surface == nil {
		return nil, fmt.Errorf("surface cannot be nil")
	}
	if opts.Background == "" {
		opts.Background = defaultBackground
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.SeekTolerance <= 0 {
		opts.SeekTolerance = defaultSeekTolerance
	}

	bg, err := colorful.Hex(opts.Background)
	if err != nil {
		return nil, fmt.Errorf("invalid background colour %q: %w", opts.Background, err)
	}
	r, g, b := bg.RGB255()

	return &Compositor{
		surface:    surface,
		background: color.RGBA{R: r, G: g, B: b, A: 0xff},
		width:      opts.Width,
		height:     opts.Height,
		tolerance:  opts.SeekTolerance,
	}, nil
}

// Surface returns the surface the compositor draws onto
func (c *Compositor) Surface() *Surface {
	return c.surface
}

// Select returns the first layer, in track order, whose interval contains t
func Select(layers []Layer, t float64) Layer {
	for _, l := range layers {
		if l.Placement().Contains(t) {
			return l
		}
	}
	return nil
}

// Render composites timeline time t. Reaching projectDuration is reported through
// Result.Ended and nothing is drawn. A MediaUnavailable error is non-fatal: the
// previous frame of the same clip stays on the surface.
func (c *Compositor) Render(t, projectDuration float64, layers []Layer) (Result, error) {
	res := Result{Time: t}

	if projectDuration > 0 && t >= projectDuration {
		res.Ended = true
		return res, nil
	}

	layer := Select(layers, t)
	if layer == nil {
		c.Clear()
		return res, nil
	}

	p := layer.Placement()
	res.ClipID = p.ID

	el := layer.Element()
	if el == nil {
		return res, c.unavailable(p.ID, "clip has no decoded element", nil)
	}

	contentTime := p.ContentTime(t)
	if math.Abs(el.Position()-contentTime) > c.tolerance {
		if err := el.SetPosition(contentTime); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("clip_id", p.ID.String()).
				Float64("content_time", contentTime).
				Msg("Video element refused seek")
		}
	}

	if !el.Ready() {
		return res, c.unavailable(p.ID, "element has no decodable frame", nil)
	}

	frame, err := el.Frame()
	if err != nil || frame == nil {
		return res, c.unavailable(p.ID, "frame could not be decoded", err)
	}

	c.drawOffscreen(frame)
	c.surface.Present(c.offscreen)
	c.lastClip = p.ID
	res.Drawn = true

	return res, nil
}

// Clear paints the background at the configured size
func (c *Compositor) Clear() {
	c.surface.Clear(c.background, c.width, c.height)
	c.lastClip = uuid.Nil
}

// drawOffscreen copies frame into the off-screen buffer at the frame's native size
func (c *Compositor) drawOffscreen(frame image.Image) {
	b := frame.Bounds()
	if c.offscreen == nil || c.offscreen.Bounds().Size() != b.Size() {
		c.offscreen = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(c.offscreen, c.offscreen.Bounds(), frame, b.Min, draw.Src)
}

func (c *Compositor) unavailable(clipID uuid.UUID, msg string, cause error) error {
	// Another clip's frame must not linger over this clip's interval
	if c.lastClip != clipID {
		c.Clear()
	}
	return models.NewEngineError(models.KindMediaUnavailable, "render", clipID, msg, cause)
}
