package video

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Surface is the visible output. In match mode it adopts the size of whatever is
// presented; in fixed mode it keeps its size and scales presented frames to fit.
type Surface struct {
	mu    sync.RWMutex
	img   *image.RGBA
	fixed bool
}

// NewSurface creates an empty surface that adopts presented sizes
func NewSurface() *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

// NewFixedSurface creates a surface of a fixed size
func NewFixedSurface(width, height int) *Surface {
	return &Surface{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		fixed: true,
	}
}

// Size returns the surface dimensions
func (s *Surface) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Empty reports whether the surface has zero area
func (s *Surface) Empty() bool {
	w, h := s.Size()
	return w == 0 || h == 0
}

// Present blits src onto the surface
func (s *Surface) Present(src *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb := src.Bounds()
	if !s.fixed {
		if s.img.Bounds().Size() != sb.Size() {
			s.img = image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
		}
		draw.Draw(s.img, s.img.Bounds(), src, sb.Min, draw.Src)
		return
	}

	if s.img.Bounds().Size() == sb.Size() {
		draw.Draw(s.img, s.img.Bounds(), src, sb.Min, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(s.img, s.img.Bounds(), src, sb, xdraw.Src, nil)
}

// Clear fills the surface with c. A match-mode surface is resized to width x height first.
func (s *Surface) Clear(c color.Color, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fixed && (s.img.Bounds().Dx() != width || s.img.Bounds().Dy() != height) {
		s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// Snapshot returns a copy of the current surface contents
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}
