package api

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/session"
	"github.com/stwalsh4118/reel/internal/transport"
)

// SeekRequest represents a seek by timeline seconds or by ruler pixel. Exactly one is set.
type SeekRequest struct {
	Seconds *float64 `json:"seconds,omitempty"`
	PixelX  *float64 `json:"pixel_x,omitempty"`
}

// SeekResponse reports where the playhead landed after clamping
type SeekResponse struct {
	Time float64 `json:"time"`
}

// ToggleResponse reports the transport state after a toggle
type ToggleResponse struct {
	State transport.State `json:"state"`
}

// transportControl defines the session operations used by TransportHandler
type transportControl interface {
	Toggle(ctx context.Context) (transport.State, error)
	Seek(ctx context.Context, seconds float64) (float64, error)
	SeekPixel(ctx context.Context, x float64) (float64, error)
	Status(ctx context.Context) (session.Status, error)
	Frame() *image.RGBA
}

// TransportHandler handles playback control requests
type TransportHandler struct {
	control transportControl
}

// NewTransportHandler creates a new transport handler instance
func NewTransportHandler(control transportControl) *TransportHandler {
	return &TransportHandler{control: control}
}

// Toggle handles POST /api/transport/toggle
func (h *TransportHandler) Toggle(c *gin.Context) {
	state, err := h.control.Toggle(c.Request.Context())
	if err != nil {
		respondError(c, "toggle", err)
		return
	}

	logger.Log.Info().
		Str("state", state.String()).
		Msg("Transport toggled")

	c.JSON(http.StatusOK, ToggleResponse{State: state})
}

// Seek handles POST /api/transport/seek
func (h *TransportHandler) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}
	if (req.Seconds == nil) == (req.PixelX == nil) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Exactly one of seconds or pixel_x is required",
		})
		return
	}

	var (
		landed float64
		err    error
	)
	if req.Seconds != nil {
		landed, err = h.control.Seek(c.Request.Context(), *req.Seconds)
	} else {
		landed, err = h.control.SeekPixel(c.Request.Context(), *req.PixelX)
	}
	if err != nil {
		respondError(c, "seek", err)
		return
	}

	c.JSON(http.StatusOK, SeekResponse{Time: landed})
}

// GetStatus handles GET /api/transport/status
func (h *TransportHandler) GetStatus(c *gin.Context) {
	st, err := h.control.Status(c.Request.Context())
	if err != nil {
		respondError(c, "status", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetFrame handles GET /api/frame.png
func (h *TransportHandler) GetFrame(c *gin.Context) {
	frame := h.control.Frame()
	if frame == nil || frame.Bounds().Empty() {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "no_frame",
			Message: "Nothing has been rendered yet",
		})
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		respondError(c, "encode_frame", err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// SetupTransportRoutes registers playback control routes
func SetupTransportRoutes(apiGroup *gin.RouterGroup, control transportControl) {
	handler := NewTransportHandler(control)

	transportGroup := apiGroup.Group("/transport")
	transportGroup.POST("/toggle", handler.Toggle)
	transportGroup.POST("/seek", handler.Seek)
	transportGroup.GET("/status", handler.GetStatus)

	apiGroup.GET("/frame.png", handler.GetFrame)
}
