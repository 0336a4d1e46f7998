package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/timeline"
)

// importTimeout bounds probing, processing and frame extraction of one file
const importTimeout = 5 * time.Minute

// AddClipRequest represents a request to import a file onto a track
type AddClipRequest struct {
	Path string   `json:"path" binding:"required"`
	Gain *float64 `json:"gain,omitempty"` // Audio only, defaults to 1
}

// SetGainRequest represents a request to change an audio clip's gain
type SetGainRequest struct {
	Gain *float64 `json:"gain" binding:"required"`
}

// timelineEditor defines the session operations used by TimelineHandler
type timelineEditor interface {
	Snapshot(ctx context.Context) (timeline.Snapshot, error)
	ImportVideo(ctx context.Context, path string) (timeline.ClipInfo, error)
	ImportAudio(ctx context.Context, path string, gain float64) (timeline.ClipInfo, error)
	RemoveClip(ctx context.Context, kind models.TrackKind, id uuid.UUID) error
	SetGain(ctx context.Context, id uuid.UUID, gain float64) error
}

// TimelineHandler handles clip registry requests
type TimelineHandler struct {
	editor timelineEditor
}

// NewTimelineHandler creates a new timeline handler instance
func NewTimelineHandler(editor timelineEditor) *TimelineHandler {
	return &TimelineHandler{editor: editor}
}

// GetTimeline handles GET /api/timeline
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	snap, err := h.editor.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, "get_timeline", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AddVideoClip handles POST /api/clips/video
func (h *TimelineHandler) AddVideoClip(c *gin.Context) {
	var req AddClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "A file path is required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), importTimeout)
	defer cancel()

	info, err := h.editor.ImportVideo(ctx, req.Path)
	if err != nil {
		respondError(c, "add_video_clip", err)
		return
	}

	logger.Log.Info().
		Str("clip_id", info.ID.String()).
		Str("path", req.Path).
		Float64("timeline_start", info.TimelineStart).
		Float64("timeline_end", info.TimelineEnd).
		Msg("Video clip appended")

	c.JSON(http.StatusCreated, info)
}

// AddAudioClip handles POST /api/clips/audio
func (h *TimelineHandler) AddAudioClip(c *gin.Context) {
	var req AddClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "A file path is required",
		})
		return
	}

	gain := 1.0
	if req.Gain != nil {
		gain = *req.Gain
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), importTimeout)
	defer cancel()

	info, err := h.editor.ImportAudio(ctx, req.Path, gain)
	if err != nil {
		respondError(c, "add_audio_clip", err)
		return
	}

	logger.Log.Info().
		Str("clip_id", info.ID.String()).
		Str("path", req.Path).
		Float64("gain", gain).
		Float64("timeline_start", info.TimelineStart).
		Float64("timeline_end", info.TimelineEnd).
		Msg("Audio clip appended")

	c.JSON(http.StatusCreated, info)
}

// RemoveClip handles DELETE /api/clips/:track/:id
func (h *TimelineHandler) RemoveClip(c *gin.Context) {
	kind, err := models.ParseTrackKind(c.Param("track"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_track",
			Message: err.Error(),
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid clip ID format",
		})
		return
	}

	if err := h.editor.RemoveClip(c.Request.Context(), kind, id); err != nil {
		respondError(c, "remove_clip", err)
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{Message: "Clip removed"})
}

// SetGain handles PATCH /api/clips/audio/:id/gain
func (h *TimelineHandler) SetGain(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid clip ID format",
		})
		return
	}

	var req SetGainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "A gain value is required",
		})
		return
	}

	if err := h.editor.SetGain(c.Request.Context(), id, *req.Gain); err != nil {
		respondError(c, "set_gain", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "gain": *req.Gain})
}

// SetupTimelineRoutes registers clip registry routes
func SetupTimelineRoutes(apiGroup *gin.RouterGroup, editor timelineEditor) {
	handler := NewTimelineHandler(editor)

	apiGroup.GET("/timeline", handler.GetTimeline)
	apiGroup.POST("/clips/video", handler.AddVideoClip)
	apiGroup.POST("/clips/audio", handler.AddAudioClip)
	apiGroup.PATCH("/clips/audio/:id/gain", handler.SetGain)
	apiGroup.DELETE("/clips/:track/:id", handler.RemoveClip)
}
