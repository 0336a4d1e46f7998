package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/media"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/timeline"
)

const (
	defaultListLimit = 20
	maxListLimit     = 10000
)

// ErrScanAlreadyRunning is returned when a folder import is requested while one is in progress
var ErrScanAlreadyRunning = errors.New("scan already running")

// ScanRequest represents a request to import every media file under a folder
type ScanRequest struct {
	Path string `json:"path" binding:"required"`
}

// ScanResponse represents the response after starting a folder import
type ScanResponse struct {
	ScanID string `json:"scan_id"`
	Found  int    `json:"found"`
}

// MediaListResponse represents a paginated list of probed files
type MediaListResponse struct {
	Items  []*models.MediaFile `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// mediaLister defines the probe cache operations used by LibraryHandler
type mediaLister interface {
	List(ctx context.Context, kind models.TrackKind, limit, offset int) ([]*models.MediaFile, error)
	Count(ctx context.Context) (int64, error)
}

// fileImporter appends a discovered file to the timeline
type fileImporter interface {
	ImportFile(ctx context.Context, found media.Found) (timeline.ClipInfo, error)
}

// LibraryHandler serves the probe cache and imports whole folders
type LibraryHandler struct {
	files    mediaLister
	importer fileImporter

	mu       sync.Mutex
	scanning bool
	wg       sync.WaitGroup
}

// NewLibraryHandler creates a new library handler. files may be nil when the probe cache is disabled.
func NewLibraryHandler(files mediaLister, importer fileImporter) *LibraryHandler {
	return &LibraryHandler{files: files, importer: importer}
}

// ListMedia handles GET /api/media
func (h *LibraryHandler) ListMedia(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "cache_disabled",
			Message: "The probe cache is not configured",
		})
		return
	}

	limit := defaultListLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, maxListLimit)
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	var kind models.TrackKind
	if kindStr := c.Query("kind"); kindStr != "" {
		parsed, err := models.ParseTrackKind(kindStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_kind",
				Message: err.Error(),
			})
			return
		}
		kind = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	items, err := h.files.List(ctx, kind, limit, offset)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("Failed to list media")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve media list",
		})
		return
	}

	total, err := h.files.Count(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to count media")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve media count",
		})
		return
	}

	c.JSON(http.StatusOK, MediaListResponse{
		Items:  items,
		Total:  int(total),
		Limit:  limit,
		Offset: offset,
	})
}

// TriggerScan handles POST /api/media/scan. Files are found synchronously and
// appended in path order in the background.
func (h *LibraryHandler) TriggerScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_path",
			Message: "Media folder path is required",
		})
		return
	}

	found, err := media.FindMedia(c.Request.Context(), req.Path)
	if err != nil {
		if errors.Is(err, media.ErrInvalidDirectory) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_directory",
				Message: err.Error(),
			})
			return
		}
		respondError(c, "scan", err)
		return
	}

	h.mu.Lock()
	if h.scanning {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "scan_in_progress",
			Message: ErrScanAlreadyRunning.Error(),
		})
		return
	}
	h.scanning = true
	h.wg.Add(1)
	h.mu.Unlock()

	scanID := uuid.New().String()

	// The import outlives the request
	go h.importAll(context.Background(), scanID, found)

	logger.Log.Info().
		Str("scan_id", scanID).
		Str("path", req.Path).
		Int("found", len(found)).
		Msg("Folder import started")

	c.JSON(http.StatusAccepted, ScanResponse{ScanID: scanID, Found: len(found)})
}

// Wait blocks until a running folder import has finished
func (h *LibraryHandler) Wait() {
	h.wg.Wait()
}

func (h *LibraryHandler) importAll(ctx context.Context, scanID string, found []media.Found) {
	defer func() {
		h.mu.Lock()
		h.scanning = false
		h.mu.Unlock()
		h.wg.Done()
	}()

	imported := 0
	for _, f := range found {
		fileCtx, cancel := context.WithTimeout(ctx, importTimeout)
		_, err := h.importer.ImportFile(fileCtx, f)
		cancel()
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("scan_id", scanID).
				Str("file_path", f.Path).
				Msg("Skipping file that failed to import")
			continue
		}
		imported++
	}

	logger.Log.Info().
		Str("scan_id", scanID).
		Int("found", len(found)).
		Int("imported", imported).
		Msg("Folder import finished")
}

// SetupLibraryRoutes registers probe cache and folder import routes
func SetupLibraryRoutes(apiGroup *gin.RouterGroup, handler *LibraryHandler) {
	apiGroup.GET("/media", handler.ListMedia)
	apiGroup.POST("/media/scan", handler.TriggerScan)
}
