package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/reel/internal/session"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Session  string                 `json:"session"`
	Time     string                 `json:"time"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type statusReader interface {
	Status(ctx context.Context) (session.Status, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      healthChecker
	session statusReader
}

// NewHealthHandler creates a new health check handler. database may be nil when
// the probe cache is disabled.
func NewHealthHandler(database healthChecker, sess statusReader) *HealthHandler {
	return &HealthHandler{db: database, session: sess}
}

// Check handles GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "ok",
		Database: "disabled",
		Session:  "running",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Details:  make(map[string]interface{}),
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			response.Status = "degraded"
			response.Database = "unhealthy"
			response.Details["database_error"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response.Database = "healthy"
		}
	}

	st, err := h.session.Status(ctx)
	if err != nil {
		response.Status = "degraded"
		response.Session = "stopped"
		response.Details["session_error"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		response.Details["transport_state"] = string(st.State)
	}

	c.JSON(status, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database healthChecker, sess statusReader) {
	handler := NewHealthHandler(database, sess)
	apiGroup.GET("/health", handler.Check)
}
