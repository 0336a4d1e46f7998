package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/session"
	"github.com/stwalsh4118/reel/internal/transport"
)

// mockTransport is a test helper that implements transportControl
type mockTransport struct {
	toggleFunc    func(ctx context.Context) (transport.State, error)
	seekFunc      func(ctx context.Context, seconds float64) (float64, error)
	seekPixelFunc func(ctx context.Context, x float64) (float64, error)
	statusFunc    func(ctx context.Context) (session.Status, error)
	frameFunc     func() *image.RGBA
}

func (m *mockTransport) Toggle(ctx context.Context) (transport.State, error) {
	if m.toggleFunc != nil {
		return m.toggleFunc(ctx)
	}
	return transport.StateStopped, nil
}

func (m *mockTransport) Seek(ctx context.Context, seconds float64) (float64, error) {
	if m.seekFunc != nil {
		return m.seekFunc(ctx, seconds)
	}
	return seconds, nil
}

func (m *mockTransport) SeekPixel(ctx context.Context, x float64) (float64, error) {
	if m.seekPixelFunc != nil {
		return m.seekPixelFunc(ctx, x)
	}
	return 0, nil
}

func (m *mockTransport) Status(ctx context.Context) (session.Status, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx)
	}
	return session.Status{State: transport.StateStopped}, nil
}

func (m *mockTransport) Frame() *image.RGBA {
	if m.frameFunc != nil {
		return m.frameFunc()
	}
	return nil
}

func setupTransportTestRouter(control *mockTransport) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupTransportRoutes(router.Group("/api"), control)
	return router
}

func TestToggle(t *testing.T) {
	control := &mockTransport{
		toggleFunc: func(context.Context) (transport.State, error) {
			return transport.StatePlaying, nil
		},
	}

	w := doJSON(setupTransportTestRouter(control), http.MethodPost, "/api/transport/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ToggleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, transport.StatePlaying, resp.State)
}

func TestSeek(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTime   float64
		wantPixel  bool
	}{
		{"seconds", `{"seconds": 3.5}`, http.StatusOK, 3.5, false},
		{"pixel", `{"pixel_x": 90}`, http.StatusOK, 3, true},
		{"neither", `{}`, http.StatusBadRequest, 0, false},
		{"both", `{"seconds": 1, "pixel_x": 30}`, http.StatusBadRequest, 0, false},
		{"malformed", `{"seconds": "soon"}`, http.StatusBadRequest, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixelCalled := false
			control := &mockTransport{
				seekPixelFunc: func(_ context.Context, x float64) (float64, error) {
					pixelCalled = true
					return x / 30, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/transport/seek", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			setupTransportTestRouter(control).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp SeekResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantTime, resp.Time)
			assert.Equal(t, tt.wantPixel, pixelCalled)
		})
	}
}

func TestSeek_ValidationError(t *testing.T) {
	control := &mockTransport{
		seekFunc: func(_ context.Context, seconds float64) (float64, error) {
			return 0, models.NewEngineError(models.KindValidation, "seek", uuid.Nil, "seek target must be finite", nil)
		},
	}

	w := doJSON(setupTransportTestRouter(control), http.MethodPost, "/api/transport/seek", map[string]float64{"seconds": math.MaxFloat64})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeError(t, w).Error)
}

func TestGetStatus(t *testing.T) {
	clipID := uuid.New()
	control := &mockTransport{
		statusFunc: func(context.Context) (session.Status, error) {
			return session.Status{
				State:            transport.StatePlaying,
				Time:             65.2,
				Timecode:         "01:05",
				ProjectDuration:  120,
				DurationTimecode: "02:00",
				ClipID:           &clipID,
			}, nil
		},
	}

	w := doJSON(setupTransportTestRouter(control), http.MethodGet, "/api/transport/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st session.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, transport.StatePlaying, st.State)
	assert.Equal(t, "01:05", st.Timecode)
	require.NotNil(t, st.ClipID)
	assert.Equal(t, clipID, *st.ClipID)
}

func TestGetFrame(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		frame := image.NewRGBA(image.Rect(0, 0, 4, 3))
		frame.SetRGBA(1, 1, color.RGBA{R: 200, G: 10, B: 20, A: 255})
		control := &mockTransport{frameFunc: func() *image.RGBA { return frame }}

		w := doJSON(setupTransportTestRouter(control), http.MethodGet, "/api/frame.png", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

		img, err := png.Decode(w.Body)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
		r, g, b, _ := img.At(1, 1).RGBA()
		assert.Equal(t, []uint32{200, 10, 20}, []uint32{r >> 8, g >> 8, b >> 8})
	})

	t.Run("nothing rendered", func(t *testing.T) {
		control := &mockTransport{frameFunc: func() *image.RGBA { return image.NewRGBA(image.Rectangle{}) }}

		w := doJSON(setupTransportTestRouter(control), http.MethodGet, "/api/frame.png", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "no_frame", decodeError(t, w).Error)
	})
}
