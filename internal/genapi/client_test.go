package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/apperr"
	"github.com/kiranshivaraju/reelgen/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(baseURL, "", 5*time.Second)
	require.NoError(t, err)
	return c
}

func sampleRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Prompt:        "a cat surfing",
		LengthSeconds: 20,
		FPS:           8,
		Width:         512,
		Height:        512,
		QualitySteps:  20,
	}
}

// --- NewHTTPClient ---

func TestNewHTTPClient_RejectsNonHTTPScheme(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", "", time.Second)
	assert.Error(t, err)
}

// --- Submit ---

func TestSubmit_SendsSettingsAndResolvesURLs(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"abc","status_url":"/status/abc","download_url":"/download/abc","estimated_time_minutes":16}`))
	}))
	defer ts.Close()

	job, err := newTestClient(t, ts.URL).Submit(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "abc", job.ID)
	assert.Equal(t, ts.URL+"/status/abc", job.StatusURL)
	assert.Equal(t, ts.URL+"/download/abc", job.DownloadURL)
	require.NotNil(t, job.EstimatedMinutes)
	assert.Equal(t, 16, *job.EstimatedMinutes)
	assert.False(t, job.SubmittedAt.IsZero())

	assert.Equal(t, "a cat surfing", got["prompt"])
	assert.EqualValues(t, 20, got["length_seconds"])
	assert.EqualValues(t, 20, got["num_inference_steps"])
	_, hasSeed := got["seed"]
	assert.False(t, hasSeed, "absent seed must not be sent")
}

func TestSubmit_SendsSeedAndToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body submitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.Seed)
		assert.EqualValues(t, 42, *body.Seed)
		w.Write([]byte(`{"job_id":"abc"}`))
	}))
	defer ts.Close()

	c, err := NewHTTPClient(ts.URL, "secret", time.Second)
	require.NoError(t, err)

	req := sampleRequest()
	seed := int64(42)
	req.Seed = &seed
	job, err := c.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/status/abc", job.StatusURL, "missing urls default to the conventional paths")
	assert.Nil(t, job.EstimatedMinutes)
}

func TestSubmit_HTTPErrorCarriesServerDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"CUDA out of memory"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrHTTP)

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Equal(t, "CUDA out of memory", ae.Message)
}

func TestSubmit_ValidationDetailList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","width"],"msg":"Width must be a multiple of 8"}]}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), sampleRequest())
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Width must be a multiple of 8", ae.Message)
}

func TestSubmit_NonJSONErrorFallsBackToStatusText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), sampleRequest())
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "service returned 502 Bad Gateway", ae.Message)
}

func TestSubmit_MissingJobIDIsDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_url":"/status/x"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, apperr.ErrDecode)
}

func TestSubmit_UnreachableIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := newTestClient(t, url).Submit(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestSubmit_TimeoutIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	c, err := NewHTTPClient(ts.URL, "", 50*time.Millisecond)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

// --- Poll ---

func TestPoll_ParsesStringTelemetry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status/abc", r.URL.Path)
		w.Write([]byte(`{"job_id":"abc","exists":true,"ready":false,"error":false,"status":"generating_frames",
			"progress":{"frames_generated":"40","total_frames":"160","progress_percent":"25.0"},"files":[]}`))
	}))
	defer ts.Close()

	snap, err := newTestClient(t, ts.URL).Poll(context.Background(), "abc")
	require.NoError(t, err)

	assert.True(t, snap.Exists)
	assert.Equal(t, models.PhaseGeneratingFrames, snap.Phase)
	require.NotNil(t, snap.Progress.FramesGenerated)
	require.NotNil(t, snap.Progress.TotalFrames)
	require.NotNil(t, snap.Progress.Percent)
	assert.Equal(t, 40, *snap.Progress.FramesGenerated)
	assert.Equal(t, 160, *snap.Progress.TotalFrames)
	assert.InDelta(t, 25.0, *snap.Progress.Percent, 0.001)
}

func TestPoll_NotFoundBodyAndMissingJobID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"exists":false}`))
	}))
	defer ts.Close()

	snap, err := newTestClient(t, ts.URL).Poll(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, "gone", snap.JobID)
}

func TestPoll_MalformedBodyIsDecodeError(t *testing.T) {
	cases := map[string]string{
		"not json":       "oops",
		"missing exists": `{"ready":true}`,
		"wrong type":     `{"exists":"yes"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer ts.Close()

			_, err := newTestClient(t, ts.URL).Poll(context.Background(), "abc")
			assert.ErrorIs(t, err, apperr.ErrDecode)
		})
	}
}

func TestPoll_EscapesJobID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status/a%2Fb", r.URL.EscapedPath())
		w.Write([]byte(`{"exists":true}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Poll(context.Background(), "a/b")
	require.NoError(t, err)
}

// --- decodeStatus ---

func TestDecodeStatus_TolerantProgress(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		frames  *int
		total   *int
		percent *float64
		phase   models.Phase
	}{
		{
			name:  "numeric fields",
			body:  `{"exists":true,"status":"assembling_video","progress":{"frames_generated":160,"total_frames":160}}`,
			phase: models.PhaseAssemblingOutput,
		},
		{
			name:  "progress not an object",
			body:  `{"exists":true,"status":"checking_ffmpeg","progress":"n/a"}`,
			phase: models.PhaseCheckingPrerequisites,
		},
		{
			name:  "garbage values",
			body:  `{"exists":true,"status":"mystery","progress":{"frames_generated":"lots","total_frames":"-3","progress_percent":"NaN"}}`,
			phase: models.PhaseProcessing,
		},
		{
			name:  "no progress",
			body:  `{"exists":true,"status":"starting"}`,
			phase: models.PhaseStarting,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := decodeStatus([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.phase, snap.Phase)
			if tt.name == "numeric fields" {
				require.NotNil(t, snap.Progress.FramesGenerated)
				assert.Equal(t, 160, *snap.Progress.FramesGenerated)
				assert.Nil(t, snap.Progress.Percent)
				return
			}
			assert.Nil(t, snap.Progress.FramesGenerated)
			assert.Nil(t, snap.Progress.TotalFrames)
			assert.Nil(t, snap.Progress.Percent)
		})
	}
}

func TestDecodeStatus_OversizedFrameCountsAreUnknown(t *testing.T) {
	snap, err := decodeStatus([]byte(`{"exists":true,"status":"generating_frames","progress":{"frames_generated":"1","total_frames":"10000000000000"}}`))
	require.NoError(t, err)
	require.NotNil(t, snap.Progress.FramesGenerated)
	assert.Equal(t, 1, *snap.Progress.FramesGenerated)
	assert.Nil(t, snap.Progress.TotalFrames)

	snap, err = decodeStatus([]byte(`{"exists":true,"progress":{"frames_generated":1e19,"total_frames":2147483647}}`))
	require.NoError(t, err)
	assert.Nil(t, snap.Progress.FramesGenerated)
	require.NotNil(t, snap.Progress.TotalFrames)
	assert.Equal(t, 2147483647, *snap.Progress.TotalFrames)
}

func TestDecodeStatus_KeepsRawStatus(t *testing.T) {
	snap, err := decodeStatus([]byte(`{"exists":true,"status":"warming_up"}`))
	require.NoError(t, err)
	assert.Equal(t, models.PhaseProcessing, snap.Phase)
	assert.Equal(t, "warming_up", snap.RawStatus)
}

// --- Download ---

func TestDownload_StreamsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download/abc", r.URL.Path)
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4-bytes"))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	n, err := newTestClient(t, ts.URL).Download(context.Background(), "/download/abc", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 9, n)
	assert.Equal(t, "mp4-bytes", buf.String())
}

func TestDownload_NotReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Output not ready"}`))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	_, err := newTestClient(t, ts.URL).Download(context.Background(), ts.URL+"/download/abc", &buf)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindHTTP, ae.Kind)
	assert.Equal(t, http.StatusNotFound, ae.Status)
	assert.Equal(t, "Output not ready", ae.Message)
	assert.Zero(t, buf.Len())
}

// --- Ping ---

func TestPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer ts.Close()

	assert.NoError(t, newTestClient(t, ts.URL).Ping(context.Background()))
}
