package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// ─── fake service ────────────────────────────────────────────────────────────

func newFakeService(t *testing.T) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var polls atomic.Int32
	var auth atomic.Value
	auth.Store("")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"job_id":"job-7","status_url":"/status/job-7","download_url":"/download/job-7"}`))
	})
	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"job_id": "job-7",
				"exists": true,
				"ready":  false,
				"error":  false,
				"status": "generating_frames",
				"progress": map[string]string{
					"frames_generated": "40",
					"total_frames":     "160",
					"progress_percent": "25.0",
				},
			})
			return
		}
		w.Write([]byte(`{"job_id":"job-7","exists":true,"ready":true,"error":false,"status":"completed"}`))
	})
	mux.HandleFunc("GET /download/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-7" {
			http.Error(w, `{"detail":"Video not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("MEDIA"))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &auth
}

// setupEnv points the CLI at the fake service and a throwaway history file.
func setupEnv(t *testing.T, serviceURL string) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("REELGEN_SERVICE_URL", serviceURL)
	t.Setenv("REELGEN_SERVICE_TOKEN", "")
	t.Setenv("REELGEN_POLL_INTERVAL", "1s")
	t.Setenv("REELGEN_HISTORY_URL", "sqlite://"+filepath.Join(dir, "history.db"))
	t.Setenv("REELGEN_LOG_LEVEL", "error")
	return dir
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(t.Context(), append([]string{"reelgen"}, args...))
	return out.String(), err
}

// ─── end-to-end ──────────────────────────────────────────────────────────────

func TestGenerate_FollowsToCompletionAndDownloads(t *testing.T) {
	if testing.Short() {
		t.Skip("polls on a real schedule")
	}
	ts, _ := newFakeService(t)
	dir := setupEnv(t, ts.URL)
	target := filepath.Join(dir, "fox.mp4")

	out, err := runApp(t, "generate", "--prompt", "a fox in snow", "--length", "20", "--download", target)
	require.NoError(t, err)

	assert.Contains(t, out, "submitted job-7")
	assert.Contains(t, out, "[generating_frames]  25.0%")
	assert.Contains(t, out, "frames 40/160")
	assert.Contains(t, out, "done: "+ts.URL+"/download/job-7")

	media, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "MEDIA", string(media))

	out, err = runApp(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a fox in snow")
	assert.Contains(t, out, "512x512")
}

func TestGenerate_UsesKeychainToken(t *testing.T) {
	if testing.Short() {
		t.Skip("polls on a real schedule")
	}
	ts, auth := newFakeService(t)
	setupEnv(t, ts.URL)

	_, err := runApp(t, "token", "set", "--value", "secret-token")
	require.NoError(t, err)

	_, err = runApp(t, "generate", "--prompt", "rain")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", auth.Load())
}

func TestGenerate_JobNotFoundReportedOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("polls on a real schedule")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"job_id":"job-9","status_url":"/status/job-9","download_url":"/download/job-9"}`))
	})
	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"job_id":"job-9","exists":false}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	setupEnv(t, ts.URL)

	out, err := runApp(t, "generate", "--prompt", "lost clip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
	assert.Contains(t, out, "submitted job-9")
	assert.NotContains(t, out, "not found", "the failure is reported only through the returned error")
}

func TestGenerate_SubmitFailureReportedOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"GPU busy"}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	setupEnv(t, ts.URL)

	out, err := runApp(t, "generate", "--prompt", "rain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPU busy")
	assert.NotContains(t, out, "GPU busy")
}

func TestGenerate_InvalidPromptSendsNothing(t *testing.T) {
	ts, auth := newFakeService(t)
	setupEnv(t, ts.URL)

	_, err := runApp(t, "generate", "--prompt", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt")
	assert.Equal(t, "", auth.Load(), "no request reaches the service")
}

func TestDownload_SavesMedia(t *testing.T) {
	ts, _ := newFakeService(t)
	dir := setupEnv(t, ts.URL)
	target := filepath.Join(dir, "clip.mp4")

	out, err := runApp(t, "download", "--job-id", "job-7", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "(5 bytes)")

	media, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "MEDIA", string(media))
}

func TestDownload_MissingMediaLeavesNoFile(t *testing.T) {
	ts, _ := newFakeService(t)
	dir := setupEnv(t, ts.URL)
	target := filepath.Join(dir, "missing.mp4")

	_, err := runApp(t, "download", "--job-id", "nope", "--out", target)
	require.Error(t, err)
	assert.NoFileExists(t, target)
}

func TestHistory_EmptyAndClear(t *testing.T) {
	ts, _ := newFakeService(t)
	setupEnv(t, ts.URL)

	out, err := runApp(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no generations yet")

	_, err = runApp(t, "history", "remove", "--id", "missing")
	require.NoError(t, err)

	out, err = runApp(t, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "history cleared")
}

func TestBadConfigFails(t *testing.T) {
	ts, _ := newFakeService(t)
	setupEnv(t, ts.URL)
	t.Setenv("REELGEN_SERVICE_URL", "ftp://nope")

	_, err := runApp(t, "history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REELGEN_SERVICE_URL")
}
