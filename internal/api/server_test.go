package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SurgeScreener/internal/collector"
	"SurgeScreener/internal/metrics"
	"SurgeScreener/internal/model"
	"SurgeScreener/internal/pipeline"
	"SurgeScreener/internal/recorder"
)

func newTestServer(t *testing.T) (*httptest.Server, *collector.MockFetcher) {
	t.Helper()
	dir := t.TempDir()
	universePath := filepath.Join(dir, "symbols.csv")
	require.NoError(t, os.WriteFile(universePath, []byte("symbol,name\nAAA,Alpha\nBBB,Beta\n"), 0o644))

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	f := &collector.MockFetcher{Generate: true, Price: 50}
	m := metrics.New()
	runner, err := pipeline.NewRunner(f, rec, m, pipeline.Options{UniversePath: universePath, Workers: 2})
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(runner, m).Router())
	t.Cleanup(srv.Close)
	return srv, f
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestScreens_RunThenLatest(t *testing.T) {
	srv, f := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/screens/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/screens", "application/json", nil)
	require.NoError(t, err)
	var created recorder.RunSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, created.Total)
	assert.Equal(t, "mock", created.Provider)
	assert.Equal(t, 1, f.Calls("AAA"))

	resp, err = http.Get(srv.URL + "/api/v1/screens/latest")
	require.NoError(t, err)
	var latest recorder.RunSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.RunID, latest.RunID)
	assert.Equal(t, 2, latest.Total)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/screens", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "screener_runs_total 1")
}

func TestScreens_Conflict(t *testing.T) {
	dir := t.TempDir()
	universePath := filepath.Join(dir, "symbols.csv")
	require.NoError(t, os.WriteFile(universePath, []byte("symbol\nSLOW\n"), 0o644))
	f := &collector.MockFetcher{
		Generate: true,
		Delay:    map[model.Ticker]time.Duration{"SLOW": 500 * time.Millisecond},
	}
	runner, err := pipeline.NewRunner(f, nil, nil, pipeline.Options{UniversePath: universePath})
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(runner, nil).Router())
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(context.Background())
	}()
	defer func() { <-done }()
	require.Eventually(t, func() bool { return f.Calls("SLOW") > 0 }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/v1/screens", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScreens_RunSurvivesClientDisconnect(t *testing.T) {
	dir := t.TempDir()
	universePath := filepath.Join(dir, "symbols.csv")
	require.NoError(t, os.WriteFile(universePath, []byte("symbol\nSLOW\n"), 0o644))

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer rec.Close()

	f := &collector.MockFetcher{
		Generate: true,
		Delay:    map[model.Ticker]time.Duration{"SLOW": 300 * time.Millisecond},
	}
	runner, err := pipeline.NewRunner(f, rec, nil, pipeline.Options{UniversePath: universePath})
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(runner, nil).Router())
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err = client.Post(srv.URL+"/api/v1/screens", "application/json", nil)
	require.Error(t, err)

	require.Eventually(t, func() bool {
		snap, err := rec.LatestRun()
		return err == nil && snap.Total == 1
	}, 3*time.Second, 10*time.Millisecond)
}
