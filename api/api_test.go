package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"newsbot/common"
	"newsbot/orchestrator"
	"newsbot/storage"
	"newsbot/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu         sync.Mutex
	last       *types.PassResult
	err        error
	thresholds []*float64
	cycles     int
	cycled     chan struct{}
}

func (f *fakeRunner) RunOnce(ctx context.Context) (*orchestrator.Report, error) {
	f.mu.Lock()
	f.cycles++
	f.mu.Unlock()
	if f.cycled != nil {
		close(f.cycled)
	}
	return &orchestrator.Report{}, nil
}

func (f *fakeRunner) RunPass(ctx context.Context, threshold *float64) (*types.PassResult, error) {
	f.thresholds = append(f.thresholds, threshold)
	if f.err != nil {
		return nil, f.err
	}
	t := 1.0
	if threshold != nil {
		t = *threshold
	}
	f.last = &types.PassResult{RunID: "run-1", Strategy: "lexical", Threshold: t, Total: 3, Deleted: []string{"b"}, Survivors: 2}
	return f.last, nil
}

func (f *fakeRunner) Last() *types.PassResult { return f.last }

func (f *fakeRunner) Status() orchestrator.Status {
	return orchestrator.Status{State: orchestrator.StateIdle, Logs: []orchestrator.LogEntry{}}
}

type fakeArchive struct {
	results map[string]*types.PassResult
}

func (f *fakeArchive) LoadPassResult(ctx context.Context, runID string) (*types.PassResult, error) {
	if r, ok := f.results[runID]; ok {
		return r, nil
	}
	return nil, common.ErrObjectNotFound
}

func newTestRouter(t *testing.T, runner *fakeRunner, archive PassArchive) (*gin.Engine, *storage.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storage.NewMemoryStore()
	return NewRouter(Dependencies{Runner: runner, Articles: store, Archive: archive}), store
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &fakeRunner{}, nil)
	w := doRequest(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","state":"idle"}`, w.Body.String())
}

func TestRunPassWithoutBody(t *testing.T) {
	runner := &fakeRunner{}
	r, _ := newTestRouter(t, runner, nil)

	w := doRequest(r, http.MethodPost, "/api/deduplication/run", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result types.PassResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, []string{"b"}, result.Deleted)
	require.Len(t, runner.thresholds, 1)
	assert.Nil(t, runner.thresholds[0])
}

func TestRunPassWithThreshold(t *testing.T) {
	runner := &fakeRunner{}
	r, _ := newTestRouter(t, runner, nil)

	w := doRequest(r, http.MethodPost, "/api/deduplication/run", `{"threshold":0.95}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, runner.thresholds, 1)
	require.NotNil(t, runner.thresholds[0])
	assert.Equal(t, 0.95, *runner.thresholds[0])
}

func TestRunPassRejectsBadInput(t *testing.T) {
	runner := &fakeRunner{}
	r, _ := newTestRouter(t, runner, nil)

	w := doRequest(r, http.MethodPost, "/api/deduplication/run", `{"threshold":1.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/api/deduplication/run", `{"threshold":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, runner.thresholds)
}

func TestRunPassErrors(t *testing.T) {
	runner := &fakeRunner{err: orchestrator.ErrBusy}
	r, _ := newTestRouter(t, runner, nil)

	w := doRequest(r, http.MethodPost, "/api/deduplication/run", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	runner.err = errors.New("store unavailable")
	w = doRequest(r, http.MethodPost, "/api/deduplication/run", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "store unavailable")
}

func TestLastPass(t *testing.T) {
	runner := &fakeRunner{}
	r, _ := newTestRouter(t, runner, nil)

	w := doRequest(r, http.MethodGet, "/api/deduplication/last", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	doRequest(r, http.MethodPost, "/api/deduplication/run", "")
	w = doRequest(r, http.MethodGet, "/api/deduplication/last", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"run-1"`)
}

func TestRunnerStatus(t *testing.T) {
	r, _ := newTestRouter(t, &fakeRunner{}, nil)
	w := doRequest(r, http.MethodGet, "/api/deduplication/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"idle"`)
}

func TestArchivedRun(t *testing.T) {
	r, _ := newTestRouter(t, &fakeRunner{}, nil)
	w := doRequest(r, http.MethodGet, "/api/deduplication/runs/abc", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	archive := &fakeArchive{results: map[string]*types.PassResult{"abc": {RunID: "abc", Survivors: 7}}}
	r, _ = newTestRouter(t, &fakeRunner{}, archive)

	w = doRequest(r, http.MethodGet, "/api/deduplication/runs/abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"survivors":7`)

	w = doRequest(r, http.MethodGet, "/api/deduplication/runs/zzz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArticleRoutes(t *testing.T) {
	r, store := newTestRouter(t, &fakeRunner{}, nil)
	article := &types.Article{Title: "台積電", Source: "cnyes", Body: "台積電營收創新高", URL: "https://example.com/a", Timestamp: time.Now()}
	require.NoError(t, store.Insert(context.Background(), article))

	w := doRequest(r, http.MethodGet, "/api/articles/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/api/articles/"+article.Key, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://example.com/a")

	w = doRequest(r, http.MethodGet, "/api/articles/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRSSRefreshStartsCycle(t *testing.T) {
	runner := &fakeRunner{cycled: make(chan struct{})}
	r, _ := newTestRouter(t, runner, nil)

	w := doRequest(r, http.MethodPost, "/api/rss/refresh", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-runner.cycled:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not start a cycle")
	}
}
