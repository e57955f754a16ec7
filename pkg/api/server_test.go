package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/config"
	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/graph"
	"github.com/matzehuels/depscope/pkg/observability"
	"github.com/matzehuels/depscope/pkg/stats"
)

func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"package.json":                           `{"name":"app","version":"1.0.0","dependencies":{"react":"^18.0.0"}}`,
		"node_modules/react/package.json":        `{"name":"react","version":"18.2.0","dependencies":{"loose-envify":"^1.1.0"}}`,
		"node_modules/loose-envify/package.json": `{"name":"loose-envify","version":"1.4.0"}`,
	}
	for name, body := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func newServer(t *testing.T, root string) *Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	return New(Options{
		Root:    root,
		Config:  config.Default(),
		Runner:  engine.NewRunner(fc, nil, nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics\n")) }),
	})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newServer(t, project(t)), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","build":{"version":"dev","commit":"none","date":"unknown"}}`, rec.Body.String())
}

func TestGraph_CacheHeaders(t *testing.T) {
	s := newServer(t, project(t))

	first := get(t, s, "/api/graph")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Depscope-Cache"))
	assert.NotEmpty(t, first.Header().Get("X-Depscope-Run"))

	var g graph.Result
	require.NoError(t, json.NewDecoder(first.Body).Decode(&g))
	require.NoError(t, g.Validate(graph.DefaultLimits()))
	assert.Equal(t, 3, g.Stats.TotalNodes)

	second := get(t, s, "/api/graph")
	assert.Equal(t, "hit", second.Header().Get("X-Depscope-Cache"))
	assert.Equal(t, first.Header().Get("X-Depscope-Run"), second.Header().Get("X-Depscope-Run"))

	refreshed := get(t, s, "/api/graph?refresh=1")
	assert.Equal(t, "miss", refreshed.Header().Get("X-Depscope-Cache"))
	assert.NotEqual(t, first.Header().Get("X-Depscope-Run"), refreshed.Header().Get("X-Depscope-Run"))
}

func TestStats(t *testing.T) {
	rec := get(t, newServer(t, project(t)), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var st stats.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 1, st.Project.RootPackages)
	assert.Contains(t, st.Packages, "loose-envify")
}

func TestExport(t *testing.T) {
	s := newServer(t, project(t))

	rec := get(t, s, "/api/export.dot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vnd.graphviz; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"react" -> "loose-envify";`)

	rec = get(t, s, "/api/export.png")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"INVALID_FORMAT","message":"unsupported export format \"png\""}}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	missing := newServer(t, filepath.Join(t.TempDir(), "gone"))
	rec := get(t, missing, "/api/graph")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INVALID_PATH", body.Error.Code)

	rec = get(t, missing, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.Canceled))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errors.New(errors.ErrCodeInvalidConfig, "bad")))
	assert.Equal(t, http.StatusConflict, statusFor(errors.Precondition("graph requested before scan")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestMetricsMounted(t *testing.T) {
	rec := get(t, newServer(t, project(t)), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics\n", rec.Body.String())
}

type routeHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (h *routeHooks) OnResponse(_ context.Context, _, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.codes = append(h.codes, status)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	h := &routeHooks{}
	observability.SetHTTPHooks(h)

	s := newServer(t, project(t))
	get(t, s, "/api/export.dot")
	get(t, s, "/healthz")

	assert.Equal(t, []string{"/api/export.{format}", "/healthz"}, h.routes)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, h.codes)
}
