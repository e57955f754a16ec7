package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopHooks(t *testing.T) {
	ctx := context.Background()

	assert.NotPanics(t, func() {
		a := NoopAnalysisHooks{}
		a.OnPhaseStart(ctx, PhaseScan)
		a.OnPhaseComplete(ctx, PhaseScan, 12, time.Second, nil)
		a.OnPhaseComplete(ctx, PhaseAssemble, 0, time.Millisecond, errors.New("boom"))

		c := NoopCacheHooks{}
		c.OnCacheHit(ctx, "file")
		c.OnCacheMiss(ctx, "redis")
		c.OnCacheSet(ctx, "file", 1024)

		h := NoopHTTPHooks{}
		h.OnRequest(ctx, "GET", "/api/graph")
		h.OnResponse(ctx, "GET", "/api/graph", 200, time.Second)
	})
}

func TestRegistry(t *testing.T) {
	Reset()
	defer Reset()

	assert.IsType(t, NoopAnalysisHooks{}, Analysis())
	assert.IsType(t, NoopCacheHooks{}, Cache())
	assert.IsType(t, NoopHTTPHooks{}, HTTP())

	analysis := &recordingAnalysisHooks{}
	SetAnalysisHooks(analysis)
	assert.Same(t, analysis, Analysis())

	cache := &testCacheHooks{}
	SetCacheHooks(cache)
	assert.Same(t, cache, Cache())

	http := &testHTTPHooks{}
	SetHTTPHooks(http)
	assert.Same(t, http, HTTP())

	Reset()
	assert.IsType(t, NoopAnalysisHooks{}, Analysis())
	assert.IsType(t, NoopCacheHooks{}, Cache())
	assert.IsType(t, NoopHTTPHooks{}, HTTP())
}

func TestRegistry_NilIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &recordingAnalysisHooks{}
	SetAnalysisHooks(custom)
	SetAnalysisHooks(nil)
	SetCacheHooks(nil)
	SetHTTPHooks(nil)

	assert.Same(t, custom, Analysis())
	assert.IsType(t, NoopCacheHooks{}, Cache())
	assert.IsType(t, NoopHTTPHooks{}, HTTP())
}

func TestRegistry_DeliversPhases(t *testing.T) {
	Reset()
	defer Reset()

	h := &recordingAnalysisHooks{}
	SetAnalysisHooks(h)

	ctx := context.Background()
	for _, p := range []Phase{PhaseScan, PhaseStats, PhaseAssemble} {
		Analysis().OnPhaseStart(ctx, p)
	}
	assert.Equal(t, []Phase{PhaseScan, PhaseStats, PhaseAssemble}, h.started)
}

type recordingAnalysisHooks struct {
	NoopAnalysisHooks
	started []Phase
}

func (h *recordingAnalysisHooks) OnPhaseStart(_ context.Context, p Phase) {
	h.started = append(h.started, p)
}

type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
