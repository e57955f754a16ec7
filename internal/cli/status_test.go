package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depscope/pkg/config"
	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/observability"
)

// syncBuffer is a bytes.Buffer safe for the animation goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatus_RecordsPhases(t *testing.T) {
	s := newStatusTo(&bytes.Buffer{}, false, "/repo")
	ctx := context.Background()

	s.OnPhaseStart(ctx, observability.PhaseScan)
	assert.Equal(t, "Scanning sources in /repo...", s.message())
	s.OnPhaseComplete(ctx, observability.PhaseScan, 12, time.Millisecond, nil)
	s.OnPhaseStart(ctx, observability.PhaseStats)
	s.OnPhaseComplete(ctx, observability.PhaseStats, 12, time.Millisecond, errors.New("boom"))

	phases := s.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, phaseResult{Phase: observability.PhaseScan, Items: 12, Duration: time.Millisecond}, phases[0])
	assert.True(t, phases[1].Failed)
	assert.Equal(t, "Analyzing in /repo...", s.message(), "between phases")
}

func TestStatus_QuietWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	s := newStatusTo(&out, false, "/repo")
	s.Start(context.Background())
	s.Stop()
	s.Stop()
	assert.Zero(t, out.Len())
}

func TestStatus_AnimatesAndClears(t *testing.T) {
	var out syncBuffer
	s := newStatusTo(&out, true, "/repo")
	s.OnPhaseStart(context.Background(), observability.PhaseAssemble)
	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	assert.Contains(t, got, "Assembling graph in /repo...")
	assert.True(t, strings.HasSuffix(got, "\r"), "Stop clears the line")
}

func TestStatus_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newStatusTo(&syncBuffer{}, true, "/repo")
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked after context cancellation")
	}
}

func TestStatus_StopWithoutStart(t *testing.T) {
	s := newStatusTo(&bytes.Buffer{}, true, "/repo")
	s.Stop()
}

func TestStatus_AttachFollowsEngine(t *testing.T) {
	observability.Reset()
	defer observability.Reset()

	root := fixtureProject(t)
	s := newStatusTo(&bytes.Buffer{}, false, root)
	detach := s.attach()
	e, err := engine.New(root, config.Default(), nil)
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.NoError(t, err)
	detach()

	var got []observability.Phase
	for _, p := range s.Phases() {
		got = append(got, p.Phase)
	}
	assert.Equal(t, []observability.Phase{observability.PhaseScan, observability.PhaseStats, observability.PhaseAssemble}, got)
	assert.Equal(t, 4, s.Phases()[2].Items)
	assert.IsType(t, observability.NoopAnalysisHooks{}, observability.Analysis(), "detach restores the previous hooks")
}
