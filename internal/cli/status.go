package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/matzehuels/depscope/pkg/observability"
)

var phaseLabels = map[observability.Phase]string{
	observability.PhaseScan:     "Scanning sources",
	observability.PhaseStats:    "Measuring footprint",
	observability.PhaseAssemble: "Assembling graph",
}

var phaseUnits = map[observability.Phase]string{
	observability.PhaseScan:     "package",
	observability.PhaseStats:    "package",
	observability.PhaseAssemble: "node",
}

// phaseResult is one completed analysis phase.
type phaseResult struct {
	Phase    observability.Phase
	Items    int
	Duration time.Duration
	Failed   bool
}

// status tracks analysis phases for the CLI. It implements
// observability.AnalysisHooks; while attached, the engine drives it. On a
// terminal it animates the running phase on w, otherwise it only records.
type status struct {
	w    io.Writer
	live bool
	root string

	mu      sync.Mutex
	current observability.Phase
	phases  []phaseResult

	started  bool
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

var _ observability.AnalysisHooks = (*status)(nil)

// newStatus creates a status for an analysis of root that animates on
// stderr when it is a terminal.
func newStatus(root string) *status {
	return newStatusTo(os.Stderr, isTerminal(os.Stderr), root)
}

func newStatusTo(w io.Writer, live bool, root string) *status {
	return &status{
		w:       w,
		live:    live,
		root:    root,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// attach registers s as the analysis hooks until the returned func runs.
func (s *status) attach() (detach func()) {
	prev := observability.Analysis()
	observability.SetAnalysisHooks(s)
	return func() { observability.SetAnalysisHooks(prev) }
}

// OnPhaseStart implements observability.AnalysisHooks.
func (s *status) OnPhaseStart(_ context.Context, phase observability.Phase) {
	s.mu.Lock()
	s.current = phase
	s.mu.Unlock()
}

// OnPhaseComplete implements observability.AnalysisHooks.
func (s *status) OnPhaseComplete(_ context.Context, phase observability.Phase, items int, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases = append(s.phases, phaseResult{Phase: phase, Items: items, Duration: d, Failed: err != nil})
	s.current = ""
}

// Phases returns the phases completed so far, in order.
func (s *status) Phases() []phaseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]phaseResult(nil), s.phases...)
}

// message is the text shown next to the animation frame.
func (s *status) message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := phaseLabels[s.current]
	if !ok {
		label = "Analyzing"
	}
	return fmt.Sprintf("%s in %s...", label, s.root)
}

// Start animates until Stop is called or ctx ends.
func (s *status) Start(ctx context.Context) {
	s.started = true
	if !s.live {
		close(s.stopped)
		return
	}
	go func() {
		defer close(s.stopped)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		width := 0
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				clearWidth(s.w, width)
				return
			case <-s.stop:
				clearWidth(s.w, width)
				return
			case <-ticker.C:
				msg := s.message()
				width = max(width, len(msg)+2)
				pad := strings.Repeat(" ", width-len(msg)-2)
				fmt.Fprintf(s.w, "\r%s %s%s", styleIconSpinner.Render(frames[i%len(frames)]), StyleDim.Render(msg), pad)
			}
		}
	}()
}

// Stop ends the animation and clears its line. It may be called more than
// once, and without Start.
func (s *status) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started {
		<-s.stopped
	}
}

func clearWidth(w io.Writer, width int) {
	if width > 0 {
		fmt.Fprintf(w, "\r%*s\r", width, "")
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
