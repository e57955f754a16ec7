package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/depscope/pkg/graph"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	// StyleTitle for section headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for project paths.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	StyleDim    = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue  = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleOK          = lipgloss.NewStyle().Foreground(colorGreen)
	styleFailed      = lipgloss.NewStyle().Foreground(colorRed)
	styleMuted       = lipgloss.NewStyle().Foreground(colorGray)
	stylePhase       = lipgloss.NewStyle().Foreground(colorGray).Width(10)
)

// =============================================================================
// Status Lines
// =============================================================================

func say(icon string, style lipgloss.Style, format string, args ...any) {
	fmt.Println(style.Render(icon) + " " + fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { say("✓", styleOK, format, args...) }

func printInfo(format string, args ...any) { say("›", styleMuted, format, args...) }

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path an artifact was written to.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

// =============================================================================
// Analysis Summary
// =============================================================================

// printSummary prints the graph totals followed by one line per phase run.
func printSummary(s graph.Stats, cached bool, phases []phaseResult) {
	fmt.Println(renderSummary(s, cached))
	if out := renderPhases(phases); out != "" {
		fmt.Print(out)
	}
}

// renderSummary formats "  12 nodes · 11 links · depth 3 · fresh".
func renderSummary(s graph.Stats, cached bool) string {
	parts := []string{
		plural(s.TotalNodes, "node"),
		plural(s.TotalLinks, "link"),
		fmt.Sprintf("depth %d", s.MaxLevel),
	}
	if n := len(s.DuplicatedPackages); n > 0 {
		parts = append(parts, fmt.Sprintf("%d repeated", n))
	}
	source := styleMuted.Render("fresh")
	if cached {
		source = styleOK.Render("cached")
	}

	rendered := make([]string, len(parts))
	for i, p := range parts {
		rendered[i] = StyleDim.Render(p)
	}
	return "  " + strings.Join(append(rendered, source), StyleDim.Render(" · "))
}

// renderPhases formats one line per phase, e.g. "    scan      38 packages  12ms".
func renderPhases(phases []phaseResult) string {
	var b strings.Builder
	for _, p := range phases {
		mark := styleOK.Render("✓")
		if p.Failed {
			mark = styleFailed.Render("✗")
		}
		fmt.Fprintf(&b, "    %s %s%s  %s\n",
			mark,
			stylePhase.Render(string(p.Phase)),
			StyleValue.Render(plural(p.Items, phaseUnits[p.Phase])),
			StyleDim.Render(p.Duration.Round(100*time.Microsecond).String()))
	}
	return b.String()
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// =============================================================================
// Utilities
// =============================================================================

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
