// Package export converts an assembled graph to Graphviz DOT and renders it
// to SVG with go-graphviz.
//
// Roots are drawn bold, packages with no installed copy are filled red, and
// link style follows the dependency kind: runtime solid, dev dashed, peer
// dotted, optional dashed grey. With [Options.Clusters] every workspace
// becomes a labelled cluster.
package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/graph"
)

// Output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Formats lists the supported formats.
var Formats = []string{FormatDOT, FormatSVG}

// Options configures DOT generation.
type Options struct {
	// Detailed adds version and size lines to node labels.
	Detailed bool

	// Clusters groups nodes by workspace.
	Clusters bool
}

// ToDOT converts r to DOT.
func ToDOT(r *graph.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph depscope {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	if opts.Clusters {
		writeClusters(&buf, r, opts)
	} else {
		for _, n := range r.Nodes {
			writeNode(&buf, "  ", n, opts)
		}
	}

	buf.WriteString("\n")
	for _, l := range r.Links {
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", l.Source, l.Target, edgeAttrs(l.Type))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func writeClusters(buf *bytes.Buffer, r *graph.Result, opts Options) {
	var order []string
	groups := make(map[string][]graph.Node)
	for _, n := range r.Nodes {
		if _, ok := groups[n.WorkspaceID]; !ok {
			order = append(order, n.WorkspaceID)
		}
		groups[n.WorkspaceID] = append(groups[n.WorkspaceID], n)
	}
	for i, ws := range order {
		fmt.Fprintf(buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(buf, "    label=%q;\n", ws)
		buf.WriteString("    style=\"rounded,dashed\";\n")
		for _, n := range groups[ws] {
			writeNode(buf, "    ", n, opts)
		}
		buf.WriteString("  }\n")
	}
}

func writeNode(buf *bytes.Buffer, indent string, n graph.Node, opts Options) {
	attrs := []string{fmt.Sprintf("label=%q", label(n, opts.Detailed))}
	switch {
	case n.IsRoot:
		attrs = append(attrs, "penwidth=2", "fontname=\"Helvetica-Bold\"")
	case !n.IsInstalled:
		attrs = append(attrs, "fillcolor=\"#fde2e2\"", "color=\"#c0392b\"")
	}
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, n.ID, strings.Join(attrs, ", "))
}

func label(n graph.Node, detailed bool) string {
	if !detailed {
		return n.Name
	}
	lines := []string{n.Name}
	if n.Version != "" {
		lines = append(lines, n.Version)
	}
	if n.Size > 0 {
		lines = append(lines, humanize.Bytes(uint64(n.Size)))
	}
	return strings.Join(lines, "\n")
}

func edgeAttrs(k graph.Kind) string {
	switch k {
	case graph.KindDev:
		return " [style=dashed]"
	case graph.KindPeer:
		return " [style=dotted]"
	case graph.KindOptional:
		return " [style=dashed, color=grey]"
	default:
		return ""
	}
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render converts r to the named format.
func Render(ctx context.Context, r *graph.Result, format string, opts Options) ([]byte, error) {
	dot := ToDOT(r, opts)
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
