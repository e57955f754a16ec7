package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/depscope/pkg/errors"
)

// =============================================================================
// Serialization
// =============================================================================

// Marshal encodes r as indented JSON.
func Marshal(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(r, &buf, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes r as JSON to w, indented when pretty is set.
func Write(r *Result, w io.Writer, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes r as indented JSON to path.
func WriteFile(r *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(r, f, true)
}

// Read decodes a JSON result and validates it against limits.
func Read(rd io.Reader, limits Limits) (*Result, error) {
	var r Result
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph")
	}
	if err := r.Validate(limits); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the structural guarantees of an assembled graph: unique
// node ids, link endpoints that exist, levels that step by one from parent
// to child and stay within limits, and a node count within the ceiling.
func (r *Result) Validate(limits Limits) error {
	limits = limits.WithDefaults()
	if len(r.Nodes) > limits.MaxNodes {
		return errors.New(errors.ErrCodeInternal, "graph has %d nodes, limit is %d", len(r.Nodes), limits.MaxNodes)
	}

	levels := make(map[string]int, len(r.Nodes))
	for _, n := range r.Nodes {
		if _, dup := levels[n.ID]; dup {
			return errors.New(errors.ErrCodeInternal, "duplicate node id %q", n.ID)
		}
		if n.DependencyLevel < 0 || n.DependencyLevel > limits.MaxDepth {
			return errors.New(errors.ErrCodeInternal, "node %q at level %d exceeds depth %d", n.ID, n.DependencyLevel, limits.MaxDepth)
		}
		if n.IsRoot != (n.DependencyLevel == 0) {
			return errors.New(errors.ErrCodeInternal, "node %q: root flag does not match level %d", n.ID, n.DependencyLevel)
		}
		levels[n.ID] = n.DependencyLevel
	}

	for _, l := range r.Links {
		src, ok := levels[l.Source]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "link source %q not found", l.Source)
		}
		dst, ok := levels[l.Target]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "link target %q not found", l.Target)
		}
		if dst != src+1 {
			return errors.New(errors.ErrCodeInternal, "link %s→%s skips levels (%d→%d)", l.Source, l.Target, src, dst)
		}
	}
	return nil
}
