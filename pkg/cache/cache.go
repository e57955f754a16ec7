// Package cache stores serialized analyses between runs.
//
// A [Cache] maps string keys to opaque byte payloads with an optional
// time-to-live. Three backends are provided: [NullCache] (caching
// disabled), [FileCache] (per-user directory, used by the CLI) and
// [RedisCache] (shared, used by the HTTP server). Keys are produced by a
// [Keyer] so that every backend sees the same key for the same analysis.
package cache

import (
	"context"
	"time"
)

// TTLAnalysis is the default lifetime of a cached analysis.
const TTLAnalysis = time.Hour

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// AnalysisKeyOpts holds the inputs, besides the root, that change an
// analysis result. Sources is a digest of the files the scan reads, so an
// edited manifest, lock file or install tree yields a new key.
type AnalysisKeyOpts struct {
	MaxDepth        int      `json:"max_depth"`
	MaxNodes        int      `json:"max_nodes"`
	MaxNodesPerRoot int      `json:"max_nodes_per_root"`
	MaxDirectDeps   int      `json:"max_direct_deps"`
	Ignore          []string `json:"ignore,omitempty"`
	Sources         string   `json:"sources"`
}

// Keyer derives cache keys.
type Keyer interface {
	AnalysisKey(root string, opts AnalysisKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// AnalysisKey returns "analysis:<hash>" over the absolute root and opts.
func (DefaultKeyer) AnalysisKey(root string, opts AnalysisKeyOpts) string {
	return hashKey("analysis", root, opts)
}

var _ Keyer = DefaultKeyer{}
