// Package cache provides pluggable byte caches and cache-key derivation for
// the chart pipeline.
//
// Three backends are provided:
//   - [FileCache]: directory-backed cache for CLI usage
//   - [RedisCache]: Redis-backed cache for server deployments
//   - [NullCache]: no-op cache for tests and disabled caching
//
// Cache keys are derived by a [Keyer] so that every pipeline stage (decoded
// graph, annotated chart, exported artifact) caches under a stable, hashed
// key that includes all options affecting its output.
package cache

import (
	"context"
	"time"
)

// TTLs per cached stage. Decoded graphs follow their payload and are cheap
// to rebuild; annotated charts and artifacts are pure functions of their
// inputs and can live longer.
const (
	TTLGraph    = 1 * time.Hour
	TTLChart    = 24 * time.Hour
	TTLArtifact = 24 * time.Hour
	TTLPayload  = 15 * time.Minute
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get returns the cached bytes for key and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// GraphKeyOpts are the options that affect a decoded graph.
type GraphKeyOpts struct {
	// Nothing beyond the payload hash today; the struct keeps the key format
	// stable if decode options appear.
}

// ChartKeyOpts are the annotation options that affect a chart.
type ChartKeyOpts struct {
	ExcludePercent float64
	NodeWidth      float64
	NodePadding    float64
	Palette        []string
}

// ArtifactKeyOpts are the export options that affect a rendered artifact.
type ArtifactKeyOpts struct {
	Format string
}

// Keyer derives cache keys for each pipeline stage.
type Keyer interface {
	// HTTPKey generates a key for raw HTTP response caching.
	HTTPKey(namespace, key string) string

	// GraphKey generates a key for a decoded graph, from the payload hash.
	GraphKey(payloadHash string, opts GraphKeyOpts) string

	// ChartKey generates a key for an annotated chart, from the graph hash.
	ChartKey(graphHash string, opts ChartKeyOpts) string

	// ArtifactKey generates a key for an exported artifact, from the chart hash.
	ArtifactKey(chartHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer derives keys by hashing the stage prefix with all options.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return hashKey("http:"+namespace, key)
}

// GraphKey generates a key for decoded graph caching.
func (k *DefaultKeyer) GraphKey(payloadHash string, opts GraphKeyOpts) string {
	return hashKey("graph", payloadHash, opts)
}

// ChartKey generates a key for annotated chart caching.
func (k *DefaultKeyer) ChartKey(graphHash string, opts ChartKeyOpts) string {
	return hashKey("chart", graphHash, opts)
}

// ArtifactKey generates a key for exported artifact caching.
func (k *DefaultKeyer) ArtifactKey(chartHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", chartHash, opts)
}
