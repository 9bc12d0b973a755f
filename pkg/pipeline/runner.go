package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ledgerflow/flowchart/pkg/cache"
	"github.com/ledgerflow/flowchart/pkg/export"
	"github.com/ledgerflow/flowchart/pkg/flow"
	"github.com/ledgerflow/flowchart/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different payloads.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete decode → annotate → export pipeline with caching.
// payload is the raw JSON payload as served by the upstream reporting engine.
func (r *Runner) Execute(ctx context.Context, payload []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Decode
	decodeStart := time.Now()
	g, decodeHit, err := r.DecodeWithCacheInfo(ctx, payload, opts)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	result.Graph = g
	result.Stats.DecodeTime = time.Since(decodeStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.CacheInfo.DecodeHit = decodeHit

	// Compute graph hash for cache keys and API responses
	if graphData, err := json.Marshal(g); err == nil {
		result.GraphHash = cache.Hash(graphData)
	}

	r.Logger.Info("decoded payload",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"collapsed", len(g.CollapsedLinks),
		"duration", result.Stats.DecodeTime)

	// Stage 2: Annotate
	annotateStart := time.Now()
	chart, annotateHit, err := r.AnnotateWithCacheInfo(ctx, g, result.GraphHash, opts)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	result.Chart = chart
	result.Stats.AnnotateTime = time.Since(annotateStart)
	result.CacheInfo.AnnotateHit = annotateHit

	r.Logger.Info("annotated graph",
		"max_total", chart.MaxTotal,
		"duration", result.Stats.AnnotateTime)

	// Stage 3: Export
	exportStart := time.Now()
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, chart, g, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported chart",
		"formats", opts.Formats,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// DecodeWithCacheInfo decodes a payload with caching and returns cache hit info.
func (r *Runner) DecodeWithCacheInfo(ctx context.Context, payload []byte, opts Options) (*flow.Graph, bool, error) {
	observability.Pipeline().OnDecodeStart(ctx, len(payload))
	start := time.Now()

	cacheKey := r.Keyer.GraphKey(cache.Hash(payload), cache.GraphKeyOpts{})

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			g := flow.NewGraph()
			if err := json.Unmarshal(data, g); err == nil {
				observability.Cache().OnCacheHit(ctx, "graph")
				observability.Pipeline().OnDecodeComplete(ctx, g.NodeCount(), g.EdgeCount(), time.Since(start), nil)
				return g, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	records, err := flow.DecodePayload(payload)
	if err != nil {
		observability.Pipeline().OnDecodeComplete(ctx, 0, 0, time.Since(start), err)
		return nil, false, err
	}
	g, err := flow.Decode(records)
	if err != nil {
		observability.Pipeline().OnDecodeComplete(ctx, 0, 0, time.Since(start), err)
		return nil, false, err
	}

	// Cache the result; a refresh run still repopulates the cache.
	if data, err := json.Marshal(g); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLGraph); err == nil {
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}

	observability.Pipeline().OnDecodeComplete(ctx, g.NodeCount(), g.EdgeCount(), time.Since(start), nil)
	return g, false, nil
}

// Decode is a convenience wrapper that calls DecodeWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Decode(ctx context.Context, payload []byte, opts Options) (*flow.Graph, error) {
	g, _, err := r.DecodeWithCacheInfo(ctx, payload, opts)
	return g, err
}

// AnnotateWithCacheInfo annotates a graph with caching and returns cache hit info.
// The annotated chart is cached; on a hit, the in-memory graph is annotated
// anyway (it is cheap and callers expect a fully-annotated Graph), but the
// cached chart bytes are authoritative for artifact keys.
func (r *Runner) AnnotateWithCacheInfo(ctx context.Context, g *flow.Graph, graphHash string, opts Options) (export.Chart, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return export.Chart{}, false, err
	}

	observability.Pipeline().OnAnnotateStart(ctx, g.NodeCount())
	start := time.Now()

	cacheKey := r.Keyer.ChartKey(graphHash, opts.ChartKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			cached, err := export.UnmarshalChart(data)
			if err == nil {
				flow.Annotate(g, opts.AnnotateOptions())
				observability.Cache().OnCacheHit(ctx, "chart")
				observability.Pipeline().OnAnnotateComplete(ctx, time.Since(start), nil)
				return cached, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "chart")
	}

	flow.Annotate(g, opts.AnnotateOptions())
	chart := export.FromGraph(g, opts.LayoutOptions())

	if data, err := export.MarshalChart(chart); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLChart); err == nil {
			observability.Cache().OnCacheSet(ctx, "chart", len(data))
		}
	}

	observability.Pipeline().OnAnnotateComplete(ctx, time.Since(start), nil)
	return chart, false, nil
}

// ExportWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, chart export.Chart, g *flow.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	observability.Pipeline().OnExportStart(ctx, opts.Formats)
	start := time.Now()

	chartData, err := export.MarshalChart(chart)
	if err != nil {
		return nil, false, fmt.Errorf("serialize chart for cache key: %w", err)
	}
	chartHash := cache.Hash(chartData)

	// Try to get all formats from cache (unless refresh requested)
	allCached := !opts.Refresh
	artifacts := make(map[string][]byte)

	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(chartHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, true, nil
	}

	rendered, err := exportFormats(chart, chartData, g, opts)
	if err != nil {
		observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), err)
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(chartHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}

	observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), nil)
	return rendered, false, nil
}

// exportFormats renders each requested format from the annotated chart.
func exportFormats(chart export.Chart, chartData []byte, g *flow.Graph, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatJSON:
			artifacts[format] = chartData
		case FormatDOT:
			artifacts[format] = []byte(export.ToDOT(g, export.DOTOptions{ShowCollapsed: opts.ShowCollapsed}))
		case FormatSVG:
			svg, err := export.RenderSVG(export.ToDOT(g, export.DOTOptions{ShowCollapsed: opts.ShowCollapsed}))
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			artifacts[format] = svg
		default:
			return nil, ValidateFormat(format)
		}
	}
	return artifacts, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
