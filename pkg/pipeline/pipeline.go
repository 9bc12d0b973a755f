// Package pipeline provides the core chart pipeline for flowchart.
//
// This package implements the complete decode → annotate → export pipeline
// that can be used by CLI and server components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Decode: Parse the raw encoded payload into a typed flow graph
//  2. Annotate: Propagate totals, percents, budget overlays, labels, colors
//  3. Export: Generate output in various formats (JSON, DOT, SVG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Formats: []string{"json"},
//	}
//	result, err := runner.Execute(ctx, payload, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	chartJSON := result.Artifacts["json"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ledgerflow/flowchart/pkg/cache"
	"github.com/ledgerflow/flowchart/pkg/errors"
	"github.com/ledgerflow/flowchart/pkg/export"
	"github.com/ledgerflow/flowchart/pkg/flow"
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// Options contains all configuration for the chart pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Annotate options
	ExcludePercent float64  `json:"exclude_percent,omitempty"`
	Palette        []string `json:"palette,omitempty"`

	// Layout pass-through (forwarded in the chart, unused by the core)
	NodeWidth   float64 `json:"node_width,omitempty"`
	NodePadding float64 `json:"node_padding,omitempty"`

	// Export options
	Formats       []string `json:"formats,omitempty"`
	ShowCollapsed bool     `json:"show_collapsed,omitempty"`

	// Refresh bypasses stage caches.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the decoded, annotated flow graph.
	Graph *flow.Graph

	// GraphHash is the content hash of the decoded graph.
	GraphHash string

	// Chart is the serialized annotated chart.
	Chart export.Chart

	// Artifacts contains exported outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	DecodeTime   time.Duration
	AnnotateTime time.Duration
	ExportTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DecodeHit   bool // Whether the decoded graph came from cache
	AnnotateHit bool // Whether the annotated chart came from cache
	ExportHit   bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks fields and applies defaults for the full
// pipeline. This method is idempotent - calling it multiple times has the
// same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ExcludePercent < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "exclude_percent must not be negative")
	}
	if o.ExcludePercent == 0 {
		o.ExcludePercent = flow.DefaultExcludePercent
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// AnnotateOptions converts pipeline options to flow annotation options.
func (o *Options) AnnotateOptions() flow.Options {
	return flow.Options{
		ExcludePercent: o.ExcludePercent,
		Palette:        o.Palette,
	}
}

// LayoutOptions returns the pass-through layout options.
func (o *Options) LayoutOptions() export.LayoutOptions {
	return export.LayoutOptions{
		NodeWidth:   o.NodeWidth,
		NodePadding: o.NodePadding,
	}
}

// ChartKeyOpts returns cache key options for chart annotation.
func (o *Options) ChartKeyOpts() cache.ChartKeyOpts {
	return cache.ChartKeyOpts{
		ExcludePercent: o.ExcludePercent,
		NodeWidth:      o.NodeWidth,
		NodePadding:    o.NodePadding,
		Palette:        o.Palette,
	}
}

// ArtifactKeyOpts returns cache key options for artifact export.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
	}
}
