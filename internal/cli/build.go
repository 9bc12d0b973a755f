package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerflow/flowchart/pkg/cache"
	"github.com/ledgerflow/flowchart/pkg/config"
	"github.com/ledgerflow/flowchart/pkg/fetch"
	"github.com/ledgerflow/flowchart/pkg/pipeline"
)

// newBuildCmd creates the "build" command: payload in, chart artifacts out.
func newBuildCmd(configPath *string) *cobra.Command {
	var (
		output         string
		formats        []string
		excludePercent float64
		showCollapsed  bool
		refresh        bool
	)

	cmd := &cobra.Command{
		Use:   "build <payload-file-or-url>",
		Short: "Build an annotated flow chart from a reporting payload",
		Long: `Build decodes a raw flow payload (a JSON array of per-interval records),
annotates it with totals, percents, budget overlays, labels, and colors,
and exports the chart in the requested formats.

The payload argument is either a local JSON file or an http(s) URL served
by the reporting engine. With --output the artifacts are written next to
each other in the given directory; without it the JSON chart is printed
to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if excludePercent == 0 {
				excludePercent = cfg.ExcludePercent
			}

			c, err := openCache(ctx, cfg.Cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			runner := pipeline.NewRunner(c, nil, logger)
			defer runner.Close()

			loadTimer := newProgress(logger)
			payload, err := loadPayload(ctx, args[0], c, refresh)
			if err != nil {
				return err
			}
			loadTimer.done(fmt.Sprintf("Loaded payload, %d bytes", len(payload)))

			opts := pipeline.Options{
				ExcludePercent: excludePercent,
				NodeWidth:      cfg.NodeWidth,
				NodePadding:    cfg.NodePadding,
				Formats:        formats,
				ShowCollapsed:  showCollapsed,
				Refresh:        refresh,
				Logger:         logger,
			}

			spin := newSpinner(ctx, "Building chart...")
			spin.Start()
			result, err := runner.Execute(ctx, payload, opts)
			if err != nil {
				spin.StopWithError(fmt.Sprintf("Build failed: %v", err))
				return err
			}
			spin.StopWithSuccess("Chart built")
			printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.AnnotateHit)

			if output == "" {
				if data, ok := result.Artifacts[pipeline.FormatJSON]; ok {
					fmt.Println(string(data))
				}
				return nil
			}

			if err := os.MkdirAll(output, 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			for _, format := range opts.Formats {
				data, ok := result.Artifacts[format]
				if !ok {
					continue
				}
				path := filepath.Join(output, "chart."+format)
				if err := os.WriteFile(path, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				printFile(path)
			}
			printNextStep("Serve charts over HTTP", "flowchart serve")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: print JSON to stdout)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{pipeline.FormatJSON}, "output formats (json, dot, svg)")
	cmd.Flags().Float64Var(&excludePercent, "exclude-percent", 0, "label suppression threshold for deep nodes (default from config)")
	cmd.Flags().BoolVar(&showCollapsed, "show-collapsed", false, "include collapsed flows in DOT/SVG output")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass caches and recompute everything")

	return cmd
}

// loadPayload reads the payload from a local file or fetches it over HTTP.
// HTTP responses share the stage cache so repeated builds skip the network.
func loadPayload(ctx context.Context, src string, c cache.Cache, refresh bool) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client := fetch.New(c, nil)
		return client.Payload(ctx, src, refresh)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", src, err)
	}
	return data, nil
}
