package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/ledgerflow/flowchart/pkg/cache"
)

// testPayload is a minimal two-record flow payload in the wire shape.
const testPayload = `[
  {
    "nodes_ss": "[\"Income\", \"Income:Job\", \"Expenses:Food\"]",
    "links_ss": "[[\"Income:Job\", \"Income\", \"100\"], [\"Income\", \"Expenses:Food\", \"40\"]]"
  }
]`

func TestRunnerExecute(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), []byte(testPayload), Options{
		Formats: []string{FormatJSON, FormatDOT},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Stats.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", result.Stats.NodeCount)
	}
	if result.Stats.EdgeCount != 2 {
		t.Errorf("EdgeCount = %d, want 2", result.Stats.EdgeCount)
	}
	if result.GraphHash == "" {
		t.Errorf("GraphHash is empty")
	}
	if len(result.Chart.Nodes) != 3 {
		t.Errorf("Chart.Nodes = %d, want 3", len(result.Chart.Nodes))
	}

	jsonArtifact, ok := result.Artifacts[FormatJSON]
	if !ok || len(jsonArtifact) == 0 {
		t.Fatalf("missing json artifact")
	}
	dotArtifact, ok := result.Artifacts[FormatDOT]
	if !ok || !strings.HasPrefix(string(dotArtifact), "digraph flows {") {
		t.Errorf("dot artifact = %q..., want a digraph", truncate(string(dotArtifact), 30))
	}

	if result.CacheInfo.DecodeHit || result.CacheInfo.AnnotateHit || result.CacheInfo.ExportHit {
		t.Errorf("CacheInfo = %+v, want all misses with a null cache", result.CacheInfo)
	}
}

func TestRunnerExecuteRejectsBadPayload(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	if _, err := runner.Execute(context.Background(), []byte(`{"no": "array"}`), Options{}); err == nil {
		t.Errorf("Execute() error = nil, want schema violation")
	}
}

func TestRunnerCachesStages(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	runner := NewRunner(fileCache, nil, nil)
	defer runner.Close()

	ctx := context.Background()
	opts := Options{Formats: []string{FormatJSON}}

	first, err := runner.Execute(ctx, []byte(testPayload), opts)
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	if first.CacheInfo.DecodeHit || first.CacheInfo.AnnotateHit || first.CacheInfo.ExportHit {
		t.Errorf("first run CacheInfo = %+v, want all misses", first.CacheInfo)
	}

	second, err := runner.Execute(ctx, []byte(testPayload), opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !second.CacheInfo.DecodeHit || !second.CacheInfo.AnnotateHit || !second.CacheInfo.ExportHit {
		t.Errorf("second run CacheInfo = %+v, want all hits", second.CacheInfo)
	}
	if string(second.Artifacts[FormatJSON]) != string(first.Artifacts[FormatJSON]) {
		t.Errorf("cached artifact differs from the computed one")
	}

	// Refresh must bypass every stage cache.
	refreshOpts := Options{Formats: []string{FormatJSON}, Refresh: true}
	third, err := runner.Execute(ctx, []byte(testPayload), refreshOpts)
	if err != nil {
		t.Fatalf("refresh Execute() error = %v", err)
	}
	if third.CacheInfo.DecodeHit || third.CacheInfo.AnnotateHit {
		t.Errorf("refresh run CacheInfo = %+v, want decode and annotate misses", third.CacheInfo)
	}
}

func TestRunnerOptionsAffectChartCache(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	runner := NewRunner(fileCache, nil, nil)
	defer runner.Close()

	ctx := context.Background()
	if _, err := runner.Execute(ctx, []byte(testPayload), Options{ExcludePercent: 0.005}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// A different threshold is a different chart key; the annotate stage must
	// recompute even though the decoded graph is shared.
	second, err := runner.Execute(ctx, []byte(testPayload), Options{ExcludePercent: 0.25})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !second.CacheInfo.DecodeHit {
		t.Errorf("DecodeHit = false, want shared decoded graph")
	}
	if second.CacheInfo.AnnotateHit {
		t.Errorf("AnnotateHit = true, want recompute under a different threshold")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
