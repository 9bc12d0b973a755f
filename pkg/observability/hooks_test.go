package observability

import (
	"context"
	"testing"
	"time"
)

type countingPipelineHooks struct {
	NoopPipelineHooks
	decodeStarts    int
	decodeCompletes int
}

func (h *countingPipelineHooks) OnDecodeStart(context.Context, int) { h.decodeStarts++ }
func (h *countingPipelineHooks) OnDecodeComplete(context.Context, int, int, time.Duration, error) {
	h.decodeCompletes++
}

type countingCacheHooks struct {
	NoopCacheHooks
	hits int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string) { h.hits++ }

func TestDefaultsAreNoop(t *testing.T) {
	Reset()

	// Must not panic.
	ctx := context.Background()
	Pipeline().OnDecodeStart(ctx, 1)
	Pipeline().OnDecodeComplete(ctx, 1, 1, time.Millisecond, nil)
	Cache().OnCacheHit(ctx, "graph")
	Cache().OnCacheMiss(ctx, "graph")
	Cache().OnCacheSet(ctx, "graph", 10)
	Fetch().OnRequest(ctx, "http://example.com")
	Fetch().OnError(ctx, "http://example.com", nil)
}

func TestSetPipelineHooks(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingPipelineHooks{}
	SetPipelineHooks(h)

	ctx := context.Background()
	Pipeline().OnDecodeStart(ctx, 1)
	Pipeline().OnDecodeStart(ctx, 1)
	Pipeline().OnDecodeComplete(ctx, 3, 2, time.Millisecond, nil)

	if h.decodeStarts != 2 {
		t.Errorf("decodeStarts = %d, want 2", h.decodeStarts)
	}
	if h.decodeCompletes != 1 {
		t.Errorf("decodeCompletes = %d, want 1", h.decodeCompletes)
	}
}

func TestSetCacheHooks(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingCacheHooks{}
	SetCacheHooks(h)
	Cache().OnCacheHit(context.Background(), "chart")

	if h.hits != 1 {
		t.Errorf("hits = %d, want 1", h.hits)
	}
}

func TestSetNilKeepsCurrentHooks(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingCacheHooks{}
	SetCacheHooks(h)
	SetCacheHooks(nil)

	Cache().OnCacheHit(context.Background(), "chart")
	if h.hits != 1 {
		t.Errorf("hits = %d, want 1 (nil registration ignored)", h.hits)
	}
}

func TestReset(t *testing.T) {
	h := &countingCacheHooks{}
	SetCacheHooks(h)
	Reset()

	Cache().OnCacheHit(context.Background(), "chart")
	if h.hits != 0 {
		t.Errorf("hits = %d, want 0 after Reset", h.hits)
	}
}
