package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExtractFeaturesPreservesChunkOrder(t *testing.T) {
	llm := &mockLLM{
		CompleteFunc: func(_ context.Context, messages []Message) (string, error) {
			return "features of " + messages[1].Content, nil
		},
	}
	e := NewExtractor(llm, 4, nil)

	chunks := []string{"chunk-a", "chunk-b", "chunk-c"}
	got := e.ExtractFeatures(context.Background(), chunks)
	if len(got) != len(chunks) {
		t.Fatalf("result length = %d", len(got))
	}
	for i, chunk := range chunks {
		if got[i] != "features of "+chunk {
			t.Fatalf("slot %d = %q", i, got[i])
		}
	}
}

func TestExtractFeaturesFailureLeavesEmptySlot(t *testing.T) {
	llm := &mockLLM{
		CompleteFunc: func(_ context.Context, messages []Message) (string, error) {
			if strings.Contains(messages[1].Content, "bad") {
				return "", errors.New("backend unavailable")
			}
			return "ok", nil
		},
	}
	e := NewExtractor(llm, 2, nil)

	got := e.ExtractFeatures(context.Background(), []string{"good", "bad", "good"})
	want := []string{"ok", "", "ok"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractFeaturesRespectsConcurrencyBound(t *testing.T) {
	const limit = 3
	var inFlight, peak int32
	var mu sync.Mutex

	llm := &mockLLM{
		CompleteFunc: func(_ context.Context, _ []Message) (string, error) {
			n := atomic.AddInt32(&inFlight, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return "x", nil
		},
	}
	e := NewExtractor(llm, limit, nil)

	chunks := make([]string, 20)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk-%d", i)
	}
	e.ExtractFeatures(context.Background(), chunks)

	mu.Lock()
	defer mu.Unlock()
	if peak > limit {
		t.Fatalf("peak concurrency %d exceeded bound %d", peak, limit)
	}
}

func TestExtractFeaturesEmptyInput(t *testing.T) {
	e := NewExtractor(&mockLLM{}, 4, nil)
	if got := e.ExtractFeatures(context.Background(), nil); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
