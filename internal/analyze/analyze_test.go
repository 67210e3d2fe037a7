// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/paper-graph/pkg/types"
)

type backendFunc func(ctx context.Context, prompt string) (string, error)

func (f backendFunc) Infer(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// countingBackend is safe for concurrent batches.
type countingBackend struct {
	mu    sync.Mutex
	calls int
	fn    backendFunc
}

func (b *countingBackend) Infer(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.fn(ctx, prompt)
}

func testPapers(n int) []*types.Paper {
	papers := make([]*types.Paper, n)
	for i := range papers {
		papers[i] = &types.Paper{
			ID:    fmt.Sprintf("p%d", i+1),
			Title: fmt.Sprintf("Paper %d", i+1),
			Year:  2020,
			Venue: "arXiv",
		}
	}
	return papers
}

func TestAnalyzeNilBackend(t *testing.T) {
	a := &Analyzer{}
	out := a.Analyze(context.Background(), "topic", testPapers(5))
	if !out.Unavailable {
		t.Error("expected Unavailable with nil backend")
	}
	if len(out.Edges) != 0 {
		t.Errorf("Edges = %v, want none", out.Edges)
	}
}

func TestAnalyzeTooFewPapers(t *testing.T) {
	a := &Analyzer{Backend: backendFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Error("backend should not be called for a single paper")
		return "", nil
	})}
	out := a.Analyze(context.Background(), "topic", testPapers(1))
	if !out.Unavailable {
		t.Error("expected Unavailable with one paper")
	}
}

func TestAnalyzeValidatesEdges(t *testing.T) {
	response := "Here is the analysis:\n```json\n" + `{
		"edges": [
			{"source": "p1", "target": "p2", "relationship_type": "Builds_Upon", "strength": 4, "description": "extends", "shared_entities": ["attention"]},
			{"source": "p1", "target": "p1", "relationship_type": "Cites", "strength": 5},
			{"source": "p1", "target": "p99", "relationship_type": "Cites", "strength": 5},
			{"source": "p2", "target": "p3", "relationship_type": "Frenemies", "strength": 3},
			{"source": "p2", "target": "p1", "relationship_type": "Cites", "strength": 9}
		]
	}` + "\n```"

	a := &Analyzer{Backend: backendFunc(func(ctx context.Context, prompt string) (string, error) {
		return response, nil
	})}
	out := a.Analyze(context.Background(), "topic", testPapers(3))
	if out.Unavailable {
		t.Fatal("analysis should be available")
	}
	if len(out.Edges) != 1 {
		t.Fatalf("Edges = %+v, want 1 (self-loop, unknown id, unknown kind, strength 9 dropped)", out.Edges)
	}
	if out.Edges[0].Source != "p1" || out.Edges[0].Kind != types.KindBuildsUpon {
		t.Errorf("edge[0] = %+v", out.Edges[0])
	}
}

func TestValidateEdgesStrengthRange(t *testing.T) {
	batch := testPapers(2)
	tests := []struct {
		name     string
		kind     string
		strength float64
		want     bool
	}{
		{"cites at max", "Cites", 5, true},
		{"cites above max", "Cites", 9, false},
		{"zero", "Applies", 0, false},
		{"negative", "Compares", -2, false},
		{"above kind weight", "Shares_Method", 3, false},
		{"at kind weight", "Shares_Method", 2, true},
		{"fractional", "Builds_Upon", 2.5, false},
		{"validates in range", "Validates", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := []llmEdge{{Source: "p1", Target: "p2", Relationship: tt.kind, Strength: tt.strength}}
			got := validateEdges(edges, batch)
			if kept := len(got) == 1; kept != tt.want {
				t.Errorf("validateEdges(%s strength %v) kept=%v, want %v", tt.kind, tt.strength, kept, tt.want)
			}
		})
	}
}

func TestAnalyzeBatching(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		return `{"edges": []}`, nil
	}}
	a := &Analyzer{Backend: backend, BatchSize: 10, Concurrency: 2}
	out := a.Analyze(context.Background(), "topic", testPapers(25))
	if out.Unavailable {
		t.Error("empty edge lists still count as success")
	}
	if backend.calls != 3 {
		t.Errorf("calls = %d, want 3 batches of 25 papers", backend.calls)
	}
}

func TestAnalyzeTrailingSingletonDropped(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		return `{"edges": []}`, nil
	}}
	a := &Analyzer{Backend: backend, BatchSize: 10}
	a.Analyze(context.Background(), "topic", testPapers(21))
	if backend.calls != 2 {
		t.Errorf("calls = %d, want 2 (a batch of one paper has nothing to relate)", backend.calls)
	}
}

func TestAnalyzeAllBatchesFail(t *testing.T) {
	a := &Analyzer{
		Backend: backendFunc(func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("quota exceeded")
		}),
		MaxRetries: 1,
	}
	var buf bytes.Buffer
	a.W = &buf
	out := a.Analyze(context.Background(), "topic", testPapers(5))
	if !out.Unavailable {
		t.Error("expected Unavailable when every batch fails")
	}
	if out.BatchFailures != 1 {
		t.Errorf("BatchFailures = %d, want 1", out.BatchFailures)
	}
	if !strings.Contains(buf.String(), "warning: analysis batch") {
		t.Errorf("expected batch warning, got %q", buf.String())
	}
}

func TestAnalyzeMalformedResponseNotRetried(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		return "I cannot produce JSON today.", nil
	}}
	a := &Analyzer{Backend: backend, MaxRetries: 3}
	out := a.Analyze(context.Background(), "topic", testPapers(3))
	if !out.Unavailable {
		t.Error("expected Unavailable when the only batch is malformed")
	}
	if backend.calls != 1 {
		t.Errorf("calls = %d, want 1: malformed responses are not retried", backend.calls)
	}
}

func TestCallWithRetryRecovers(t *testing.T) {
	orig := backoffBase
	backoffBase = time.Millisecond
	defer func() { backoffBase = orig }()

	backend := &countingBackend{fn: nil}
	backend.fn = func(ctx context.Context, prompt string) (string, error) {
		if backend.calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}
	a := &Analyzer{Backend: backend, MaxRetries: 3}
	got, err := a.callWithRetry(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("callWithRetry: %v", err)
	}
	if got != "ok" || backend.calls != 3 {
		t.Errorf("got %q after %d calls", got, backend.calls)
	}
}

func TestCallWithRetryContextCancelled(t *testing.T) {
	orig := backoffBase
	backoffBase = time.Hour
	defer func() { backoffBase = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	a := &Analyzer{
		Backend: backendFunc(func(ctx context.Context, prompt string) (string, error) {
			cancel()
			return "", errors.New("transient")
		}),
		MaxRetries: 3,
	}
	start := time.Now()
	_, err := a.callWithRetry(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry did not honor cancellation during backoff")
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"edges": []}`, `{"edges": []}`, true},
		{"fenced", "```json\n{\"edges\": []}\n```", `{"edges": []}`, true},
		{"prose around", `Sure! {"edges": []} Hope this helps.`, `{"edges": []}`, true},
		{"no object", "no json here", "", false},
		{"reversed braces", "} {", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.raw)
			if ok != tt.ok || got != tt.want {
				t.Errorf("extractJSONObject(%q) = %q, %v", tt.raw, got, ok)
			}
		})
	}
}

func TestMergeEdges(t *testing.T) {
	edges := []types.RelationshipEdge{
		{Source: "p1", Target: "p2", Kind: types.KindSharesMethod, Strength: 2},
		{Source: "p1", Target: "p2", Kind: types.KindCites, Strength: 5},
		{Source: "p2", Target: "p3", Kind: types.KindApplies, Strength: 2},
		{Source: "p2", Target: "p3", Kind: types.KindCompares, Strength: 3},
	}
	merged := MergeEdges(edges)
	if len(merged) != 2 {
		t.Fatalf("merged = %+v, want 2", merged)
	}
	if merged[0].Kind != types.KindCites {
		t.Errorf("heavier kind should win: %+v", merged[0])
	}
	if merged[1].Strength != 3 {
		t.Errorf("equal weight resolves by strength: %+v", merged[1])
	}
}

func TestBuildPrompt(t *testing.T) {
	papers := []*types.Paper{
		{ID: "p1", Title: "Attention Is All You Need", Authors: []string{"Vaswani"}, Year: 2017, Venue: "arXiv", Keywords: []string{"attention"}},
		{ID: "p2", Title: "BERT", Year: 2018, Venue: "arXiv", Abstract: strings.Repeat("long abstract ", 50)},
	}
	prompt, err := buildPrompt("transformers", papers)
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}
	for _, want := range []string{"p1", "p2", "transformers", "Builds_Upon", "Shares_Method", `"edges"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, strings.Repeat("long abstract ", 50)) {
		t.Error("abstract should be truncated in the prompt")
	}
}
