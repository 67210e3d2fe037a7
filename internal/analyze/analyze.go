// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze infers relationships between papers using a language
// model backend. Implements prd003-analysis R1-R5.
//
// The model's output is treated as hostile input: responses are parsed
// defensively and every edge is validated against the batch before it
// is accepted. A failed batch drops its edges and the pipeline carries
// on; analysis is reported unavailable only when no batch succeeds.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// Backend sends one prompt to a language model and returns its raw text
// response.
type Backend interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// backoffBase is the first retry delay for backend errors. Tests
// shorten it.
var backoffBase = 2 * time.Second

// Analyzer batches papers and infers relationship edges between them.
type Analyzer struct {
	Backend     Backend
	BatchSize   int // papers per prompt
	Concurrency int // batches in flight
	MaxRetries  int // backend attempts per batch
	W           io.Writer
}

// Output is the result of one analysis run. Unavailable means no batch
// produced edges because the backend was missing or every call failed;
// callers fall back to similarity-based linking.
type Output struct {
	Edges         []types.RelationshipEdge
	Unavailable   bool
	BatchFailures int
}

// Analyze infers relationship edges among papers. Papers are split into
// batches, each batch gets one prompt, and batches run concurrently.
// Backend errors are retried; malformed responses are not, since a
// model that returned garbage once tends to do it again.
func (a *Analyzer) Analyze(ctx context.Context, topic string, papers []*types.Paper) Output {
	if a.Backend == nil || len(papers) < 2 {
		return Output{Unavailable: true}
	}

	batchSize := a.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	w := a.W
	if w == nil {
		w = io.Discard
	}

	var batches [][]*types.Paper
	for start := 0; start < len(papers); start += batchSize {
		end := start + batchSize
		if end > len(papers) {
			end = len(papers)
		}
		// A trailing batch of one paper has nothing to relate.
		if end-start < 2 {
			break
		}
		batches = append(batches, papers[start:end])
	}
	if len(batches) == 0 {
		return Output{Unavailable: true}
	}

	var mu sync.Mutex
	out := Output{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			edges, err := a.analyzeBatch(gctx, topic, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(w, "warning: analysis batch of %d papers failed: %v\n", len(batch), err)
				out.BatchFailures++
				return nil
			}
			out.Edges = append(out.Edges, edges...)
			return nil
		})
	}
	_ = g.Wait() // batch failures are recorded, never returned

	if len(out.Edges) == 0 && out.BatchFailures == len(batches) {
		out.Unavailable = true
	}
	out.Edges = MergeEdges(out.Edges)
	return out
}

func (a *Analyzer) analyzeBatch(ctx context.Context, topic string, batch []*types.Paper) ([]types.RelationshipEdge, error) {
	prompt, err := buildPrompt(topic, batch)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	raw, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	edges, err := parseEdges(raw)
	if err != nil {
		return nil, err
	}
	return validateEdges(edges, batch), nil
}

// callWithRetry retries backend errors with exponential backoff. A
// response that arrives is returned as-is; parse failures are the
// caller's problem and are not retried.
func (a *Analyzer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := a.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffBase * time.Duration(1<<(attempt-1))):
			}
		}
		raw, err := a.Backend.Infer(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("backend failed after %d attempts: %w", maxRetries, lastErr)
}

type llmEdge struct {
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	Relationship   string   `json:"relationship_type"`
	Strength       float64  `json:"strength"`
	Description    string   `json:"description"`
	SharedEntities []string `json:"shared_entities"`
}

type llmResponse struct {
	Edges []llmEdge `json:"edges"`
}

// parseEdges extracts the JSON object from a model response that may be
// wrapped in markdown fences or prose.
func parseEdges(raw string) ([]llmEdge, error) {
	body, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var resp llmResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return resp.Edges, nil
}

// extractJSONObject returns the slice from the first '{' to the last
// '}' inclusive.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// validateEdges drops edges that reference papers outside the batch,
// self-loops, unknown relationship kinds, and malformed strengths. A
// strength is malformed when it is not an integer or falls outside the
// kind's range (1 up to the kind's weight); such edges are rejected,
// never repaired.
func validateEdges(edges []llmEdge, batch []*types.Paper) []types.RelationshipEdge {
	ids := make(map[string]bool, len(batch))
	for _, p := range batch {
		ids[p.ID] = true
	}

	var valid []types.RelationshipEdge
	for _, e := range edges {
		if !ids[e.Source] || !ids[e.Target] || e.Source == e.Target {
			continue
		}
		kind := types.RelationshipKind(e.Relationship)
		if !kind.Valid() {
			continue
		}
		strength := int(e.Strength)
		if float64(strength) != e.Strength || strength < 1 || strength > kind.Weight() {
			continue
		}
		valid = append(valid, types.RelationshipEdge{
			Source:         e.Source,
			Target:         e.Target,
			Kind:           kind,
			Strength:       strength,
			Description:    e.Description,
			SharedEntities: e.SharedEntities,
		})
	}
	return valid
}

// MergeEdges collapses duplicate (source, target) pairs, keeping the
// edge whose relationship kind carries the larger weight. Output order
// is deterministic.
func MergeEdges(edges []types.RelationshipEdge) []types.RelationshipEdge {
	byPair := make(map[string]types.RelationshipEdge)
	for _, e := range edges {
		key := e.Source + "\x00" + e.Target
		if prev, ok := byPair[key]; ok {
			byPair[key] = ResolveEdge(prev, e)
		} else {
			byPair[key] = e
		}
	}

	merged := make([]types.RelationshipEdge, 0, len(byPair))
	for _, e := range byPair {
		merged = append(merged, e)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Source != merged[j].Source {
			return merged[i].Source < merged[j].Source
		}
		return merged[i].Target < merged[j].Target
	})
	return merged
}

// ResolveEdge picks between two edges for the same pair: the heavier
// relationship kind wins, with strength as the tiebreak.
func ResolveEdge(a, b types.RelationshipEdge) types.RelationshipEdge {
	if b.Kind.Weight() > a.Kind.Weight() {
		return b
	}
	if b.Kind.Weight() == a.Kind.Weight() && b.Strength > a.Strength {
		return b
	}
	return a
}
