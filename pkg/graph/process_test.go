package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/novelgraph/novelgraph/pkg/ai"
	"github.com/novelgraph/novelgraph/pkg/common"
)

func TestProcessNovelPartialFailure(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]
	chunk2 := data.Chapters[1].Chunks[0]

	client := &stubAIClient{
		responses: map[string]extractResponse{
			chunk1.Text: {
				Nodes: []extractNode{{Label: "Actor", Name: "Tom"}},
			},
		},
		errs: map[string]error{
			chunk2.Text: errors.New("model overloaded"),
		},
	}

	g := NewGraphClient(NewGraphClientParams{ParallelExtractions: 2, MaxRetries: 1})
	result, err := g.ProcessNovel(context.Background(), data, client)
	if err != nil {
		t.Fatalf("ProcessNovel() error = %v", err)
	}

	if len(result.Skipped) != 1 {
		t.Fatalf("skipped = %d, want 1", len(result.Skipped))
	}
	failure := result.Skipped[0]
	if failure.ChunkID != chunk2.ID {
		t.Errorf("skipped chunk = %q, want %q", failure.ChunkID, chunk2.ID)
	}
	var extractionErr *ExtractionError
	if !errors.As(failure.Err, &extractionErr) {
		t.Errorf("skipped error = %v, want *ExtractionError", failure.Err)
	}

	if got := result.Graph.Metadata.SkippedChunks; len(got) != 1 || got[0] != chunk2.ID {
		t.Errorf("metadata skipped chunks = %v, want [%s]", got, chunk2.ID)
	}

	// the successful chunk still contributed its entity
	findNode(t, result.Graph, common.LabelActor, "Tom")
	// the failed chunk keeps its structural node and containment edge
	if findRel(result.Graph, chunk2.ID, data.Chapters[1].ID, common.RelPartOf) == nil {
		t.Errorf("failed chunk lost its PART_OF edge")
	}
}

func TestProcessNovelRetriesTransientFailures(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]
	chunk2 := data.Chapters[1].Chunks[0]

	attempts := 0
	client := &flakyAIClient{
		failFirst: 1,
		attempts:  &attempts,
		inner: &stubAIClient{
			responses: map[string]extractResponse{
				chunk1.Text: {Nodes: []extractNode{{Label: "Actor", Name: "Tom"}}},
				chunk2.Text: {Nodes: []extractNode{{Label: "Actor", Name: "Huck"}}},
			},
		},
	}

	g := NewGraphClient(NewGraphClientParams{ParallelExtractions: 1, MaxRetries: 3})
	result, err := g.ProcessNovel(context.Background(), data, client)
	if err != nil {
		t.Fatalf("ProcessNovel() error = %v", err)
	}

	if len(result.Skipped) != 0 {
		t.Fatalf("skipped = %v, want none after retry", result.Skipped)
	}
	findNode(t, result.Graph, common.LabelActor, "Tom")
	findNode(t, result.Graph, common.LabelActor, "Huck")
}

func TestProcessNovelCancelledContext(t *testing.T) {
	data := testNovel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &stubAIClient{}
	g := NewGraphClient(NewGraphClientParams{ParallelExtractions: 2, MaxRetries: 1})
	result, err := g.ProcessNovel(ctx, data, client)
	if err != nil {
		t.Fatalf("ProcessNovel() error = %v", err)
	}

	if got, want := len(result.Skipped), data.ChunkCount(); got != want {
		t.Fatalf("skipped = %d, want all %d chunks", got, want)
	}
	if client.calls != 0 {
		t.Errorf("client calls = %d, want 0 after cancellation", client.calls)
	}

	// structural graph still assembles
	if result.Graph == nil || len(result.Graph.Nodes) != 6 {
		t.Fatalf("expected structural graph with 6 nodes, got %+v", result.Graph)
	}
}

// flakyAIClient fails the first failFirst formatted calls and then
// delegates to the wrapped stub.
type flakyAIClient struct {
	inner     *stubAIClient
	failFirst int
	attempts  *int
}

func (f *flakyAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.inner.GenerateCompletion(ctx, prompt, opts...)
}

func (f *flakyAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	*f.attempts++
	if *f.attempts <= f.failFirst {
		return errors.New("transient upstream error")
	}
	return f.inner.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...)
}

func (f *flakyAIClient) ResetMetrics() { f.inner.ResetMetrics() }

func (f *flakyAIClient) GetMetrics() ai.ModelMetrics { return f.inner.GetMetrics() }
