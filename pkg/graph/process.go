package graph

import (
	"context"

	"github.com/novelgraph/novelgraph/internal/util"
	"github.com/novelgraph/novelgraph/pkg/ai"
	"github.com/novelgraph/novelgraph/pkg/common"
	"github.com/novelgraph/novelgraph/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ChunkFailure records one chunk whose extraction was skipped after
// exhausting retries or being cancelled.
type ChunkFailure struct {
	ChunkID string
	Err     error
}

// Result is the outcome of processing one book: the assembled graph plus
// the chunks that had to be skipped. Skipped chunks reduce graph
// completeness but never abort assembly.
type Result struct {
	Graph   *common.Graph
	Skipped []ChunkFailure
}

type orderedChunk struct {
	chunk    common.Chunk
	chunkCtx ChunkContext
}

// ProcessNovel extracts entities and relationships from every chunk of
// the novel and assembles them into one graph.
//
// Extractions run concurrently up to the configured limit, but their
// results are buffered and folded in fixed (chapter index, chunk index)
// order, so the assembled graph is reproducible regardless of completion
// order. If ctx is cancelled mid-book, chunks not yet extracted are
// recorded as skipped and assembly proceeds with whatever completed.
func (g *GraphClient) ProcessNovel(
	ctx context.Context,
	novelData *common.NovelData,
	aiClient ai.GraphAIClient,
) (*Result, error) {
	var chunks []orderedChunk
	for _, chapter := range novelData.Chapters {
		for _, chunk := range chapter.Chunks {
			chunks = append(chunks, orderedChunk{
				chunk: chunk,
				chunkCtx: ChunkContext{
					Author:       novelData.Author,
					Book:         novelData.Title,
					ChapterTitle: chapter.Title,
					ChapterIndex: chapter.Index,
					ChunkIndex:   chunk.Index,
				},
			})
		}
	}

	logger.Info("[Graph] Extracting", "book", novelData.Title, "chunks", len(chunks))

	// Workers never return errors: a failed chunk is recorded and skipped
	// instead of cancelling its siblings.
	batches := make([]*Batch, len(chunks))
	failures := make([]error, len(chunks))

	eg := new(errgroup.Group)
	eg.SetLimit(g.parallelExtractions)
	for i, oc := range chunks {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			batch, err := util.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context) (*Batch, error) {
				return ExtractFromChunk(ctx, oc.chunk, oc.chunkCtx, aiClient)
			})
			if err != nil {
				failures[i] = err
				return nil
			}
			batches[i] = batch
			return nil
		})
	}
	_ = eg.Wait()

	batchByChunk := make(map[string]*Batch, len(chunks))
	var skipped []ChunkFailure
	for i, oc := range chunks {
		if batches[i] != nil {
			batchByChunk[oc.chunk.ID] = batches[i]
			continue
		}
		failure := &ExtractionError{ChunkID: oc.chunk.ID, Err: failures[i]}
		logger.Warn("[Graph] Chunk skipped", "chunk", oc.chunk.ID, "err", failures[i])
		skipped = append(skipped, ChunkFailure{ChunkID: oc.chunk.ID, Err: failure})
	}

	logger.Info("[Graph] Assembling", "book", novelData.Title,
		"extracted", len(batchByChunk), "skipped", len(skipped))

	graph, err := Assemble(novelData, batchByChunk)
	if err != nil {
		return nil, err
	}

	for _, failure := range skipped {
		graph.Metadata.SkippedChunks = append(graph.Metadata.SkippedChunks, failure.ChunkID)
	}

	return &Result{Graph: graph, Skipped: skipped}, nil
}
