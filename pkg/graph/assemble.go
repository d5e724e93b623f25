package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/novelgraph/novelgraph/internal/util"
	"github.com/novelgraph/novelgraph/pkg/common"
	"github.com/novelgraph/novelgraph/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// resolutionKey identifies a semantic node across chunks: the normalized
// name plus the label. Two mentions with the same key are the same node.
type resolutionKey struct {
	name  string
	label common.Label
}

// relKey is the uniqueness key for relationships. Direction matters.
type relKey struct {
	startID string
	endID   string
	relType string
}

// assembler accumulates one book's graph. The resolution index and the
// relationship map are private to a single assembly run and never reused
// across books.
type assembler struct {
	nodes     []common.Node
	nodeIdx   map[string]int           // node id -> index into nodes
	index     map[resolutionKey]string // resolution key -> node id
	rels      map[relKey]*common.Relationship
	relOrder  []relKey
	chunkNode map[string]string // chunk id -> chunk node id
}

func newAssembler() *assembler {
	return &assembler{
		nodeIdx:   make(map[string]int),
		index:     make(map[resolutionKey]string),
		rels:      make(map[relKey]*common.Relationship),
		chunkNode: make(map[string]string),
	}
}

// Assemble merges the structural hierarchy and the per-chunk extraction
// batches into one consistent graph. Batches are keyed by chunk ID;
// chunks without a batch (failed or cancelled extractions) contribute
// only their structural nodes. Folding happens in chapter order, then
// chunk order, so the result is reproducible regardless of the order in
// which extractions completed.
func Assemble(novelData *common.NovelData, batches map[string]*Batch) (*common.Graph, error) {
	a := newAssembler()

	a.seedStructure(novelData)

	for _, chapter := range novelData.Chapters {
		for _, chunk := range chapter.Chunks {
			batch, ok := batches[chunk.ID]
			if !ok {
				continue
			}
			a.foldBatch(chunk, batch)
		}
	}

	graph := a.build(novelData)
	if err := validate(graph, novelData); err != nil {
		return nil, err
	}
	return graph, nil
}

// seedStructure creates the Author/Book/Chapter/Chunk skeleton and its
// WRITTEN_BY and PART_OF edges. Structural nodes are created exactly once
// and are never merged with extraction output.
func (a *assembler) seedStructure(novelData *common.NovelData) {
	now := time.Now().UTC()

	a.addNode(common.Node{
		ID:        novelData.AuthorID,
		Label:     common.LabelAuthor,
		Name:      novelData.Author,
		Timestamp: now,
	})
	a.addNode(common.Node{
		ID:        novelData.BookID,
		Label:     common.LabelBook,
		Name:      novelData.Title,
		Properties: map[string]any{
			"author": novelData.Author,
		},
		Timestamp: now,
	})
	a.upsertRel(novelData.BookID, novelData.AuthorID, common.RelWrittenBy, 1, nil)

	for _, chapter := range novelData.Chapters {
		a.addNode(common.Node{
			ID:    chapter.ID,
			Label: common.LabelChapter,
			Name:  chapter.Title,
			Properties: map[string]any{
				"index": chapter.Index,
			},
			Timestamp: now,
		})
		a.upsertRel(chapter.ID, novelData.BookID, common.RelPartOf, 1, nil)

		for _, chunk := range chapter.Chunks {
			a.addNode(common.Node{
				ID:    chunk.ID,
				Label: common.LabelChunk,
				Name:  fmt.Sprintf("%s, chunk %d", chapter.Title, chunk.Index),
				Properties: map[string]any{
					"index": chunk.Index,
					"start": chunk.Start,
					"end":   chunk.End,
					"text":  chunk.Text,
				},
				Timestamp: now,
			})
			a.chunkNode[chunk.ID] = chunk.ID
			a.upsertRel(chunk.ID, chapter.ID, common.RelPartOf, 1, nil)
		}
	}
}

// foldBatch merges one chunk's candidates into the running graph:
// resolve or create semantic nodes, lay MENTIONS provenance edges from
// the owning chunk, and upsert the candidate relationships.
func (a *assembler) foldBatch(chunk common.Chunk, batch *Batch) {
	// candidate name -> node id, scoped to this batch
	resolved := make(map[string]string)
	// node ids observed in this batch, in first-seen order
	var observed []string
	observedSet := make(map[string]bool)

	for _, cand := range batch.Nodes {
		normName := util.NormalizeName(cand.Name)
		key := resolutionKey{name: normName, label: cand.Label}

		id, ok := a.index[key]
		if !ok {
			id = common.DeterministicID(cand.Label, normName)
			a.index[key] = id
			a.addNode(common.Node{
				ID:           id,
				Label:        cand.Label,
				Name:         cand.Name,
				Description:  cand.Description,
				SourceChunks: []string{chunk.ID},
				Timestamp:    time.Now().UTC(),
			})
		} else {
			node := &a.nodes[a.nodeIdx[id]]
			node.SourceChunks = appendUnique(node.SourceChunks, chunk.ID)
			if node.Description == "" && cand.Description != "" {
				node.Description = cand.Description
			}
		}

		resolved[normName] = id
		if !observedSet[id] {
			observedSet[id] = true
			observed = append(observed, id)
		}
	}

	chunkNodeID := a.chunkNode[chunk.ID]
	for _, id := range observed {
		a.upsertRel(chunkNodeID, id, common.RelMentions, 1, nil)
	}

	for _, cand := range batch.Relationships {
		startID, okStart := resolved[util.NormalizeName(cand.Start)]
		endID, okEnd := resolved[util.NormalizeName(cand.End)]
		if !okStart || !okEnd {
			logger.Warn("[Assemble] Dropping relationship with unresolved endpoint",
				"chunk", chunk.ID, "start", cand.Start, "end", cand.End, "type", cand.Type)
			continue
		}
		a.upsertRel(startID, endID, cand.Type, cand.Weight, cand.Properties)
	}
}

func (a *assembler) addNode(node common.Node) {
	a.nodeIdx[node.ID] = len(a.nodes)
	a.nodes = append(a.nodes, node)
}

// upsertRel inserts a relationship or, if the (start, end, type) triple
// already exists, accumulates weight and merges properties with
// first-non-null-wins precedence.
func (a *assembler) upsertRel(startID, endID, relType string, weight float64, props map[string]any) {
	key := relKey{startID: startID, endID: endID, relType: relType}

	if existing, ok := a.rels[key]; ok {
		existing.Weight += weight
		for k, v := range props {
			if v == nil {
				continue
			}
			if cur, has := existing.Properties[k]; has && cur != nil {
				continue
			}
			if existing.Properties == nil {
				existing.Properties = make(map[string]any)
			}
			existing.Properties[k] = v
		}
		return
	}

	rel := &common.Relationship{
		StartID:    startID,
		EndID:      endID,
		Type:       relType,
		Weight:     weight,
		Timestamp:  time.Now().UTC(),
		Properties: props,
	}
	a.rels[key] = rel
	a.relOrder = append(a.relOrder, key)
}

func (a *assembler) build(novelData *common.NovelData) *common.Graph {
	runID, err := gonanoid.New()
	if err != nil {
		runID = novelData.BookID
	}

	relationships := make([]common.Relationship, 0, len(a.relOrder))
	for _, key := range a.relOrder {
		relationships = append(relationships, *a.rels[key])
	}

	labelSet := make(map[string]bool)
	for _, node := range a.nodes {
		labelSet[string(node.Label)] = true
	}
	labels := make([]string, 0, len(labelSet))
	for label := range labelSet {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	return &common.Graph{
		Metadata: common.GraphMetadata{
			RunID:              runID,
			GeneratedAt:        time.Now().UTC(),
			Book:               novelData.Title,
			Author:             novelData.Author,
			TotalNodes:         len(a.nodes),
			TotalRelationships: len(relationships),
			EntityLabels:       labels,
		},
		Nodes:         a.nodes,
		Relationships: relationships,
	}
}

// validate runs the post-assembly invariant checks. A violation here is
// an assembler defect: it aborts instead of being repaired.
func validate(graph *common.Graph, novelData *common.NovelData) error {
	ids := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if ids[node.ID] {
			return &ConsistencyError{Reason: fmt.Sprintf("duplicate node id %s", node.ID)}
		}
		ids[node.ID] = true
	}

	type edge struct {
		start, end, relType string
	}
	edges := make(map[edge]bool, len(graph.Relationships))
	for _, rel := range graph.Relationships {
		if !ids[rel.StartID] {
			return &ConsistencyError{Reason: fmt.Sprintf("relationship %s starts at missing node %s", rel.Type, rel.StartID)}
		}
		if !ids[rel.EndID] {
			return &ConsistencyError{Reason: fmt.Sprintf("relationship %s ends at missing node %s", rel.Type, rel.EndID)}
		}
		edges[edge{rel.StartID, rel.EndID, rel.Type}] = true
	}

	if !edges[edge{novelData.BookID, novelData.AuthorID, common.RelWrittenBy}] {
		return &ConsistencyError{Reason: "book is missing its WRITTEN_BY edge"}
	}
	for _, chapter := range novelData.Chapters {
		if !edges[edge{chapter.ID, novelData.BookID, common.RelPartOf}] {
			return &ConsistencyError{Reason: fmt.Sprintf("chapter %d is missing its PART_OF edge", chapter.Index)}
		}
		for _, chunk := range chapter.Chunks {
			if !edges[edge{chunk.ID, chapter.ID, common.RelPartOf}] {
				return &ConsistencyError{Reason: fmt.Sprintf("chunk %d.%d is missing its PART_OF edge", chapter.Index, chunk.Index)}
			}
		}
	}

	return nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
