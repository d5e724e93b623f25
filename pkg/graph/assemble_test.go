package graph

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/novelgraph/novelgraph/pkg/common"
)

// testNovel builds a two-chapter book with one chunk per chapter.
func testNovel() *common.NovelData {
	title := "Tom Sawyer"
	author := "Mark Twain"

	data := &common.NovelData{
		BookID:   common.DeterministicID(common.LabelBook, title),
		AuthorID: common.DeterministicID(common.LabelAuthor, author),
		Title:    title,
		Author:   author,
	}

	texts := []struct {
		title string
		body  string
	}{
		{title: "Chapter 1", body: "Tom went fishing. Huck joined him."},
		{title: "Chapter 2", body: "They found treasure."},
	}

	for i, ct := range texts {
		chapterIndex := i + 1
		chapter := common.Chapter{
			ID:     common.ChapterID(title, chapterIndex),
			BookID: data.BookID,
			Index:  chapterIndex,
			Title:  ct.title,
			Text:   ct.body,
		}
		chapter.Chunks = append(chapter.Chunks, common.Chunk{
			ID:        common.ChunkID(title, chapterIndex, 1),
			ChapterID: chapter.ID,
			Index:     1,
			Start:     0,
			End:       len(ct.body),
			Text:      ct.body,
		})
		data.Chapters = append(data.Chapters, chapter)
	}

	return data
}

func findNode(t *testing.T, graph *common.Graph, label common.Label, name string) *common.Node {
	t.Helper()
	for i := range graph.Nodes {
		if graph.Nodes[i].Label == label && graph.Nodes[i].Name == name {
			return &graph.Nodes[i]
		}
	}
	t.Fatalf("node %s %q not found in graph", label, name)
	return nil
}

func findRel(graph *common.Graph, startID, endID, relType string) *common.Relationship {
	for i := range graph.Relationships {
		rel := &graph.Relationships[i]
		if rel.StartID == startID && rel.EndID == endID && rel.Type == relType {
			return rel
		}
	}
	return nil
}

func TestAssembleStructureOnly(t *testing.T) {
	data := testNovel()

	graph, err := Assemble(data, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	// author + book + 2 chapters + 2 chunks
	if got := len(graph.Nodes); got != 6 {
		t.Fatalf("nodes = %d, want 6", got)
	}
	// WRITTEN_BY + 2 chapter PART_OF + 2 chunk PART_OF
	if got := len(graph.Relationships); got != 5 {
		t.Fatalf("relationships = %d, want 5", got)
	}

	if findRel(graph, data.BookID, data.AuthorID, common.RelWrittenBy) == nil {
		t.Errorf("missing WRITTEN_BY edge")
	}
	for _, chapter := range data.Chapters {
		if findRel(graph, chapter.ID, data.BookID, common.RelPartOf) == nil {
			t.Errorf("chapter %d missing PART_OF edge", chapter.Index)
		}
		for _, chunk := range chapter.Chunks {
			if findRel(graph, chunk.ID, chapter.ID, common.RelPartOf) == nil {
				t.Errorf("chunk %d.%d missing PART_OF edge", chapter.Index, chunk.Index)
			}
		}
	}

	wantLabels := []string{"Author", "Book", "Chapter", "Chunk"}
	if !reflect.DeepEqual(graph.Metadata.EntityLabels, wantLabels) {
		t.Errorf("metadata labels = %v, want %v", graph.Metadata.EntityLabels, wantLabels)
	}
	if graph.Metadata.TotalNodes != len(graph.Nodes) {
		t.Errorf("metadata total nodes = %d, want %d", graph.Metadata.TotalNodes, len(graph.Nodes))
	}
	if graph.Metadata.RunID == "" {
		t.Errorf("metadata run id is empty")
	}
}

func TestAssembleResolvesNameVariants(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]
	chunk2 := data.Chapters[1].Chunks[0]

	batches := map[string]*Batch{
		chunk1.ID: {
			ChunkID: chunk1.ID,
			Nodes: []CandidateNode{
				{Label: common.LabelActor, Name: "Tom Sawyer"},
			},
		},
		chunk2.ID: {
			ChunkID: chunk2.ID,
			Nodes: []CandidateNode{
				{Label: common.LabelActor, Name: "tom  sawyer", Description: "a boy from St. Petersburg"},
			},
		},
	}

	graph, err := Assemble(data, batches)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	var actors []common.Node
	for _, node := range graph.Nodes {
		if node.Label == common.LabelActor {
			actors = append(actors, node)
		}
	}
	if len(actors) != 1 {
		t.Fatalf("actor nodes = %d, want 1 (name variants not merged)", len(actors))
	}

	tom := actors[0]
	if tom.Name != "Tom Sawyer" {
		t.Errorf("name = %q, want first-seen casing %q", tom.Name, "Tom Sawyer")
	}
	if tom.Description != "a boy from St. Petersburg" {
		t.Errorf("description = %q, want later non-empty description adopted", tom.Description)
	}
	wantChunks := []string{chunk1.ID, chunk2.ID}
	if !reflect.DeepEqual(tom.SourceChunks, wantChunks) {
		t.Errorf("source chunks = %v, want %v", tom.SourceChunks, wantChunks)
	}

	for _, id := range wantChunks {
		rel := findRel(graph, id, tom.ID, common.RelMentions)
		if rel == nil {
			t.Errorf("missing MENTIONS edge from chunk %s", id)
			continue
		}
		if rel.Weight != 1 {
			t.Errorf("MENTIONS weight = %v, want 1", rel.Weight)
		}
	}
}

func TestAssembleAccumulatesRelationshipWeight(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]
	chunk2 := data.Chapters[1].Chunks[0]

	nodes := []CandidateNode{
		{Label: common.LabelActor, Name: "Tom"},
		{Label: common.LabelActor, Name: "Huck"},
	}
	batches := map[string]*Batch{
		chunk1.ID: {
			ChunkID: chunk1.ID,
			Nodes:   nodes,
			Relationships: []CandidateRelationship{
				{Start: "Tom", End: "Huck", Type: "FRIEND_OF", Weight: 2,
					Properties: map[string]any{"evidence": "went fishing together"}},
			},
		},
		chunk2.ID: {
			ChunkID: chunk2.ID,
			Nodes:   nodes,
			Relationships: []CandidateRelationship{
				{Start: "Tom", End: "Huck", Type: "FRIEND_OF", Weight: 3,
					Properties: map[string]any{"evidence": "found treasure together", "mood": "jubilant"}},
				{Start: "Huck", End: "Tom", Type: "FRIEND_OF", Weight: 1},
			},
		},
	}

	graph, err := Assemble(data, batches)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	tom := findNode(t, graph, common.LabelActor, "Tom")
	huck := findNode(t, graph, common.LabelActor, "Huck")

	forward := findRel(graph, tom.ID, huck.ID, "FRIEND_OF")
	if forward == nil {
		t.Fatalf("missing Tom->Huck FRIEND_OF edge")
	}
	if forward.Weight != 5 {
		t.Errorf("accumulated weight = %v, want 5", forward.Weight)
	}
	if got := forward.Properties["evidence"]; got != "went fishing together" {
		t.Errorf("evidence = %v, want first value kept", got)
	}
	if got := forward.Properties["mood"]; got != "jubilant" {
		t.Errorf("mood = %v, want later key added", got)
	}

	reverse := findRel(graph, huck.ID, tom.ID, "FRIEND_OF")
	if reverse == nil {
		t.Fatalf("missing Huck->Tom FRIEND_OF edge (direction collapsed)")
	}
	if reverse.Weight != 1 {
		t.Errorf("reverse weight = %v, want 1", reverse.Weight)
	}
}

func TestAssembleDropsUnresolvedEndpoints(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]

	batches := map[string]*Batch{
		chunk1.ID: {
			ChunkID: chunk1.ID,
			Nodes: []CandidateNode{
				{Label: common.LabelActor, Name: "Tom"},
			},
			Relationships: []CandidateRelationship{
				{Start: "Tom", End: "Becky", Type: "ADMIRES", Weight: 4},
			},
		},
	}

	graph, err := Assemble(data, batches)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	for _, rel := range graph.Relationships {
		if rel.Type == "ADMIRES" {
			t.Fatalf("relationship with unresolved endpoint was not dropped")
		}
	}
}

func TestAssembleDeduplicatesMentionsWithinBatch(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]

	batches := map[string]*Batch{
		chunk1.ID: {
			ChunkID: chunk1.ID,
			Nodes: []CandidateNode{
				{Label: common.LabelActor, Name: "Tom"},
				{Label: common.LabelActor, Name: "TOM"},
			},
		},
	}

	graph, err := Assemble(data, batches)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	tom := findNode(t, graph, common.LabelActor, "Tom")
	rel := findRel(graph, chunk1.ID, tom.ID, common.RelMentions)
	if rel == nil {
		t.Fatalf("missing MENTIONS edge")
	}
	if rel.Weight != 1 {
		t.Errorf("MENTIONS weight = %v, want 1 per chunk regardless of repeat mentions", rel.Weight)
	}
	if got := len(tom.SourceChunks); got != 1 {
		t.Errorf("source chunks = %d, want 1", got)
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	data := testNovel()
	chunk1 := data.Chapters[0].Chunks[0]
	chunk2 := data.Chapters[1].Chunks[0]

	batches := map[string]*Batch{
		chunk1.ID: {
			ChunkID: chunk1.ID,
			Nodes: []CandidateNode{
				{Label: common.LabelActor, Name: "Tom"},
				{Label: common.LabelLocation, Name: "the river"},
			},
			Relationships: []CandidateRelationship{
				{Start: "Tom", End: "the river", Type: "VISITS", Weight: 1},
			},
		},
		chunk2.ID: {
			ChunkID: chunk2.ID,
			Nodes: []CandidateNode{
				{Label: common.LabelObject, Name: "treasure"},
				{Label: common.LabelActor, Name: "Tom"},
			},
		},
	}

	first, err := Assemble(data, batches)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	second, err := Assemble(data, batches)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	firstIDs := nodeIDs(first)
	secondIDs := nodeIDs(second)
	if !reflect.DeepEqual(firstIDs, secondIDs) {
		t.Errorf("node order differs across runs:\nfirst  %v\nsecond %v", firstIDs, secondIDs)
	}

	if len(first.Relationships) != len(second.Relationships) {
		t.Fatalf("relationship counts differ: %d vs %d", len(first.Relationships), len(second.Relationships))
	}
	for i := range first.Relationships {
		a, b := first.Relationships[i], second.Relationships[i]
		if a.StartID != b.StartID || a.EndID != b.EndID || a.Type != b.Type {
			t.Errorf("relationship %d differs across runs: %v vs %v", i, a, b)
		}
	}
}

func nodeIDs(graph *common.Graph) []string {
	ids := make([]string, 0, len(graph.Nodes))
	for _, node := range graph.Nodes {
		ids = append(ids, node.ID)
	}
	return ids
}

func TestValidateDetectsViolations(t *testing.T) {
	data := testNovel()
	now := time.Now().UTC()

	base := func() *common.Graph {
		graph, err := Assemble(data, nil)
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		return graph
	}

	tests := []struct {
		name   string
		mutate func(g *common.Graph)
	}{
		{
			name: "duplicate node id",
			mutate: func(g *common.Graph) {
				g.Nodes = append(g.Nodes, g.Nodes[0])
			},
		},
		{
			name: "dangling relationship endpoint",
			mutate: func(g *common.Graph) {
				g.Relationships = append(g.Relationships, common.Relationship{
					StartID: g.Nodes[0].ID, EndID: "missing", Type: "BROKEN", Weight: 1, Timestamp: now,
				})
			},
		},
		{
			name: "missing authorship edge",
			mutate: func(g *common.Graph) {
				kept := g.Relationships[:0]
				for _, rel := range g.Relationships {
					if rel.Type != common.RelWrittenBy {
						kept = append(kept, rel)
					}
				}
				g.Relationships = kept
			},
		},
		{
			name: "missing chunk containment edge",
			mutate: func(g *common.Graph) {
				kept := g.Relationships[:0]
				for _, rel := range g.Relationships {
					if rel.StartID != data.Chapters[0].Chunks[0].ID || rel.Type != common.RelPartOf {
						kept = append(kept, rel)
					}
				}
				g.Relationships = kept
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := base()
			tt.mutate(graph)
			err := validate(graph, data)
			var consistency *ConsistencyError
			if !errors.As(err, &consistency) {
				t.Fatalf("validate() error = %v, want *ConsistencyError", err)
			}
		})
	}
}
