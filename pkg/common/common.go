package common

import "time"

// Label identifies the kind of a node in the knowledge graph.
// Structural labels (Author, Book, Chapter, Chunk) form the skeleton of
// the graph; semantic labels (Actor, Object, Location, Event, Intangible)
// are produced by extraction.
type Label string

const (
	LabelActor      Label = "Actor"
	LabelObject     Label = "Object"
	LabelLocation   Label = "Location"
	LabelEvent      Label = "Event"
	LabelIntangible Label = "Intangible"
	LabelAuthor     Label = "Author"
	LabelBook       Label = "Book"
	LabelChapter    Label = "Chapter"
	LabelChunk      Label = "Chunk"
)

// SemanticLabels lists the labels extraction is allowed to produce.
var SemanticLabels = []Label{
	LabelActor,
	LabelObject,
	LabelLocation,
	LabelEvent,
	LabelIntangible,
}

// IsSemantic reports whether l is one of the extraction-produced labels.
func (l Label) IsSemantic() bool {
	for _, s := range SemanticLabels {
		if l == s {
			return true
		}
	}
	return false
}

// Relationship types created by the assembler itself. Extraction may
// introduce additional free-form types on top of these.
const (
	RelWrittenBy  = "WRITTEN_BY"
	RelPartOf     = "PART_OF"
	RelMentions   = "MENTIONS"
	RelReferences = "REFERENCES"
)

// Node is a single node in the knowledge graph. IDs are deterministic:
// re-running the pipeline on identical input yields identical IDs.
//
// SourceChunks records provenance, the set of chunk IDs whose extraction
// contributed evidence for this node. Structural nodes keep it empty.
type Node struct {
	ID           string         `json:"id"`
	Label        Label          `json:"label"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Properties   map[string]any `json:"properties,omitempty"`
	SourceChunks []string       `json:"source_chunks,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Relationship is a directed, typed edge between two nodes. The triple
// (StartID, EndID, Type) is unique within a graph; re-observation
// accumulates into Weight instead of creating a duplicate edge.
type Relationship struct {
	StartID    string         `json:"start_id"`
	EndID      string         `json:"end_id"`
	Type       string         `json:"type"`
	Weight     float64        `json:"weight"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// GraphMetadata summarizes one assembly run.
type GraphMetadata struct {
	RunID              string    `json:"run_id"`
	GeneratedAt        time.Time `json:"generated_at"`
	Book               string    `json:"book"`
	Author             string    `json:"author"`
	TotalNodes         int       `json:"total_nodes"`
	TotalRelationships int       `json:"total_relationships"`
	EntityLabels       []string  `json:"entity_labels"`
	SkippedChunks      []string  `json:"skipped_chunks,omitempty"`
}

// Graph is the assembled knowledge graph for one book: the structural
// Book/Chapter/Chunk skeleton overlaid with the semantic entity graph.
type Graph struct {
	Metadata      GraphMetadata  `json:"metadata"`
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// Chunk is a bounded span of chapter text, the unit of extraction.
// Start and End are byte offsets into the owning chapter's text; chunk
// spans within a chapter are contiguous and non-overlapping, so
// concatenating chunk texts in index order reconstructs the chapter
// text exactly.
type Chunk struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	Index     int    `json:"index"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Text      string `json:"text"`
}

// Chapter is one chapter of a book with its ordered chunks.
// Index is 1-based.
type Chapter struct {
	ID     string  `json:"id"`
	BookID string  `json:"book_id"`
	Index  int     `json:"index"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Chunks []Chunk `json:"chunks"`
}

// NovelData is the chunked form of one input novel, produced by the
// chunker and immutable afterwards.
type NovelData struct {
	BookID   string    `json:"book_id"`
	AuthorID string    `json:"author_id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Chapters []Chapter `json:"chapters"`
}

// ChunkCount returns the total number of chunks across all chapters.
func (n *NovelData) ChunkCount() int {
	count := 0
	for _, ch := range n.Chapters {
		count += len(ch.Chunks)
	}
	return count
}
