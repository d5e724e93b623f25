package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelgraph/novelgraph/pkg/ai"
	"github.com/novelgraph/novelgraph/pkg/common"
)

type extractNode struct {
	Label       string `json:"label" jsonschema:"enum=Actor,enum=Object,enum=Location,enum=Event,enum=Intangible" jsonschema_description:"One of the allowed entity labels"`
	Name        string `json:"name" jsonschema_description:"Name of the entity as it appears in the text, most complete form"`
	Description string `json:"description" jsonschema_description:"Short description of what this chunk says about the entity, may be empty"`
}

type extractRelationship struct {
	Start  string  `json:"start" jsonschema_description:"Name of the start entity, exactly as listed in nodes"`
	End    string  `json:"end" jsonschema_description:"Name of the end entity, exactly as listed in nodes"`
	Type   string  `json:"type" jsonschema_description:"UPPER_SNAKE_CASE relationship type"`
	Weight float64 `json:"weight" jsonschema_description:"Strength of the evidence for this relationship, 1 to 10"`
}

type extractResponse struct {
	Nodes         []extractNode         `json:"nodes" jsonschema_description:"Entities identified in the chunk"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships between the identified entities"`
}

// CandidateNode is one entity proposed by extraction for a single chunk,
// not yet resolved against the running graph.
type CandidateNode struct {
	Label       common.Label
	Name        string
	Description string
}

// CandidateRelationship is one edge proposed by extraction, with
// endpoints referenced by candidate node name.
type CandidateRelationship struct {
	Start      string
	End        string
	Type       string
	Weight     float64
	Properties map[string]any
}

// Batch is the validated extraction output for one chunk.
type Batch struct {
	ChunkID       string
	Nodes         []CandidateNode
	Relationships []CandidateRelationship
}

// ChunkContext carries the surrounding book and chapter metadata sent
// along with a chunk so the model can disambiguate entity mentions
// consistently within one book.
type ChunkContext struct {
	Author       string
	Book         string
	ChapterTitle string
	ChapterIndex int
	ChunkIndex   int
}

// ExtractFromChunk sends one chunk's text plus its context to the model
// and returns the validated candidate batch. The adapter is stateless
// across chunks; a response that does not match the expected schema is
// reported as a *SchemaValidationError so callers can retry it.
func ExtractFromChunk(
	ctx context.Context,
	chunk common.Chunk,
	chunkCtx ChunkContext,
	client ai.GraphAIClient,
) (*Batch, error) {
	labels := make([]string, 0, len(common.SemanticLabels))
	for _, l := range common.SemanticLabels {
		labels = append(labels, string(l))
	}
	labelList := strings.Join(labels, ", ")

	contextBlock := fmt.Sprintf(
		ai.ChunkContextPrompt,
		chunkCtx.Author,
		chunkCtx.Book,
		chunkCtx.ChapterTitle,
		chunkCtx.ChapterIndex,
		chunkCtx.ChunkIndex,
	)
	systemPrompt := fmt.Sprintf(ai.ExtractPrompt, labelList, contextBlock, labelList, labelList)

	var res extractResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"extract_literary_graph",
		"Extract entities and relationships from a chunk of a novel.",
		chunk.Text,
		&res,
		ai.WithSystemPrompts(systemPrompt),
	)
	if err != nil {
		return nil, err
	}

	return validateResponse(chunk.ID, &res)
}

// validateResponse checks the raw model output against the extraction
// contract and converts it into a Batch. Relationship endpoints are not
// resolved here; the assembler drops unresolvable ones with a warning.
func validateResponse(chunkID string, res *extractResponse) (*Batch, error) {
	batch := &Batch{ChunkID: chunkID}

	for i, n := range res.Nodes {
		label := common.Label(strings.TrimSpace(n.Label))
		if !label.IsSemantic() {
			return nil, &SchemaValidationError{
				Reason: fmt.Sprintf("node %d has unknown label %q", i, n.Label),
			}
		}
		name := strings.TrimSpace(n.Name)
		if name == "" {
			return nil, &SchemaValidationError{
				Reason: fmt.Sprintf("node %d has an empty name", i),
			}
		}
		batch.Nodes = append(batch.Nodes, CandidateNode{
			Label:       label,
			Name:        name,
			Description: strings.TrimSpace(n.Description),
		})
	}

	for i, r := range res.Relationships {
		start := strings.TrimSpace(r.Start)
		end := strings.TrimSpace(r.End)
		relType := strings.TrimSpace(r.Type)
		if start == "" || end == "" {
			return nil, &SchemaValidationError{
				Reason: fmt.Sprintf("relationship %d is missing an endpoint name", i),
			}
		}
		if relType == "" {
			return nil, &SchemaValidationError{
				Reason: fmt.Sprintf("relationship %d is missing a type", i),
			}
		}
		weight := r.Weight
		if weight <= 0 {
			weight = 1
		}
		batch.Relationships = append(batch.Relationships, CandidateRelationship{
			Start:  start,
			End:    end,
			Type:   relType,
			Weight: weight,
		})
	}

	return batch, nil
}
