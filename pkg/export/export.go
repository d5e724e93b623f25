package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/novelgraph/novelgraph/pkg/common"
)

// ExportError reports a serialization target that could not be written.
// It is fatal and surfaced to the caller.
type ExportError struct {
	Target string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Target, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// sortedCopy returns the graph's nodes and relationships in the stable
// export order: nodes by id, relationships by (start_id, end_id, type).
// Two exports of the same graph therefore produce byte-identical output.
func sortedCopy(graph *common.Graph) ([]common.Node, []common.Relationship) {
	nodes := make([]common.Node, len(graph.Nodes))
	copy(nodes, graph.Nodes)
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})

	rels := make([]common.Relationship, len(graph.Relationships))
	copy(rels, graph.Relationships)
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.StartID != b.StartID {
			return a.StartID < b.StartID
		}
		if a.EndID != b.EndID {
			return a.EndID < b.EndID
		}
		return a.Type < b.Type
	})

	return nodes, rels
}

// JSON writes the graph as one document {metadata, nodes, relationships}
// to w, in the stable export order.
func JSON(w io.Writer, graph *common.Graph) error {
	nodes, rels := sortedCopy(graph)
	doc := common.Graph{
		Metadata:      graph.Metadata,
		Nodes:         nodes,
		Relationships: rels,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &ExportError{Target: "json", Err: err}
	}
	return nil
}

// WriteJSONFile writes the graph as a JSON document to path, creating
// parent directories as needed.
func WriteJSONFile(path string, graph *common.Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ExportError{Target: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Target: path, Err: err}
	}
	defer f.Close()

	if err := JSON(f, graph); err != nil {
		return &ExportError{Target: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ExportError{Target: path, Err: err}
	}
	return nil
}

func nodeProperties(node common.Node) (string, error) {
	props := map[string]any{
		"name":      node.Name,
		"timestamp": node.Timestamp.Format(time.RFC3339Nano),
	}
	if node.Description != "" {
		props["description"] = node.Description
	}
	if len(node.SourceChunks) > 0 {
		props["source_chunks"] = node.SourceChunks
	}
	for k, v := range node.Properties {
		props[k] = v
	}
	encoded, err := json.Marshal(props)
	return string(encoded), err
}

func relProperties(rel common.Relationship) (string, error) {
	props := map[string]any{
		"weight":    rel.Weight,
		"timestamp": rel.Timestamp.Format(time.RFC3339Nano),
	}
	for k, v := range rel.Properties {
		props[k] = v
	}
	encoded, err := json.Marshal(props)
	return string(encoded), err
}

// CSV writes the graph as two record sets in the bulk-import format:
// nodes with columns id/labels/properties and relationships with columns
// start_id/end_id/type/properties, properties serialized as embedded
// JSON text. Output order matches the stable export order.
func CSV(nodesW, relsW io.Writer, graph *common.Graph) error {
	nodes, rels := sortedCopy(graph)

	nw := csv.NewWriter(nodesW)
	if err := nw.Write([]string{"id", "labels", "properties"}); err != nil {
		return &ExportError{Target: "nodes.csv", Err: err}
	}
	for _, node := range nodes {
		props, err := nodeProperties(node)
		if err != nil {
			return &ExportError{Target: "nodes.csv", Err: err}
		}
		if err := nw.Write([]string{node.ID, string(node.Label), props}); err != nil {
			return &ExportError{Target: "nodes.csv", Err: err}
		}
	}
	nw.Flush()
	if err := nw.Error(); err != nil {
		return &ExportError{Target: "nodes.csv", Err: err}
	}

	rw := csv.NewWriter(relsW)
	if err := rw.Write([]string{"start_id", "end_id", "type", "properties"}); err != nil {
		return &ExportError{Target: "relationships.csv", Err: err}
	}
	for _, rel := range rels {
		props, err := relProperties(rel)
		if err != nil {
			return &ExportError{Target: "relationships.csv", Err: err}
		}
		if err := rw.Write([]string{rel.StartID, rel.EndID, rel.Type, props}); err != nil {
			return &ExportError{Target: "relationships.csv", Err: err}
		}
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return &ExportError{Target: "relationships.csv", Err: err}
	}

	return nil
}

// WriteCSVFiles writes nodes.csv and relationships.csv into dir,
// creating it as needed.
func WriteCSVFiles(dir string, graph *common.Graph) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &ExportError{Target: dir, Err: err}
	}

	nodesPath := filepath.Join(dir, "nodes.csv")
	nodesFile, err := os.Create(nodesPath)
	if err != nil {
		return &ExportError{Target: nodesPath, Err: err}
	}
	defer nodesFile.Close()

	relsPath := filepath.Join(dir, "relationships.csv")
	relsFile, err := os.Create(relsPath)
	if err != nil {
		return &ExportError{Target: relsPath, Err: err}
	}
	defer relsFile.Close()

	if err := CSV(nodesFile, relsFile, graph); err != nil {
		return err
	}
	if err := nodesFile.Close(); err != nil {
		return &ExportError{Target: nodesPath, Err: err}
	}
	if err := relsFile.Close(); err != nil {
		return &ExportError{Target: relsPath, Err: err}
	}
	return nil
}

// MemgraphImportCommands returns the Cypher commands that load a graph
// JSON document produced by WriteJSONFile into Memgraph.
func MemgraphImportCommands(graphPath string) string {
	return fmt.Sprintf(`// Import nodes from JSON
CALL json.load_from_file('%[1]s') YIELD value
UNWIND value.nodes AS node
CREATE (n)
SET n = coalesce(node.properties, {})
SET n.id = node.id
SET n.name = node.name
SET n.description = node.description
SET n.timestamp = node.timestamp
WITH n, node
CALL apoc.create.addLabels(n, [node.label]) YIELD node AS labeled_node
RETURN labeled_node;

// Import relationships from JSON
CALL json.load_from_file('%[1]s') YIELD value
UNWIND value.relationships AS rel
MATCH (start {id: rel.start_id}), (end {id: rel.end_id})
CALL apoc.create.relationship(start, rel.type,
    {weight: rel.weight, timestamp: rel.timestamp} + coalesce(rel.properties, {}), end)
YIELD rel AS created_rel
RETURN created_rel;
`, graphPath)
}
