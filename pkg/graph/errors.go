package graph

import "fmt"

// ExtractionError reports that one chunk's extraction exhausted its
// retries. It is recovered locally: the chunk is skipped and assembly
// continues with the remaining chunks.
type ExtractionError struct {
	ChunkID string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for chunk %s: %v", e.ChunkID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// SchemaValidationError reports an extraction response that did not match
// the expected structure. It is retryable up to the same bound as other
// extraction failures.
type SchemaValidationError struct {
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return "schema validation failed: " + e.Reason
}

// ConsistencyError reports a post-assembly invariant violation. It is
// always fatal and indicates an assembler defect, never bad input; it
// must not be silently repaired.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return "graph consistency violation: " + e.Reason
}
