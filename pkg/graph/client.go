package graph

// GraphClient runs the extraction-and-assembly pipeline for one book at
// a time. It controls extraction parallelism and the retry budget for
// individual chunks.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	parallelExtractions int
	maxRetries          int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ParallelExtractions controls how many chunk extractions may be in
// flight concurrently. MaxRetries bounds the attempts per chunk before
// it is recorded as skipped.
type NewGraphClientParams struct {
	ParallelExtractions int
	MaxRetries          int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client := graph.NewGraphClient(graph.NewGraphClientParams{
//		ParallelExtractions: 4,
//		MaxRetries:          3,
//	})
func NewGraphClient(params NewGraphClientParams) *GraphClient {
	parallel := params.ParallelExtractions
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &GraphClient{
		parallelExtractions: parallel,
		maxRetries:          maxRetries,
	}
}
