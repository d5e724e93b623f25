package timing

import (
	"time"

	"github.com/novelgraph/novelgraph/pkg/logger"
)

// Stage starts a timer for one pipeline stage and returns a function
// that logs the elapsed time when the stage finishes.
//
// Example:
//
//	defer timing.Stage("extract")()
func Stage(name string) func() {
	start := time.Now()
	return func() {
		logger.Debug("[Timing] Stage complete",
			"stage", name,
			"duration_ms", time.Since(start).Milliseconds())
	}
}
