package search

import (
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
)

// Monitor provides hooks to observe an invocation moving through
// idle, embedding, searching and aggregated.
// ApproachFinished is called from the fan-out goroutines and must be safe for concurrent use.
type Monitor interface {
	Start(invocationID, query string)
	EmbeddingStarted()
	SearchesStarted(approaches []approach.Approach)
	ApproachFinished(a approach.Approach, err error)
	Aggregated(outcome result.Outcome)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                            {}
func (n *noopMonitor) EmbeddingStarted()                            {}
func (n *noopMonitor) SearchesStarted(_ []approach.Approach)        {}
func (n *noopMonitor) ApproachFinished(_ approach.Approach, _ error) {}
func (n *noopMonitor) Aggregated(_ result.Outcome)                  {}
