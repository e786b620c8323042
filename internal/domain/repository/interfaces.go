package repository

// Fetch outcomes recorded by Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

type Metrics interface {
	// RecordFetch counts one completed fetch of resource with an outcome.
	RecordFetch(resource, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	// RecordPoints tracks the size of the committed series for resource.
	RecordPoints(resource string, n int)
}
