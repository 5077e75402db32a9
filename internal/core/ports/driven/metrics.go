package driven

// Outcome labels for AuthMetrics.RecordAuth
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// AuthMetrics records auth and session lifecycle events (Prometheus)
type AuthMetrics interface {
	// RecordAuth counts one protocol call, e.g. ("login", OutcomeFailure)
	RecordAuth(operation, outcome string)

	// RecordSweep counts one sweep cycle and the sessions it removed
	RecordSweep(removed int64, err error)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) RecordAuth(string, string) {}
func (NopMetrics) RecordSweep(int64, error) {}
