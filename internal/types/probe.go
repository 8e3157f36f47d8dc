package types

// ProbeResult is the outcome of a broker connectivity check.
type ProbeResult struct {
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}
