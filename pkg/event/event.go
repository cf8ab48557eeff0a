package event

// DispatchEvent is the MQ envelope published after each dispatch attempt
// (worker -> MQ -> downstream consumers). Treat this as a contract (version
// it when breaking changes are required).
type DispatchEvent struct {
	Event        string `json:"event"`
	TraceID      string `json:"trace_id"`
	TS           int64  `json:"ts"` // unix seconds
	CloudType    string `json:"cloud_type"`
	Recipients   int    `json:"recipients"`
	Chunks       int    `json:"chunks"`
	Success      int    `json:"success"`
	Failure      int    `json:"failure"`
	CanonicalIDs int    `json:"canonical_ids"`
	Error        string `json:"error,omitempty"`
}

const EventDispatched = "push.dispatched"
