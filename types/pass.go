package types

import "time"

// PassResult summarises one deduplication pass over the stored corpus.
type PassResult struct {
	RunID     string        `json:"run_id"`
	Strategy  string        `json:"strategy"`
	Threshold float64       `json:"threshold"`
	Total     int           `json:"total"`
	Deleted   []string      `json:"deleted"`
	Survivors int           `json:"survivors"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// IngestResult summarises one ingestion run.
type IngestResult struct {
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	BySource map[string]int `json:"by_source,omitempty"`
}

// IngestEvent is published once new articles have been appended to the store.
// Consumers treat it as a request to run a deduplication pass.
type IngestEvent struct {
	Inserted int       `json:"inserted"`
	At       time.Time `json:"at"`
}
