package common

import "time"

// RunState is a step of the per-artifact pipeline. States only move forward;
// a run that stops early is marked RunFailed and keeps its side effects.
type RunState string

const (
	RunReceived              RunState = "received"
	RunExtracted             RunState = "extracted"
	RunAnalyzed              RunState = "analyzed"
	RunNodesGenerated        RunState = "nodes_generated"
	RunRelationshipsInferred RunState = "relationships_inferred"
	RunPersisted             RunState = "persisted"
	RunFailed                RunState = "failed"
)

var runOrder = map[RunState]int{
	RunReceived:              0,
	RunExtracted:             1,
	RunAnalyzed:              2,
	RunNodesGenerated:        3,
	RunRelationshipsInferred: 4,
	RunPersisted:             5,
}

// CanAdvance reports whether a run in state s may move to next.
// Failing is allowed from every non-terminal state.
func (s RunState) CanAdvance(next RunState) bool {
	if s == RunFailed || s == RunPersisted {
		return false
	}
	if next == RunFailed {
		return true
	}
	cur, ok := runOrder[s]
	if !ok {
		return false
	}
	n, ok := runOrder[next]
	return ok && n == cur+1
}

// Run is the ledger record of one pipeline execution, keyed by artifact id.
type Run struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	State         RunState  `json:"state"`
	FailedAt      RunState  `json:"failed_at,omitempty"`
	Simulate      bool      `json:"simulate"`
	Nodes         int       `json:"nodes"`
	Relationships int       `json:"relationships"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
