package models

import (
	"time"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// PipelineRun tracks one enqueued run of the full pipeline.
type PipelineRun struct {
	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Report    *RunReport `json:"report,omitempty"`
}

// RunReport summarizes one completed run.
type RunReport struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	DurationMS int64          `json:"durationMs"`
	RowCounts  map[string]int `json:"rowCounts"`
	// Rejected counts malformed raw records skipped per source entity.
	Rejected map[string]int `json:"rejected,omitempty"`
	// UnzonedOrders counts orders excluded from zone rollups because the
	// driver reference did not resolve.
	UnzonedOrders int `json:"unzonedOrders"`
}
