package model

import "time"

// RunSummary describes one past crawl invocation.
type RunSummary struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	Status         string    `json:"status"`
	ProcessedCount int       `json:"processed_count"`
	CollectedIDs   int       `json:"collected_ids"`
}

// StatusReport summarizes a checkpoint for display.
type StatusReport struct {
	// Location is where the checkpoint is stored.
	Location string `json:"location"`

	// Found is false when no checkpoint exists yet.
	Found bool `json:"found"`

	// SeedTotal is the seed list length, zero when unknown.
	SeedTotal int `json:"seed_total"`

	// ProcessedCount is the resume cursor.
	ProcessedCount int `json:"processed_count"`

	// CompletedAhead counts entries finished beyond the cursor.
	CompletedAhead int `json:"completed_ahead"`

	// Remaining counts entries still to process, zero when SeedTotal is unknown.
	Remaining int `json:"remaining"`

	VisitedGroups int       `json:"visited_groups"`
	CollectedIDs  int       `json:"collected_ids"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`

	// Runs lists recent crawl runs, newest first, when the backend keeps them.
	Runs []RunSummary `json:"runs,omitempty"`
}

// NewStatusReport summarizes cp. seedTotal overrides the total recorded in
// the checkpoint when positive. A nil cp yields a report with Found unset.
func NewStatusReport(location string, cp *Checkpoint, seedTotal int) *StatusReport {
	r := &StatusReport{Location: location, SeedTotal: seedTotal}
	if cp == nil {
		if seedTotal > 0 {
			r.Remaining = seedTotal
		}
		return r
	}

	r.Found = true
	if r.SeedTotal <= 0 {
		r.SeedTotal = cp.SeedTotal
	}
	r.ProcessedCount = cp.ProcessedCount
	r.CompletedAhead = len(cp.CompletedAhead)
	r.VisitedGroups = len(cp.VisitedGroups)
	r.CollectedIDs = len(cp.CollectedIDs)
	r.UpdatedAt = cp.UpdatedAt
	if r.SeedTotal > 0 {
		r.Remaining = max(r.SeedTotal-cp.Finished(), 0)
	}
	return r
}

// Finished returns the number of recorded seed entries.
func (r *StatusReport) Finished() int {
	return r.ProcessedCount + r.CompletedAhead
}

// Complete reports whether every seed entry is recorded.
func (r *StatusReport) Complete() bool {
	return r.Found && r.SeedTotal > 0 && r.Remaining == 0
}

// PercentDone returns progress in percent, or 0 when the total is unknown.
func (r *StatusReport) PercentDone() float64 {
	if r.SeedTotal <= 0 {
		return 0
	}
	return float64(r.Finished()) * 100 / float64(r.SeedTotal)
}
