package model

import "time"

// SeedJob is the working record for one seed entry.
// It is created when the entry is admitted by the scheduler, filled in by
// the pipeline steps, and handed to the crawl state for commit once Done.
type SeedJob struct {
	// Index is the position of the name in the seed list.
	Index int `json:"index"`

	// Name is the seed name as read from the seed list.
	Name string `json:"name"`

	// Stage is the current workflow stage.
	Stage Stage `json:"stage"`

	// Outcome records why the job finished.
	Outcome Outcome `json:"outcome"`

	// Identity is the resolved identity; empty when the name did not resolve.
	Identity string `json:"identity,omitempty"`

	// Group is the membership lookup result; nil when absent.
	Group *Group `json:"group,omitempty"`

	// StartedAt is when the job was admitted.
	StartedAt time.Time `json:"started_at"`

	// PerformedSteps lists the names of the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewSeedJob creates a pending job for the seed at index.
func NewSeedJob(index int, name string) *SeedJob {
	return &SeedJob{
		Index:     index,
		Name:      name,
		Stage:     StagePending,
		StartedAt: time.Now(),
	}
}

// Finish moves the job to Done with the given outcome.
func (j *SeedJob) Finish(outcome Outcome) {
	j.Stage = StageDone
	j.Outcome = outcome
}

// IsDone reports whether the job reached its terminal stage.
func (j *SeedJob) IsDone() bool {
	return j.Stage == StageDone
}
