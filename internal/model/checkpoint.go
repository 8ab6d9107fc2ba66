package model

import (
	"slices"
	"time"
)

// Checkpoint is a complete, durable snapshot of crawl progress.
// Every persisted checkpoint is self-consistent: a crawl restarted from it
// resumes exactly where the snapshot says it stopped.
type Checkpoint struct {
	// ProcessedCount is the resume cursor. Every seed entry below it has been
	// fully handled and recorded.
	ProcessedCount int `json:"processed_count"`

	// VisitedGroups holds the ids of groups already expanded, sorted.
	VisitedGroups []string `json:"visited_groups"`

	// CollectedIDs holds every identity and member id discovered, sorted.
	CollectedIDs []string `json:"collected_ids"`

	// CompletedAhead holds indexes at or beyond ProcessedCount whose entries
	// finished out of order, sorted ascending.
	CompletedAhead []int `json:"completed_ahead,omitempty"`

	// SeedTotal is the length of the seed list this checkpoint was taken against.
	SeedTotal int `json:"seed_total,omitempty"`

	// UpdatedAt is when the checkpoint was taken.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint returns an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		VisitedGroups: []string{},
		CollectedIDs:  []string{},
	}
}

// Finished returns the number of seed entries recorded as handled,
// counting both the contiguous prefix and the out-of-order completions.
func (c *Checkpoint) Finished() int {
	return c.ProcessedCount + len(c.CompletedAhead)
}

// IsCompletedAhead reports whether index finished out of order.
func (c *Checkpoint) IsCompletedAhead(index int) bool {
	_, found := slices.BinarySearch(c.CompletedAhead, index)
	return found
}

// Normalize sorts the set fields and replaces nil slices with empty ones so
// that two equal checkpoints serialize identically.
func (c *Checkpoint) Normalize() {
	if c.VisitedGroups == nil {
		c.VisitedGroups = []string{}
	}
	if c.CollectedIDs == nil {
		c.CollectedIDs = []string{}
	}
	slices.Sort(c.VisitedGroups)
	slices.Sort(c.CollectedIDs)
	slices.Sort(c.CompletedAhead)
}
