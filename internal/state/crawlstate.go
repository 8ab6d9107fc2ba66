package state

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/guildcrawl/internal/metrics"
	"github.com/nao1215/guildcrawl/internal/model"
)

// Progress summarizes the state right after a commit.
type Progress struct {
	// Finished counts recorded seed entries: the cursor plus the entries
	// completed ahead of it.
	Finished int

	// Total is the seed list length.
	Total int

	// ProcessedCount is the resume cursor.
	ProcessedCount int

	// VisitedGroups and CollectedIDs are the current set sizes.
	VisitedGroups int
	CollectedIDs  int
}

// CrawlState is the mutex-guarded crawl progress.
type CrawlState struct {
	mu        sync.Mutex
	processed int
	visited   map[string]struct{}
	collected map[string]struct{}
	ahead     map[int]struct{}
	seedTotal int

	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a CrawlState.
type Option func(*CrawlState)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *CrawlState) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CrawlState) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New restores crawl progress from cp for a seed list of seedTotal entries.
// A nil cp starts empty. It fails with ErrCursorBeyondSeeds when cp cannot
// belong to the seed list.
func New(cp *model.Checkpoint, seedTotal int, store Store, opts ...Option) (*CrawlState, error) {
	if cp == nil {
		cp = model.NewCheckpoint()
	}
	if cp.ProcessedCount > seedTotal {
		return nil, fmt.Errorf("%w: processed_count %d, seed list has %d entries",
			ErrCursorBeyondSeeds, cp.ProcessedCount, seedTotal)
	}

	s := &CrawlState{
		processed: cp.ProcessedCount,
		visited:   toSet(cp.VisitedGroups),
		collected: toSet(cp.CollectedIDs),
		ahead:     make(map[int]struct{}, len(cp.CompletedAhead)),
		seedTotal: seedTotal,
		store:     store,
		logger:    slog.Default(),
		metrics:   metrics.Discard(),
	}
	for _, idx := range cp.CompletedAhead {
		if idx >= seedTotal {
			return nil, fmt.Errorf("%w: completed entry %d, seed list has %d entries",
				ErrCursorBeyondSeeds, idx, seedTotal)
		}
		if idx >= s.processed {
			s.ahead[idx] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.advance()
	return s, nil
}

// Remaining returns the seed indexes that still need processing, in order.
func (s *CrawlState) Remaining() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]int, 0, s.seedTotal-s.processed)
	for i := s.processed; i < s.seedTotal; i++ {
		if _, done := s.ahead[i]; !done {
			remaining = append(remaining, i)
		}
	}
	return remaining
}

// Collected reports whether id has already been collected.
func (s *CrawlState) Collected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.collected[id]
	return ok
}

// Commit merges a finished job into the state, advances the cursor and
// persists a full snapshot, all as one critical section.
//
// Every resolved identity is collected, with or without a group. Group
// deduplication is decided here: a job carrying a group that is already
// visited finishes as OutcomeDuplicateGroup and contributes only its own
// identity. The job's Stage and Outcome are updated in place.
//
// Committing an index that is already recorded is a no-op.
func (s *CrawlState) Commit(ctx context.Context, job *model.SeedJob) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorded(job.Index) {
		return s.progress(), nil
	}

	job.Stage = model.StageUpdating
	s.apply(job)
	s.markFinished(job.Index)

	start := time.Now()
	if err := s.store.Save(ctx, s.snapshot()); err != nil {
		return s.progress(), fmt.Errorf("failed to persist checkpoint after %q: %w", job.Name, err)
	}
	s.metrics.ObserveCommit(job.Outcome.String(), len(s.visited), len(s.collected), time.Since(start))

	return s.progress(), nil
}

// Persist saves the current snapshot.
func (s *CrawlState) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, s.snapshot()); err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *CrawlState) Snapshot() *model.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Progress returns the current counters.
func (s *CrawlState) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress()
}

// apply merges the job's results. Caller holds mu.
func (s *CrawlState) apply(job *model.SeedJob) {
	if job.Identity == "" {
		job.Finish(model.OutcomeNoIdentity)
		return
	}
	if job.Outcome == model.OutcomeKnownMember {
		job.Finish(model.OutcomeKnownMember)
		return
	}

	s.collected[job.Identity] = struct{}{}

	if job.Group == nil {
		job.Finish(model.OutcomeNoGroup)
		return
	}
	if _, seen := s.visited[job.Group.ID]; seen {
		s.logger.Info("skipped duplicate group", "name", job.Name, "group", job.Group.ID)
		job.Finish(model.OutcomeDuplicateGroup)
		return
	}

	s.visited[job.Group.ID] = struct{}{}
	for _, id := range job.Group.MemberIDs {
		s.collected[id] = struct{}{}
	}
	job.Finish(model.OutcomeContributed)
}

// recorded reports whether index is already accounted for. Caller holds mu.
func (s *CrawlState) recorded(index int) bool {
	if index < s.processed {
		return true
	}
	_, ok := s.ahead[index]
	return ok
}

// markFinished records index and advances the cursor. Caller holds mu.
func (s *CrawlState) markFinished(index int) {
	s.ahead[index] = struct{}{}
	s.advance()
}

// advance moves the cursor across completed entries. Caller holds mu.
func (s *CrawlState) advance() {
	for {
		if _, ok := s.ahead[s.processed]; !ok {
			return
		}
		delete(s.ahead, s.processed)
		s.processed++
	}
}

// snapshot builds a checkpoint. Caller holds mu.
func (s *CrawlState) snapshot() *model.Checkpoint {
	cp := &model.Checkpoint{
		ProcessedCount: s.processed,
		VisitedGroups:  slices.Collect(maps.Keys(s.visited)),
		CollectedIDs:   slices.Collect(maps.Keys(s.collected)),
		CompletedAhead: slices.Collect(maps.Keys(s.ahead)),
		SeedTotal:      s.seedTotal,
		UpdatedAt:      time.Now().UTC(),
	}
	cp.Normalize()
	return cp
}

// progress builds the counters. Caller holds mu.
func (s *CrawlState) progress() Progress {
	return Progress{
		Finished:       s.processed + len(s.ahead),
		Total:          s.seedTotal,
		ProcessedCount: s.processed,
		VisitedGroups:  len(s.visited),
		CollectedIDs:   len(s.collected),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
