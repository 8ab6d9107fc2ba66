package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/guildcrawl/internal/model"
)

// memStore records every saved snapshot.
type memStore struct {
	mu        sync.Mutex
	snapshots []*model.Checkpoint
	failSave  error
}

func (m *memStore) Load(context.Context) (*model.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil, ErrNoCheckpoint
	}
	return m.snapshots[len(m.snapshots)-1], nil
}

func (m *memStore) Save(_ context.Context, cp *model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.snapshots = append(m.snapshots, cp)
	return nil
}

func (m *memStore) Close() error { return nil }

func newState(t *testing.T, cp *model.Checkpoint, total int, store Store) *CrawlState {
	t.Helper()

	s, err := New(cp, total, store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	return s
}

func job(index int, name, identity string, group *model.Group) *model.SeedJob {
	j := model.NewSeedJob(index, name)
	j.Identity = identity
	j.Group = group
	return j
}

func TestCrawlState_AliceBob(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := newState(t, nil, 2, store)
	g1 := &model.Group{ID: "G1", MemberIDs: []string{"A1", "M1", "M2"}}

	alice := job(0, "alice", "A1", g1)
	if _, err := s.Commit(context.Background(), alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bob := job(1, "bob", "B1", &model.Group{ID: "G1", MemberIDs: []string{"A1", "M1", "M2", "X9"}})
	if _, err := s.Commit(context.Background(), bob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if alice.Outcome != model.OutcomeContributed {
		t.Errorf("alice: expected contributed, got %s", alice.Outcome)
	}
	if bob.Outcome != model.OutcomeDuplicateGroup {
		t.Errorf("bob: expected duplicate_group, got %s", bob.Outcome)
	}

	cp := s.Snapshot()
	if cp.ProcessedCount != 2 {
		t.Errorf("expected processed_count 2, got %d", cp.ProcessedCount)
	}
	if !slices.Equal(cp.VisitedGroups, []string{"G1"}) {
		t.Errorf("unexpected visited groups %v", cp.VisitedGroups)
	}
	if want := []string{"A1", "B1", "M1", "M2"}; !slices.Equal(cp.CollectedIDs, want) {
		t.Errorf("collected ids = %v, want %v", cp.CollectedIDs, want)
	}
	if len(store.snapshots) != 2 {
		t.Errorf("expected a checkpoint per commit, got %d", len(store.snapshots))
	}
}

func TestCrawlState_GroupAbsence(t *testing.T) {
	t.Parallel()

	s := newState(t, nil, 2, &memStore{})

	ghost := job(0, "ghost", "", nil)
	loner := job(1, "loner", "L1", nil)
	for _, j := range []*model.SeedJob{ghost, loner} {
		if _, err := s.Commit(context.Background(), j); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ghost.Outcome != model.OutcomeNoIdentity {
		t.Errorf("ghost: expected no_identity, got %s", ghost.Outcome)
	}
	if loner.Outcome != model.OutcomeNoGroup {
		t.Errorf("loner: expected no_group, got %s", loner.Outcome)
	}
	cp := s.Snapshot()
	if cp.ProcessedCount != 2 {
		t.Errorf("expected both entries counted as processed, got %d", cp.ProcessedCount)
	}
	if !slices.Equal(cp.CollectedIDs, []string{"L1"}) {
		t.Errorf("expected only the resolved identity collected, got %v", cp.CollectedIDs)
	}
	if len(cp.VisitedGroups) != 0 {
		t.Errorf("expected no visited groups, got %v", cp.VisitedGroups)
	}
}

func TestCrawlState_OutOfOrderCompletion(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := newState(t, nil, 4, store)
	ctx := context.Background()

	// Entries 2 and 1 finish before 0.
	if _, err := s.Commit(ctx, job(2, "c", "", nil)); err != nil {
		t.Fatal(err)
	}
	cp := s.Snapshot()
	if cp.ProcessedCount != 0 || !slices.Equal(cp.CompletedAhead, []int{2}) {
		t.Fatalf("after 2: got cursor %d ahead %v", cp.ProcessedCount, cp.CompletedAhead)
	}
	if got := s.Remaining(); !slices.Equal(got, []int{0, 1, 3}) {
		t.Errorf("remaining = %v, want [0 1 3]", got)
	}

	if _, err := s.Commit(ctx, job(1, "b", "", nil)); err != nil {
		t.Fatal(err)
	}
	progress, err := s.Commit(ctx, job(0, "a", "", nil))
	if err != nil {
		t.Fatal(err)
	}
	if progress.ProcessedCount != 3 || progress.Finished != 3 {
		t.Errorf("expected cursor 3 with 3 finished, got %+v", progress)
	}
	if cp := s.Snapshot(); len(cp.CompletedAhead) != 0 {
		t.Errorf("expected no entries ahead, got %v", cp.CompletedAhead)
	}

	// Every persisted cursor is monotonic.
	last := -1
	for _, snap := range store.snapshots {
		if snap.ProcessedCount < last {
			t.Errorf("cursor went backwards: %d after %d", snap.ProcessedCount, last)
		}
		last = snap.ProcessedCount
	}
}

func TestCrawlState_DuplicateCommitIsNoop(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := newState(t, nil, 3, store)
	ctx := context.Background()

	g := &model.Group{ID: "G1", MemberIDs: []string{"M1"}}
	if _, err := s.Commit(ctx, job(0, "a", "A1", g)); err != nil {
		t.Fatal(err)
	}
	again := job(0, "a", "A1", &model.Group{ID: "G2", MemberIDs: []string{"M2"}})
	if _, err := s.Commit(ctx, again); err != nil {
		t.Fatal(err)
	}
	if slices.Contains(s.Snapshot().VisitedGroups, "G2") {
		t.Error("recorded index must not be applied twice")
	}
	if len(store.snapshots) != 1 {
		t.Errorf("expected one save, got %d", len(store.snapshots))
	}
}

func TestCrawlState_Restore(t *testing.T) {
	t.Parallel()

	t.Run("cursor beyond seed list", func(t *testing.T) {
		t.Parallel()

		cp := model.NewCheckpoint()
		cp.ProcessedCount = 5
		_, err := New(cp, 3, &memStore{})
		if !errors.Is(err, ErrCursorBeyondSeeds) {
			t.Errorf("expected ErrCursorBeyondSeeds, got %v", err)
		}
	})

	t.Run("completed ahead beyond seed list", func(t *testing.T) {
		t.Parallel()

		cp := model.NewCheckpoint()
		cp.CompletedAhead = []int{7}
		_, err := New(cp, 3, &memStore{})
		if !errors.Is(err, ErrCursorBeyondSeeds) {
			t.Errorf("expected ErrCursorBeyondSeeds, got %v", err)
		}
	})

	t.Run("remaining skips recorded entries", func(t *testing.T) {
		t.Parallel()

		cp := model.NewCheckpoint()
		cp.ProcessedCount = 1
		cp.CompletedAhead = []int{3}
		cp.CollectedIDs = []string{"A1"}
		s := newState(t, cp, 5, &memStore{})

		if got := s.Remaining(); !slices.Equal(got, []int{1, 2, 4}) {
			t.Errorf("remaining = %v, want [1 2 4]", got)
		}
		if !s.Collected("A1") {
			t.Error("expected restored id to be collected")
		}
	})

	t.Run("contiguous ahead entries fold into the cursor", func(t *testing.T) {
		t.Parallel()

		cp := model.NewCheckpoint()
		cp.ProcessedCount = 1
		cp.CompletedAhead = []int{1, 2}
		s := newState(t, cp, 4, &memStore{})

		if got := s.Progress().ProcessedCount; got != 3 {
			t.Errorf("expected cursor 3, got %d", got)
		}
	})
}

func TestCrawlState_SaveFailure(t *testing.T) {
	t.Parallel()

	errDisk := errors.New("disk full")
	s := newState(t, nil, 1, &memStore{failSave: errDisk})

	_, err := s.Commit(context.Background(), job(0, "a", "", nil))
	if !errors.Is(err, errDisk) {
		t.Errorf("expected save error, got %v", err)
	}
	if err := s.Persist(context.Background()); !errors.Is(err, errDisk) {
		t.Errorf("expected save error, got %v", err)
	}
}

func TestCrawlState_KnownMemberKeepsState(t *testing.T) {
	t.Parallel()

	cp := model.NewCheckpoint()
	cp.CollectedIDs = []string{"M1"}
	cp.VisitedGroups = []string{"G1"}
	s := newState(t, cp, 1, &memStore{})

	j := job(0, "m", "M1", nil)
	j.Outcome = model.OutcomeKnownMember
	if _, err := s.Commit(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	if j.Outcome != model.OutcomeKnownMember {
		t.Errorf("expected known_member, got %s", j.Outcome)
	}
	if got := s.Snapshot(); len(got.CollectedIDs) != 1 || got.ProcessedCount != 1 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}
