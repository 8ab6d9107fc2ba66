package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/guildcrawl/internal/apitest"
	"github.com/nao1215/guildcrawl/internal/fetch"
	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/ratelimit"
	"github.com/nao1215/guildcrawl/internal/resolver"
	"github.com/nao1215/guildcrawl/internal/state"
)

// crawlFixture wires a scheduler against a fake API.
type crawlFixture struct {
	scheduler *Scheduler
	state     *state.CrawlState
	store     *state.FileStore
	outcomes  *outcomeRecorder
}

// outcomeRecorder commits through a CrawlState and keeps each job's outcome.
type outcomeRecorder struct {
	next Committer

	mu       sync.Mutex
	outcomes map[string]model.Outcome
}

func (r *outcomeRecorder) Commit(ctx context.Context, job *model.SeedJob) (state.Progress, error) {
	progress, err := r.next.Commit(ctx, job)
	if err == nil {
		r.mu.Lock()
		r.outcomes[job.Name] = job.Outcome
		r.mu.Unlock()
	}
	return progress, err
}

func (r *outcomeRecorder) outcome(name string) model.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[name]
}

func newCrawlFixture(t *testing.T, api *apitest.Server, seeds []string, workers, threshold int) *crawlFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	policy := fetch.DefaultPolicy()
	policy.Backoff = time.Millisecond
	policy.ThrottleThreshold = threshold
	fetcher, err := fetch.New(nil, policy, fetch.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	identityLimiter, err := ratelimit.New("identity", 10000, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	membershipLimiter, err := ratelimit.New("membership", 10000, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	identity, err := resolver.NewIdentityResolver(fetcher, identityLimiter, api.IdentityEndpoint(), logger)
	if err != nil {
		t.Fatal(err)
	}
	membership, err := resolver.NewMembershipResolver(fetcher, membershipLimiter, api.MembershipEndpoint(), "", logger)
	if err != nil {
		t.Fatal(err)
	}

	store, err := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	st, err := state.New(nil, len(seeds), store, state.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	outcomes := &outcomeRecorder{next: st, outcomes: map[string]model.Outcome{}}
	scheduler := NewScheduler(func() *Pipeline {
		return DefaultPipeline(identity, membership, st, logger)
	}, outcomes, WithConcurrency(workers), WithSchedulerLogger(logger))

	return &crawlFixture{scheduler: scheduler, state: st, store: store, outcomes: outcomes}
}

func (f *crawlFixture) run(t *testing.T, ctx context.Context, seeds []string) error {
	t.Helper()
	return f.scheduler.Run(ctx, seeds, f.state.Remaining())
}

func TestScheduler_AliceBob(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("W=%d", workers), func(t *testing.T) {
			t.Parallel()

			api := apitest.New(t)
			api.AddPlayer("alice", "A1", &apitest.Group{ID: "G1", Members: []string{"A1", "M1", "M2"}})
			api.AddPlayer("bob", "B1", &apitest.Group{ID: "G1", Members: []string{"A1", "M1", "M2"}})

			seeds := []string{"alice", "bob"}
			f := newCrawlFixture(t, api, seeds, workers, 50)
			if err := f.run(t, context.Background(), seeds); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			cp := f.state.Snapshot()
			if !slices.Equal(cp.VisitedGroups, []string{"G1"}) {
				t.Errorf("visited groups = %v, want [G1]", cp.VisitedGroups)
			}
			if want := []string{"A1", "B1", "M1", "M2"}; !slices.Equal(cp.CollectedIDs, want) {
				t.Errorf("collected ids = %v, want %v", cp.CollectedIDs, want)
			}
			if cp.ProcessedCount != 2 {
				t.Errorf("expected processed_count 2, got %d", cp.ProcessedCount)
			}

			// G1 is expanded by exactly one of the two seeds.
			alice, bob := f.outcomes.outcome("alice"), f.outcomes.outcome("bob")
			if (alice == model.OutcomeContributed) == (bob == model.OutcomeContributed) {
				t.Errorf("expected exactly one contributing seed, got alice=%s bob=%s", alice, bob)
			}
			if calls := api.TotalMembershipCalls(); calls > 2 {
				t.Errorf("expected at most 2 membership calls, got %d", calls)
			}
			if workers == 1 {
				if alice != model.OutcomeContributed || bob != model.OutcomeDuplicateGroup {
					t.Errorf("expected alice=contributed bob=duplicate_group, got alice=%s bob=%s", alice, bob)
				}
				if calls := api.TotalMembershipCalls(); calls != 2 {
					t.Errorf("expected 2 membership calls, got %d", calls)
				}
			}

			saved, err := f.store.Load(context.Background())
			if err != nil {
				t.Fatalf("failed to load checkpoint: %v", err)
			}
			if saved.ProcessedCount != 2 || len(saved.CollectedIDs) != 4 {
				t.Errorf("unexpected saved checkpoint %+v", saved)
			}
		})
	}
}

func TestScheduler_GhostHardFailure(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	api.FailIdentity("ghost", http.StatusInternalServerError)

	seeds := []string{"ghost"}
	f := newCrawlFixture(t, api, seeds, 1, 50)
	if err := f.run(t, context.Background(), seeds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls := api.IdentityCalls("ghost"); calls != 1 {
		t.Errorf("expected no retry, got %d identity calls", calls)
	}
	cp := f.state.Snapshot()
	if cp.ProcessedCount != 1 {
		t.Errorf("expected ghost counted as processed, got %d", cp.ProcessedCount)
	}
	if len(cp.CollectedIDs) != 0 {
		t.Errorf("expected no identity recorded, got %v", cp.CollectedIDs)
	}
}

// graphAPI builds a fake API with players spread over groups and a few
// names that do not resolve.
func graphAPI(t *testing.T) (*apitest.Server, []string) {
	t.Helper()

	api := apitest.New(t)
	var seeds []string
	for g := range 6 {
		group := apitest.Group{ID: fmt.Sprintf("G%d", g)}
		for m := range 5 {
			group.Members = append(group.Members, fmt.Sprintf("P%d-%d", g, m))
		}
		for m := range 5 {
			name := fmt.Sprintf("player%d%d", g, m)
			api.AddPlayer(name, fmt.Sprintf("P%d-%d", g, m), &group)
			seeds = append(seeds, name)
		}
	}
	api.AddPlayer("loner", "L0", nil)
	seeds = append(seeds, "unknown1", "loner", "unknown2")
	return api, seeds
}

func TestScheduler_IdempotentOverWorkerCount(t *testing.T) {
	t.Parallel()

	var reference []string
	for _, workers := range []int{1, 3, 8} {
		api, seeds := graphAPI(t)
		f := newCrawlFixture(t, api, seeds, workers, 50)
		if err := f.run(t, context.Background(), seeds); err != nil {
			t.Fatalf("W=%d: unexpected error: %v", workers, err)
		}

		cp := f.state.Snapshot()
		if len(cp.VisitedGroups) != 6 {
			t.Errorf("W=%d: expected 6 groups, got %d", workers, len(cp.VisitedGroups))
		}
		if cp.ProcessedCount != len(seeds) {
			t.Errorf("W=%d: expected cursor %d, got %d", workers, len(seeds), cp.ProcessedCount)
		}
		if len(cp.CompletedAhead) != 0 {
			t.Errorf("W=%d: expected no entries ahead, got %v", workers, cp.CompletedAhead)
		}
		if reference == nil {
			reference = cp.CollectedIDs
			continue
		}
		if !slices.Equal(cp.CollectedIDs, reference) {
			t.Errorf("W=%d: collected ids differ from W=1", workers)
		}
	}
	// 30 group members plus the groupless L0.
	if len(reference) != 31 {
		t.Errorf("expected 31 ids, got %d", len(reference))
	}
	if !slices.Contains(reference, "L0") {
		t.Error("expected groupless identity L0 to be collected")
	}
}

func TestScheduler_KnownMemberSkipsLookup(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	group := &apitest.Group{ID: "G1", Members: []string{"A1", "M1"}}
	api.AddPlayer("alice", "A1", group)
	api.AddPlayer("mallory", "M1", group)

	seeds := []string{"alice", "mallory"}
	f := newCrawlFixture(t, api, seeds, 1, 50)
	if err := f.run(t, context.Background(), seeds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls := api.MembershipCalls("M1"); calls != 0 {
		t.Errorf("expected membership lookup for M1 to be skipped, got %d calls", calls)
	}
	if got := f.state.Snapshot().ProcessedCount; got != 2 {
		t.Errorf("expected cursor 2, got %d", got)
	}
}

func TestScheduler_GrouplessIdentityCollected(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	api.AddPlayer("loner", "L0", nil)
	api.AddPlayer("loner-alt", "L0", nil)
	api.AddPlayer("broken", "K0", nil)
	api.FailMembership("K0", http.StatusInternalServerError)

	seeds := []string{"loner", "broken", "loner-alt"}
	f := newCrawlFixture(t, api, seeds, 1, 50)
	if err := f.run(t, context.Background(), seeds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cp := f.state.Snapshot()
	if want := []string{"K0", "L0"}; !slices.Equal(cp.CollectedIDs, want) {
		t.Errorf("collected ids = %v, want %v", cp.CollectedIDs, want)
	}
	if len(cp.VisitedGroups) != 0 {
		t.Errorf("expected no visited groups, got %v", cp.VisitedGroups)
	}
	if cp.ProcessedCount != 3 {
		t.Errorf("expected cursor 3, got %d", cp.ProcessedCount)
	}

	tests := []struct {
		name string
		want model.Outcome
	}{
		{"loner", model.OutcomeNoGroup},
		{"broken", model.OutcomeNoGroup},
		{"loner-alt", model.OutcomeKnownMember},
	}
	for _, tt := range tests {
		if got := f.outcomes.outcome(tt.name); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}

	if calls := api.MembershipCalls("L0"); calls != 1 {
		t.Errorf("expected one membership lookup for L0, got %d", calls)
	}
	if calls := api.MembershipCalls("K0"); calls != 1 {
		t.Errorf("expected failed lookup not to be retried, got %d calls", calls)
	}
}

// countingCommitter counts commits without persisting anything.
type countingCommitter struct {
	commits atomic.Int64
}

func (c *countingCommitter) Commit(context.Context, *model.SeedJob) (state.Progress, error) {
	n := int(c.commits.Add(1))
	return state.Progress{Finished: n, ProcessedCount: n}, nil
}

func TestScheduler_WorkerBound(t *testing.T) {
	t.Parallel()

	seeds := make([]string, 40)
	indexes := make([]int, len(seeds))
	for i := range seeds {
		seeds[i] = fmt.Sprintf("seed%d", i)
		indexes[i] = i
	}

	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("W=%d", workers), func(t *testing.T) {
			t.Parallel()

			var active, peak atomic.Int64
			factory := func() *Pipeline {
				p := New()
				p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.SeedJob) error {
					n := active.Add(1)
					defer active.Add(-1)
					for {
						old := peak.Load()
						if n <= old || peak.CompareAndSwap(old, n) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					return nil
				}})
				return p
			}

			committer := &countingCommitter{}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			scheduler := NewScheduler(factory, committer, WithConcurrency(workers), WithSchedulerLogger(logger))
			if err := scheduler.Run(context.Background(), seeds, indexes); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := peak.Load(); got > int64(workers) {
				t.Errorf("expected at most %d seeds in flight, got %d", workers, got)
			}
			if got := peak.Load(); got < 1 {
				t.Errorf("expected at least one seed in flight, got %d", got)
			}
			if got := committer.commits.Load(); got != int64(len(seeds)) {
				t.Errorf("expected %d commits, got %d", len(seeds), got)
			}
		})
	}
}

func TestScheduler_CircuitBreakDoesNotCommit(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	seeds := []string{"a", "b", "c", "d"}
	for _, name := range seeds {
		api.FailIdentity(name, http.StatusTooManyRequests)
	}

	f := newCrawlFixture(t, api, seeds, 2, 3)
	err := f.run(t, context.Background(), seeds)
	if !errors.Is(err, fetch.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	cp := f.state.Snapshot()
	if cp.ProcessedCount != 0 || len(cp.CompletedAhead) != 0 {
		t.Errorf("interrupted entries must stay unprocessed, got %+v", cp)
	}
	if got := f.state.Remaining(); len(got) != len(seeds) {
		t.Errorf("expected all %d entries remaining, got %v", len(seeds), got)
	}
}

func TestScheduler_Cancelled(t *testing.T) {
	t.Parallel()

	api, seeds := graphAPI(t)
	f := newCrawlFixture(t, api, seeds, 2, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.run(t, ctx, seeds); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := f.state.Snapshot().ProcessedCount; got != 0 {
		t.Errorf("expected nothing processed, got %d", got)
	}
}

func TestScheduler_ResumeMatchesUninterruptedRun(t *testing.T) {
	t.Parallel()

	api, seeds := graphAPI(t)

	// Uninterrupted reference.
	ref := newCrawlFixture(t, api, seeds, 3, 50)
	if err := ref.run(t, context.Background(), seeds); err != nil {
		t.Fatal(err)
	}
	want := ref.state.Snapshot()

	for _, k := range []int{0, 1, 7, 20, len(seeds) - 1} {
		f := newCrawlFixture(t, api, seeds, 3, 50)

		// Process only the first k entries, as if interrupted there.
		if err := f.scheduler.Run(context.Background(), seeds, f.state.Remaining()[:k]); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}

		// Restore a fresh state from the checkpoint and finish the crawl.
		saved, err := f.store.Load(context.Background())
		if err != nil && !errors.Is(err, state.ErrNoCheckpoint) {
			t.Fatalf("k=%d: %v", k, err)
		}
		resumed, err := state.New(saved, len(seeds), f.store)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if got := len(resumed.Remaining()); got != len(seeds)-k {
			t.Errorf("k=%d: expected %d remaining, got %d", k, len(seeds)-k, got)
		}

		f.scheduler.committer = resumed
		if err := f.scheduler.Run(context.Background(), seeds, resumed.Remaining()); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}

		got := resumed.Snapshot()
		if !slices.Equal(got.CollectedIDs, want.CollectedIDs) {
			t.Errorf("k=%d: collected ids differ after resume", k)
		}
		if !slices.Equal(got.VisitedGroups, want.VisitedGroups) {
			t.Errorf("k=%d: visited groups differ after resume", k)
		}
	}
}
