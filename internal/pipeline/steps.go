package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/guildcrawl/internal/model"
)

// IdentityResolver resolves names. *resolver.IdentityResolver satisfies it.
type IdentityResolver interface {
	Resolve(ctx context.Context, name string) (id string, ok bool, err error)
}

// MembershipResolver looks up groups. *resolver.MembershipResolver satisfies it.
type MembershipResolver interface {
	Lookup(ctx context.Context, id string) (model.Group, bool, error)
}

// MemberIndex answers whether an id is already collected.
// *state.CrawlState satisfies it.
type MemberIndex interface {
	Collected(id string) bool
}

// ResolveIdentityStep maps the seed name to an identity.
type ResolveIdentityStep struct {
	resolver IdentityResolver
	logger   *slog.Logger
}

// NewResolveIdentityStep creates the identity step.
func NewResolveIdentityStep(resolver IdentityResolver, logger *slog.Logger) *ResolveIdentityStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveIdentityStep{resolver: resolver, logger: logger}
}

// Name returns the step name.
func (s *ResolveIdentityStep) Name() string {
	return "identity"
}

// Do resolves the identity, finishing the job when there is none.
func (s *ResolveIdentityStep) Do(ctx context.Context, job *model.SeedJob) error {
	job.Stage = model.StageResolvingIdentity

	id, ok, err := s.resolver.Resolve(ctx, job.Name)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("identity not found", "name", job.Name)
		job.Finish(model.OutcomeNoIdentity)
		return nil
	}

	s.logger.Debug("resolved identity", "name", job.Name, "identity", id)
	job.Identity = id
	return nil
}

// KnownMemberStep skips the membership lookup for identities that are
// already collected. A collected identity is either a member of a visited
// group or a seed whose own lookup already ran. A lookup that failed for the
// first seed is not retried for a later seed resolving to the same identity.
type KnownMemberStep struct {
	index  MemberIndex
	logger *slog.Logger
}

// NewKnownMemberStep creates the known-member step.
func NewKnownMemberStep(index MemberIndex, logger *slog.Logger) *KnownMemberStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnownMemberStep{index: index, logger: logger}
}

// Name returns the step name.
func (s *KnownMemberStep) Name() string {
	return "known-member"
}

// Do finishes the job when its identity is already collected.
func (s *KnownMemberStep) Do(_ context.Context, job *model.SeedJob) error {
	if s.index.Collected(job.Identity) {
		s.logger.Info("identity already collected, skipping group lookup",
			"name", job.Name, "identity", job.Identity)
		job.Finish(model.OutcomeKnownMember)
	}
	return nil
}

// LookupGroupStep fetches the group of the resolved identity.
type LookupGroupStep struct {
	resolver MembershipResolver
	logger   *slog.Logger
}

// NewLookupGroupStep creates the membership step.
func NewLookupGroupStep(resolver MembershipResolver, logger *slog.Logger) *LookupGroupStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupGroupStep{resolver: resolver, logger: logger}
}

// Name returns the step name.
func (s *LookupGroupStep) Name() string {
	return "membership"
}

// Do looks up the group, finishing the job when there is none.
func (s *LookupGroupStep) Do(ctx context.Context, job *model.SeedJob) error {
	job.Stage = model.StageResolvingGroup

	group, ok, err := s.resolver.Lookup(ctx, job.Identity)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Info("no group found", "name", job.Name, "identity", job.Identity)
		job.Finish(model.OutcomeNoGroup)
		return nil
	}

	s.logger.Debug("found group", "name", job.Name, "group", group.ID, "members", group.Size())
	job.Group = &group
	return nil
}

// DefaultPipeline builds the standard seed workflow.
func DefaultPipeline(identity IdentityResolver, membership MembershipResolver, index MemberIndex, logger *slog.Logger) *Pipeline {
	p := New(WithLogger(logger))
	p.AddSteps(
		NewResolveIdentityStep(identity, logger),
		NewKnownMemberStep(index, logger),
		NewLookupGroupStep(membership, logger),
	)
	return p
}
