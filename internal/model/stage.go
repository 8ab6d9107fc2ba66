package model

// Stage represents the position of a seed entry in its crawl workflow.
//
// A seed entry moves strictly forward through the stages:
//
//	Pending → ResolvingIdentity → ResolvingGroup → Updating → Done
//
// Any stage may jump straight to Done when the entry turns out to contribute
// nothing (no identity, no group, or a group that was already expanded).
type Stage int

const (
	// StagePending is the initial stage of an entry that has been admitted
	// but has not issued any request yet.
	StagePending Stage = iota

	// StageResolvingIdentity means the name is being resolved to an identity.
	StageResolvingIdentity

	// StageResolvingGroup means the identity's group membership is being looked up.
	StageResolvingGroup

	// StageUpdating means the result is being merged into the crawl state.
	StageUpdating

	// StageDone is the terminal stage.
	StageDone
)

// String returns a human-readable representation of the stage.
func (s Stage) String() string {
	switch s {
	case StagePending:
		return "PENDING"
	case StageResolvingIdentity:
		return "RESOLVING_IDENTITY"
	case StageResolvingGroup:
		return "RESOLVING_GROUP"
	case StageUpdating:
		return "UPDATING"
	case StageDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Outcome describes how a finished seed entry ended.
type Outcome int

const (
	// OutcomeUnknown is the zero value for entries that have not finished.
	OutcomeUnknown Outcome = iota

	// OutcomeContributed means a new group was expanded and its ids recorded.
	OutcomeContributed

	// OutcomeNoIdentity means the name did not resolve to an identity.
	OutcomeNoIdentity

	// OutcomeKnownMember means the identity was already collected, so the
	// membership lookup was skipped.
	OutcomeKnownMember

	// OutcomeNoGroup means the identity has no group or the lookup failed.
	// Only the identity itself is recorded.
	OutcomeNoGroup

	// OutcomeDuplicateGroup means the group had already been expanded.
	OutcomeDuplicateGroup
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeContributed:
		return "contributed"
	case OutcomeNoIdentity:
		return "no_identity"
	case OutcomeKnownMember:
		return "known_member"
	case OutcomeNoGroup:
		return "no_group"
	case OutcomeDuplicateGroup:
		return "duplicate_group"
	default:
		return "unknown"
	}
}
