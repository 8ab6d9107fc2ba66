package model

// Group is the result of one membership lookup.
// It is ephemeral: only its id and member ids survive, folded into the
// crawl state.
type Group struct {
	// ID is the stable group identifier returned by the membership endpoint.
	ID string `json:"id"`

	// MemberIDs is the complete member list from a single response, in the
	// order the API returned it.
	MemberIDs []string `json:"member_ids"`
}

// Size returns the number of members in the group.
func (g Group) Size() int {
	return len(g.MemberIDs)
}
