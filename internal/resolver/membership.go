package resolver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nao1215/guildcrawl/internal/fetch"
	"github.com/nao1215/guildcrawl/internal/model"
)

// APIKeyHeader carries the membership API key.
const APIKeyHeader = "API-Key"

// membershipResponse is the subset of the membership payload we read.
type membershipResponse struct {
	Success bool `json:"success"`
	Guild   *struct {
		ID      string `json:"_id"`
		Members []struct {
			UUID string `json:"uuid"`
		} `json:"members"`
	} `json:"guild"`
}

// MembershipResolver looks up the group an identity belongs to.
type MembershipResolver struct {
	fetcher  Fetcher
	limiter  fetch.Limiter
	endpoint template
	header   http.Header
	logger   *slog.Logger
}

// NewMembershipResolver creates a resolver for the endpoint template, which
// must contain {id}. apiKey is sent in the API-Key header when non-empty.
func NewMembershipResolver(fetcher Fetcher, limiter fetch.Limiter, endpoint, apiKey string, logger *slog.Logger) (*MembershipResolver, error) {
	tmpl, err := newTemplate(endpoint, IDPlaceholder)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	header := http.Header{}
	if apiKey != "" {
		header.Set(APIKeyHeader, apiKey)
	}

	return &MembershipResolver{
		fetcher:  fetcher,
		limiter:  limiter,
		endpoint: tmpl,
		header:   header,
		logger:   logger,
	}, nil
}

// Lookup returns the group of id with its complete member list. ok is false
// when id has no group or the lookup failed.
func (r *MembershipResolver) Lookup(ctx context.Context, id string) (model.Group, bool, error) {
	outcome, err := r.fetcher.Fetch(ctx, r.limiter, fetch.Request{
		URL:    r.endpoint.expand(id),
		Header: r.header,
	})
	if err != nil {
		return model.Group{}, false, err
	}
	if !outcome.OK() {
		return model.Group{}, false, nil
	}

	var resp membershipResponse
	if err := json.Unmarshal(outcome.Body, &resp); err != nil {
		r.logger.Warn("malformed membership response", "id", id, "error", err)
		return model.Group{}, false, nil
	}
	if !resp.Success || resp.Guild == nil || resp.Guild.ID == "" {
		return model.Group{}, false, nil
	}

	group := model.Group{
		ID:        resp.Guild.ID,
		MemberIDs: make([]string, 0, len(resp.Guild.Members)),
	}
	for _, m := range resp.Guild.Members {
		if m.UUID != "" {
			group.MemberIDs = append(group.MemberIDs, m.UUID)
		}
	}
	return group, true, nil
}
