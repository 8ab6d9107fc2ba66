package resolver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nao1215/guildcrawl/internal/fetch"
)

// Fetcher performs classified API calls. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, limiter fetch.Limiter, req fetch.Request) (fetch.Outcome, error)
}

// identityResponse is the subset of the identity payload we read.
type identityResponse struct {
	ID string `json:"id"`
}

// IdentityResolver resolves seed names to identities.
type IdentityResolver struct {
	fetcher  Fetcher
	limiter  fetch.Limiter
	endpoint template
	logger   *slog.Logger
}

// NewIdentityResolver creates a resolver for the endpoint template, which
// must contain {name}.
func NewIdentityResolver(fetcher Fetcher, limiter fetch.Limiter, endpoint string, logger *slog.Logger) (*IdentityResolver, error) {
	tmpl, err := newTemplate(endpoint, NamePlaceholder)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityResolver{
		fetcher:  fetcher,
		limiter:  limiter,
		endpoint: tmpl,
		logger:   logger,
	}, nil
}

// Resolve returns the identity for name. ok is false when the name does not
// resolve for any reason. err is non-nil only for fatal fetch errors.
func (r *IdentityResolver) Resolve(ctx context.Context, name string) (id string, ok bool, err error) {
	outcome, err := r.fetcher.Fetch(ctx, r.limiter, fetch.Request{URL: r.endpoint.expand(name)})
	if err != nil {
		return "", false, err
	}
	if !outcome.OK() {
		return "", false, nil
	}

	var resp identityResponse
	if err := json.Unmarshal(outcome.Body, &resp); err != nil {
		r.logger.Warn("malformed identity response", "name", name, "error", err)
		return "", false, nil
	}
	if resp.ID == "" {
		return "", false, nil
	}
	return resp.ID, true, nil
}
