package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// Placeholders substituted in endpoint templates.
const (
	NamePlaceholder = "{name}"
	IDPlaceholder   = "{id}"
)

// Default endpoint templates.
const (
	DefaultIdentityEndpoint   = "https://api.mojang.com/users/profiles/minecraft/" + NamePlaceholder
	DefaultMembershipEndpoint = "https://api.hypixel.net/v2/guild?player=" + IDPlaceholder
)

// template is a URL with a single placeholder.
type template struct {
	raw         string
	placeholder string
}

// newTemplate checks that raw parses as an absolute URL and contains
// placeholder.
func newTemplate(raw, placeholder string) (template, error) {
	if !strings.Contains(raw, placeholder) {
		return template{}, fmt.Errorf("%w: %q must contain %s", ErrInvalidTemplate, raw, placeholder)
	}
	u, err := url.Parse(strings.ReplaceAll(raw, placeholder, "x"))
	if err != nil {
		return template{}, fmt.Errorf("%w: %q: %v", ErrInvalidTemplate, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return template{}, fmt.Errorf("%w: %q must be an http(s) URL", ErrInvalidTemplate, raw)
	}
	return template{raw: raw, placeholder: placeholder}, nil
}

// expand substitutes value, escaped for its position in the URL.
func (t template) expand(value string) string {
	escaped := url.PathEscape(value)
	if i := strings.Index(t.raw, "?"); i >= 0 && strings.Index(t.raw, t.placeholder) > i {
		escaped = url.QueryEscape(value)
	}
	return strings.ReplaceAll(t.raw, t.placeholder, escaped)
}
