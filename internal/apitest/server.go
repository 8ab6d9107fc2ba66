package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Group is a group served by the fake membership endpoint.
type Group struct {
	ID      string
	Members []string
}

// Server is a fake identity + membership API.
//
// Identity requests hit /identity/{name}; membership requests hit
// /membership?player={id}. Names missing from Identities get 404.
// The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	// APIKey, when set, is required in the API-Key header of membership
	// requests; other requests get 403.
	APIKey string

	mu              sync.Mutex
	identities      map[string]string
	groups          map[string]Group
	identityStatus  map[string]int
	groupStatus     map[string]int
	identityCalls   map[string]int
	membershipCalls map[string]int
}

// New starts a fake API and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		identities:      map[string]string{},
		groups:          map[string]Group{},
		identityStatus:  map[string]int{},
		groupStatus:     map[string]int{},
		identityCalls:   map[string]int{},
		membershipCalls: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/identity/", s.handleIdentity)
	mux.HandleFunc("/membership", s.handleMembership)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// IdentityEndpoint returns the identity URL template.
func (s *Server) IdentityEndpoint() string {
	return s.URL + "/identity/{name}"
}

// MembershipEndpoint returns the membership URL template.
func (s *Server) MembershipEndpoint() string {
	return s.URL + "/membership?player={id}"
}

// AddPlayer registers name → id, optionally in group.
func (s *Server) AddPlayer(name, id string, group *Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities[name] = id
	if group != nil {
		s.groups[id] = *group
	}
}

// SetGroup registers the group id belongs to without a name.
func (s *Server) SetGroup(id string, group Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[id] = group
}

// FailIdentity makes identity requests for name answer with status.
func (s *Server) FailIdentity(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identityStatus[name] = status
}

// RecoverIdentity undoes FailIdentity for name.
func (s *Server) RecoverIdentity(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identityStatus, name)
}

// FailMembership makes membership requests for id answer with status.
func (s *Server) FailMembership(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupStatus[id] = status
}

// IdentityCalls returns how many identity requests name received.
func (s *Server) IdentityCalls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identityCalls[name]
}

// MembershipCalls returns how many membership requests id received.
func (s *Server) MembershipCalls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membershipCalls[id]
}

// TotalMembershipCalls returns the number of membership requests served.
func (s *Server) TotalMembershipCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.membershipCalls {
		total += n
	}
	return total
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/identity/")

	s.mu.Lock()
	s.identityCalls[name]++
	status, failing := s.identityStatus[name]
	id, known := s.identities[name]
	s.mu.Unlock()

	switch {
	case failing:
		w.WriteHeader(status)
	case !known:
		w.WriteHeader(http.StatusNotFound)
	default:
		writeJSON(w, map[string]string{"id": id, "name": name})
	}
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	if s.APIKey != "" && r.Header.Get("API-Key") != s.APIKey {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	id := r.URL.Query().Get("player")

	s.mu.Lock()
	s.membershipCalls[id]++
	status, failing := s.groupStatus[id]
	group, ok := s.groups[id]
	s.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		return
	}
	if !ok {
		writeJSON(w, map[string]any{"success": true, "guild": nil})
		return
	}

	members := make([]map[string]string, 0, len(group.Members))
	for _, m := range group.Members {
		members = append(members, map[string]string{"uuid": m})
	}
	writeJSON(w, map[string]any{
		"success": true,
		"guild": map[string]any{
			"_id":     group.ID,
			"members": members,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Test server
}
