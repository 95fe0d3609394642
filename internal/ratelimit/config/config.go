package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"escrowgate/internal/ratelimit/models"
)

// DefaultPolicies is the auth-edge policy table. More specific prefixes
// take precedence over /api/auth.
func DefaultPolicies() []models.Policy {
	return []models.Policy{
		{Prefix: "/api/auth/login", Window: 15 * time.Minute, Max: 5, BlockDuration: 30 * time.Minute, FailureThreshold: 3},
		{Prefix: "/api/auth/signup", Window: time.Hour, Max: 3, BlockDuration: 24 * time.Hour},
		{Prefix: "/api/auth/signInGoogle", Window: 15 * time.Minute, Max: 10, BlockDuration: time.Hour},
		{Prefix: "/api/auth/forgot-password", Window: time.Hour, Max: 3, BlockDuration: 6 * time.Hour},
		{Prefix: "/api/auth/reset-password", Window: time.Hour, Max: 5, BlockDuration: 24 * time.Hour},
		{Prefix: "/api/auth/verify-email", Window: time.Hour, Max: 10, BlockDuration: time.Hour},
		{Prefix: "/api/auth/refresh", Window: 5 * time.Minute, Max: 10, BlockDuration: time.Hour},
		{Prefix: "/api/auth/changePassword", Window: time.Hour, Max: 3, BlockDuration: 24 * time.Hour},
		{Prefix: "/api/auth", Window: time.Minute, Max: 30, BlockDuration: 15 * time.Minute},
		{Prefix: "/login", Window: time.Minute, Max: 20, BlockDuration: 15 * time.Minute},
		{Prefix: "/forgot-password", Window: time.Minute, Max: 10, BlockDuration: 15 * time.Minute},
		{Prefix: "/auth/email-action", Window: time.Minute, Max: 20, BlockDuration: 15 * time.Minute},
	}
}

// PolicySet matches request paths to policies by longest prefix.
type PolicySet struct {
	// sorted by descending prefix length
	policies []models.Policy
}

// NewPolicySet validates the policies and rejects duplicate prefixes.
func NewPolicySet(policies []models.Policy) (*PolicySet, error) {
	seen := make(map[string]struct{}, len(policies))
	sorted := make([]models.Policy, 0, len(policies))
	for _, p := range policies {
		p.Prefix = strings.TrimSuffix(p.Prefix, "/")
		if p.Prefix == "" {
			p.Prefix = "/"
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy %s: %w", p.Prefix, err)
		}
		if _, dup := seen[p.Prefix]; dup {
			return nil, fmt.Errorf("duplicate policy prefix %s", p.Prefix)
		}
		seen[p.Prefix] = struct{}{}
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &PolicySet{policies: sorted}, nil
}

// MustDefault builds the set from DefaultPolicies.
func MustDefault() *PolicySet {
	set, err := NewPolicySet(DefaultPolicies())
	if err != nil {
		panic(err)
	}
	return set
}

// Match returns the longest policy prefix path starts with. Matching is on
// raw string prefixes, so /loginx and /login.php fall under /login.
func (s *PolicySet) Match(path string) (models.Policy, bool) {
	for _, p := range s.policies {
		if covers(p.Prefix, path) {
			return p, true
		}
	}
	return models.Policy{}, false
}

// Lookup returns the policy registered for exactly prefix.
func (s *PolicySet) Lookup(prefix string) (models.Policy, bool) {
	for _, p := range s.policies {
		if p.Prefix == prefix {
			return p, true
		}
	}
	return models.Policy{}, false
}

// All returns the policies most specific first.
func (s *PolicySet) All() []models.Policy {
	out := make([]models.Policy, len(s.policies))
	copy(out, s.policies)
	return out
}

func covers(prefix, path string) bool {
	return strings.HasPrefix(path, prefix)
}
