package repocache

import (
	"fmt"
	"strings"
)

// RefreshPolicy controls when a cached working copy is refreshed from its remote.
type RefreshPolicy string

// PolicyAlways, PolicyLastResort and PolicySkip enumerate the supported refresh policies.
const (
	// PolicyAlways fetches, hard-resets and force-checks-out on every acquisition.
	PolicyAlways RefreshPolicy = "always"
	// PolicyLastResort checks out the cached remote-tracking ref and only fetches when that fails.
	PolicyLastResort RefreshPolicy = "last-resort"
	// PolicySkip never touches the network.
	PolicySkip RefreshPolicy = "skip"
)

// FallbackBranch is used when neither the request nor the site declares a branch.
const FallbackBranch = "main"

// ParseRefreshPolicy validates a policy name. The empty string selects PolicyLastResort.
func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch RefreshPolicy(strings.TrimSpace(s)) {
	case "", PolicyLastResort:
		return PolicyLastResort, nil
	case PolicyAlways:
		return PolicyAlways, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: %q (must be always, last-resort or skip)", ErrInvalidRefreshPolicy, s)
	}
}

// String returns the policy name.
func (p RefreshPolicy) String() string {
	return string(p)
}
