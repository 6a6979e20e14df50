package repocache

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// allowedProtocols defines the git URL schemes a remote may use.
var allowedProtocols = map[string]bool{
	"https": true,
	"http":  true,
	"git":   true,
	"ssh":   true,
	"file":  true,
}

// scpLikePattern matches the scp-style SSH shorthand (git@github.com:owner/repo.git).
var scpLikePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/]`)

// validateRemoteURL checks that a remote is something git can fetch from and
// that it cannot be mistaken for a command-line option.
// Remotes come from operator-declared site content, so local paths are accepted.
func validateRemoteURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: remote URL is required", ErrInvalidRemote)
	}
	if strings.HasPrefix(rawURL, "-") {
		return fmt.Errorf("%w: %q looks like an option", ErrInvalidRemote, rawURL)
	}

	if scpLikePattern.MatchString(rawURL) {
		return nil
	}
	if filepath.IsAbs(rawURL) {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRemote, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !allowedProtocols[scheme] {
		return fmt.Errorf("%w: protocol %q not allowed; must be https, http, git, ssh or file", ErrInvalidRemote, scheme)
	}

	return nil
}
