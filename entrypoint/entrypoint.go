// Package entrypoint finds documents that declare a remote source and
// resolves where and how each source is acquired.
package entrypoint

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360studio/openhub/content"
	"gopkg.in/yaml.v3"
)

// DefaultSubtree is the documentation subtree assumed when none is declared.
const DefaultSubtree = "docs"

// ProjectSubtrees are checked out of a project's site repository.
var ProjectSubtrees = []string{"assets/", "_posts/", "_software/", "_specs/"}

// ParentHubSubtrees are checked out of the parent hub's repository.
var ParentHubSubtrees = []string{"assets/", "title.html"}

// ParentHubDir is the site-relative directory holding the parent hub checkout.
const ParentHubDir = "parent-hub"

// RemoteSource locates content inside a remote repository.
type RemoteSource struct {
	RepoURL string `yaml:"git_repo_url"`
	Subtree string `yaml:"git_repo_subtree,omitempty"`
	Branch  string `yaml:"git_repo_branch,omitempty"`
}

// Declared reports whether the source names a repository.
func (s RemoteSource) Declared() bool {
	return strings.TrimSpace(s.RepoURL) != ""
}

// WithDefaults fills an empty subtree with defaultSubtree.
func (s RemoteSource) WithDefaults(defaultSubtree string) RemoteSource {
	if s.Subtree == "" {
		s.Subtree = defaultSubtree
	}
	return s
}

// SparsePaths is the sparse-checkout specification for the source.
func (s RemoteSource) SparsePaths() []string {
	if s.Subtree == "" {
		return nil
	}
	return []string{s.Subtree}
}

// decode re-encodes loosely typed front matter into a typed structure.
func decode(data map[string]any, out any) error {
	var node yaml.Node
	if err := node.Encode(data); err != nil {
		return err
	}
	return node.Decode(out)
}

// itemName is the last segment of the document ID.
func itemName(doc *content.Document) string {
	segments := doc.IDSegments()
	return segments[len(segments)-1]
}

// docsPath is <dir of doc>/<name>.
func docsPath(doc *content.Document, name string) string {
	return filepath.Join(doc.Dir(), name)
}

// repoPath is <dir of doc>/_<name>_repo.
func repoPath(doc *content.Document, name string) string {
	return filepath.Join(doc.Dir(), fmt.Sprintf("_%s_repo", name))
}
