package entrypoint

import (
	"github.com/c360studio/openhub/content"
)

// SoftwareEntry is a software item with a main repository and a
// documentation source that may live elsewhere.
type SoftwareEntry struct {
	Doc  *content.Document
	Name string

	// Main is the software's own repository, without a subtree.
	Main RemoteSource

	// Docs is the documentation source with defaults applied.
	Docs RemoteSource

	// DocsPath is where Docs is checked out.
	DocsPath string

	// RepoPath is where Main is checked out when its timestamp is needed separately.
	RepoPath string
}

type softwareData struct {
	RepoURL    string        `yaml:"repo_url"`
	RepoBranch string        `yaml:"repo_branch"`
	Docs       *RemoteSource `yaml:"docs"`
}

// SameRepo reports whether docs come from the main repository.
func (e SoftwareEntry) SameRepo() bool {
	return e.Docs.RepoURL == e.Main.RepoURL
}

// FindSoftware returns the documents of coll that declare repo_url.
// Absent an explicit docs source, documentation is read from the main
// repository's docs subtree.
func FindSoftware(coll *content.Collection) ([]SoftwareEntry, error) {
	if coll == nil {
		return nil, nil
	}

	var entries []SoftwareEntry
	for _, doc := range coll.Docs {
		if _, ok := doc.Data["repo_url"]; !ok {
			continue
		}
		var data softwareData
		if err := decode(doc.Data, &data); err != nil {
			return nil, decodeError(doc, err)
		}
		if data.RepoURL == "" {
			continue
		}

		main := RemoteSource{RepoURL: data.RepoURL, Branch: data.RepoBranch}
		docs := RemoteSource{RepoURL: data.RepoURL, Subtree: DefaultSubtree, Branch: data.RepoBranch}
		if data.Docs != nil && data.Docs.Declared() {
			docs = data.Docs.WithDefaults(DefaultSubtree)
		}

		name := itemName(doc)
		entries = append(entries, SoftwareEntry{
			Doc:      doc,
			Name:     name,
			Main:     main,
			Docs:     docs,
			DocsPath: docsPath(doc, name),
			RepoPath: repoPath(doc, name),
		})
	}
	return entries, nil
}
