package entrypoint

import (
	"github.com/c360studio/openhub/content"
)

// Project is a hub's project index document.
type Project struct {
	Doc *content.Document

	// Name is the project directory name.
	Name string

	// Path is the project directory; the site repository is checked out into it.
	Path string

	Site RemoteSource
}

type projectData struct {
	Site struct {
		RepoURL string `yaml:"git_repo_url"`
		Branch  string `yaml:"git_repo_branch"`
	} `yaml:"site"`
}

// SparsePaths is the sparse-checkout specification for a project's site repository.
func (p Project) SparsePaths() []string {
	return append([]string(nil), ProjectSubtrees...)
}

// IsProjectIndex reports whether doc is a project's own index, i.e. its ID
// is /projects/<name>/index.
func IsProjectIndex(doc *content.Document) bool {
	pieces := doc.IDSegments()
	return len(pieces) == 4 && pieces[1] == content.LabelProjects && pieces[3] == "index"
}

// FindProjects returns the project index documents of coll that declare a site repository.
func FindProjects(coll *content.Collection) ([]Project, error) {
	if coll == nil {
		return nil, nil
	}

	var projects []Project
	for _, doc := range coll.Docs {
		if !IsProjectIndex(doc) {
			continue
		}
		var data projectData
		if err := decode(doc.Data, &data); err != nil {
			return nil, decodeError(doc, err)
		}
		if data.Site.RepoURL == "" {
			continue
		}
		projects = append(projects, Project{
			Doc:  doc,
			Name: doc.IDSegments()[2],
			Path: doc.Dir(),
			Site: RemoteSource{RepoURL: data.Site.RepoURL, Branch: data.Site.Branch},
		})
	}
	return projects, nil
}
