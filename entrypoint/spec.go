package entrypoint

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/specbuild"
)

// BuildSpec names the page builder engine for a spec.
type BuildSpec struct {
	Engine  string         `yaml:"engine"`
	Options map[string]any `yaml:"options"`
}

// SpecEntry is a spec item whose pages are generated from a remote source.
type SpecEntry struct {
	Doc    *content.Document
	Name   string
	Source RemoteSource
	Build  BuildSpec

	// Navigation is the spec document's navigation manifest.
	Navigation []specbuild.NavigationItem

	// Path is where Source is checked out.
	Path string
}

type specData struct {
	SpecSource *struct {
		RemoteSource `yaml:",inline"`
		Build        BuildSpec `yaml:"build"`
	} `yaml:"spec_source"`
	Navigation specbuild.Navigation `yaml:"navigation"`
}

// SourceDir is the root of the fetched subtree.
func (e SpecEntry) SourceDir() string {
	if e.Source.Subtree == "" {
		return e.Path
	}
	return filepath.Join(e.Path, filepath.FromSlash(e.Source.Subtree))
}

// OutputRoot is the site-relative directory generated pages are placed under:
// the spec document's URL without a trailing index segment.
func (e SpecEntry) OutputRoot() string {
	root := strings.Trim(e.Doc.URL, "/")
	if root == "index" {
		return ""
	}
	return strings.TrimSuffix(root, "/index")
}

// Input is the view of the spec passed to a page builder.
func (e SpecEntry) Input() specbuild.SpecInput {
	return specbuild.SpecInput{
		Title:      e.Doc.Title(),
		Data:       e.Doc.Data,
		Navigation: e.Navigation,
	}
}

// FindSpecs returns the documents of coll that declare spec_source.git_repo_url
// and a build engine.
func FindSpecs(coll *content.Collection) ([]SpecEntry, error) {
	if coll == nil {
		return nil, nil
	}

	var entries []SpecEntry
	for _, doc := range coll.Docs {
		if _, ok := doc.Data["spec_source"]; !ok {
			continue
		}
		var data specData
		if err := decode(doc.Data, &data); err != nil {
			return nil, decodeError(doc, err)
		}
		if data.SpecSource == nil || !data.SpecSource.Declared() || data.SpecSource.Build.Engine == "" {
			continue
		}

		name := itemName(doc)
		entries = append(entries, SpecEntry{
			Doc:        doc,
			Name:       name,
			Source:     data.SpecSource.RemoteSource,
			Build:      data.SpecSource.Build,
			Navigation: data.Navigation.Items,
			Path:       docsPath(doc, name),
		})
	}
	return entries, nil
}

func decodeError(doc *content.Document, err error) error {
	return fmt.Errorf("decode entry point %s: %w", doc.ID, err)
}
