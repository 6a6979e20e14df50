// Package content models the site's content graph: collections of documents
// and static files, generated pages, and the site that owns them.
package content

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Document is a renderable content item belonging to a collection.
type Document struct {
	// ID is "/<collection label>/<path within the collection, extension stripped>".
	ID string

	// Path is the source file path on disk.
	Path string

	// RelativePath is Path relative to the site source, slash-separated.
	RelativePath string

	// URL is the document's public path. It equals ID.
	URL string

	Collection *Collection

	// Data is the front matter plus anything merged in later.
	Data map[string]any

	// Content is the body following the front matter.
	Content string

	// RenderTemplates is false for content that was rendered upstream and
	// must pass through verbatim.
	RenderTemplates bool
}

// NewDocument binds the file at path to collection. siteSource is used for RelativePath.
func NewDocument(filePath, siteSource string, collection *Collection) *Document {
	id := documentID(filePath, siteSource, collection)
	return &Document{
		ID:              id,
		Path:            filePath,
		RelativePath:    relativeSlash(siteSource, filePath),
		URL:             id,
		Collection:      collection,
		Data:            make(map[string]any),
		RenderTemplates: true,
	}
}

// Read loads the front matter and body from disk.
func (d *Document) Read() error {
	raw, err := os.ReadFile(d.Path)
	if err != nil {
		return fmt.Errorf("read document %s: %w", d.Path, err)
	}
	data, body, err := ParseFrontMatter(raw)
	if err != nil {
		return fmt.Errorf("read document %s: %w", d.Path, err)
	}
	d.MergeData(data)
	d.Content = body
	return nil
}

// MergeData copies every key of data into the document's data.
func (d *Document) MergeData(data map[string]any) {
	if d.Data == nil {
		d.Data = make(map[string]any, len(data))
	}
	for k, v := range data {
		d.Data[k] = v
	}
}

// Dir is the directory holding the document's source file.
func (d *Document) Dir() string {
	return filepath.Dir(d.Path)
}

// Name is the last ID segment.
func (d *Document) Name() string {
	return path.Base(d.ID)
}

// IDSegments splits the ID on "/" keeping the leading empty piece, so
// "/projects/foo/index" yields ["", "projects", "foo", "index"].
func (d *Document) IDSegments() []string {
	return strings.Split(d.ID, "/")
}

// URLSegmentCount is the number of non-empty segments of the URL.
func (d *Document) URLSegmentCount() int {
	n := 0
	for _, s := range strings.Split(d.URL, "/") {
		if s != "" {
			n++
		}
	}
	return n
}

// Title returns the title front matter value, if any.
func (d *Document) Title() string {
	s, _ := d.Data["title"].(string)
	return s
}

var datedName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)

// dateLayouts are the front matter date forms we accept.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date returns the document date from the "date" front matter value, falling
// back to a YYYY-MM-DD- file name prefix.
func (d *Document) Date() (time.Time, bool) {
	switch v := d.Data["date"].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}

	if m := datedName.FindStringSubmatch(filepath.Base(d.Path)); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func documentID(filePath, siteSource string, collection *Collection) string {
	rel := ""
	if collection != nil && collection.Dir != "" {
		if r, err := filepath.Rel(collection.Dir, filePath); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
		}
	}
	if rel == "" {
		rel = relativeSlash(siteSource, filePath)
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))

	label := ""
	if collection != nil {
		label = collection.Label
	}
	return "/" + path.Join(label, rel)
}

func relativeSlash(base, target string) string {
	if base == "" {
		return filepath.ToSlash(target)
	}
	r, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(r)
}
