package content

import "path/filepath"

// StaticFile is a non-document asset attached to a collection.
type StaticFile struct {
	// Path is the file path on disk.
	Path string

	// Dir is the containing directory relative to the site source.
	Dir string

	Name       string
	Collection *Collection
}

// NewStaticFile describes the file at filePath relative to siteSource.
func NewStaticFile(filePath, siteSource string, collection *Collection) *StaticFile {
	return &StaticFile{
		Path:       filePath,
		Dir:        relativeSlash(siteSource, filepath.Dir(filePath)),
		Name:       filepath.Base(filePath),
		Collection: collection,
	}
}

// Collection is a labelled set of documents and static files.
type Collection struct {
	Label string

	// Dir is the collection directory, conventionally <site>/_<label>.
	Dir string

	Docs  []*Document
	Files []*StaticFile

	seen map[string]bool
}

// NewCollection creates an empty collection.
func NewCollection(label, dir string) *Collection {
	return &Collection{Label: label, Dir: dir, seen: make(map[string]bool)}
}

// AddDocument appends doc unless a document or file with the same source
// path is already present. It reports whether doc was added.
func (c *Collection) AddDocument(doc *Document) bool {
	if !c.claim(doc.Path) {
		return false
	}
	doc.Collection = c
	c.Docs = append(c.Docs, doc)
	return true
}

// AddFile appends f unless its source path is already present.
func (c *Collection) AddFile(f *StaticFile) bool {
	if !c.claim(f.Path) {
		return false
	}
	f.Collection = c
	c.Files = append(c.Files, f)
	return true
}

// Document returns the document with the given ID.
func (c *Collection) Document(id string) (*Document, bool) {
	for _, d := range c.Docs {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Len is the number of documents.
func (c *Collection) Len() int {
	return len(c.Docs)
}

func (c *Collection) claim(p string) bool {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	key := filepath.Clean(p)
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	return true
}
