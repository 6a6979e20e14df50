package content

import "path"

// Page is a generated page appended to the site's page set.
type Page struct {
	// Dir is the slash-separated output directory relative to the destination root.
	Dir string

	// Name is the file name within Dir.
	Name string

	Data    map[string]any
	Content string

	// Assets are files published alongside the page.
	Assets []Asset
}

// Asset is a source file copied to a slash-separated output path.
type Asset struct {
	Source     string
	OutputPath string
}

// OutputPath is Dir joined with Name.
func (p *Page) OutputPath() string {
	return path.Join(p.Dir, p.Name)
}
