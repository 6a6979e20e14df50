package specbuild

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Navigation is the manifest declared under a spec document's "navigation" key.
type Navigation struct {
	Items []NavigationItem `yaml:"items"`
}

// NavigationItem is one node of the navigation tree. Fields holds every
// key declared on the node, including title, path and items.
type NavigationItem struct {
	Title  string
	Path   string
	Items  []NavigationItem
	Fields map[string]any
}

// UnmarshalYAML decodes the typed fields and keeps the raw mapping.
func (n *NavigationItem) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("navigation item at line %d: expected a mapping", value.Line)
	}

	var typed struct {
		Title string           `yaml:"title"`
		Path  string           `yaml:"path"`
		Items []NavigationItem `yaml:"items"`
	}
	if err := value.Decode(&typed); err != nil {
		return err
	}

	fields := make(map[string]any)
	if err := value.Decode(&fields); err != nil {
		return err
	}

	n.Title = typed.Title
	n.Path = typed.Path
	n.Items = typed.Items
	n.Fields = fields
	return nil
}

// Flatten walks items depth-first and returns those carrying a path, in
// manifest order. Parents precede their children.
func Flatten(items []NavigationItem) []NavigationItem {
	var out []NavigationItem
	for _, item := range items {
		if item.Path != "" {
			out = append(out, item)
		}
		if len(item.Items) > 0 {
			out = append(out, Flatten(item.Items)...)
		}
	}
	return out
}

// fieldsClone returns a shallow copy of the item's raw fields.
func (n NavigationItem) fieldsClone() map[string]any {
	out := make(map[string]any, len(n.Fields)+2)
	for k, v := range n.Fields {
		out[k] = v
	}
	if _, ok := out["title"]; !ok && n.Title != "" {
		out["title"] = n.Title
	}
	if _, ok := out["path"]; !ok && n.Path != "" {
		out["path"] = n.Path
	}
	return out
}
