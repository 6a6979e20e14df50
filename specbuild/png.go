package specbuild

import (
	"embed"
	"fmt"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/openhub/content"
)

// EnginePngDiagrams is the engine name of PngDiagramBuilder.
const EnginePngDiagrams = "png_diagrams"

// SpecLayout is the layout identifier of generated diagram pages.
const SpecLayout = "spec"

//go:embed templates/png_diagram.html
var templateFS embed.FS

var pngDiagramTemplate = mustReadTemplate("templates/png_diagram.html")

func mustReadTemplate(name string) string {
	data, err := templateFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("specbuild: embedded template %s: %v", name, err))
	}
	return string(data)
}

// ExtraStylesheets and ExtraScripts are declared on every diagram page.
var (
	ExtraStylesheets = []map[string]any{{
		"href":        "https://unpkg.com/leaflet@1.3.4/dist/leaflet.css",
		"integrity":   "sha512-puBpdR0798OZvTTbP4A8Ix/l+A4dHDD0DGqYW6RQ+9jxkRFclaxxQb/SJAWZfWAkuyeQUytO7+7N4QKrDh+drA==",
		"crossorigin": "",
	}}
	ExtraScripts = []map[string]any{{
		"src":         "https://unpkg.com/leaflet@1.3.4/dist/leaflet.js",
		"integrity":   "sha512-nMMmRyTVoLYqjP9hrbed9S+FzjZHW5gY1TWCHA5ckwXZBadntCNs8kEqAWdrb9O7rxbCaA4lKTIWjDXZxflOcA==",
		"crossorigin": "",
	}}
)

// PngDiagramBuilder emits one zoomable diagram page per PNG image that a
// navigation item points at.
type PngDiagramBuilder struct {
	logger *slog.Logger
}

// NewPngDiagramBuilder creates the png_diagrams engine.
func NewPngDiagramBuilder(logger *slog.Logger) *PngDiagramBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PngDiagramBuilder{logger: logger}
}

// DefaultRegistry returns a registry holding every built-in engine.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register(EnginePngDiagrams, NewPngDiagramBuilder(logger))
	return r
}

// Build pairs every *.png directly inside sourceDir with the first flattened
// navigation item whose path starts with the image's stem. Images are visited
// in lexical order. Unpaired images and unpaired items are returned as warnings.
func (b *PngDiagramBuilder) Build(spec SpecInput, sourceDir, outputRoot string, _ map[string]any) ([]*content.Page, []Warning, error) {
	outputRoot = strings.Trim(outputRoot, "/")
	items := Flatten(spec.Navigation)
	matched := make([]bool, len(items))

	images, err := listImages(sourceDir)
	if err != nil {
		return nil, nil, err
	}

	var pages []*content.Page
	var warnings []Warning

	for _, name := range images {
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		idx := firstMatch(items, stem)
		if idx < 0 {
			w := Warning{
				Kind:    WarningUnusedImage,
				Name:    name,
				Message: fmt.Sprintf("UNUSED PNG: %s detected at source without a corresponding navigation item at (%s).", name, outputRoot),
			}
			b.logger.Warn(w.Message, slog.String("image", name), slog.String("output_root", outputRoot))
			warnings = append(warnings, w)
			continue
		}
		matched[idx] = true

		page, err := b.buildPage(spec, filepath.Join(sourceDir, name), name, stem, outputRoot, items[idx])
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, page)
	}

	for i, item := range items {
		if matched[i] {
			continue
		}
		w := Warning{
			Kind:    WarningImageNotFound,
			Name:    item.Title,
			Message: fmt.Sprintf("SPECIFIED PNG NOT FOUND: %s.png not found at source as specified at (%s).", item.Title, outputRoot),
		}
		b.logger.Warn(w.Message, slog.String("item", item.Title), slog.String("path", item.Path))
		warnings = append(warnings, w)
	}

	return pages, warnings, nil
}

func (b *PngDiagramBuilder) buildPage(spec SpecInput, imageFile, name, stem, outputRoot string, item NavigationItem) (*content.Page, error) {
	width, height, err := pngDimensions(imageFile)
	if err != nil {
		return nil, err
	}

	imageOut := path.Join(outputRoot, "images", name)

	data := make(map[string]any, len(spec.Data)+len(item.Fields)+8)
	for k, v := range spec.Data {
		data[k] = v
	}
	data["image_path"] = "/" + imageOut
	data["image_width"] = width
	data["image_height"] = height
	for k, v := range item.fieldsClone() {
		data[k] = v
	}
	data["title"] = spec.Title + ": " + item.Title
	data["article_header_title"] = item.Title
	data["extra_stylesheets"] = ExtraStylesheets
	data["extra_scripts"] = ExtraScripts
	data["layout"] = SpecLayout

	return &content.Page{
		Dir:     path.Join(outputRoot, stem),
		Name:    "index.html",
		Data:    data,
		Content: pngDiagramTemplate,
		Assets:  []content.Asset{{Source: imageFile, OutputPath: imageOut}},
	}, nil
}

// firstMatch returns the index of the first item whose path starts with stem.
func firstMatch(items []NavigationItem, stem string) int {
	for i, item := range items {
		if strings.HasPrefix(item.Path, stem) {
			return i
		}
	}
	return -1
}

// listImages returns the names of visible PNG files directly inside dir, sorted.
func listImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spec source %s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, "*.png")
	if err != nil {
		return nil, fmt.Errorf("list images in %s: %w", dir, err)
	}

	names := matches[:0]
	for _, m := range matches {
		if strings.HasPrefix(m, ".") {
			continue
		}
		st, err := fs.Stat(fsys, m)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		names = append(names, m)
	}
	sort.Strings(names)
	return names, nil
}

func pngDimensions(file string) (int, int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, 0, fmt.Errorf("open image %s: %w", file, err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read dimensions of %s: %w", file, err)
	}
	return cfg.Width, cfg.Height, nil
}
