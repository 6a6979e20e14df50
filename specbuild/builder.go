// Package specbuild generates spec pages from a navigation manifest and the
// assets fetched alongside it.
package specbuild

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/openhub/content"
)

// ErrUnknownEngine is returned when a spec names a build engine that is not registered.
var ErrUnknownEngine = errors.New("unknown spec build engine")

// SpecInput is the spec document as seen by a builder.
type SpecInput struct {
	Title      string
	Data       map[string]any
	Navigation []NavigationItem
}

// WarningKind classifies a navigation/asset mismatch.
type WarningKind string

// WarningUnusedImage and WarningImageNotFound enumerate the mismatch kinds.
const (
	// WarningUnusedImage is an image no navigation item points at.
	WarningUnusedImage WarningKind = "unused_image"
	// WarningImageNotFound is a navigation item with no matching image.
	WarningImageNotFound WarningKind = "image_not_found"
)

// Warning is an advisory mismatch report. It never aborts a build.
type Warning struct {
	Kind WarningKind

	// Name is the image file name or the navigation item title.
	Name string

	Message string
}

func (w Warning) String() string {
	return w.Message
}

// SpecPageBuilder turns a spec's navigation and source directory into pages
// rooted at outputRoot.
type SpecPageBuilder interface {
	Build(spec SpecInput, sourceDir, outputRoot string, options map[string]any) ([]*content.Page, []Warning, error)
}

// Registry maps engine names to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]SpecPageBuilder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]SpecPageBuilder)}
}

// Register binds engine to b, replacing any earlier binding.
func (r *Registry) Register(engine string, b SpecPageBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[engine] = b
}

// Lookup returns the builder for engine.
func (r *Registry) Lookup(engine string) (SpecPageBuilder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
	return b, nil
}

// Engines lists the registered engine names.
func (r *Registry) Engines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
