// Package ingest walks fetched directory trees into site collections.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/openhub/content"
)

// projectLeafSegments is the URL depth at which nested project content is admitted.
const projectLeafSegments = 5

// assetExtensions are registered as static files.
var assetExtensions = map[string]bool{
	".svg":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Reader reads a directory tree into a collection.
type Reader struct {
	siteSource string
	logger     *slog.Logger
}

// NewReader creates a reader for a site rooted at siteSource.
func NewReader(siteSource string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{siteSource: siteSource, logger: logger}
}

// Read walks dir and adds its documents and assets to coll.
//
// An index document directly inside dir describes dir itself and is skipped;
// main-repository checkouts nested in the tree are not content.
// index documents further down are content. Documents are marked as not
// needing template expansion. In the projects collection only documents whose
// URL has exactly five segments are admitted.
func (r *Reader) Read(dir string, coll *content.Collection) error {
	var docs, files int
	if err := r.readDir(dir, coll, false, &docs, &files); err != nil {
		return err
	}
	r.logger.Debug("Ingested directory",
		slog.String("dir", dir),
		slog.String("collection", coll.Label),
		slog.Int("documents", docs),
		slog.Int("files", files))
	return nil
}

func (r *Reader) readDir(dir string, coll *content.Collection, nested bool, docs, files *int) error {
	info, err := os.Lstat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil || target.IsDir() {
				continue
			}
		} else if entry.IsDir() {
			if content.IsMainRepoDir(name) {
				continue
			}
			if err := r.readDir(path, coll, true, docs, files); err != nil {
				return err
			}
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		isDoc := content.IsDocumentExt(ext)
		if !isDoc && !assetExtensions[ext] {
			continue
		}
		if !nested && strings.TrimSuffix(name, filepath.Ext(name)) == "index" {
			continue
		}

		if !isDoc {
			if coll.AddFile(content.NewStaticFile(path, r.siteSource, coll)) {
				*files++
			}
			continue
		}

		doc := content.NewDocument(path, r.siteSource, coll)
		doc.RenderTemplates = false
		if err := doc.Read(); err != nil {
			return err
		}
		if coll.Label == content.LabelProjects && doc.URLSegmentCount() != projectLeafSegments {
			continue
		}
		if coll.AddDocument(doc) {
			*docs++
		}
	}
	return nil
}
