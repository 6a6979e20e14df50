package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/openhub/config"
)

// Well-known collection labels.
const (
	LabelProjects = "projects"
	LabelSoftware = "software"
	LabelSpecs    = "specs"
	LabelPosts    = "posts"
)

// WorkingCopyDirPattern matches the directories holding main-repository
// checkouts next to their entry documents. They are never read as content.
const WorkingCopyDirPattern = "_*_repo"

// IsWorkingCopy reports whether dir carries a git working-copy marker.
func IsWorkingCopy(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// IsMainRepoDir reports whether name matches WorkingCopyDirPattern.
func IsMainRepoDir(name string) bool {
	ok, _ := doublestar.Match(WorkingCopyDirPattern, name)
	return ok
}

// documentExtensions are read as documents; anything else is a static file.
var documentExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
}

// IsDocumentExt reports whether ext (with leading dot) names a document format.
func IsDocumentExt(ext string) bool {
	return documentExtensions[strings.ToLower(ext)]
}

// Site is the in-memory content graph.
type Site struct {
	// Source is the site root directory.
	Source string

	Config      *config.Config
	Collections map[string]*Collection

	// Pages holds generated pages awaiting output.
	Pages []*Page
}

// NewSite creates a site with an empty collection for every configured label.
func NewSite(source string, cfg *config.Config) *Site {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Site{
		Source:      source,
		Config:      cfg,
		Collections: make(map[string]*Collection),
	}
	for _, label := range cfg.Collections {
		s.Collection(label)
	}
	return s
}

// Collection returns the collection for label, creating it if needed.
func (s *Site) Collection(label string) *Collection {
	if c, ok := s.Collections[label]; ok {
		return c
	}
	c := NewCollection(label, filepath.Join(s.Source, "_"+label))
	s.Collections[label] = c
	return c
}

// AddPages appends generated pages.
func (s *Site) AddPages(pages ...*Page) {
	s.Pages = append(s.Pages, pages...)
}

// ReadSite loads every configured collection from <source>/_<label>.
// Dot-prefixed entries, symbolic links, main-repository working copies and
// paths matching the configured exclude patterns are skipped.
//
// Fetched content belongs to the ingester. Inside a directory that carries a
// working-copy marker only the root index document is read, since it is the
// site's own description of that directory.
func ReadSite(source string, cfg *config.Config, logger *slog.Logger) (*Site, error) {
	if logger == nil {
		logger = slog.Default()
	}

	site := NewSite(source, cfg)
	for _, label := range site.Config.Collections {
		coll := site.Collection(label)
		n, err := site.readCollectionDir(coll)
		if err != nil {
			return nil, err
		}
		logger.Debug("Read collection",
			slog.String("collection", label),
			slog.Int("documents", len(coll.Docs)),
			slog.Int("files", n-len(coll.Docs)))
	}
	return site, nil
}

func (s *Site) readCollectionDir(coll *Collection) (int, error) {
	info, err := os.Stat(coll.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", coll.Dir, err)
	}
	if !info.IsDir() {
		return 0, nil
	}

	count := 0
	err = filepath.WalkDir(coll.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == coll.Dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && IsMainRepoDir(d.Name()) {
			return filepath.SkipDir
		}
		if s.excluded(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if IsWorkingCopy(p) {
				n, err := s.readWorkingCopyIndex(p, coll)
				count += n
				if err != nil {
					return err
				}
				return filepath.SkipDir
			}
			return nil
		}

		if err := s.readEntry(p, coll); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("read collection %s: %w", coll.Label, err)
	}
	return count, nil
}

func (s *Site) readEntry(p string, coll *Collection) error {
	if !IsDocumentExt(filepath.Ext(p)) {
		coll.AddFile(NewStaticFile(p, s.Source, coll))
		return nil
	}
	doc := NewDocument(p, s.Source, coll)
	if err := doc.Read(); err != nil {
		return err
	}
	coll.AddDocument(doc)
	return nil
}

// readWorkingCopyIndex reads the index documents at the root of a working copy.
func (s *Site) readWorkingCopyIndex(dir string, coll *Collection) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !IsDocumentExt(filepath.Ext(name)) {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) != "index" {
			continue
		}
		p := filepath.Join(dir, name)
		if s.excluded(p) {
			continue
		}
		if err := s.readEntry(p, coll); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Site) excluded(p string) bool {
	rel := relativeSlash(s.Source, p)
	for _, pattern := range s.Config.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
