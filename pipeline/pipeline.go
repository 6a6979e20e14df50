package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/entrypoint"
	"github.com/c360studio/openhub/index"
	"github.com/c360studio/openhub/ingest"
	"github.com/c360studio/openhub/repocache"
	"github.com/c360studio/openhub/specbuild"
)

// Run augments the site with remote content. A site with a non-empty
// projects collection is a hub: each project's site repository is acquired
// and the software and specs nested in projects are resolved. Otherwise the
// site's own software and specs are resolved and the parent hub's branding
// is fetched when configured.
//
// Fetched trees are read into collections only through the ingester, on
// every run. Soft acquisition failures leave the entry without remote
// content; every other error aborts the run.
func Run(ctx context.Context, rc *RunContext) error {
	if rc.Site == nil || rc.Cache == nil {
		return fmt.Errorf("run context requires a site and a repository cache")
	}
	if rc.visited == nil {
		rc.visited = make(map[string]repocache.Result)
	}
	if rc.Logger == nil {
		rc.Logger = slog.Default()
	}
	if rc.Builders == nil {
		rc.Builders = specbuild.DefaultRegistry(rc.Logger)
	}

	rc.StartedAt = time.Now()
	projects := rc.Site.Collections[content.LabelProjects]
	rc.IsHub = projects != nil && projects.Len() > 0

	rc.Logger.Info("Sync started",
		slog.String("source", rc.Site.Source),
		slog.Bool("hub", rc.IsHub))

	var err error
	if rc.IsHub {
		err = runHub(ctx, rc, projects)
	} else {
		err = runStandalone(ctx, rc)
	}
	if err != nil {
		return err
	}

	rc.Indexes = buildIndexes(rc)
	rc.FinishedAt = time.Now()

	rc.Logger.Info("Sync finished",
		slog.Int("acquisitions", len(rc.Acquisitions)),
		slog.Int("succeeded", len(rc.Succeeded())),
		slog.Int("pages", len(rc.Site.Pages)),
		slog.Int("warnings", len(rc.Warnings)),
		slog.Duration("duration", rc.FinishedAt.Sub(rc.StartedAt)))
	return nil
}

func runHub(ctx context.Context, rc *RunContext, projects *content.Collection) error {
	found, err := entrypoint.FindProjects(projects)
	if err != nil {
		return err
	}

	reader := ingest.NewReader(rc.Site.Source, rc.Logger)
	for _, p := range found {
		res, err := rc.acquire(ctx, KindProject, p.Doc.ID, repocache.Request{
			Path:        p.Path,
			RemoteURL:   p.Site.RepoURL,
			SparsePaths: p.SparsePaths(),
			Branch:      p.Site.Branch,
		})
		if err != nil {
			return err
		}
		// The site reader leaves working copies alone, so a persisted
		// checkout is ingested just like a fresh one.
		if res.Success {
			if err := reader.Read(p.Path, projects); err != nil {
				return fmt.Errorf("ingest project %s: %w", p.Name, err)
			}
		}
		mergeLastUpdate(p.Doc, res.ModifiedAt)
	}

	if err := resolveSoftware(ctx, rc, projects, "/_software/"); err != nil {
		return err
	}
	return resolveSpecs(ctx, rc, projects, "/_specs/")
}

func runStandalone(ctx context.Context, rc *RunContext) error {
	if err := resolveSoftware(ctx, rc, rc.Site.Collections[content.LabelSoftware], ""); err != nil {
		return err
	}
	if err := resolveSpecs(ctx, rc, rc.Site.Collections[content.LabelSpecs], ""); err != nil {
		return err
	}
	return fetchParentHub(ctx, rc)
}

// resolveSoftware acquires and ingests each software entry's documentation
// and records its last_update. scope, when set, must appear in the entry URL.
func resolveSoftware(ctx context.Context, rc *RunContext, coll *content.Collection, scope string) error {
	entries, err := entrypoint.FindSoftware(coll)
	if err != nil {
		return err
	}

	reader := ingest.NewReader(rc.Site.Source, rc.Logger)
	for _, e := range entries {
		if scope != "" && !strings.Contains(e.Doc.URL, scope) {
			continue
		}
		rc.SoftwareEntries = append(rc.SoftwareEntries, e.Doc)

		docsRes, err := rc.acquire(ctx, KindSoftwareDocs, e.Doc.ID, repocache.Request{
			Path:        e.DocsPath,
			RemoteURL:   e.Docs.RepoURL,
			SparsePaths: e.Docs.SparsePaths(),
			Branch:      e.Docs.Branch,
		})
		if err != nil {
			return err
		}
		if docsRes.Success {
			if err := reader.Read(e.DocsPath, coll); err != nil {
				return fmt.Errorf("ingest software %s: %w", e.Name, err)
			}
		}

		modifiedAt := docsRes.ModifiedAt
		if !docsRes.Success || !e.SameRepo() {
			mainRes, err := rc.acquire(ctx, KindSoftwareRepo, e.Doc.ID, repocache.Request{
				Path:      e.RepoPath,
				RemoteURL: e.Main.RepoURL,
				Branch:    e.Main.Branch,
			})
			if err != nil {
				return err
			}
			modifiedAt = mainRes.ModifiedAt
		}
		mergeLastUpdate(e.Doc, modifiedAt)
	}
	return nil
}

// resolveSpecs acquires each spec source, generates its pages and ingests it.
func resolveSpecs(ctx context.Context, rc *RunContext, coll *content.Collection, scope string) error {
	entries, err := entrypoint.FindSpecs(coll)
	if err != nil {
		return err
	}

	reader := ingest.NewReader(rc.Site.Source, rc.Logger)
	for _, e := range entries {
		if scope != "" && !strings.Contains(e.Doc.URL, scope) {
			continue
		}
		builder, err := rc.Builders.Lookup(e.Build.Engine)
		if err != nil {
			return fmt.Errorf("spec %s: %w", e.Doc.ID, err)
		}
		rc.SpecEntries = append(rc.SpecEntries, e.Doc)

		res, err := rc.acquire(ctx, KindSpec, e.Doc.ID, repocache.Request{
			Path:        e.Path,
			RemoteURL:   e.Source.RepoURL,
			SparsePaths: e.Source.SparsePaths(),
			Branch:      e.Source.Branch,
		})
		if err != nil {
			return err
		}
		if !res.Success {
			continue
		}

		pages, warnings, err := builder.Build(e.Input(), e.SourceDir(), e.OutputRoot(), e.Build.Options)
		if err != nil {
			return fmt.Errorf("build spec %s: %w", e.Doc.ID, err)
		}
		rc.Site.AddPages(pages...)
		rc.Warnings = append(rc.Warnings, warnings...)
		rc.Logger.Debug("Built spec pages",
			slog.String("spec", e.Doc.ID),
			slog.String("engine", e.Build.Engine),
			slog.Int("pages", len(pages)),
			slog.Int("warnings", len(warnings)))

		if err := reader.Read(e.Path, coll); err != nil {
			return fmt.Errorf("ingest spec %s: %w", e.Name, err)
		}
		mergeLastUpdate(e.Doc, res.ModifiedAt)
	}
	return nil
}

// fetchParentHub checks out the parent hub's branding into <source>/parent-hub.
func fetchParentHub(ctx context.Context, rc *RunContext) error {
	cfg := rc.Site.Config
	if cfg == nil || !cfg.HasParentHub() {
		return nil
	}
	_, err := rc.acquire(ctx, KindParentHub, "", repocache.Request{
		Path:        filepath.Join(rc.Site.Source, entrypoint.ParentHubDir),
		RemoteURL:   cfg.ParentHub.GitRepoURL,
		SparsePaths: entrypoint.ParentHubSubtrees,
		Branch:      cfg.ParentHub.GitRepoBranch,
	})
	return err
}

// acquire runs each local path at most once per run.
func (rc *RunContext) acquire(ctx context.Context, kind AcquisitionKind, entryID string, req repocache.Request) (repocache.Result, error) {
	key := filepath.Clean(req.Path)
	if res, ok := rc.visited[key]; ok {
		rc.Logger.Debug("Reusing acquisition from this run", slog.String("path", key))
		return res, nil
	}

	res, err := rc.Cache.Acquire(ctx, req)
	if err != nil {
		return res, fmt.Errorf("acquire %s for %s: %w", kind, entryID, err)
	}
	rc.visited[key] = res
	rc.Acquisitions = append(rc.Acquisitions, Acquisition{
		Kind:      kind,
		EntryID:   entryID,
		Path:      req.Path,
		RemoteURL: req.RemoteURL,
		Result:    res,
	})
	if !res.Success {
		rc.Logger.Warn("Remote content unavailable",
			slog.String("kind", string(kind)),
			slog.String("entry", entryID),
			slog.String("remote", req.RemoteURL))
	}
	return res, nil
}

func mergeLastUpdate(doc *content.Document, modifiedAt *time.Time) {
	if modifiedAt == nil {
		return
	}
	doc.MergeData(map[string]any{LastUpdateKey: *modifiedAt})
}

func buildIndexes(rc *RunContext) index.Indexes {
	idx := index.Indexes{
		Posts:    index.BlogFeed(rc.Site, rc.IsHub),
		Software: index.PartitionFeatured(rc.SoftwareEntries),
		Specs:    index.PartitionFeatured(rc.SpecEntries),
	}
	if rc.IsHub {
		var projects []*content.Document
		for _, doc := range rc.Site.Collections[content.LabelProjects].Docs {
			if entrypoint.IsProjectIndex(doc) {
				projects = append(projects, doc)
			}
		}
		idx.Projects = index.PartitionFeatured(projects)
	}
	return idx
}
