package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/c360studio/openhub/config"
	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/repocache"
	"github.com/c360studio/openhub/specbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(rc *RunContext) []AcquisitionKind {
	var out []AcquisitionKind
	for _, a := range rc.Acquisitions {
		out = append(out, a.Kind)
	}
	return out
}

func TestRun_StandaloneSoftwareDocs(t *testing.T) {
	remote := newRemote(t, map[string][]byte{
		"docs/intro.md": []byte("---\ntitle: Intro\n---\nHello\n"),
		"README.md":     []byte("readme\n"),
	})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"), "---\ntitle: Tool\nrepo_url: "+remote+"\n---\n")

	rc := newRun(t, source, nil)
	require.NoError(t, Run(context.Background(), rc))

	assert.False(t, rc.IsHub)
	assert.Equal(t, []AcquisitionKind{KindSoftwareDocs}, kinds(rc), "docs share the main repo so no second acquisition")

	software := rc.Site.Collections["software"]
	tool, ok := software.Document("/software/tool")
	require.True(t, ok)
	assert.True(t, commitTime.Equal(lastUpdate(t, tool)))

	intro, ok := software.Document("/software/tool/docs/intro")
	require.True(t, ok)
	assert.False(t, intro.RenderTemplates)
	assert.NoFileExists(t, filepath.Join(source, "_software", "tool", "README.md"))

	require.Len(t, rc.Indexes.Software.Rest, 1)
	assert.Same(t, tool, rc.Indexes.Software.Rest[0])
}

func TestRun_MissingDocsSubtreeFallsBackToMainRepo(t *testing.T) {
	remote := newRemote(t, map[string][]byte{"README.md": []byte("no docs here\n")})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"), "---\ntitle: Tool\nrepo_url: "+remote+"\n---\n")

	rc := newRun(t, source, nil)
	require.NoError(t, Run(context.Background(), rc))

	assert.Equal(t, []AcquisitionKind{KindSoftwareDocs, KindSoftwareRepo}, kinds(rc))
	assert.False(t, rc.Acquisitions[0].Result.Success)
	assert.True(t, rc.Acquisitions[1].Result.Success)

	software := rc.Site.Collections["software"]
	assert.Equal(t, 1, software.Len(), "no documentation was ingested")

	tool, _ := software.Document("/software/tool")
	assert.True(t, commitTime.Equal(lastUpdate(t, tool)))
	assert.FileExists(t, filepath.Join(source, "_software", "_tool_repo", "README.md"))
}

func TestRun_SeparateDocsRepository(t *testing.T) {
	mainRemote := newRemote(t, map[string][]byte{"main.go": []byte("package main\n")})
	docsRemote := newRemote(t, map[string][]byte{"guide/start.md": []byte("start\n")})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"),
		"---\nrepo_url: "+mainRemote+"\ndocs:\n  git_repo_url: "+docsRemote+"\n  git_repo_subtree: guide\n---\n")

	rc := newRun(t, source, nil)
	require.NoError(t, Run(context.Background(), rc))

	assert.Equal(t, []AcquisitionKind{KindSoftwareDocs, KindSoftwareRepo}, kinds(rc))
	_, ok := rc.Site.Collections["software"].Document("/software/tool/guide/start")
	assert.True(t, ok)
}

func TestRun_SpecPages(t *testing.T) {
	remote := newRemote(t, map[string][]byte{
		"diagrams/overview.png": pngBytes(t, 64, 32),
		"diagrams/extra.png":    pngBytes(t, 8, 8),
	})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_specs", "my-spec.md"), `---
title: My Spec
spec_source:
  git_repo_url: `+remote+`
  git_repo_subtree: diagrams
  build:
    engine: png_diagrams
navigation:
  items:
    - title: Overview
      path: overview/
    - title: Missing
      path: missing/
---
`)

	rc := newRun(t, source, nil)
	require.NoError(t, Run(context.Background(), rc))

	require.Len(t, rc.Site.Pages, 1)
	page := rc.Site.Pages[0]
	assert.Equal(t, "specs/my-spec/overview/index.html", page.OutputPath())
	assert.Equal(t, "My Spec: Overview", page.Data["title"])
	assert.Equal(t, 64, page.Data["image_width"])

	require.Len(t, rc.Warnings, 2)
	assert.Equal(t, specbuild.WarningUnusedImage, rc.Warnings[0].Kind)
	assert.Equal(t, "extra.png", rc.Warnings[0].Name)
	assert.Equal(t, specbuild.WarningImageNotFound, rc.Warnings[1].Kind)
	assert.Equal(t, "Missing", rc.Warnings[1].Name)

	specs := rc.Site.Collections["specs"]
	assert.Len(t, specs.Files, 2, "fetched images are registered as static files")
	spec, _ := specs.Document("/specs/my-spec")
	assert.True(t, commitTime.Equal(lastUpdate(t, spec)))
}

func TestRun_UnknownEngineIsFatal(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_specs", "s.md"),
		"---\nspec_source:\n  git_repo_url: https://example.invalid/s.git\n  build:\n    engine: svg_magic\n---\n")

	rc := newRun(t, source, nil)
	err := Run(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, specbuild.ErrUnknownEngine))
	assert.Empty(t, rc.Acquisitions)
}

func TestRun_InvalidRefreshPolicyIsFatal(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"), "---\nrepo_url: https://example.invalid/t.git\n---\n")

	cfg := config.DefaultConfig()
	cfg.RefreshRemoteData = "hourly"
	rc := newRun(t, source, cfg)

	err := Run(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repocache.ErrInvalidRefreshPolicy))
	assert.NoDirExists(t, filepath.Join(source, "_software", "tool"))
}

func TestRun_SkipWithEmptyCache(t *testing.T) {
	requireGit(t)
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"), "---\nrepo_url: https://example.invalid/t.git\n---\n")

	cfg := config.DefaultConfig()
	cfg.RefreshRemoteData = "skip"
	rc := newRun(t, source, cfg)

	require.NoError(t, Run(context.Background(), rc))
	assert.Empty(t, rc.Succeeded())
	tool, _ := rc.Site.Collections["software"].Document("/software/tool")
	assert.NotContains(t, tool.Data, LastUpdateKey)
}

func TestRun_ParentHub(t *testing.T) {
	hub := newRemote(t, map[string][]byte{
		"assets/logo.svg": []byte("<svg/>"),
		"title.html":      []byte("<h1>Hub</h1>"),
		"index.md":        []byte("hub home"),
	})
	source := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.ParentHub = &config.ParentHub{GitRepoURL: hub}
	rc := newRun(t, source, cfg)

	require.NoError(t, Run(context.Background(), rc))
	assert.Equal(t, []AcquisitionKind{KindParentHub}, kinds(rc))
	assert.FileExists(t, filepath.Join(source, "parent-hub", "assets", "logo.svg"))
	assert.FileExists(t, filepath.Join(source, "parent-hub", "title.html"))
	assert.NoFileExists(t, filepath.Join(source, "parent-hub", "index.md"))
}

func TestRun_Hub(t *testing.T) {
	toolRemote := newRemote(t, map[string][]byte{"docs/intro.md": []byte("intro\n")})
	projectRemote := newRemote(t, map[string][]byte{
		"_posts/2024/2024-01-10-release.md": []byte("---\ntitle: Release\n---\n"),
		"_software/tools/tool.md":           []byte("---\ntitle: Tool\nrepo_url: " + toolRemote + "\n---\n"),
		"_software/overview.md":             []byte("---\ntitle: Overview\n---\n"),
		"README.md":                         []byte("project readme\n"),
	})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_projects", "foo", "index.md"),
		"---\ntitle: Foo\nfeature_with_priority: 1\nsite:\n  git_repo_url: "+projectRemote+"\n---\n")
	writeFile(t, filepath.Join(source, "_posts", "2024-01-05-hub.md"), "---\ntitle: Hub news\n---\n")

	for run, fresh := range []bool{true, false} {
		rc := newRun(t, source, nil)
		require.NoError(t, Run(context.Background(), rc), "run %d", run+1)

		assert.True(t, rc.IsHub)
		assert.Equal(t, []AcquisitionKind{KindProject, KindSoftwareDocs}, kinds(rc))
		assert.Equal(t, fresh, rc.Acquisitions[0].Result.NewlyInitialized)

		projects := rc.Site.Collections["projects"]
		tool, ok := projects.Document("/projects/foo/_software/tools/tool")
		require.True(t, ok, "five-segment entry is admitted on run %d", run+1)
		assert.False(t, tool.RenderTemplates)
		assert.True(t, commitTime.Equal(lastUpdate(t, tool)))

		_, ok = projects.Document("/projects/foo/_software/overview")
		assert.False(t, ok, "four-segment document is not admitted on run %d", run+1)
		_, ok = projects.Document("/projects/foo/_software/tools/tool/docs/intro")
		assert.False(t, ok, "deep software docs stay out of projects on run %d", run+1)
		assert.FileExists(t, filepath.Join(source, "_projects", "foo", "_software", "tools", "tool", "docs", "intro.md"))
		assert.NoFileExists(t, filepath.Join(source, "_projects", "foo", "README.md"))

		foo, ok := projects.Document("/projects/foo/index")
		require.True(t, ok)
		assert.True(t, commitTime.Equal(lastUpdate(t, foo)))
		require.Len(t, rc.Indexes.Projects.Featured, 1)

		require.Len(t, rc.Indexes.Posts, 2)
		assert.Equal(t, "/projects/foo/_posts/2024/2024-01-10-release", rc.Indexes.Posts[0].URL)
		parent, ok := rc.Indexes.Posts[0].Data["parent_project"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "foo", parent["name"])
		assert.Equal(t, "/posts/2024-01-05-hub", rc.Indexes.Posts[1].URL)
	}
}

func TestRun_PersistedDocsKeepIngestRules(t *testing.T) {
	remote := newRemote(t, map[string][]byte{
		"docs/intro.md": []byte("---\ntitle: Intro\n---\n{{ not a template }}\n"),
	})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"), "---\ntitle: Tool\nrepo_url: "+remote+"\n---\n")

	for run, fresh := range []bool{true, false} {
		rc := newRun(t, source, nil)
		require.NoError(t, Run(context.Background(), rc), "run %d", run+1)
		assert.Equal(t, fresh, rc.Acquisitions[0].Result.NewlyInitialized)

		software := rc.Site.Collections["software"]
		assert.Equal(t, 2, software.Len())
		intro, ok := software.Document("/software/tool/docs/intro")
		require.True(t, ok, "run %d", run+1)
		assert.False(t, intro.RenderTemplates, "fetched docs pass through verbatim on run %d", run+1)
	}
}

func TestRun_DefaultsBuilders(t *testing.T) {
	remote := newRemote(t, map[string][]byte{"diagrams/a.png": pngBytes(t, 4, 4)})
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_specs", "s.md"), `---
title: S
spec_source:
  git_repo_url: `+remote+`
  git_repo_subtree: diagrams
  build:
    engine: png_diagrams
navigation:
  items:
    - title: A
      path: a/
---
`)
	site, err := content.ReadSite(source, nil, nil)
	require.NoError(t, err)

	rc := &RunContext{Site: site, Cache: repocache.New(repocache.Options{})}
	require.NoError(t, Run(context.Background(), rc))
	assert.NotNil(t, rc.Builders)
	assert.Len(t, rc.Site.Pages, 1)
}

func TestRunContext_AcquireOncePerPath(t *testing.T) {
	remote := newRemote(t, map[string][]byte{"README.md": []byte("x\n")})
	source := t.TempDir()
	rc := newRun(t, source, nil)

	req := repocache.Request{Path: filepath.Join(source, "repo"), RemoteURL: remote}
	first, err := rc.acquire(context.Background(), KindSpec, "/specs/a", req)
	require.NoError(t, err)
	second, err := rc.acquire(context.Background(), KindSpec, "/specs/b", req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, rc.Acquisitions, 1)
}

func TestRun_RequiresSiteAndCache(t *testing.T) {
	assert.Error(t, Run(context.Background(), &RunContext{}))
}

func TestNewRunContext(t *testing.T) {
	rc := NewRunContext(nil, nil, nil, nil)
	assert.NotEmpty(t, rc.RunID)
	assert.NotNil(t, rc.Builders)
	assert.NotNil(t, rc.Logger)

	other := NewRunContext(nil, nil, nil, nil)
	assert.NotEqual(t, rc.RunID, other.RunID)
}
