package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/openhub/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestReadSite(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_software", "tool.md"), "---\ntitle: Tool\n---\n")
	writeFile(t, filepath.Join(source, "_software", "guides", "intro.html"), "<p>intro</p>")
	writeFile(t, filepath.Join(source, "_software", "guides", "logo.svg"), "<svg/>")
	writeFile(t, filepath.Join(source, "_software", "tool", "docs", "fetched.md"), "fetched")
	writeFile(t, filepath.Join(source, "_software", ".hidden.md"), "hidden")
	writeFile(t, filepath.Join(source, "_software", "tool", ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(source, "_software", "drafts", "wip.md"), "draft")
	writeFile(t, filepath.Join(source, "_software", "_tool_repo", "README.md"), "main repo checkout")
	writeFile(t, filepath.Join(source, "_posts", "2020-01-01-hello.md"), "---\ntitle: Hello\n---\n")

	cfg := config.DefaultConfig()
	cfg.Exclude = []string{"_software/drafts/**"}

	site, err := ReadSite(source, cfg, nil)
	require.NoError(t, err)

	software := site.Collections["software"]
	require.NotNil(t, software)

	var ids []string
	for _, d := range software.Docs {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{"/software/tool", "/software/guides/intro"}, ids)
	require.Len(t, software.Files, 1)
	assert.Equal(t, "logo.svg", software.Files[0].Name)

	assert.Equal(t, 1, site.Collections["posts"].Len())
	assert.Equal(t, 0, site.Collections["projects"].Len())
	assert.Equal(t, 0, site.Collections["specs"].Len())
}

func TestReadSite_WorkingCopyKeepsOnlyRootIndex(t *testing.T) {
	source := t.TempDir()
	project := filepath.Join(source, "_projects", "foo")
	writeFile(t, filepath.Join(project, "index.md"), "---\ntitle: Foo\n---\n")
	writeFile(t, filepath.Join(project, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(project, "notes.md"), "fetched")
	writeFile(t, filepath.Join(project, "_posts", "2024", "2024-01-10-release.md"), "fetched")
	writeFile(t, filepath.Join(project, "assets", "logo.svg"), "<svg/>")

	site, err := ReadSite(source, nil, nil)
	require.NoError(t, err)

	projects := site.Collections["projects"]
	require.Equal(t, 1, projects.Len())
	assert.Equal(t, "/projects/foo/index", projects.Docs[0].ID)
	assert.True(t, projects.Docs[0].RenderTemplates)
	assert.Empty(t, projects.Files)
}

func TestIsWorkingCopy(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsWorkingCopy(dir))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))
	assert.True(t, IsWorkingCopy(dir))
}

func TestIsMainRepoDir(t *testing.T) {
	assert.True(t, IsMainRepoDir("_tool_repo"))
	assert.False(t, IsMainRepoDir("tool_repo"))
	assert.False(t, IsMainRepoDir("_tool"))
}

func TestReadSite_SkipsSymlinks(t *testing.T) {
	source := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.md"), "secret")
	writeFile(t, filepath.Join(source, "_specs", "spec.md"), "---\ntitle: Spec\n---\n")

	if err := os.Symlink(outside, filepath.Join(source, "_specs", "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	site, err := ReadSite(source, config.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, site.Collections["specs"].Len())
}

func TestReadSite_MalformedDocumentIsFatal(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "_specs", "bad.md"), "---\ntitle: [oops\n---\n")

	_, err := ReadSite(source, config.DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestSite_Collection(t *testing.T) {
	site := NewSite("/site", nil)

	c := site.Collection("extra")
	assert.Equal(t, filepath.Join("/site", "_extra"), c.Dir)
	assert.Same(t, c, site.Collection("extra"))

	site.AddPages(&Page{Name: "a"}, &Page{Name: "b"})
	assert.Len(t, site.Pages, 2)
}
