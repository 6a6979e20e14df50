package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/openhub/config"
	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/repocache"
	"github.com/stretchr/testify/require"
)

var commitTime = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func runTestGit(t *testing.T, dir string, env []string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), output)
}

// newRemote publishes files on branch main of a fresh bare repository and
// returns its file:// URL.
func newRemote(t *testing.T, files map[string][]byte) string {
	t.Helper()
	requireGit(t)

	bare := t.TempDir()
	work := t.TempDir()
	runTestGit(t, bare, nil, "init", "--bare", "--quiet")
	runTestGit(t, work, nil, "init", "--quiet")

	for name, body := range files {
		path := filepath.Join(work, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, body, 0644))
	}

	date := fmt.Sprintf("%d +0000", commitTime.Unix())
	env := []string{
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_DATE=" + date,
	}
	runTestGit(t, work, env, "add", ".")
	runTestGit(t, work, env, "commit", "--quiet", "-m", "initial")
	runTestGit(t, work, env, "push", "--quiet", bare, "HEAD:refs/heads/main")

	return "file://" + bare
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

// newRun reads the site at source and prepares a run against a fresh cache.
func newRun(t *testing.T, source string, cfg *config.Config) *RunContext {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	site, err := content.ReadSite(source, cfg, nil)
	require.NoError(t, err)

	cache := repocache.New(repocache.Options{
		RefreshPolicy: cfg.RefreshRemoteData,
		DefaultBranch: cfg.DefaultRepoBranch,
	})
	return NewRunContext(site, cache, nil, nil)
}

func lastUpdate(t *testing.T, doc *content.Document) time.Time {
	t.Helper()
	v, ok := doc.Data[LastUpdateKey].(time.Time)
	require.True(t, ok, "last_update missing on %s", doc.ID)
	return v
}
