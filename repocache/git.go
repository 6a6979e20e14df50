package repocache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	remoteName = "origin"

	// insecureSSHCommand skips host key verification; remotes are operator-declared.
	insecureSSHCommand = "ssh -o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"

	// sparseEmptyMessage is what older git prints when the sparse spec matches nothing.
	sparseEmptyMessage = "Sparse checkout leaves no entry on working directory"
)

// runGit executes a git command in dir and returns its combined output.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// hasWorkingCopy reports whether path already carries a .git marker.
func hasWorkingCopy(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// gitInit creates an empty repository at path with origin pointing at remoteURL
// and, when sparsePaths is non-empty, a sparse-checkout specification.
func gitInit(ctx context.Context, path, remoteURL string, sparsePaths []string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := runGit(ctx, path, "init", "--quiet"); err != nil {
		return err
	}
	if _, err := runGit(ctx, path, "config", "core.sshCommand", insecureSSHCommand); err != nil {
		return err
	}
	if _, err := runGit(ctx, path, "remote", "add", remoteName, remoteURL); err != nil {
		return err
	}

	if len(sparsePaths) == 0 {
		return nil
	}

	if _, err := runGit(ctx, path, "config", "core.sparseCheckout", "true"); err != nil {
		return err
	}

	infoDir := filepath.Join(path, ".git", "info")
	if err := os.MkdirAll(infoDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", infoDir, err)
	}
	f, err := os.OpenFile(filepath.Join(infoDir, "sparse-checkout"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open sparse-checkout: %w", err)
	}
	defer f.Close()

	for _, p := range sparsePaths {
		if _, err := fmt.Fprintln(f, p); err != nil {
			return fmt.Errorf("write sparse-checkout: %w", err)
		}
	}
	return nil
}

// gitFetchShallow fetches only the tip of branch into refs/remotes/origin/<branch>.
func gitFetchShallow(ctx context.Context, path, branch string) error {
	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remoteName, branch)
	_, err := runGit(ctx, path, "fetch", "--depth=1", "--no-tags", remoteName, refspec)
	return err
}

// gitResetHard discards working tree changes. A repository without any commit
// has nothing to reset.
func gitResetHard(ctx context.Context, path string) error {
	if !gitHasHead(ctx, path) {
		return nil
	}
	_, err := runGit(ctx, path, "reset", "--hard", "--quiet")
	return err
}

// gitCheckoutRemote force-checks-out origin/<branch> with no network access.
// A sparse specification that leaves the tree empty yields ErrSparseCheckoutEmpty.
func gitCheckoutRemote(ctx context.Context, path, branch string) error {
	output, err := runGit(ctx, path, "checkout", "--force", "--quiet", remoteName+"/"+branch)
	if err != nil {
		if strings.Contains(output, sparseEmptyMessage) {
			return fmt.Errorf("%w: %s", ErrSparseCheckoutEmpty, path)
		}
		return err
	}

	// Newer git no longer refuses an empty sparse checkout, so inspect the index.
	if sparseEnabled(path) {
		empty, err := gitNothingCheckedOut(ctx, path)
		if err != nil {
			return err
		}
		if empty {
			return fmt.Errorf("%w: %s", ErrSparseCheckoutEmpty, path)
		}
	}
	return nil
}

// gitHasHead reports whether HEAD resolves to a commit.
func gitHasHead(ctx context.Context, path string) bool {
	_, err := runGit(ctx, path, "rev-parse", "--verify", "--quiet", "HEAD")
	return err == nil
}

// gitHeadTime returns the committer timestamp of HEAD.
func gitHeadTime(ctx context.Context, path string) (time.Time, error) {
	output, err := runGit(ctx, path, "log", "-1", "--format=%cI", "HEAD")
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(output))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commit time %q: %w", strings.TrimSpace(output), err)
	}
	return ts, nil
}

// sparseEnabled reports whether path carries a non-empty sparse-checkout specification.
func sparseEnabled(path string) bool {
	data, err := os.ReadFile(filepath.Join(path, ".git", "info", "sparse-checkout"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) != ""
}

// gitNothingCheckedOut reports whether every tracked entry is outside the
// sparse specification. Untracked files already in path do not count.
func gitNothingCheckedOut(ctx context.Context, path string) (bool, error) {
	output, err := runGit(ctx, path, "ls-files", "-t")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(output, "\n") {
		if line != "" && !strings.HasPrefix(line, "S ") {
			return false, nil
		}
	}
	return true, nil
}

// isSparseEmpty reports whether err is the soft sparse-emptiness condition.
func isSparseEmpty(err error) bool {
	return errors.Is(err, ErrSparseCheckoutEmpty)
}
