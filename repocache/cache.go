// Package repocache keeps one local working copy per remote documentation source
// and refreshes it with shallow, optionally sparse, single-branch checkouts.
package repocache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Options configures a Cache.
type Options struct {
	// RefreshPolicy is the site-wide refresh_remote_data value. It is validated on
	// every Acquire so that a bad value fails before any git command runs.
	RefreshPolicy string

	// DefaultBranch is the site-wide default_repo_branch.
	DefaultBranch string

	Logger  *slog.Logger
	Metrics *Metrics
}

// Request describes one acquisition target.
type Request struct {
	// Path is the local working copy directory.
	Path string

	// RemoteURL is registered as origin when the working copy is created.
	RemoteURL string

	// SparsePaths restricts the checkout; empty means a full checkout.
	SparsePaths []string

	// Branch overrides the site default branch.
	Branch string
}

// Result reports the outcome of an acquisition.
type Result struct {
	// Success is false when the checkout is unusable but the run may continue,
	// typically because the declared subtree does not exist in the remote.
	Success bool

	// NewlyInitialized is true when this call created the working copy.
	NewlyInitialized bool

	// ModifiedAt is the HEAD commit time, set only on success.
	ModifiedAt *time.Time
}

// Cache acquires remote repositories into local working copies.
// Calls targeting the same Path must not run concurrently.
type Cache struct {
	policy        string
	defaultBranch string
	logger        *slog.Logger
	metrics       *Metrics
}

// New creates a repository cache.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Cache{
		policy:        opts.RefreshPolicy,
		defaultBranch: opts.DefaultBranch,
		logger:        logger,
		metrics:       metrics,
	}
}

// Metrics returns the collectors updated by this cache.
func (c *Cache) Metrics() *Metrics {
	return c.metrics
}

// ResolveBranch picks the explicit branch, else the site default, else FallbackBranch.
func (c *Cache) ResolveBranch(branch string) string {
	if branch != "" {
		return branch
	}
	if c.defaultBranch != "" {
		return c.defaultBranch
	}
	return FallbackBranch
}

// Acquire initializes or reuses the working copy at req.Path and refreshes it
// according to the refresh policy.
//
// An existing working copy is reused as-is: its remote and sparse specification
// are never rewritten. Sparse-emptiness is reported as Result{Success: false}
// with a nil error; every other failure is returned.
func (c *Cache) Acquire(ctx context.Context, req Request) (Result, error) {
	policy, err := ParseRefreshPolicy(c.policy)
	if err != nil {
		return Result{}, err
	}
	if req.Path == "" {
		return Result{}, fmt.Errorf("acquire %s: local path is required", req.RemoteURL)
	}
	if err := validateRemoteURL(req.RemoteURL); err != nil {
		return Result{}, fmt.Errorf("acquire %s: %w", req.Path, err)
	}

	branch := c.ResolveBranch(req.Branch)
	logger := c.logger.With(
		slog.String("path", req.Path),
		slog.String("remote", req.RemoteURL),
		slog.String("branch", branch),
		slog.String("policy", policy.String()),
	)

	result := Result{}
	if !hasWorkingCopy(req.Path) {
		if err := gitInit(ctx, req.Path, req.RemoteURL, req.SparsePaths); err != nil {
			c.metrics.AcquisitionsTotal.WithLabelValues(policy.String(), resultError).Inc()
			return result, fmt.Errorf("initialize %s: %w", req.Path, err)
		}
		result.NewlyInitialized = true
		c.metrics.InitializedTotal.Inc()
		logger.Debug("Initialized working copy", slog.Any("sparse_paths", req.SparsePaths))
	}

	switch policy {
	case PolicyAlways:
		err = c.refresh(ctx, req.Path, branch)
	case PolicyLastResort:
		err = c.checkoutLastResort(ctx, logger, req.Path, branch)
	case PolicySkip:
		if !gitHasHead(ctx, req.Path) {
			logger.Warn("Nothing cached and refresh is skipped")
			c.metrics.AcquisitionsTotal.WithLabelValues(policy.String(), resultSoftFailure).Inc()
			return result, nil
		}
	}

	if isSparseEmpty(err) {
		logger.Warn("Sparse checkout is empty; declared subtree is probably missing from the remote",
			slog.Any("sparse_paths", req.SparsePaths))
		c.metrics.AcquisitionsTotal.WithLabelValues(policy.String(), resultSoftFailure).Inc()
		return result, nil
	}
	if err != nil {
		c.metrics.AcquisitionsTotal.WithLabelValues(policy.String(), resultError).Inc()
		return result, fmt.Errorf("acquire %s: %w", req.Path, err)
	}

	modifiedAt, err := gitHeadTime(ctx, req.Path)
	if err != nil {
		c.metrics.AcquisitionsTotal.WithLabelValues(policy.String(), resultError).Inc()
		return result, fmt.Errorf("read HEAD of %s: %w", req.Path, err)
	}

	result.Success = true
	result.ModifiedAt = &modifiedAt
	c.metrics.AcquisitionsTotal.WithLabelValues(policy.String(), resultSuccess).Inc()
	logger.Debug("Acquired", slog.Time("modified_at", modifiedAt), slog.Bool("newly_initialized", result.NewlyInitialized))
	return result, nil
}

// refresh unconditionally fetches, hard-resets and force-checks-out branch.
func (c *Cache) refresh(ctx context.Context, path, branch string) error {
	if err := c.fetch(ctx, path, branch); err != nil {
		return err
	}
	if err := gitResetHard(ctx, path); err != nil {
		return err
	}
	return gitCheckoutRemote(ctx, path, branch)
}

// checkoutLastResort tries the cached remote-tracking ref first and fetches
// once only when that checkout fails for a reason other than sparse-emptiness.
func (c *Cache) checkoutLastResort(ctx context.Context, logger *slog.Logger, path, branch string) error {
	err := gitCheckoutRemote(ctx, path, branch)
	if err == nil || isSparseEmpty(err) {
		return err
	}

	logger.Debug("Cached checkout failed, fetching", slog.String("error", err.Error()))

	if err := c.fetch(ctx, path, branch); err != nil {
		return err
	}
	return gitCheckoutRemote(ctx, path, branch)
}

func (c *Cache) fetch(ctx context.Context, path, branch string) error {
	start := time.Now()
	err := gitFetchShallow(ctx, path, branch)
	c.metrics.FetchDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchesTotal.WithLabelValues(resultError).Inc()
		return err
	}
	c.metrics.FetchesTotal.WithLabelValues(resultSuccess).Inc()
	return nil
}
