package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/c360studio/openhub/config"
	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/pipeline"
	"github.com/c360studio/openhub/repocache"
	"github.com/spf13/cobra"
)

// syncOptions are the flags shared by sync and watch.
type syncOptions struct {
	site        string
	dest        string
	refresh     string
	branch      string
	metricsFile string
	logLevel    string
}

func (o *syncOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.site, "site", ".", "Site source directory")
	cmd.Flags().StringVar(&o.dest, "dest", "", "Output directory for generated pages (default <site>/_site)")
	cmd.Flags().StringVar(&o.refresh, "refresh", "", "Override refresh_remote_data (always, last-resort, skip)")
	cmd.Flags().StringVar(&o.branch, "branch", "", "Override default_repo_branch")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "Write repository cache metrics in Prometheus text format to this file")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// resolve makes paths absolute and applies the destination default.
func (o *syncOptions) resolve() error {
	site, err := filepath.Abs(o.site)
	if err != nil {
		return fmt.Errorf("resolve site path: %w", err)
	}
	info, err := os.Stat(site)
	if err != nil {
		return fmt.Errorf("stat site path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", site)
	}
	o.site = site

	if o.dest == "" {
		o.dest = filepath.Join(site, "_site")
	}
	dest, err := filepath.Abs(o.dest)
	if err != nil {
		return fmt.Errorf("resolve destination path: %w", err)
	}
	o.dest = dest
	return nil
}

func syncCmd() *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch remote content and write generated pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.logLevel)
			slog.SetDefault(logger)

			if err := opts.resolve(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err := runSync(ctx, opts, repocache.NewMetrics(), logger)
			return err
		},
	}
	opts.register(cmd)
	return cmd
}

// runSync performs one complete run: load config, read the site, run the
// pipeline and write its output.
func runSync(ctx context.Context, opts *syncOptions, metrics *repocache.Metrics, logger *slog.Logger) (*pipeline.RunContext, error) {
	cfg, err := config.NewLoader(logger).Load(opts.site, config.Overrides{
		RefreshRemoteData: opts.refresh,
		DefaultRepoBranch: opts.branch,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	site, err := content.ReadSite(opts.site, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("read site: %w", err)
	}

	cache := repocache.New(repocache.Options{
		RefreshPolicy: cfg.RefreshRemoteData,
		DefaultBranch: cfg.DefaultRepoBranch,
		Logger:        logger,
		Metrics:       metrics,
	})

	rc := pipeline.NewRunContext(site, cache, nil, logger)
	if err := pipeline.Run(ctx, rc); err != nil {
		return rc, err
	}

	if err := writeOutput(opts.dest, rc); err != nil {
		return rc, err
	}
	if opts.metricsFile != "" {
		if err := writeMetricsFile(opts.metricsFile, metrics); err != nil {
			return rc, err
		}
	}

	rc.Logger.Info("Output written",
		slog.String("dest", opts.dest),
		slog.Int("pages", len(rc.Site.Pages)),
		slog.Int("warnings", len(rc.Warnings)))
	return rc, nil
}
