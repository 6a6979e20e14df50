package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/c360studio/openhub/repocache"
	"github.com/c360studio/openhub/watch"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	opts := &syncOptions{}
	var debounce string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync once, then again whenever the site sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.logLevel)
			slog.SetDefault(logger)

			if err := opts.resolve(); err != nil {
				return err
			}

			wcfg := watch.DefaultConfig()
			if debounce != "" {
				d, err := parseDebounce(debounce)
				if err != nil {
					return err
				}
				wcfg.Debounce = d
			}
			wcfg.ExcludeDirs = []string{opts.dest}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics := repocache.NewMetrics()
			sync := func(ctx context.Context) error {
				_, err := runSync(ctx, opts, metrics, logger)
				return err
			}

			// A failed first sync is fatal; later failures are logged by the watcher.
			if err := sync(ctx); err != nil {
				return err
			}

			w, err := watch.New(opts.site, wcfg, logger)
			if err != nil {
				return err
			}
			return w.Run(ctx, sync)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&debounce, "debounce", "", "Delay before syncing after a change (default 500ms)")
	return cmd
}
