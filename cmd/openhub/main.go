// Package main provides the openhub binary entry point.
// Openhub fetches documentation from remote repositories into a hub or
// project site and generates spec diagram pages.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "openhub"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Aggregate remote documentation into an open project site",
		Long: `Openhub aggregates content from independently hosted documentation
repositories into one site.

A hub site lists projects; each project's site repository is fetched and
merged into the hub. A standalone project site fetches the documentation of
its own software and specs. Spec diagrams are turned into pages from the
spec's navigation manifest.

Working copies are cached next to the documents that declare them and are
refreshed according to refresh_remote_data (always, last-resort or skip).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(syncCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// newLogger builds the process logger from a --log-level value.
func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
