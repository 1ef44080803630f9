package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thewebbaby/site/internal/app"
	"github.com/thewebbaby/site/internal/config"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/version"
)

// errBuildFailed makes `webbaby build` exit non-zero without a second report.
var errBuildFailed = errors.New("feed build failed")

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "webbaby",
		Short:         "Content service for thewebbaby site",
		Long:          "Serves the news, weather, bulletins and RSS APIs and builds the feed files they read.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFiles(envFiles...)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env.local", ".env"},
		"env files loaded before reading the environment (first one wins)")

	root.AddCommand(newServeCmd(), newBuildCmd(), newValidateCmd(), newVersionCmd())
	return root
}

// setup loads and validates the configuration and builds the app.
func setup(cmd *cobra.Command) (*app.App, logger.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the scheduled feed rebuild",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return a.Run()
		},
	}
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Fetch feeds and weather once and write news, weather and rss files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer a.Close()

			res := a.Build(cmd.Context())
			if !res.OK {
				for _, e := range res.Errors {
					log.Error("build stage failed", logger.String("error", e))
				}
				return errBuildFailed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ build ok: %d items from %d sources in %s\n",
				res.Items, res.SourcesOK, res.Duration().Round(time.Millisecond))
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the bulletins file for schema errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer a.Close()

			problems := a.Validate()
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintln(out, "✅ content is valid")
				return nil
			}
			fmt.Fprintf(out, "❌ %d problem(s) found:\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webbaby %s (commit=%s, built=%s, go=%s)\n",
				version.Version, version.Commit, version.BuildDate, version.GoVersion)
		},
	}
}
