package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vecdemo/internal/config"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		env        string
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:           "vecdemo",
		Short:         "Multi-approach vector search demo backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "Environment (local, dev, docker, prod)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (overrides config/<env>.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), env, configPath)
		},
	}

	var opts searchOptions
	searchCmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Run one search invocation and print the result cards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), env, configPath, args, opts)
		},
	}
	searchCmd.Flags().BoolVar(&opts.image, "image", false, "Search the image index")
	searchCmd.Flags().StringSliceVar(&opts.approaches, "approach", nil, "Approaches to run (text, vec, vecf, hs, hssr)")
	searchCmd.Flags().StringVar(&opts.filter, "filter", "", "Filter expression for vecf")
	searchCmd.Flags().BoolVar(&opts.captions, "captions", false, "Request semantic captions and answers")
	searchCmd.Flags().BoolVar(&opts.json, "json", false, "Print the raw outcome as JSON")

	approachesCmd := &cobra.Command{
		Use:   "approaches",
		Short: "List retrieval approaches",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available approaches:")
			fmt.Fprintln(out)
			for _, a := range approach.All() {
				fmt.Fprintf(out, "  %-6s %s\n", a.Key(), a.Label())
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "At most %d approaches per invocation.\n", approach.MaxSelected)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vecdemo %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}

	rootCmd.AddCommand(serveCmd, searchCmd, approachesCmd, versionCmd)
	return rootCmd
}
