package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/enetx/hfsm/internal/config"
	"github.com/enetx/hfsm/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hfsm",
	Short: "Drive and inspect a hierarchical state machine",
	Long: `hfsm runs a traffic light built on the hfsm library.

It can be driven from the terminal (run), exported as Graphviz (dot) or
served over HTTP with Prometheus metrics and optional Redis persistence (serve).
Settings are read from the environment and from a .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Load settings from this file instead of .env")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// setup loads the configuration and applies the persistent flags.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	var files []string
	if file, _ := cmd.Flags().GetString("env-file"); file != "" {
		files = append(files, file)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, logging.New(cmd.ErrOrStderr(), cfg.LogLevel), nil
}
