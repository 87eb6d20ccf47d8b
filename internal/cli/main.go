// Package cli implements the video-dubber command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"video-dubber/internal/logger"
	"video-dubber/models"
)

// Version is set at build time with -ldflags "-X video-dubber/internal/cli.Version=...".
var Version = "dev"

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "video-dubber",
		Short:        "Dub videos into another language: transcribe, translate, synthesize, mux",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("pretty", false, "Human readable console logs")

	root.AddCommand(
		newServeCmd(),
		newProcessCmd(),
		newProbeCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves the config file and applies the logging flags.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := models.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		cfg.Log.Pretty = true
	}
	logger.Configure(logger.Config{
		Level:  cfg.Log.Level,
		Output: cmd.ErrOrStderr(),
		Pretty: cfg.Log.Pretty,
	})
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "video-dubber %s\n", Version)
		},
	}
}
