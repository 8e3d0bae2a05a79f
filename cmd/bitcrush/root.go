package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/bitcrush/internal/config"
	"github.com/JakeFAU/bitcrush/internal/server"
)

type options struct {
	configPath string
}

// newRootCmd creates the bitcrush command tree. Running it without a
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "bitcrush",
		Short: "Upload an image, get back a worse one.",
		Long: `bitcrush serves a small web page that accepts an image, degrades it with
randomized resizes, rotations, hue shifts and low-quality JPEG passes, and keeps
the result in memory under a fresh id.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCrushCmd(opts))
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	app, err := server.Build(cmd.Context(), &cfg)
	if err != nil {
		return fmt.Errorf("build app failed: %w", err)
	}
	if err := app.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run app failed: %w", err)
	}
	return nil
}
