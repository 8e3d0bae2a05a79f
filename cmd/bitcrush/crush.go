package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/bitcrush/internal/artifact"
	"github.com/JakeFAU/bitcrush/internal/bitcrush"
	"github.com/JakeFAU/bitcrush/internal/config"
)

type crushOptions struct {
	output  string
	quality int
}

func newCrushCmd(opts *options) *cobra.Command {
	co := &crushOptions{}
	cmd := &cobra.Command{
		Use:   "crush INPUT",
		Short: "Crush a single image file without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrush(cmd, opts, co, args[0])
		},
	}
	cmd.Flags().StringVarP(&co.output, "output", "o", "", "output path (default INPUT with .crushed.jpg)")
	cmd.Flags().IntVar(&co.quality, "quality", 0, "final JPEG quality 1-100 (default transform.output_quality)")
	return cmd
}

func runCrush(cmd *cobra.Command, opts *options, co *crushOptions, input string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	quality := cfg.Transform.OutputQuality
	if co.quality != 0 {
		if co.quality < 1 || co.quality > 100 {
			return fmt.Errorf("--quality must be between 1 and 100")
		}
		quality = co.quality
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	out, bounds, err := bitcrush.New(
		bitcrush.WithOutputQuality(quality),
		bitcrush.WithMaxPixels(cfg.Transform.MaxPixels),
	).Transform(data)
	if err != nil {
		return fmt.Errorf("crush %s: %w", input, err)
	}

	dest := co.output
	if dest == "" {
		dest = crushedPath(input)
	}
	if err := os.WriteFile(dest, out.Data, 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %d bytes\n", dest, bounds.Dx(), bounds.Dy(), out.Len())
	return nil
}

func crushedPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".crushed" + artifact.DisplayExtension
}
