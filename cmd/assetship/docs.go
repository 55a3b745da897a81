package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/docsite"
	"github.com/spf13/cobra"
)

// NewDocsCmd creates the docs command.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Copy shipped artifacts into a built documentation site",
		Long: `Docs post-processes the output of a static site generator.

Pages whose path contains one of the substrings listed under docs.pages get
the configured text replacements and a module script tag for the loader.
After the pages are written, the files in destDir are copied into
docs.assetsDir inside the site.

Run it after the site generator, or pass --build to run the asset pipeline
first.

Examples:
  # Wire the last build into site/
  assetship docs

  # Build, then wire the result into the site
  assetship docs --build

  # Use another site directory
  assetship docs --site public`,
		Args: cobra.NoArgs,
		RunE: runDocsCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .assetship.yaml in current or config directory)")
	cmd.Flags().String("site", "",
		"Built site directory (overrides docs.siteDir)")
	cmd.Flags().BoolP("build", "b", false,
		"Run the asset pipeline before processing the site")
	addBuildFlags(cmd)

	return cmd
}

// runDocsCmd executes the docs command.
func runDocsCmd(cmd *cobra.Command, _ []string) error {
	file, err := loadProject(cmd, true)
	if err != nil {
		return err
	}

	site, err := cmd.Flags().GetString("site")
	if err != nil {
		return err
	}
	if site != "" {
		file.Docs.SiteDir = site
	}

	withBuild, err := cmd.Flags().GetBool("build")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(logger)
	defer cancel()

	if withBuild {
		cfg, err := buildConfig(cmd, file)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		buildReport, err := executeBuild(ctx, cmd, cfg, cmd.OutOrStdout(), logger)
		if err != nil {
			return err
		}
		if buildReport.Failed() {
			return errArtifactsFailed
		}
	}

	return runDocs(ctx, file, cmd.OutOrStdout(), logger)
}

// runDocs applies the wasm plugin to the project's built site.
func runDocs(ctx context.Context, file *config.File, out io.Writer, logger *slog.Logger) error {
	siteDir := file.Resolve(file.Docs.SiteDir)
	plugin := docsite.NewWasmPlugin(file.Resolve(file.DestDir), file.Docs,
		docsite.WithPluginLogger(logger),
	)

	result, err := docsite.NewRunner([]docsite.Plugin{plugin}, docsite.WithLogger(logger)).Run(ctx, siteDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Processed %d pages in %s: %d rewritten, %d files copied\n",
		result.Pages, siteDir, len(result.Changed), len(result.Copied))
	for _, p := range result.Changed {
		fmt.Fprintf(out, "  page  %s\n", p)
	}
	for _, p := range result.Copied {
		fmt.Fprintf(out, "  asset %s\n", p)
	}
	return nil
}
