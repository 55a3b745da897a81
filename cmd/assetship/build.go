package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/database"
	"github.com/nao1215/assetship/internal/model"
	"github.com/nao1215/assetship/internal/pipeline"
	"github.com/nao1215/assetship/internal/report"
	"github.com/spf13/cobra"
)

// errArtifactsFailed is returned when the build finished but an artifact failed.
var errArtifactsFailed = errors.New("one or more artifacts failed")

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile, copy, compress and patch the artifacts",
		Long: `Build runs the asset pipeline described by .assetship.yaml:

1. Run the compile command (skipped with --skip-build)
2. Copy every artifact from sourceDir to destDir
3. Write compressed siblings and remove the uncompressed copy
4. Patch the generated loader to fetch and decompress the gzip sibling
5. Print the size of every shipped file

A missing artifact fails its own pipeline; the remaining artifacts are still
processed and the command exits with a non-zero status. A failing compile
command stops the build before anything is copied.

Every build is recorded in the build history (see 'assetship history').

Examples:
  # Build with the project file in the current directory
  assetship build

  # Ship artifacts produced by an earlier build
  assetship build --skip-build

  # Write a Markdown report for a pull request comment
  assetship build --markdown -o build/report.md

  # Machine readable output
  assetship build --json`,
		Args: cobra.NoArgs,
		RunE: runBuildCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .assetship.yaml in current or config directory)")
	addBuildFlags(cmd)

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// addBuildFlags registers the flags shared by every command that can run a build.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("skip-build", "s", false,
		"Skip the compile command and ship existing artifacts")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of artifacts processed at once")
	cmd.Flags().Duration("build-timeout", config.DefaultBuildTimeout,
		"Timeout for the compile command")
	cmd.Flags().Bool("no-save", false,
		"Do not record the build in the build history")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the build history database")
}

// runBuildCmd executes the build command.
func runBuildCmd(cmd *cobra.Command, _ []string) error {
	file, err := loadProject(cmd, true)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, file)
	if err != nil {
		return err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(logger)
	defer cancel()

	stats := cmd.OutOrStdout()
	if cfg.ReportFile == "" && (cfg.JSONReport || cfg.MarkdownReport) {
		// Keep stdout parseable.
		stats = cmd.ErrOrStderr()
	}

	buildReport, runErr := executeBuild(ctx, cmd, cfg, stats, logger)
	if buildReport == nil {
		return runErr
	}

	if err := outputReport(cmd, cfg, buildReport); err != nil {
		logger.Error("report failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if buildReport.Failed() {
		return errArtifactsFailed
	}
	return nil
}

// buildConfig creates a Config for file from the shared build flags.
func buildConfig(cmd *cobra.Command, file *config.File) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Project = file
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.SkipBuild, err = cmd.Flags().GetBool("skip-build")
	if err != nil {
		return nil, err
	}
	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}
	cfg.BuildTimeout, err = cmd.Flags().GetDuration("build-timeout")
	if err != nil {
		return nil, err
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// executeBuild runs the pipeline, printing size statistics to stats, and
// records the report in the build history. The report is nil only when the
// history database could not be opened.
func executeBuild(ctx context.Context, cmd *cobra.Command, cfg *config.Config, stats io.Writer, logger *slog.Logger) (*model.BuildReport, error) {
	var db *database.BuildDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	opts := []pipeline.RunnerOption{
		pipeline.WithRunnerLogger(logger),
		pipeline.WithStatsOutput(stats),
	}
	if cfg.Verbose {
		opts = append(opts, pipeline.WithCommandOutput(cmd.ErrOrStderr()))
	}

	logger.Info("starting build",
		"project", cfg.Project.ProjectName(),
		"artifacts", len(cfg.Project.Artifacts),
		"skipBuild", cfg.SkipBuild,
	)

	buildReport, runErr := pipeline.NewRunner(opts...).Run(ctx, cfg.Project, cfg)

	if db != nil {
		// Cancelled builds are still recorded; the save must not inherit the cancellation.
		id, err := db.SaveBuildReport(context.WithoutCancel(ctx), buildReport)
		if err != nil {
			logger.Error("failed to save build report", "error", err)
		} else {
			logger.Debug("build report saved to database", "id", id, "dir", cfg.DBDir)
		}
	}

	return buildReport, runErr
}

// outputReport writes the build report in the requested format. A JSON or
// Markdown report written to a file is followed by the text report on stdout.
func outputReport(cmd *cobra.Command, cfg *config.Config, buildReport *model.BuildReport) error {
	output, closeOutput, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // write errors surface from Write

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	if cfg.ReportFile != "" && (cfg.JSONReport || cfg.MarkdownReport) {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(cmd.OutOrStdout()))
	}

	_, err = writer.Write(buildReport)
	return err
}
