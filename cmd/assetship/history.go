package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/database"
	"github.com/nao1215/assetship/internal/report"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// historyDateLayout is the timestamp format of history listings.
const historyDateLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [project]",
		Short: "Show recorded builds and compare artifact sizes",
		Long: `History reads the build history written by 'assetship build'.

Without flags it lists the builds of the project (named on the command line
or taken from the project file). --compare shows how artifact sizes changed
between the latest build and the one before it, or a build chosen by ID.

Examples:
  # List all projects in the history
  assetship history --projects

  # List builds of the current project
  assetship history

  # Compare the latest two builds
  assetship history --compare

  # Compare the latest build with build 12, as Markdown
  assetship history --compare --with-id 12 --markdown

  # Size history of one artifact
  assetship history --artifact App.wasm`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .assetship.yaml in current or config directory)")
	cmd.Flags().BoolP("projects", "P", false,
		"List all projects in the build history")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest build with an earlier one")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific build by ID (use 'assetship history' to see IDs)")
	cmd.Flags().StringP("artifact", "a", "",
		"Show the size history of one artifact")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the build history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listProjects, err := cmd.Flags().GetBool("projects")
	if err != nil {
		return err
	}
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	artifact, err := cmd.Flags().GetString("artifact")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Resolve the project before opening the database so that a bad
	// argument does not leave a fresh database behind.
	var project string
	if !listProjects {
		project, err = historyProject(cmd, args)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No build history found.")
		fmt.Fprintln(out, "\nUse 'assetship build' to record a build.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case listProjects:
		return listBuildProjects(ctx, db, out)
	case artifact != "":
		return listArtifactSizes(ctx, db, out, project, artifact)
	case compare || withID > 0:
		var writer report.Writer
		switch {
		case jsonOutput:
			writer = report.NewJSONWriter(out, report.WithPrettyPrint())
		case markdownOutput:
			writer = report.NewMarkdownWriter(out)
		default:
			writer = report.NewSimpleWriter(out)
		}
		return compareBuilds(ctx, db, writer, project, withID)
	default:
		return listBuildHistory(ctx, db, out, project)
	}
}

// historyProject returns the project named on the command line, or the
// name from the project file.
func historyProject(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	file, err := loadProject(cmd, true)
	if err != nil {
		return "", fmt.Errorf("%w (or name a project: assetship history <project>)", err)
	}
	return file.ProjectName(), nil
}

// listBuildProjects lists the projects that have recorded builds.
func listBuildProjects(ctx context.Context, db *database.BuildDB, out io.Writer) error {
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found in the build history.")
		return nil
	}

	fmt.Fprintf(out, "Projects (%d):\n\n", len(projects))
	for _, p := range projects {
		fmt.Fprintf(out, "  • %s\n", p)
	}
	fmt.Fprintln(out, "\nUse 'assetship history <project>' to see the builds of a project.")
	return nil
}

// listBuildHistory prints one table row per recorded build, newest first.
func listBuildHistory(ctx context.Context, db *database.BuildDB, out io.Writer, project string) error {
	builds, err := db.GetBuildHistoryWithMetadata(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get build history: %w", err)
	}

	if len(builds) == 0 {
		fmt.Fprintf(out, "No build history found for %s\n", project)
		return nil
	}

	fmt.Fprintf(out, "Build history for %s (%d builds):\n\n", project, len(builds))

	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		status := "ok"
		if b.Failed {
			status = "failed"
		}
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.Timestamp.Local().Format(historyDateLayout),
			b.Duration.String(),
			status,
			strconv.Itoa(b.Summary.Artifacts),
			humanize.Bytes(uint64(max(b.Summary.OriginalBytes, 0))),
			humanize.Bytes(uint64(max(b.Summary.CompressedBytes, 0))),
			fmt.Sprintf("%.1f%%", b.Summary.Ratio*100),
		})
	}

	table := tablewriter.NewTable(out)
	table.Header("ID", "Date", "Duration", "Status", "Artifacts", "Original", "Compressed", "Ratio")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}

	fmt.Fprintln(out, "\nUse 'assetship history --compare' to compare the latest two builds.")
	return nil
}

// listArtifactSizes prints the recorded sizes of one artifact, oldest first.
func listArtifactSizes(ctx context.Context, db *database.BuildDB, out io.Writer, project, artifact string) error {
	points, err := db.GetArtifactSizeHistory(ctx, project, artifact)
	if err != nil {
		return err
	}

	if len(points) == 0 {
		fmt.Fprintf(out, "No sizes recorded for %s in %s\n", artifact, project)
		return nil
	}

	fmt.Fprintf(out, "Size history of %s (%s):\n\n", artifact, project)

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			strconv.FormatInt(p.BuildID, 10),
			p.Timestamp.Local().Format(historyDateLayout),
			p.Encoding,
			humanize.Bytes(uint64(max(p.OriginalSize, 0))),
			humanize.Bytes(uint64(max(p.Size, 0))),
		})
	}

	table := tablewriter.NewTable(out)
	table.Header("Build", "Date", "Encoding", "Original", "Compressed")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render size history: %w", err)
	}
	return table.Render()
}

// compareBuilds compares the latest build of project with the previous one,
// or with the build identified by withID.
func compareBuilds(ctx context.Context, db *database.BuildDB, writer report.Writer, project string, withID int64) error {
	builds, err := db.GetBuildHistoryWithMetadata(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get build history: %w", err)
	}

	if len(builds) == 0 {
		return fmt.Errorf("no build history found for %s", project)
	}

	current := builds[0]
	var previous database.BuildReportMetadata
	switch {
	case withID > 0:
		found := false
		for _, b := range builds {
			if b.ID == withID {
				previous, found = b, true
				break
			}
		}
		if !found {
			return fmt.Errorf("build %d not found for %s", withID, project)
		}
	case len(builds) < 2:
		return fmt.Errorf("at least 2 builds are required for comparison (found %d)", len(builds))
	default:
		previous = builds[1]
	}

	previousReport, err := db.GetBuildReportByID(ctx, previous.ID)
	if err != nil {
		return err
	}
	currentReport, err := db.GetBuildReportByID(ctx, current.ID)
	if err != nil {
		return err
	}
	if previousReport == nil || currentReport == nil {
		return fmt.Errorf("build report missing from history for %s", project)
	}

	comparison := report.CompareReports(previousReport, currentReport)
	comparison.Previous.ID = previous.ID
	comparison.Current.ID = current.ID

	_, err = writer.WriteComparison(comparison)
	return err
}
