package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/assetship/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/assetship.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new assetship project file",
		Long: `Initialize creates a new .assetship.yaml project file in the current directory.

The generated file includes:
- The compile command and the artifact directories
- One artifact with a patched loader
- Commented examples for the docs plugin and the development server

Examples:
  # Create .assetship.yaml in current directory
  assetship init

  # Create the project file at a specific path
  assetship init -o web/.assetship.yaml

  # Force overwrite existing file
  assetship init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the project file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing project file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("project file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/assetship.yaml")
	if err != nil {
		return fmt.Errorf("failed to read project template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The project file is committed alongside the sources, so it is world readable.
	if err := os.WriteFile(outputPath, content, 0o644); err != nil { //nolint:gosec // not secret
		return fmt.Errorf("failed to write project file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created project file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to describe your build:")
	fmt.Fprintln(out, "  - The compile command and where it leaves the artifacts")
	fmt.Fprintln(out, "  - The loader script to patch for each artifact")
	fmt.Fprintln(out, "  - The documentation pages that load the application")

	return nil
}
