package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for assetship.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assetship",
		Short: "Compress, patch and serve WebAssembly artifacts for documentation sites",
		Long: `assetship ships WebAssembly build artifacts into a documentation site.

A build runs the compile command, copies every artifact into the assets
folder, writes compressed siblings (gzip, brotli, zstd), patches the generated
loader so the browser decompresses the gzip sibling itself, and prints the
size of every file. The docs command copies the artifacts into a built site
and injects the loader into selected pages; serve runs a development server
that sends compressed artifacts with the right headers.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewBuildCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewDocsCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
