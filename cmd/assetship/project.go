package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/log"
	"github.com/spf13/cobra"
)

// errNoProjectFile is returned when no project file was found and none was given.
var errNoProjectFile = errors.New("no " + config.DefaultConfigFile + " found (run 'assetship init' to create one)")

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger installs the redacting logger on stderr as the default logger.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)

	var logger *slog.Logger
	if jsonLogs, err := cmd.Root().PersistentFlags().GetBool("log-json"); err == nil && jsonLogs {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// loadProject loads the project file named by --config, or searches for one.
// With required false a missing file yields the defaults rooted at the
// current directory.
func loadProject(cmd *cobra.Command, required bool) (*config.File, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	found := config.FindConfigFile(path)
	switch {
	case found != "":
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load project file %s: %w", found, err)
		}
		return file, nil
	case path != "":
		return nil, fmt.Errorf("project file not found: %s", path)
	case required:
		return nil, errNoProjectFile
	}

	file := config.NewFile()
	if err := config.ApplyEnv(file); err != nil {
		return nil, err
	}
	return file, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// openOutput returns the report destination: the named file, or fallback.
// Parent directories are created as needed.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return fallback, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user supplied path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
