package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/devserver"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site with WebAssembly-aware headers",
		Long: `Serve starts a development server for the built site.

Compressed artifacts (*.wasm.gz, *.wasm.br, *.wasm.zst) are sent as
application/wasm with the matching Content-Encoding, so the browser decodes
them before the loader sees the bytes. Requests for *.wasm are answered from
the best precompressed sibling the browser accepts. Every response carries
Cache-Control: no-cache.

With --watch, changes below serve.watchDirs rerun the asset pipeline and the
docs plugin.

Examples:
  # Serve docs.siteDir on 127.0.0.1:8000
  assetship serve

  # Serve another directory on another port
  assetship serve --dir public --addr :9000

  # Rebuild on change
  assetship serve --watch --build`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .assetship.yaml in current or config directory)")
	cmd.Flags().StringP("addr", "a", "",
		"Listen address (overrides serve.addr, default "+config.DefaultServeAddr+")")
	cmd.Flags().StringP("dir", "d", "",
		"Directory to serve (overrides serve.dir and docs.siteDir)")
	cmd.Flags().BoolP("watch", "w", false,
		"Rebuild when watched sources change")
	cmd.Flags().BoolP("build", "b", false,
		"Run the asset pipeline and the docs plugin once before serving")
	addBuildFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	file, err := loadProject(cmd, false)
	if err != nil {
		return err
	}

	if err := applyServeFlags(cmd, file); err != nil {
		return err
	}

	withBuild, err := cmd.Flags().GetBool("build")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(logger)
	defer cancel()

	var rebuild devserver.ChangeFunc
	if withBuild || file.Serve.Watch {
		cfg, err := buildConfig(cmd, file)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		rebuild = newRebuildFunc(cmd, cfg, logger)
	}

	if withBuild {
		if err := rebuild(ctx, nil); err != nil {
			return err
		}
	}

	dir := file.ServeDir()
	if err := devserver.CheckDir(dir); err != nil {
		return err
	}

	handler := devserver.NewHandler(dir, devserver.WithHandlerLogger(logger))
	server := devserver.NewServer(file.Serve.Addr, handler, devserver.WithServerLogger(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	if file.Serve.Watch {
		watcher := devserver.NewWatcher(watchDirs(file), rebuild,
			devserver.WithDebounce(file.Serve.Debounce),
			devserver.WithIgnore(
				file.Resolve(file.SourceDir),
				file.Resolve(file.DestDir),
				file.Resolve(file.Docs.SiteDir),
				dir,
			),
			devserver.WithWatcherLogger(logger),
		)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s/ (Ctrl+C to stop)\n", dir, file.Serve.Addr)
	return g.Wait()
}

// applyServeFlags lets command line flags override the serve section.
func applyServeFlags(cmd *cobra.Command, file *config.File) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	if addr != "" {
		file.Serve.Addr = addr
	}

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	if dir != "" {
		file.Serve.Dir = dir
	}

	if cmd.Flags().Changed("watch") {
		watch, err := cmd.Flags().GetBool("watch")
		if err != nil {
			return err
		}
		file.Serve.Watch = watch
	}
	return nil
}

// watchDirs returns the directories whose changes trigger a rebuild.
// Without explicit serve.watchDirs the build directory is watched.
func watchDirs(file *config.File) []string {
	if len(file.Serve.WatchDirs) == 0 {
		if file.Build.Dir == "" {
			return []string{file.BaseDir()}
		}
		return []string{file.Resolve(file.Build.Dir)}
	}
	dirs := make([]string, 0, len(file.Serve.WatchDirs))
	for _, d := range file.Serve.WatchDirs {
		dirs = append(dirs, file.Resolve(d))
	}
	return dirs
}

// newRebuildFunc returns the watcher callback: run the asset pipeline, then
// the docs plugin when the site exists.
func newRebuildFunc(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) devserver.ChangeFunc {
	out := cmd.OutOrStdout()
	return func(ctx context.Context, paths []string) error {
		if len(paths) > 0 {
			logger.Info("rebuilding", "changed", len(paths), "first", paths[0])
		}

		buildReport, err := executeBuild(ctx, cmd, cfg, out, logger)
		if err != nil {
			return err
		}
		if buildReport.Failed() {
			return errArtifactsFailed
		}

		return docsIfPresent(ctx, cfg.Project, out, logger)
	}
}

// docsIfPresent runs the docs plugin unless the site has not been built yet.
func docsIfPresent(ctx context.Context, file *config.File, out io.Writer, logger *slog.Logger) error {
	siteDir := file.Resolve(file.Docs.SiteDir)
	if info, err := os.Stat(siteDir); err != nil || !info.IsDir() {
		logger.Debug("site not built, skipping docs plugin", "dir", siteDir)
		return nil
	}
	return runDocs(ctx, file, out, logger)
}
