package docsite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/assetship/internal/config"
)

// DefaultAssetsDir is the site-relative directory artifacts are copied into.
const DefaultAssetsDir = "assets/wasm"

// WasmPlugin wires shipped artifacts into a documentation site.
//
// Pages whose path contains one of the configured substrings get the loader
// script injected and the configured text replacements applied. After the
// pages are written, the compressed artifacts and loaders are copied from the
// pipeline's destination directory into the site.
type WasmPlugin struct {
	sourceDir    string
	assetsDir    string
	pages        []string
	script       string
	replacements map[string]string
	copy         []string
	logger       *slog.Logger

	// files are the sourceDir-relative files copied by OnPostBuild.
	files []string
}

// WasmPluginOption configures a WasmPlugin.
type WasmPluginOption func(*WasmPlugin)

// WithPluginLogger sets a custom logger for the plugin.
func WithPluginLogger(logger *slog.Logger) WasmPluginOption {
	return func(p *WasmPlugin) {
		p.logger = logger
	}
}

// NewWasmPlugin creates the plugin. sourceDir is where the pipeline left the
// compressed artifacts and patched loaders.
func NewWasmPlugin(sourceDir string, cfg config.DocsConfig, opts ...WasmPluginOption) *WasmPlugin {
	p := &WasmPlugin{
		sourceDir:    sourceDir,
		assetsDir:    cfg.AssetsDir,
		pages:        cfg.Pages,
		script:       cfg.Script,
		replacements: cfg.Replacements,
		copy:         cfg.Copy,
		logger:       slog.Default(),
	}
	if p.assetsDir == "" {
		p.assetsDir = DefaultAssetsDir
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin name.
func (p *WasmPlugin) Name() string {
	return "wasm"
}

// OnConfig resolves the files to copy. With no explicit copy list every
// regular file in the source directory is copied.
func (p *WasmPlugin) OnConfig(_ context.Context, _ *Site) error {
	info, err := os.Stat(p.sourceDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrAssetsNotFound, p.sourceDir)
	}

	if len(p.copy) > 0 {
		for _, name := range p.copy {
			if _, err := os.Stat(filepath.Join(p.sourceDir, name)); err != nil {
				return fmt.Errorf("%w: %s", ErrAssetsNotFound, filepath.Join(p.sourceDir, name))
			}
		}
		p.files = slices.Clone(p.copy)
		return nil
	}

	entries, err := os.ReadDir(p.sourceDir)
	if err != nil {
		return err
	}
	p.files = p.files[:0]
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p.files = append(p.files, e.Name())
	}
	p.logger.Debug("assets to copy", "dir", p.sourceDir, "files", len(p.files))
	return nil
}

// OnPage applies replacements and injects the loader into matching pages.
func (p *WasmPlugin) OnPage(_ context.Context, _ *Site, page *Page) error {
	if !page.Matches(p.pages) {
		return nil
	}

	content := page.Content()
	keys := make([]string, 0, len(p.replacements))
	for k := range p.replacements {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if k == "" {
			continue
		}
		content = strings.ReplaceAll(content, k, p.replacements[k])
	}

	if p.script != "" {
		injected, ok, err := InjectModuleScript(content, page.RelURL(p.script))
		if err != nil {
			return err
		}
		if ok {
			p.logger.Debug("loader injected", "page", page.Path, "script", p.script)
		}
		content = injected
	}

	page.SetContent(content)
	return nil
}

// OnPostBuild copies the resolved files into the site's assets directory.
func (p *WasmPlugin) OnPostBuild(ctx context.Context, site *Site) error {
	for _, name := range p.files {
		rel := path.Join(p.assetsDir, filepath.ToSlash(name))
		dst := site.Abs(rel)
		if err := copyFile(ctx, filepath.Join(p.sourceDir, name), dst); err != nil {
			return fmt.Errorf("failed to copy %s: %w", name, err)
		}
		site.RecordCopy(rel)
	}
	p.logger.Info("assets copied into site", "count", len(p.files), "dir", p.assetsDir)
	return nil
}

// copyFile copies src to dst through a temporary file in dst's directory.
func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // path comes from the project file
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}
