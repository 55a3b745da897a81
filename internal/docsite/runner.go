package docsite

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Plugin receives the site lifecycle hooks.
type Plugin interface {
	// Name returns the plugin name used in logs and errors.
	Name() string

	// OnConfig runs once before any page is read.
	OnConfig(ctx context.Context, site *Site) error

	// OnPage runs for every HTML page. Changes made through Page.SetContent are written back.
	OnPage(ctx context.Context, site *Site, page *Page) error

	// OnPostBuild runs once after all pages were written.
	OnPostBuild(ctx context.Context, site *Site) error
}

// Result summarizes one Runner.Run.
type Result struct {
	// Pages is the number of HTML pages visited.
	Pages int `json:"pages"`

	// Changed lists the site-relative paths of rewritten pages.
	Changed []string `json:"changed"`

	// Copied lists the site-relative paths of files plugins copied into the site.
	Copied []string `json:"copied"`
}

// Runner applies plugins to a built site.
type Runner struct {
	plugins []Plugin
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner for the given plugins. Hooks run in slice order.
func NewRunner(plugins []Plugin, opts ...RunnerOption) *Runner {
	r := &Runner{
		plugins: plugins,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes OnConfig, OnPage for every page, then OnPostBuild.
// The first hook error stops the run; pages already written stay written.
func (r *Runner) Run(ctx context.Context, siteDir string) (*Result, error) {
	info, err := os.Stat(siteDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, siteDir)
	}
	site := &Site{Dir: siteDir}

	for _, p := range r.plugins {
		if err := p.OnConfig(ctx, site); err != nil {
			return nil, fmt.Errorf("%s: on_config: %w", p.Name(), err)
		}
	}

	pages, err := listPages(siteDir)
	if err != nil {
		return nil, err
	}

	for _, rel := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.processPage(ctx, site, rel); err != nil {
			return nil, err
		}
	}

	for _, p := range r.plugins {
		if err := p.OnPostBuild(ctx, site); err != nil {
			return nil, fmt.Errorf("%s: on_post_build: %w", p.Name(), err)
		}
	}

	return &Result{
		Pages:   len(pages),
		Changed: site.changed,
		Copied:  site.copied,
	}, nil
}

func (r *Runner) processPage(ctx context.Context, site *Site, rel string) error {
	abs := site.Abs(rel)
	data, err := os.ReadFile(abs) //nolint:gosec // path comes from walking the site directory
	if err != nil {
		return err
	}

	page := NewPage(rel, string(data))
	for _, p := range r.plugins {
		if err := p.OnPage(ctx, site, page); err != nil {
			return fmt.Errorf("%s: on_page %s: %w", p.Name(), rel, err)
		}
	}
	if !page.Changed() {
		return nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(abs, []byte(page.Content()), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	site.recordChanged(rel)
	r.logger.Debug("page rewritten", "page", rel)
	return nil
}

// listPages returns the site-relative slash paths of all HTML files, sorted.
func listPages(siteDir string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(siteDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		rel, err := filepath.Rel(siteDir, p)
		if err != nil {
			return err
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(pages)
	return pages, nil
}
