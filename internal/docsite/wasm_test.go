package docsite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/assetship/internal/config"
)

// setupWasmSite creates a built site and a directory of shipped artifacts.
func setupWasmSite(t *testing.T) (siteDir, assetsDir string) {
	t.Helper()

	root := t.TempDir()
	siteDir = filepath.Join(root, "site")
	assetsDir = filepath.Join(root, "dist")

	writeSite(t, siteDir, map[string]string{
		"index.html":                  "<html><body><h1>Home</h1></body></html>",
		"guide/playground/index.html": "<html><body><div class=\"editor-placeholder\"></div></body></html>",
	})
	writeSite(t, assetsDir, map[string]string{
		"App.wasm.gz": "compressed",
		"App.js":      "loader",
		".DS_Store":   "junk",
	})
	return siteDir, assetsDir
}

func TestWasmPlugin(t *testing.T) {
	t.Parallel()

	cfg := config.DocsConfig{
		Pages:  []string{"playground"},
		Script: "assets/wasm/App.js",
		Replacements: map[string]string{
			`<div class="editor-placeholder"></div>`: `<div id="editor"></div>`,
		},
	}

	t.Run("injects loader into matching pages only", func(t *testing.T) {
		t.Parallel()

		siteDir, assetsDir := setupWasmSite(t)
		r := NewRunner([]Plugin{NewWasmPlugin(assetsDir, cfg)})

		result, err := r.Run(context.Background(), siteDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		page, err := os.ReadFile(filepath.Join(siteDir, "guide", "playground", "index.html"))
		if err != nil {
			t.Fatal(err)
		}
		want := `<html><body><div id="editor"></div><script type="module" src="../../assets/wasm/App.js"></script>` + "\n</body></html>"
		if string(page) != want {
			t.Errorf("page =\n%s\nwant\n%s", page, want)
		}

		home, err := os.ReadFile(filepath.Join(siteDir, "index.html"))
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(home), "App.js") {
			t.Error("home page should not be touched")
		}
		if !slices.Equal(result.Changed, []string{"guide/playground/index.html"}) {
			t.Errorf("Changed = %v", result.Changed)
		}
	})

	t.Run("copies artifacts into the site", func(t *testing.T) {
		t.Parallel()

		siteDir, assetsDir := setupWasmSite(t)
		result, err := NewRunner([]Plugin{NewWasmPlugin(assetsDir, cfg)}).Run(context.Background(), siteDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"assets/wasm/App.js", "assets/wasm/App.wasm.gz"}
		if !slices.Equal(result.Copied, want) {
			t.Errorf("Copied = %v, want %v", result.Copied, want)
		}
		got, err := os.ReadFile(filepath.Join(siteDir, "assets", "wasm", "App.wasm.gz"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "compressed" {
			t.Errorf("unexpected copy content: %s", got)
		}
		if _, err := os.Stat(filepath.Join(siteDir, "assets", "wasm", ".DS_Store")); !os.IsNotExist(err) {
			t.Error("hidden files should not be copied")
		}
	})

	t.Run("second run changes nothing", func(t *testing.T) {
		t.Parallel()

		siteDir, assetsDir := setupWasmSite(t)
		r := NewRunner([]Plugin{NewWasmPlugin(assetsDir, cfg)})
		if _, err := r.Run(context.Background(), siteDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := NewRunner([]Plugin{NewWasmPlugin(assetsDir, cfg)}).Run(context.Background(), siteDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Changed) != 0 {
			t.Errorf("expected no changes on second run, got %v", result.Changed)
		}
	})

	t.Run("explicit copy list", func(t *testing.T) {
		t.Parallel()

		siteDir, assetsDir := setupWasmSite(t)
		c := cfg
		c.Copy = []string{"App.wasm.gz"}
		c.AssetsDir = "static"

		result, err := NewRunner([]Plugin{NewWasmPlugin(assetsDir, c)}).Run(context.Background(), siteDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(result.Copied, []string{"static/App.wasm.gz"}) {
			t.Errorf("Copied = %v", result.Copied)
		}
	})

	t.Run("missing copy entry fails in on_config", func(t *testing.T) {
		t.Parallel()

		siteDir, assetsDir := setupWasmSite(t)
		c := cfg
		c.Copy = []string{"Missing.wasm.gz"}

		_, err := NewRunner([]Plugin{NewWasmPlugin(assetsDir, c)}).Run(context.Background(), siteDir)
		if !errors.Is(err, ErrAssetsNotFound) {
			t.Fatalf("expected ErrAssetsNotFound, got %v", err)
		}
	})

	t.Run("missing assets directory", func(t *testing.T) {
		t.Parallel()

		siteDir, _ := setupWasmSite(t)
		_, err := NewRunner([]Plugin{NewWasmPlugin(filepath.Join(t.TempDir(), "nope"), cfg)}).Run(context.Background(), siteDir)
		if !errors.Is(err, ErrAssetsNotFound) {
			t.Fatalf("expected ErrAssetsNotFound, got %v", err)
		}
	})
}
