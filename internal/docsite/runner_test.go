package docsite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// recordingPlugin records the hooks it receives and optionally edits pages.
type recordingPlugin struct {
	name    string
	calls   *[]string
	pageErr error
	edit    func(*Page)
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnConfig(_ context.Context, _ *Site) error {
	*p.calls = append(*p.calls, p.name+":config")
	return nil
}

func (p *recordingPlugin) OnPage(_ context.Context, _ *Site, page *Page) error {
	*p.calls = append(*p.calls, p.name+":page:"+page.Path)
	if p.pageErr != nil {
		return p.pageErr
	}
	if p.edit != nil {
		p.edit(page)
	}
	return nil
}

func (p *recordingPlugin) OnPostBuild(_ context.Context, _ *Site) error {
	*p.calls = append(*p.calls, p.name+":post_build")
	return nil
}

// writeSite creates files under dir from a map of slash paths to contents.
func writeSite(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("calls hooks in lifecycle order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeSite(t, dir, map[string]string{
			"index.html":       "<body></body>",
			"guide/index.html": "<body></body>",
			"style.css":        "body {}",
		})

		var calls []string
		r := NewRunner([]Plugin{
			&recordingPlugin{name: "a", calls: &calls},
			&recordingPlugin{name: "b", calls: &calls},
		})

		result, err := r.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			"a:config", "b:config",
			"a:page:guide/index.html", "b:page:guide/index.html",
			"a:page:index.html", "b:page:index.html",
			"a:post_build", "b:post_build",
		}
		if !slices.Equal(calls, want) {
			t.Errorf("calls = %v, want %v", calls, want)
		}
		if result.Pages != 2 {
			t.Errorf("expected 2 pages, got %d", result.Pages)
		}
		if len(result.Changed) != 0 {
			t.Errorf("expected no changed pages, got %v", result.Changed)
		}
	})

	t.Run("writes changed pages only", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeSite(t, dir, map[string]string{
			"index.html":  "<body>home</body>",
			"editor.html": "<body>editor</body>",
		})

		var calls []string
		r := NewRunner([]Plugin{&recordingPlugin{name: "edit", calls: &calls, edit: func(p *Page) {
			if p.Path == "editor.html" {
				p.SetContent(strings.ReplaceAll(p.Content(), "editor", "EDITOR"))
			}
		}}})

		result, err := r.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(result.Changed, []string{"editor.html"}) {
			t.Errorf("Changed = %v", result.Changed)
		}
		got, err := os.ReadFile(filepath.Join(dir, "editor.html"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "<body>EDITOR</body>" {
			t.Errorf("unexpected page content: %s", got)
		}
	})

	t.Run("stops on hook error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeSite(t, dir, map[string]string{"index.html": "<body></body>"})

		var calls []string
		boom := errors.New("boom")
		r := NewRunner([]Plugin{&recordingPlugin{name: "bad", calls: &calls, pageErr: boom}})

		_, err := r.Run(context.Background(), dir)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if slices.Contains(calls, "bad:post_build") {
			t.Error("post build should not run after a page error")
		}
	})

	t.Run("missing site directory", func(t *testing.T) {
		t.Parallel()

		r := NewRunner(nil)
		_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrSiteNotFound) {
			t.Fatalf("expected ErrSiteNotFound, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeSite(t, dir, map[string]string{"index.html": "<body></body>"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls []string
		_, err := NewRunner([]Plugin{&recordingPlugin{name: "a", calls: &calls}}).Run(ctx, dir)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
