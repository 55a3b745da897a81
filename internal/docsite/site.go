package docsite

import (
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Site is the built documentation site handed to plugin hooks.
type Site struct {
	// Dir is the site output directory.
	Dir string

	mu      sync.Mutex
	copied  []string
	changed []string
}

// Abs returns the location of a site-relative slash path.
// Leading ".." elements are dropped, so the result never leaves Dir.
func (s *Site) Abs(rel string) string {
	clean := path.Clean("/" + filepath.ToSlash(rel))
	return filepath.Join(s.Dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

// RecordCopy notes a file a plugin copied into the site.
func (s *Site) RecordCopy(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copied = append(s.copied, filepath.ToSlash(rel))
}

func (s *Site) recordChanged(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = append(s.changed, rel)
}

// Page is one HTML page of the site.
type Page struct {
	// Path is the site-relative slash path, e.g. "guide/editor/index.html".
	Path string

	content  string
	original string
}

// NewPage creates a page with the given site-relative path and content.
func NewPage(p, content string) *Page {
	return &Page{Path: filepath.ToSlash(p), content: content, original: content}
}

// Content returns the current page HTML.
func (p *Page) Content() string {
	return p.content
}

// SetContent replaces the page HTML.
func (p *Page) SetContent(content string) {
	p.content = content
}

// Changed reports whether a hook modified the page.
func (p *Page) Changed() bool {
	return p.content != p.original
}

// RelURL returns the URL of a site-relative target as seen from this page.
// Absolute URLs and root-relative paths are returned unchanged.
func (p *Page) RelURL(target string) string {
	if target == "" || strings.HasPrefix(target, "/") || strings.Contains(target, "://") {
		return target
	}
	depth := strings.Count(path.Dir(p.Path), "/")
	if path.Dir(p.Path) != "." {
		depth++
	}
	return strings.Repeat("../", depth) + target
}

// Matches reports whether the page path contains any of the substrings.
// An empty list matches no page.
func (p *Page) Matches(substrings []string) bool {
	for _, s := range substrings {
		if s != "" && strings.Contains(p.Path, s) {
			return true
		}
	}
	return false
}
