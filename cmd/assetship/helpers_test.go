package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nao1215/assetship/internal/config"
)

// wasmPayload is a compressible stand-in for a compiled module.
var wasmPayload = bytes.Repeat([]byte("\x00asm\x01\x00\x00\x00 swift runtime "), 2048)

const loaderSource = `const module = await WebAssembly.compileStreaming(fetch("App.wasm"));
export default module;
`

const projectYAML = `name: demo
sourceDir: build
destDir: dist
artifacts:
  - name: App.wasm
    loader: app.js
docs:
  siteDir: site
  pages: [playground]
  script: assets/wasm/app.js
`

// testProject is a project directory laid out the way a compiler and a site
// generator leave it.
type testProject struct {
	root       string
	configPath string
	dbDir      string
}

func (p testProject) path(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newTestProject writes the project file, the artifact, the generated loader
// and a two-page site.
func newTestProject(t *testing.T) testProject {
	t.Helper()

	p := testProject{root: t.TempDir(), dbDir: t.TempDir()}
	p.configPath = p.path(config.DefaultConfigFile)

	writeTestFile(t, p.configPath, []byte(projectYAML))
	writeTestFile(t, p.path("build", "App.wasm"), wasmPayload)
	writeTestFile(t, p.path("dist", "app.js"), []byte(loaderSource))
	writeTestFile(t, p.path("site", "index.html"), []byte("<html><body><h1>Home</h1></body></html>"))
	writeTestFile(t, p.path("site", "guide", "playground", "index.html"),
		[]byte("<html><body><div id=\"app\"></div></body></html>"))
	return p
}

// lockedBuffer is a bytes.Buffer safe for concurrent writes. Commands install
// their logger as the slog default, so parallel tests may share it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr lockedBuffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
