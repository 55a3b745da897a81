package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/assetship/internal/compress"
	"github.com/nao1215/assetship/internal/model"
	"github.com/nao1215/assetship/internal/patch"
)

// wasmPayload is a compressible stand-in for a compiled module.
var wasmPayload = bytes.Repeat([]byte("\x00asm\x01\x00\x00\x00 swift runtime "), 2048)

// loaderSource is a trimmed generated loader.
const loaderSource = `const module = await WebAssembly.compileStreaming(fetch("App.wasm"));
export default module;
`

// setupProject creates a source dir with App.wasm and an empty dest dir.
func setupProject(t *testing.T) (sourceDir, destDir string) {
	t.Helper()

	root := t.TempDir()
	sourceDir = filepath.Join(root, ".build", "release")
	destDir = filepath.Join(root, "docs", "wasm")
	if err := os.MkdirAll(sourceDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "App.wasm"), wasmPayload, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return sourceDir, destDir
}

func writeLoader(t *testing.T, destDir string) string {
	t.Helper()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(destDir, "app.js")
	if err := os.WriteFile(path, []byte(loaderSource), 0o600); err != nil {
		t.Fatalf("write loader: %v", err)
	}
	return path
}

// TestCopyStep tests copying the artifact to its destination.
func TestCopyStep(t *testing.T) {
	t.Parallel()

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()
		if got := NewCopyStep("a", "b").Name(); got != "copy" {
			t.Errorf("expected name 'copy', got %q", got)
		}
	})

	t.Run("copies artifact and records size and digest", func(t *testing.T) {
		t.Parallel()

		sourceDir, destDir := setupProject(t)
		result := model.NewArtifactResult("App.wasm")

		if err := NewCopyStep(sourceDir, destDir).Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := os.ReadFile(filepath.Join(destDir, "App.wasm"))
		if err != nil {
			t.Fatalf("read copy: %v", err)
		}
		if !bytes.Equal(got, wasmPayload) {
			t.Error("copied bytes differ from the source")
		}
		if result.OriginalSize != int64(len(wasmPayload)) {
			t.Errorf("expected size %d, got %d", len(wasmPayload), result.OriginalSize)
		}
		want, err := compress.Digest(bytes.NewReader(wasmPayload))
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		if result.Digest != want {
			t.Errorf("expected digest %s, got %s", want, result.Digest)
		}
		if result.DestPath != filepath.Join(destDir, "App.wasm") {
			t.Errorf("unexpected dest path %q", result.DestPath)
		}
	})

	t.Run("missing artifact returns ErrArtifactNotFound", func(t *testing.T) {
		t.Parallel()

		sourceDir, destDir := setupProject(t)
		result := model.NewArtifactResult("Missing.wasm")

		err := NewCopyStep(sourceDir, destDir).Do(context.Background(), result)
		if !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound, got %v", err)
		}
		if _, statErr := os.Stat(destDir); !os.IsNotExist(statErr) {
			t.Error("expected destination directory not to be created")
		}
	})
}

// TestCompressStep tests writing verified siblings.
func TestCompressStep(t *testing.T) {
	t.Parallel()

	copied := func(t *testing.T) *model.ArtifactResult {
		t.Helper()
		sourceDir, destDir := setupProject(t)
		result := model.NewArtifactResult("App.wasm")
		if err := NewCopyStep(sourceDir, destDir).Do(context.Background(), result); err != nil {
			t.Fatalf("copy: %v", err)
		}
		return result
	}

	t.Run("defaults to gzip and removes the original", func(t *testing.T) {
		t.Parallel()

		result := copied(t)
		if err := NewCompressStep(nil).Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Encoded) != 1 || result.Encoded[0].Encoding != "gzip" {
			t.Fatalf("expected one gzip sibling, got %+v", result.Encoded)
		}
		if !result.Encoded[0].Verified {
			t.Error("expected sibling to be verified")
		}
		if !result.OriginalRemoved {
			t.Error("expected OriginalRemoved to be true")
		}
		if _, err := os.Stat(result.DestPath); !os.IsNotExist(err) {
			t.Error("expected uncompressed copy to be removed")
		}

		compressed, err := os.ReadFile(result.DestPath + ".gz")
		if err != nil {
			t.Fatalf("read sibling: %v", err)
		}
		decoded, err := compress.Decode(compress.Gzip, compressed)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(decoded, wasmPayload) {
			t.Error("sibling does not decompress to the original")
		}
	})

	t.Run("writes every encoding and keeps the original when asked", func(t *testing.T) {
		t.Parallel()

		result := copied(t)
		step := NewCompressStep(compress.All, WithKeepOriginal(true), WithCompressLevel(3))
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Encoded) != len(compress.All) {
			t.Errorf("expected %d siblings, got %d", len(compress.All), len(result.Encoded))
		}
		for _, e := range result.Encoded {
			if _, err := os.Stat(e.Path); err != nil {
				t.Errorf("sibling %s missing: %v", e.Path, err)
			}
		}
		if _, err := os.Stat(result.DestPath); err != nil {
			t.Error("expected uncompressed copy to be kept")
		}
	})

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()
		if got := NewCompressStep(nil).Name(); got != "compress" {
			t.Errorf("expected name 'compress', got %q", got)
		}
	})
}

// TestPatchStep tests loader patching.
func TestPatchStep(t *testing.T) {
	t.Parallel()

	t.Run("applies the default loader patch for gzip", func(t *testing.T) {
		t.Parallel()

		destDir := t.TempDir()
		loader := writeLoader(t, destDir)
		result := model.NewArtifactResult("App.wasm")

		step := NewPatchStep(destDir,
			WithLoader("app.js"),
			WithPatchEncodings([]compress.Encoding{compress.Brotli, compress.Gzip}),
		)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Patches) != 1 || !result.Patches[0].Patched {
			t.Fatalf("expected one applied patch, got %+v", result.Patches)
		}
		content, err := os.ReadFile(loader)
		if err != nil {
			t.Fatalf("read loader: %v", err)
		}
		if !strings.Contains(string(content), `fetch("App.wasm.gz")`) {
			t.Errorf("loader does not fetch the sibling:\n%s", content)
		}
		if result.Status() != model.StatusOK {
			t.Errorf("expected status OK, got %s", result.Status())
		}
	})

	t.Run("explicit patches replace the default", func(t *testing.T) {
		t.Parallel()

		destDir := t.TempDir()
		loader := writeLoader(t, destDir)
		result := model.NewArtifactResult("App.wasm")

		step := NewPatchStep(destDir,
			WithLoader("app.js"),
			WithPatchEncodings([]compress.Encoding{compress.Gzip}),
			WithPatches(patch.Patch{File: "app.js", Find: "export default", Replace: "export const wasm ="}),
		)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(loader)
		if err != nil {
			t.Fatalf("read loader: %v", err)
		}
		if strings.Contains(string(content), "App.wasm.gz") {
			t.Error("default patch should not be applied when explicit patches exist")
		}
		if !strings.Contains(string(content), "export const wasm =") {
			t.Error("explicit patch was not applied")
		}
	})

	t.Run("absent text is recorded as a warning", func(t *testing.T) {
		t.Parallel()

		destDir := t.TempDir()
		writeLoader(t, destDir)
		result := model.NewArtifactResult("App.wasm")

		step := NewPatchStep(destDir, WithPatches(patch.Patch{File: "app.js", Find: "not there", Replace: "x"}))
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Patches) != 1 || result.Patches[0].Patched {
			t.Fatalf("expected one missed patch, got %+v", result.Patches)
		}
		if result.Status() != model.StatusWarning {
			t.Errorf("expected status WARNING, got %s", result.Status())
		}
	})

	t.Run("missing loader fails the step", func(t *testing.T) {
		t.Parallel()

		result := model.NewArtifactResult("App.wasm")
		step := NewPatchStep(t.TempDir(),
			WithLoader("app.js"),
			WithPatchEncodings([]compress.Encoding{compress.Gzip}),
		)
		if err := step.Do(context.Background(), result); !errors.Is(err, patch.ErrFileNotFound) {
			t.Errorf("expected patch.ErrFileNotFound, got %v", err)
		}
	})

	t.Run("no gzip sibling leaves the loader alone with a warning", func(t *testing.T) {
		t.Parallel()

		destDir := t.TempDir()
		loader := writeLoader(t, destDir)
		result := model.NewArtifactResult("App.wasm")

		step := NewPatchStep(destDir,
			WithLoader("app.js"),
			WithPatchEncodings([]compress.Encoding{compress.Brotli}),
		)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(loader)
		if err != nil {
			t.Fatalf("read loader: %v", err)
		}
		if string(content) != loaderSource {
			t.Error("loader should be untouched")
		}
		if len(result.Warnings) != 1 {
			t.Errorf("expected one warning, got %v", result.Warnings)
		}
	})

	t.Run("nothing configured is a no-op", func(t *testing.T) {
		t.Parallel()

		result := model.NewArtifactResult("App.wasm")
		if err := NewPatchStep(t.TempDir()).Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Patches) != 0 {
			t.Errorf("expected no patches, got %+v", result.Patches)
		}
	})
}

// TestStatsStep tests the printed statistics.
func TestStatsStep(t *testing.T) {
	t.Parallel()

	t.Run("prints one line per sibling", func(t *testing.T) {
		t.Parallel()

		result := model.NewArtifactResult("App.wasm")
		result.OriginalSize = 4_000_000
		result.AddEncoded(model.EncodedFile{Encoding: "gzip", Size: 1_000_000, Verified: true})
		result.AddEncoded(model.EncodedFile{Encoding: "br", Size: 800_000, Verified: true})

		var buf bytes.Buffer
		if err := NewStatsStep(&buf).Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
		}
		for _, want := range []string{"App.wasm", "4.0 MB", "1.0 MB", "gzip", "25.0%", "saved 3.0 MB"} {
			if !strings.Contains(lines[0], want) {
				t.Errorf("first line %q missing %q", lines[0], want)
			}
		}
	})

	t.Run("nil writer discards output", func(t *testing.T) {
		t.Parallel()

		result := model.NewArtifactResult("App.wasm")
		if err := NewStatsStep(nil).Do(context.Background(), result); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
