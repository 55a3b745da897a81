package main

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/assetship/internal/devserver"
	"github.com/nao1215/assetship/internal/fetch"
)

func TestRunVerifyCmd(t *testing.T) {
	t.Parallel()

	// shipped builds the project and serves its destDir with the development handler.
	shipped := func(t *testing.T) (testProject, *httptest.Server) {
		t.Helper()
		p := newTestProject(t)
		if _, _, err := runCLI(t, "build", "-c", p.configPath, "--no-save"); err != nil {
			t.Fatalf("build: %v", err)
		}
		srv := httptest.NewServer(devserver.NewHandler(p.path("dist")))
		t.Cleanup(srv.Close)
		return p, srv
	}

	t.Run("deployed sibling matches destDir", func(t *testing.T) {
		t.Parallel()

		p, srv := shipped(t)
		stdout, _, err := runCLI(t, "verify", srv.URL+"/App.wasm.gz", "-c", p.configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stdout)
		}
		for _, want := range []string{"Encoding:     gzip", "Content-Type: application/wasm", "✓"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output, got %q", want, stdout)
			}
		}
	})

	t.Run("negotiated artifact against the original build output", func(t *testing.T) {
		t.Parallel()

		p, srv := shipped(t)
		stdout, _, err := runCLI(t, "verify", srv.URL+"/App.wasm", p.path("build", "App.wasm"), "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Match  bool `json:"match"`
			IsWasm bool `json:"is_wasm"`
		}
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
		}
		if !got.Match || !got.IsWasm {
			t.Errorf("unexpected result: %s", stdout)
		}
	})

	t.Run("stale deployment", func(t *testing.T) {
		t.Parallel()

		p, srv := shipped(t)
		writeTestFile(t, p.path("local", "App.wasm"), append(wasmPayload, 'x'))

		stdout, _, err := runCLI(t, "verify", srv.URL+"/App.wasm.gz", p.path("local", "App.wasm"))
		if !errors.Is(err, fetch.ErrDigestMismatch) {
			t.Fatalf("expected ErrDigestMismatch, got %v", err)
		}
		if !strings.Contains(stdout, "✗") {
			t.Errorf("expected failure mark, got %q", stdout)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		t.Parallel()

		_, _, err := runCLI(t, "verify", "App.wasm", "local.wasm")
		if err == nil || !strings.Contains(err.Error(), "invalid URL") {
			t.Errorf("expected invalid URL error, got %v", err)
		}
	})
}
