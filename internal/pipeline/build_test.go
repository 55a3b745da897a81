package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/assetship/internal/model"
)

// requireShell skips tests that need a POSIX shell.
func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// TestBuildStep tests running the compile command.
func TestBuildStep(t *testing.T) {
	t.Parallel()

	t.Run("successful command records output and exit code", func(t *testing.T) {
		t.Parallel()
		requireShell(t)

		report := model.NewBuildReport("demo")
		var streamed bytes.Buffer
		step := NewBuildStep(
			[]string{"sh", "-c", `echo "compiling $TARGET" && echo warn >&2`},
			WithBuildEnv(map[string]string{"TARGET": "wasm32-unknown-wasi"}),
			WithBuildOutput(&streamed),
		)

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Build == nil {
			t.Fatal("expected build output to be recorded")
		}
		if report.Build.ExitCode != 0 {
			t.Errorf("expected exit code 0, got %d", report.Build.ExitCode)
		}
		if !strings.Contains(report.Build.Output, "compiling wasm32-unknown-wasi") {
			t.Errorf("expected env to reach the command, output %q", report.Build.Output)
		}
		if !strings.Contains(report.Build.Output, "warn") {
			t.Errorf("expected stderr to be captured, output %q", report.Build.Output)
		}
		if streamed.String() != report.Build.Output {
			t.Errorf("expected streamed output to match, got %q", streamed.String())
		}
	})

	t.Run("runs in the configured directory", func(t *testing.T) {
		t.Parallel()
		requireShell(t)

		dir := t.TempDir()
		report := model.NewBuildReport("demo")
		step := NewBuildStep([]string{"sh", "-c", "pwd"}, WithBuildDir(dir))

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(report.Build.Output, dir) {
			t.Errorf("expected output to contain %q, got %q", dir, report.Build.Output)
		}
	})

	t.Run("non-zero exit returns ErrBuildFailed", func(t *testing.T) {
		t.Parallel()
		requireShell(t)

		report := model.NewBuildReport("demo")
		err := NewBuildStep([]string{"sh", "-c", "exit 3"}).Do(context.Background(), report)

		if !errors.Is(err, ErrBuildFailed) {
			t.Fatalf("expected ErrBuildFailed, got %v", err)
		}
		if report.Build.ExitCode != 3 {
			t.Errorf("expected exit code 3, got %d", report.Build.ExitCode)
		}
		if report.TimedOut {
			t.Error("did not expect TimedOut")
		}
	})

	t.Run("unknown command returns ErrBuildFailed", func(t *testing.T) {
		t.Parallel()

		report := model.NewBuildReport("demo")
		err := NewBuildStep([]string{"assetship-no-such-compiler"}).Do(context.Background(), report)
		if !errors.Is(err, ErrBuildFailed) {
			t.Errorf("expected ErrBuildFailed, got %v", err)
		}
		if report.Build.ExitCode != -1 {
			t.Errorf("expected exit code -1, got %d", report.Build.ExitCode)
		}
	})

	t.Run("timeout marks the report as timed out", func(t *testing.T) {
		t.Parallel()
		requireShell(t)

		report := model.NewBuildReport("demo")
		step := NewBuildStep([]string{"sh", "-c", "exec sleep 5"}, WithBuildTimeout(50*time.Millisecond))

		err := step.Do(context.Background(), report)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
		if !report.TimedOut {
			t.Error("expected TimedOut to be true")
		}
	})

	t.Run("empty command returns ErrEmptyCommand", func(t *testing.T) {
		t.Parallel()

		err := NewBuildStep(nil).Do(context.Background(), model.NewBuildReport("demo"))
		if !errors.Is(err, ErrEmptyCommand) {
			t.Errorf("expected ErrEmptyCommand, got %v", err)
		}
	})
}

// TestTailBuffer tests that only the end of long output is kept.
func TestTailBuffer(t *testing.T) {
	t.Parallel()

	tb := &tailBuffer{limit: 8}
	_, _ = tb.Write([]byte("0123456789"))
	_, _ = tb.Write([]byte("abc"))

	if got := tb.String(); got != "56789abc" {
		t.Errorf("expected %q, got %q", "56789abc", got)
	}
}
