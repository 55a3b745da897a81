package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/log"
	"github.com/nao1215/assetship/internal/model"
)

// maxOutputTail is how much of the compile output is kept in the report.
const maxOutputTail = 8 * 1024

// waitDelay bounds how long output is drained after the command is killed.
const waitDelay = 5 * time.Second

// BuildStep runs the compile command that produces the artifacts.
// It runs once per build, before any artifact pipeline.
type BuildStep struct {
	command []string
	dir     string
	env     map[string]string
	timeout time.Duration
	output  io.Writer
	logger  *slog.Logger
}

// BuildStepOption configures a BuildStep.
type BuildStepOption func(*BuildStep)

// WithBuildDir sets the working directory of the command.
func WithBuildDir(dir string) BuildStepOption {
	return func(s *BuildStep) {
		s.dir = dir
	}
}

// WithBuildEnv adds environment variables to the command's environment.
func WithBuildEnv(env map[string]string) BuildStepOption {
	return func(s *BuildStep) {
		s.env = env
	}
}

// WithBuildTimeout bounds the command. Non-positive values keep the default.
func WithBuildTimeout(timeout time.Duration) BuildStepOption {
	return func(s *BuildStep) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithBuildOutput streams the command's output to w as it runs.
func WithBuildOutput(w io.Writer) BuildStepOption {
	return func(s *BuildStep) {
		s.output = w
	}
}

// WithBuildLogger sets a custom logger for the build step.
func WithBuildLogger(logger *slog.Logger) BuildStepOption {
	return func(s *BuildStep) {
		s.logger = logger
	}
}

// NewBuildStep creates a build step for the given argv.
func NewBuildStep(command []string, opts ...BuildStepOption) *BuildStep {
	s := &BuildStep{
		command: command,
		timeout: config.DefaultBuildTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *BuildStep) Name() string {
	return "build"
}

// Do runs the command and records its outcome in report.Build.
// A non-zero exit status returns ErrBuildFailed; hitting the timeout marks
// the report as timed out.
func (s *BuildStep) Do(ctx context.Context, report *model.BuildReport) error {
	if len(s.command) == 0 {
		return ErrEmptyCommand
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := &tailBuffer{limit: maxOutputTail}
	var w io.Writer = out
	if s.output != nil {
		w = io.MultiWriter(out, s.output)
	}

	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...) //nolint:gosec // command comes from the project file
	cmd.Dir = s.dir
	cmd.Env = s.environ()
	cmd.Stdout = w
	cmd.Stderr = w
	// Compilers spawn helpers that may outlive a killed parent and keep the output pipes open.
	cmd.WaitDelay = waitDelay

	report.Build = &model.BuildOutput{
		Command:  s.command,
		Dir:      s.dir,
		ExitCode: -1,
	}

	s.logger.Info("running build command",
		"command", strings.Join(s.command, " "),
		"dir", s.dir,
	)
	if len(s.env) > 0 {
		s.logger.Debug("build environment", log.EnvGroup("env", s.env))
	}

	start := time.Now()
	err := cmd.Run()
	report.Build.Duration = time.Since(start)
	report.Build.Output = out.String()
	if cmd.ProcessState != nil {
		report.Build.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		report.TimedOut = true
		return fmt.Errorf("%w: %s: %w", ErrBuildFailed, s.command[0], ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with status %d", ErrBuildFailed, s.command[0], exitErr.ExitCode())
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	s.logger.Info("build command finished", "duration", report.Build.Duration)
	return nil
}

func (s *BuildStep) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(s.env))
	for k := range s.env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+s.env[k])
	}
	return env
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if extra := t.buf.Len() - t.limit; extra > 0 {
		t.buf.Next(extra)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
