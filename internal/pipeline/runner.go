package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/model"
	"github.com/nao1215/assetship/internal/patch"
)

// Runner executes a complete build: the compile command, then one artifact
// pipeline per configured artifact.
type Runner struct {
	logger      *slog.Logger
	stats       io.Writer
	buildOutput io.Writer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger passed down to every step.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithStatsOutput sets where size statistics are printed. Nil discards them.
func WithStatsOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stats = w
	}
}

// WithCommandOutput streams the compile command's output to w.
func WithCommandOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.buildOutput = w
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run builds and ships the project described by file using the runtime options in cfg.
//
// The returned report is never nil. The error is non-nil when the build
// as a whole could not complete: the project file was invalid, the compile
// command failed, or ctx was cancelled. Artifact failures are only
// recorded in the report.
func (r *Runner) Run(ctx context.Context, file *config.File, cfg *config.Config) (*model.BuildReport, error) {
	report := model.NewBuildReport(file.ProjectName())
	defer report.Finish()

	if err := file.Validate(); err != nil {
		report.SetError(err)
		return report, err
	}

	if err := r.build(ctx, file, cfg, report); err != nil {
		report.SetError(err)
		return report, err
	}

	factory, err := r.factory(file)
	if err != nil {
		report.SetError(err)
		return report, err
	}

	bp := NewBatchProcessor(factory,
		WithConcurrency(cfg.Concurrency),
		WithBatchLogger(r.logger),
	)

	results, err := bp.ProcessBatch(ctx, file.ArtifactNames())
	report.Artifacts = results
	report.PerformedSteps = append(report.PerformedSteps, "ship")
	if err != nil {
		report.TimedOut = true
		report.SetError(err)
		return report, err
	}

	return report, nil
}

func (r *Runner) build(ctx context.Context, file *config.File, cfg *config.Config, report *model.BuildReport) error {
	if len(file.Build.Command) == 0 {
		return nil
	}
	if cfg.SkipBuild {
		report.Build = &model.BuildOutput{Command: file.Build.Command, Skipped: true}
		r.logger.Info("skipping build command")
		return nil
	}

	timeout := cfg.BuildTimeout
	if file.Build.Timeout > 0 {
		timeout = file.Build.Timeout
	}

	step := NewBuildStep(file.Build.Command,
		WithBuildDir(file.Resolve(file.Build.Dir)),
		WithBuildEnv(file.Build.Env),
		WithBuildTimeout(timeout),
		WithBuildOutput(r.buildOutput),
		WithBuildLogger(r.logger),
	)
	if err := step.Do(ctx, report); err != nil {
		return err
	}
	report.PerformedSteps = append(report.PerformedSteps, step.Name())
	return nil
}

// factory resolves every artifact's settings up front so that invalid
// settings fail the build before anything is written.
func (r *Runner) factory(file *config.File) (func(name string) *Pipeline, error) {
	sourceDir := file.Resolve(file.SourceDir)
	destDir := file.Resolve(file.DestDir)
	stats := NewSyncWriter(orDiscard(r.stats))
	locker := patch.NewLocker()

	pipelines := make(map[string]func() *Pipeline, len(file.Artifacts))
	for _, name := range file.ArtifactNames() {
		artifact := file.ArtifactFor(name)
		encodings, err := artifact.ParsedEncodings()
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", name, err)
		}

		patches := make([]patch.Patch, 0, len(artifact.Patches))
		for _, p := range artifact.Patches {
			patches = append(patches, patch.Patch{File: p.File, Find: p.Find, Replace: p.Replace})
		}

		pipelines[name] = func() *Pipeline {
			p := New(WithLogger(r.logger))
			p.AddSteps(
				NewCopyStep(sourceDir, destDir, WithCopyLogger(r.logger)),
				NewCompressStep(encodings,
					WithCompressLevel(artifact.Level),
					WithKeepOriginal(artifact.KeepsOriginal()),
					WithCompressLogger(r.logger),
				),
				NewPatchStep(destDir,
					WithLoader(artifact.Loader),
					WithPatches(patches...),
					WithPatchEncodings(encodings),
					WithPatchLocker(locker),
					WithPatchLogger(r.logger),
				),
				NewStatsStep(stats),
			)
			return p
		}
	}

	return func(name string) *Pipeline {
		return pipelines[name]()
	}, nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
