package model

import (
	"time"
)

// BuildReport is the result of one assetship build.
// It is what the report writers print and what the build history stores.
type BuildReport struct {
	// Project is the project name from the project file.
	Project string `json:"project"`

	// StartedAt is when the build started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the build finished. Zero while the build runs.
	FinishedAt time.Time `json:"finished_at"`

	// Build describes the compile command. Nil when no command is configured.
	Build *BuildOutput `json:"build,omitempty"`

	// Artifacts holds one result per configured artifact, in project file order.
	Artifacts []*ArtifactResult `json:"artifacts"`

	// PerformedSteps lists the build-level steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true if the build was cancelled or hit its deadline.
	TimedOut bool `json:"timed_out"`

	// Error is the error that aborted the build, if any.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// BuildOutput describes the compile command run before the artifacts are processed.
type BuildOutput struct {
	// Command is the argv that was run.
	Command []string `json:"command"`

	// Dir is the working directory of the command.
	Dir string `json:"dir,omitempty"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`

	// ExitCode is the exit status; -1 when the command could not be started.
	ExitCode int `json:"exit_code"`

	// Output is the tail of the combined stdout and stderr.
	Output string `json:"output,omitempty"`

	// Skipped is true when the build was skipped with --skip-build.
	Skipped bool `json:"skipped,omitempty"`
}

// BuildSummary aggregates a BuildReport for history listings and comparisons.
type BuildSummary struct {
	Artifacts       int     `json:"artifacts"`
	Failed          int     `json:"failed"`
	OriginalBytes   int64   `json:"original_bytes"`
	CompressedBytes int64   `json:"compressed_bytes"`
	Ratio           float64 `json:"ratio"`
	PatchesApplied  int     `json:"patches_applied"`
	PatchesMissed   int     `json:"patches_missed"`
}

// NewBuildReport creates a report for the named project.
func NewBuildReport(project string) *BuildReport {
	return &BuildReport{
		Project:   project,
		StartedAt: time.Now(),
		Artifacts: make([]*ArtifactResult, 0),
	}
}

// SetError records err as the reason the build failed.
func (r *BuildReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the build or any artifact failed.
func (r *BuildReport) Failed() bool {
	if r.ErrorMessage != "" {
		return true
	}
	for _, a := range r.Artifacts {
		if a != nil && a.Status() == StatusFailed {
			return true
		}
	}
	return false
}

// Finish stamps the finish time.
func (r *BuildReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the wall time of the build.
func (r *BuildReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// AddArtifact appends an artifact result.
func (r *BuildReport) AddArtifact(a *ArtifactResult) {
	r.Artifacts = append(r.Artifacts, a)
}

// Artifact returns the result for the named artifact, or nil.
func (r *BuildReport) Artifact(name string) *ArtifactResult {
	for _, a := range r.Artifacts {
		if a != nil && a.Name == name {
			return a
		}
	}
	return nil
}

// TotalOriginal returns the summed size of all original artifacts.
func (r *BuildReport) TotalOriginal() int64 {
	var total int64
	for _, a := range r.Artifacts {
		if a != nil {
			total += a.OriginalSize
		}
	}
	return total
}

// TotalCompressed returns the summed size of the smallest sibling of each artifact.
// Artifacts without a sibling count with their original size.
func (r *BuildReport) TotalCompressed() int64 {
	var total int64
	for _, a := range r.Artifacts {
		if a != nil {
			total += a.CompressedSize()
		}
	}
	return total
}

// Ratio returns TotalCompressed divided by TotalOriginal.
func (r *BuildReport) Ratio() float64 {
	return ratio(r.TotalCompressed(), r.TotalOriginal())
}

// Savings returns the number of bytes saved over the whole build.
func (r *BuildReport) Savings() int64 {
	return r.TotalOriginal() - r.TotalCompressed()
}

// Summary aggregates the report.
func (r *BuildReport) Summary() BuildSummary {
	s := BuildSummary{
		Artifacts:       len(r.Artifacts),
		OriginalBytes:   r.TotalOriginal(),
		CompressedBytes: r.TotalCompressed(),
		Ratio:           r.Ratio(),
	}
	for _, a := range r.Artifacts {
		if a == nil {
			continue
		}
		if a.Status() == StatusFailed {
			s.Failed++
		}
		for _, p := range a.Patches {
			if p.Patched || p.AlreadyApplied {
				s.PatchesApplied++
			} else {
				s.PatchesMissed++
			}
		}
	}
	return s
}

func ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
