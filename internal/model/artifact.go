package model

import "time"

// ArtifactResult is the outcome of shipping one build artifact.
type ArtifactResult struct {
	// Name is the artifact file name, e.g. "App.wasm".
	Name string `json:"name"`

	// SourcePath is where the compiler left the artifact.
	SourcePath string `json:"source_path"`

	// DestPath is where the artifact was copied to.
	DestPath string `json:"dest_path"`

	// OriginalSize is the size of the uncompressed artifact in bytes.
	OriginalSize int64 `json:"original_size"`

	// Digest is the SHA3-256 hex digest of the uncompressed artifact.
	Digest string `json:"digest,omitempty"`

	// Encoded lists the compressed siblings written next to DestPath.
	Encoded []EncodedFile `json:"encoded,omitempty"`

	// Patches lists the loader edits attempted for this artifact.
	Patches []PatchResult `json:"patches,omitempty"`

	// Warnings holds non-fatal problems, e.g. a patch whose text was not found.
	Warnings []string `json:"warnings,omitempty"`

	// OriginalRemoved is true when the uncompressed copy in the destination was deleted.
	OriginalRemoved bool `json:"original_removed,omitempty"`

	// Duration is how long the artifact pipeline ran.
	Duration time.Duration `json:"duration"`

	// PerformedSteps lists the pipeline steps that ran for this artifact.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true if the pipeline was cancelled before finishing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error is the error that stopped the pipeline, if any.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// EncodedFile is one compressed sibling of an artifact.
type EncodedFile struct {
	// Encoding is the Content-Encoding token (gzip, br, zstd).
	Encoding string `json:"encoding"`

	// Path is the sibling's path.
	Path string `json:"path"`

	// Size is the sibling's size in bytes.
	Size int64 `json:"size"`

	// Ratio is Size divided by the original size.
	Ratio float64 `json:"ratio"`

	// Verified is true when the sibling decompressed to the original bytes.
	Verified bool `json:"verified"`
}

// PatchResult is the outcome of one find-and-replace.
type PatchResult struct {
	File           string `json:"file"`
	Find           string `json:"find"`
	Patched        bool   `json:"patched"`
	AlreadyApplied bool   `json:"already_applied,omitempty"`
	Occurrences    int    `json:"occurrences"`
}

// NewArtifactResult creates a result for the named artifact.
func NewArtifactResult(name string) *ArtifactResult {
	return &ArtifactResult{
		Name:     name,
		Encoded:  make([]EncodedFile, 0),
		Patches:  make([]PatchResult, 0),
		Warnings: make([]string, 0),
	}
}

// SetError records err as the reason the artifact failed.
func (a *ArtifactResult) SetError(err error) {
	a.Error = err
	if err != nil {
		a.ErrorMessage = err.Error()
	}
}

// AddEncoded records a compressed sibling. Ratio is computed from OriginalSize.
func (a *ArtifactResult) AddEncoded(f EncodedFile) {
	f.Ratio = ratio(f.Size, a.OriginalSize)
	a.Encoded = append(a.Encoded, f)
}

// AddPatch records a patch outcome.
func (a *ArtifactResult) AddPatch(p PatchResult) {
	a.Patches = append(a.Patches, p)
}

// AddWarning records a non-fatal problem.
func (a *ArtifactResult) AddWarning(msg string) {
	a.Warnings = append(a.Warnings, msg)
}

// EncodedAs returns the sibling with the given encoding.
func (a *ArtifactResult) EncodedAs(encoding string) (EncodedFile, bool) {
	for _, e := range a.Encoded {
		if e.Encoding == encoding {
			return e, true
		}
	}
	return EncodedFile{}, false
}

// CompressedSize returns the size of the smallest sibling, or the original
// size when there is none.
func (a *ArtifactResult) CompressedSize() int64 {
	if len(a.Encoded) == 0 {
		return a.OriginalSize
	}
	smallest := a.Encoded[0].Size
	for _, e := range a.Encoded[1:] {
		if e.Size < smallest {
			smallest = e.Size
		}
	}
	return smallest
}

// Ratio returns the best compression ratio achieved.
func (a *ArtifactResult) Ratio() float64 {
	return ratio(a.CompressedSize(), a.OriginalSize)
}

// Savings returns the bytes saved by the smallest sibling.
func (a *ArtifactResult) Savings() int64 {
	return a.OriginalSize - a.CompressedSize()
}

// Status classifies the result.
func (a *ArtifactResult) Status() Status {
	if a.ErrorMessage != "" || a.Error != nil {
		return StatusFailed
	}
	if len(a.Warnings) > 0 {
		return StatusWarning
	}
	for _, p := range a.Patches {
		if !p.Patched && !p.AlreadyApplied {
			return StatusWarning
		}
	}
	for _, e := range a.Encoded {
		if !e.Verified {
			return StatusWarning
		}
	}
	return StatusOK
}
