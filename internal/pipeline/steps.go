package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/assetship/internal/compress"
	"github.com/nao1215/assetship/internal/model"
	"github.com/nao1215/assetship/internal/patch"
)

// CopyStep copies an artifact from the compiler output directory to the
// destination directory and records its size and digest.
type CopyStep struct {
	sourceDir string
	destDir   string
	logger    *slog.Logger
}

// CopyStepOption configures a CopyStep.
type CopyStepOption func(*CopyStep)

// WithCopyLogger sets a custom logger for the copy step.
func WithCopyLogger(logger *slog.Logger) CopyStepOption {
	return func(s *CopyStep) {
		s.logger = logger
	}
}

// NewCopyStep creates a copy step between two resolved directories.
func NewCopyStep(sourceDir, destDir string, opts ...CopyStepOption) *CopyStep {
	s := &CopyStep{
		sourceDir: sourceDir,
		destDir:   destDir,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CopyStep) Name() string {
	return "copy"
}

// Do copies the artifact. A missing artifact returns ErrArtifactNotFound.
func (s *CopyStep) Do(ctx context.Context, result *model.ArtifactResult) error {
	src := filepath.Join(s.sourceDir, result.Name)
	dst := filepath.Join(s.destDir, result.Name)
	result.SourcePath = src
	result.DestPath = dst

	in, err := os.Open(src) //nolint:gosec // path comes from the project file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactNotFound, src)
		}
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(s.destDir, 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.destDir, "."+result.Name+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: in})
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	sum, err := compress.DigestFile(tmpName)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}

	result.OriginalSize = n
	result.Digest = sum

	s.logger.Debug("artifact copied",
		"artifact", result.Name,
		"dest", dst,
		"size", n,
	)
	return nil
}

// CompressStep writes one compressed sibling per encoding next to the copied
// artifact and verifies that each decompresses to the original bytes.
type CompressStep struct {
	encodings    []compress.Encoding
	level        int
	keepOriginal bool
	logger       *slog.Logger
}

// CompressStepOption configures a CompressStep.
type CompressStepOption func(*CompressStep)

// WithCompressLevel sets the compression level. Zero selects the strongest level.
func WithCompressLevel(level int) CompressStepOption {
	return func(s *CompressStep) {
		s.level = level
	}
}

// WithKeepOriginal keeps the uncompressed artifact in the destination directory.
func WithKeepOriginal(keep bool) CompressStepOption {
	return func(s *CompressStep) {
		s.keepOriginal = keep
	}
}

// WithCompressLogger sets a custom logger for the compress step.
func WithCompressLogger(logger *slog.Logger) CompressStepOption {
	return func(s *CompressStep) {
		s.logger = logger
	}
}

// NewCompressStep creates a compress step. With no encodings, gzip is used.
func NewCompressStep(encodings []compress.Encoding, opts ...CompressStepOption) *CompressStep {
	if len(encodings) == 0 {
		encodings = []compress.Encoding{compress.Gzip}
	}
	s := &CompressStep{
		encodings: encodings,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CompressStep) Name() string {
	return "compress"
}

// Do compresses the copied artifact.
func (s *CompressStep) Do(ctx context.Context, result *model.ArtifactResult) error {
	for _, enc := range s.encodings {
		r, err := compress.CompressFile(ctx, result.DestPath, enc, compress.WithLevel(s.level))
		if err != nil {
			return fmt.Errorf("%s: %w", enc, err)
		}
		if result.Digest != "" && r.Digest != result.Digest {
			return fmt.Errorf("%w: %s changed while compressing", compress.ErrRoundTripMismatch, result.DestPath)
		}

		result.AddEncoded(model.EncodedFile{
			Encoding: enc.String(),
			Path:     r.Path,
			Size:     r.Size,
			Verified: r.Verified,
		})

		s.logger.Debug("artifact compressed",
			"artifact", result.Name,
			"encoding", enc,
			"size", r.Size,
		)
	}

	if !s.keepOriginal {
		if err := os.Remove(result.DestPath); err != nil {
			return fmt.Errorf("failed to remove uncompressed copy: %w", err)
		}
		result.OriginalRemoved = true
	}

	return nil
}

// PatchStep edits the generated loader so it fetches the compressed sibling.
// Explicit patches take precedence; when there are none and a loader is
// configured, the default loader patch for the gzip sibling is applied.
type PatchStep struct {
	destDir   string
	loader    string
	patches   []patch.Patch
	encodings []compress.Encoding
	locker    *patch.Locker
	logger    *slog.Logger
}

// sharedLocker guards loaders of PatchSteps built without WithPatchLocker.
var sharedLocker = patch.NewLocker()

// PatchStepOption configures a PatchStep.
type PatchStepOption func(*PatchStep)

// WithLoader sets the loader file name, relative to the destination directory.
func WithLoader(loader string) PatchStepOption {
	return func(s *PatchStep) {
		s.loader = loader
	}
}

// WithPatches sets explicit patches. Relative file paths resolve against the
// destination directory.
func WithPatches(patches ...patch.Patch) PatchStepOption {
	return func(s *PatchStep) {
		s.patches = append(s.patches, patches...)
	}
}

// WithPatchEncodings tells the step which siblings exist.
func WithPatchEncodings(encodings []compress.Encoding) PatchStepOption {
	return func(s *PatchStep) {
		s.encodings = encodings
	}
}

// WithPatchLocker sets the lock shared by every step that may edit the same files.
// Artifacts of one project usually share a loader.
func WithPatchLocker(l *patch.Locker) PatchStepOption {
	return func(s *PatchStep) {
		s.locker = l
	}
}

// WithPatchLogger sets a custom logger for the patch step.
func WithPatchLogger(logger *slog.Logger) PatchStepOption {
	return func(s *PatchStep) {
		s.logger = logger
	}
}

// NewPatchStep creates a patch step for files in destDir.
func NewPatchStep(destDir string, opts ...PatchStepOption) *PatchStep {
	s := &PatchStep{
		destDir: destDir,
		locker:  sharedLocker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = sharedLocker
	}
	return s
}

// Name returns the step name.
func (s *PatchStep) Name() string {
	return "patch"
}

// Do applies the patches. A missing file fails the step; text that is not
// found is recorded as a missed patch and a warning.
func (s *PatchStep) Do(_ context.Context, result *model.ArtifactResult) error {
	patches, err := s.resolve(result)
	if err != nil {
		return err
	}

	for _, p := range patches {
		r, err := s.locker.ApplyLocked(p.File, p.Find, p.Replace)
		if err != nil {
			return err
		}

		result.AddPatch(model.PatchResult{
			File:           r.File,
			Find:           r.Find,
			Patched:        r.Patched,
			AlreadyApplied: r.AlreadyApplied,
			Occurrences:    r.Occurrences,
		})

		switch {
		case r.Patched:
			s.logger.Debug("file patched", "artifact", result.Name, "file", r.File)
		case r.AlreadyApplied:
			s.logger.Debug("patch already applied", "artifact", result.Name, "file", r.File)
		default:
			s.logger.Warn("patch text not found", "artifact", result.Name, "file", r.File, "find", r.Find)
			result.AddWarning(fmt.Sprintf("%s: text %q not found", filepath.Base(r.File), r.Find))
		}
	}

	return nil
}

func (s *PatchStep) resolve(result *model.ArtifactResult) ([]patch.Patch, error) {
	if len(s.patches) > 0 {
		patches := make([]patch.Patch, 0, len(s.patches))
		for _, p := range s.patches {
			if !filepath.IsAbs(p.File) {
				p.File = filepath.Join(s.destDir, p.File)
			}
			patches = append(patches, p)
		}
		return patches, nil
	}

	if s.loader == "" {
		return nil, nil
	}

	for _, enc := range s.encodings {
		if patch.StreamDecodable(enc) {
			p, err := patch.LoaderPatch(filepath.Join(s.destDir, s.loader), result.Name, enc)
			if err != nil {
				return nil, err
			}
			return []patch.Patch{p}, nil
		}
	}

	result.AddWarning(fmt.Sprintf("%s: no gzip sibling, loader relies on the server's Content-Encoding", s.loader))
	return nil, nil
}

// StatsStep prints size statistics of the shipped artifact.
type StatsStep struct {
	out io.Writer
}

// NewStatsStep creates a stats step printing to out.
// Use NewSyncWriter when several pipelines share out.
func NewStatsStep(out io.Writer) *StatsStep {
	if out == nil {
		out = io.Discard
	}
	return &StatsStep{out: out}
}

// Name returns the step name.
func (s *StatsStep) Name() string {
	return "stats"
}

// Do prints one line per compressed sibling.
func (s *StatsStep) Do(_ context.Context, result *model.ArtifactResult) error {
	if len(result.Encoded) == 0 {
		_, err := fmt.Fprintf(s.out, "%s  %s\n", result.Name, humanize.Bytes(uint64(max(result.OriginalSize, 0))))
		return err
	}
	for _, e := range result.Encoded {
		_, err := fmt.Fprintf(s.out, "%s  %s -> %s %s (%.1f%%, saved %s)\n",
			result.Name,
			humanize.Bytes(uint64(max(result.OriginalSize, 0))),
			humanize.Bytes(uint64(max(e.Size, 0))),
			e.Encoding,
			e.Ratio*100,
			humanize.Bytes(uint64(max(result.OriginalSize-e.Size, 0))),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SyncWriter serializes writes to an underlying writer.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

// Write implements io.Writer.
func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
