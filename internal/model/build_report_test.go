package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// newShippedArtifact returns an artifact with two siblings and one applied patch.
func newShippedArtifact(name string) *ArtifactResult {
	a := NewArtifactResult(name)
	a.OriginalSize = 1000
	a.AddEncoded(EncodedFile{Encoding: "gzip", Path: name + ".gz", Size: 400, Verified: true})
	a.AddEncoded(EncodedFile{Encoding: "br", Path: name + ".br", Size: 300, Verified: true})
	a.AddPatch(PatchResult{File: "app.js", Find: "x", Patched: true, Occurrences: 1})
	return a
}

// TestNewBuildReport tests the BuildReport constructor.
func TestNewBuildReport(t *testing.T) {
	t.Parallel()

	report := NewBuildReport("demo")

	t.Run("sets project name", func(t *testing.T) {
		t.Parallel()
		if report.Project != "demo" {
			t.Errorf("got %q, expected demo", report.Project)
		}
	})

	t.Run("sets start timestamp", func(t *testing.T) {
		t.Parallel()
		if time.Since(report.StartedAt) > time.Second {
			t.Error("StartedAt is too old")
		}
	})

	t.Run("initializes artifacts slice", func(t *testing.T) {
		t.Parallel()
		if report.Artifacts == nil {
			t.Error("expected Artifacts to be initialized")
		}
	})
}

// TestBuildReportTotals tests size aggregation across artifacts.
func TestBuildReportTotals(t *testing.T) {
	t.Parallel()

	report := NewBuildReport("demo")
	report.AddArtifact(newShippedArtifact("App.wasm"))

	plain := NewArtifactResult("Worker.wasm")
	plain.OriginalSize = 500
	report.AddArtifact(plain)

	t.Run("total original sums every artifact", func(t *testing.T) {
		t.Parallel()
		if got := report.TotalOriginal(); got != 1500 {
			t.Errorf("got %d, expected 1500", got)
		}
	})

	t.Run("total compressed uses the smallest sibling", func(t *testing.T) {
		t.Parallel()
		if got := report.TotalCompressed(); got != 800 {
			t.Errorf("got %d, expected 800", got)
		}
	})

	t.Run("savings is the difference", func(t *testing.T) {
		t.Parallel()
		if got := report.Savings(); got != 700 {
			t.Errorf("got %d, expected 700", got)
		}
	})

	t.Run("artifact lookup by name", func(t *testing.T) {
		t.Parallel()
		if report.Artifact("Worker.wasm") != plain {
			t.Error("expected Worker.wasm result")
		}
		if report.Artifact("missing") != nil {
			t.Error("expected nil for unknown artifact")
		}
	})
}

// TestBuildReportSummary tests the summary counters.
func TestBuildReportSummary(t *testing.T) {
	t.Parallel()

	report := NewBuildReport("demo")
	report.AddArtifact(newShippedArtifact("App.wasm"))

	missed := newShippedArtifact("Other.wasm")
	missed.AddPatch(PatchResult{File: "other.js", Find: "y"})
	report.AddArtifact(missed)

	failed := NewArtifactResult("Broken.wasm")
	failed.SetError(errors.New("source not found"))
	report.AddArtifact(failed)

	s := report.Summary()

	if s.Artifacts != 3 {
		t.Errorf("expected 3 artifacts, got %d", s.Artifacts)
	}
	if s.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", s.Failed)
	}
	if s.PatchesApplied != 2 {
		t.Errorf("expected 2 applied patches, got %d", s.PatchesApplied)
	}
	if s.PatchesMissed != 1 {
		t.Errorf("expected 1 missed patch, got %d", s.PatchesMissed)
	}
	if !report.Failed() {
		t.Error("expected report to be failed")
	}
}

// TestBuildReportJSON tests that error messages survive serialization.
func TestBuildReportJSON(t *testing.T) {
	t.Parallel()

	report := NewBuildReport("demo")
	report.SetError(errors.New("build command failed"))
	report.AddArtifact(newShippedArtifact("App.wasm"))
	report.Finish()

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded BuildReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ErrorMessage != "build command failed" {
		t.Errorf("expected error message to survive, got %q", decoded.ErrorMessage)
	}
	if !decoded.Failed() {
		t.Error("expected decoded report to be failed")
	}
	if decoded.TotalCompressed() != report.TotalCompressed() {
		t.Errorf("expected totals to survive, got %d", decoded.TotalCompressed())
	}
}
