package report

import (
	"time"

	"github.com/nao1215/assetship/internal/model"
)

// DeltaState classifies how an artifact changed between two builds.
type DeltaState string

// Possible artifact changes.
const (
	DeltaAdded     DeltaState = "added"
	DeltaRemoved   DeltaState = "removed"
	DeltaGrown     DeltaState = "grown"
	DeltaShrunk    DeltaState = "shrunk"
	DeltaUnchanged DeltaState = "unchanged"
)

// SizeDelta pairs a size from the previous build with the current one.
type SizeDelta struct {
	Previous int64 `json:"previous"`
	Current  int64 `json:"current"`
}

// Bytes returns Current minus Previous.
func (d SizeDelta) Bytes() int64 {
	return d.Current - d.Previous
}

// Percent returns the change relative to Previous. Zero when Previous is zero.
func (d SizeDelta) Percent() float64 {
	if d.Previous == 0 {
		return 0
	}
	return float64(d.Bytes()) / float64(d.Previous)
}

// ArtifactDelta is the size change of one artifact.
type ArtifactDelta struct {
	Name       string     `json:"name"`
	State      DeltaState `json:"state"`
	Original   SizeDelta  `json:"original"`
	Compressed SizeDelta  `json:"compressed"`
	// DigestChanged is true when the uncompressed bytes differ.
	DigestChanged bool `json:"digest_changed"`
}

// BuildRef identifies one side of a comparison.
type BuildRef struct {
	// ID is the history database ID; zero when the report was not stored.
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Failed    bool      `json:"failed"`
}

// Comparison is the difference between two builds of the same project.
type Comparison struct {
	Project   string          `json:"project"`
	Previous  BuildRef        `json:"previous"`
	Current   BuildRef        `json:"current"`
	Artifacts []ArtifactDelta `json:"artifacts"`
	Total     ArtifactDelta   `json:"total"`
}

// CompareReports computes per-artifact size changes from previous to current.
// Artifacts are listed in current build order, followed by removed ones.
func CompareReports(previous, current *model.BuildReport) *Comparison {
	c := &Comparison{
		Project:   current.Project,
		Previous:  BuildRef{Timestamp: previous.StartedAt, Failed: previous.Failed()},
		Current:   BuildRef{Timestamp: current.StartedAt, Failed: current.Failed()},
		Artifacts: make([]ArtifactDelta, 0, len(current.Artifacts)),
	}

	for _, cur := range current.Artifacts {
		if cur == nil {
			continue
		}
		d := ArtifactDelta{
			Name:       cur.Name,
			Original:   SizeDelta{Current: cur.OriginalSize},
			Compressed: SizeDelta{Current: cur.CompressedSize()},
		}
		prev := previous.Artifact(cur.Name)
		if prev == nil {
			d.State = DeltaAdded
		} else {
			d.Original.Previous = prev.OriginalSize
			d.Compressed.Previous = prev.CompressedSize()
			d.DigestChanged = prev.Digest != cur.Digest
			d.State = stateOf(d.Compressed)
		}
		c.Artifacts = append(c.Artifacts, d)
	}

	for _, prev := range previous.Artifacts {
		if prev == nil || current.Artifact(prev.Name) != nil {
			continue
		}
		c.Artifacts = append(c.Artifacts, ArtifactDelta{
			Name:       prev.Name,
			State:      DeltaRemoved,
			Original:   SizeDelta{Previous: prev.OriginalSize},
			Compressed: SizeDelta{Previous: prev.CompressedSize()},
		})
	}

	c.Total = ArtifactDelta{
		Name:       "total",
		Original:   SizeDelta{Previous: previous.TotalOriginal(), Current: current.TotalOriginal()},
		Compressed: SizeDelta{Previous: previous.TotalCompressed(), Current: current.TotalCompressed()},
	}
	c.Total.State = stateOf(c.Total.Compressed)
	for _, d := range c.Artifacts {
		if d.DigestChanged {
			c.Total.DigestChanged = true
			break
		}
	}

	return c
}

// Changed reports whether any artifact was added, removed or resized.
func (c *Comparison) Changed() bool {
	for _, d := range c.Artifacts {
		if d.State != DeltaUnchanged {
			return true
		}
	}
	return false
}

func stateOf(d SizeDelta) DeltaState {
	switch {
	case d.Bytes() > 0:
		return DeltaGrown
	case d.Bytes() < 0:
		return DeltaShrunk
	default:
		return DeltaUnchanged
	}
}
